package builders_test

import (
	"encoding/json"
	"testing"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/builders"
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/plugins"
	"github.com/goliatone/go-pkgtree/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bases = map[string]string{
	shell.BaseSrcDir:   "/src/zlib",
	shell.BaseBuildDir: "/build/zlib",
}

func parseBuilder(t *testing.T, text string) kinds.Builder {
	t.Helper()
	doc, err := document.Parse("/work/pkgtree.yml", []byte(text))
	require.NoError(t, err)
	pkg, err := plugins.Default().ParsePackage("zlib", "/work/pkgtree.yml", doc.Root)
	require.NoError(t, err)
	return pkg.Base().Builder
}

func TestCMakeCommandUsesOptions(t *testing.T) {
	builder := parseBuilder(t, "source: system\nbuild:\n  type: cmake\n  extra_args: [-DZLIB_COMPAT=ON, '--install-prefix=$builddir/stage']\n")

	options := opts.NewOptions()
	created, err := options.Ensure(opts.GroupBuilder, "cmake", func() opts.KindOptions { return &builders.CMakeOptions{} })
	require.NoError(t, err)
	fragment, err := document.Parse("/work/pkgtree.yml", []byte("generator: Ninja\nextra_args: [--fresh]\n"))
	require.NoError(t, err)
	require.NoError(t, created.Accumulate(opts.Fragment{Node: fragment.Root, Origin: "/work/pkgtree.yml"}))
	builder.SetOptions(options)

	argv, err := builder.(*builders.CMake).Command(bases)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cmake", "-S", "/src/zlib", "-B", "/build/zlib",
		"-G", "Ninja", "--fresh",
		"-DZLIB_COMPAT=ON", "--install-prefix=/build/zlib/stage",
	}, argv)
}

func TestCMakeToolchainOnlyFromRoot(t *testing.T) {
	var options builders.CMakeOptions
	child, err := document.Parse("/dep/pkgtree.yml", []byte("toolchain: /dep/tc.cmake\n"))
	require.NoError(t, err)
	require.NoError(t, options.Accumulate(opts.Fragment{Node: child.Root, Origin: "/dep/pkgtree.yml", Child: true}))
	assert.Empty(t, options.Toolchain)
}

func TestCustomCommandsRoundTrip(t *testing.T) {
	builder := parseBuilder(t, `source: system
build:
  type: custom
  build_commands:
    - ./configure --prefix=$builddir
    - [make, -C, $srcdir]
`)
	custom := builder.(*builders.Custom)
	commands, err := custom.Commands(bases)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"./configure", "--prefix=/build/zlib"},
		{"make", "-C", "/src/zlib"},
	}, commands)

	codec := plugins.Default().Codec()
	env, err := codec.Dehydrate(custom)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	restored, err := freezedry.RehydrateValue[kinds.Builder](codec, raw)
	require.NoError(t, err)
	assert.True(t, codec.Equal(custom, restored), codec.Diff(custom, restored))

	again, err := restored.(*builders.Custom).Commands(bases)
	require.NoError(t, err)
	assert.Equal(t, commands, again)
}

func TestCustomMissingBase(t *testing.T) {
	builder := parseBuilder(t, "source: system\nbuild:\n  type: custom\n  build_commands: ['make -C $srcdir']\n")
	_, err := builder.(*builders.Custom).Commands(map[string]string{})
	var missing *shell.MissingBaseError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, shell.BaseSrcDir, missing.Base)
}

func TestNoneRejectsFields(t *testing.T) {
	doc, err := document.Parse("/work/pkgtree.yml", []byte("source: system\nbuild:\n  type: none\n  jobs: 2\n"))
	require.NoError(t, err)
	_, err = plugins.Default().ParsePackage("zlib", "/work/pkgtree.yml", doc.Root)
	var fieldErr *document.FieldValueError
	require.ErrorAs(t, err, &fieldErr)
}
