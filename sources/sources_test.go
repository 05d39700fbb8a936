package sources_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/builders"
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/plugins"
	"github.com/goliatone/go-pkgtree/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePackage(t *testing.T, r *kinds.Registry, name, text string) kinds.Package {
	t.Helper()
	doc, err := document.Parse("/work/pkgtree.yml", []byte(text))
	require.NoError(t, err)
	pkg, err := r.ParsePackage(name, "/work/pkgtree.yml", doc.Root)
	require.NoError(t, err)
	return pkg
}

func TestDirectoryResolvesAgainstConfigDir(t *testing.T) {
	r := plugins.Default()
	pkg := parsePackage(t, r, "zlib", "source: directory\npath: deps/zlib\n")

	dir := pkg.(*sources.Directory)
	assert.True(t, dir.NeedsFetch())
	srcdir, err := dir.SrcDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "deps/zlib"), srcdir)

	abs := parsePackage(t, r, "zlib", "source: directory\npath: /opt/zlib\nbuild: none\n").(*sources.Directory)
	assert.False(t, abs.NeedsFetch())
	srcdir, err = abs.SrcDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/opt/zlib"), srcdir)
}

func TestDirectoryRequiresPath(t *testing.T) {
	doc, err := document.Parse("/work/pkgtree.yml", []byte("source: directory\n"))
	require.NoError(t, err)
	_, err = plugins.Default().ParsePackage("zlib", "/work/pkgtree.yml", doc.Root)
	var fieldErr *document.FieldValueError
	require.ErrorAs(t, err, &fieldErr)
}

func TestGitRoundTrip(t *testing.T) {
	r := plugins.Default()
	pkg := parsePackage(t, r, "fmt", `source: git
repository: https://github.com/fmtlib/fmt.git
rev: "10.2.1"
subdir: support
build:
  type: cmake
  extra_args: -DFMT_TEST=OFF -DFMT_DOC=OFF
`)
	codec := r.Codec()
	env, err := codec.Dehydrate(pkg)
	require.NoError(t, err)
	assert.Equal(t, "git", env.Type)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	restored, err := freezedry.RehydrateValue[kinds.Package](codec, raw)
	require.NoError(t, err)
	assert.True(t, codec.Equal(pkg, restored), codec.Diff(pkg, restored))

	git := restored.(*sources.Git)
	assert.Equal(t, "10.2.1", git.Rev)
	assert.Equal(t, "/work/pkgtree.yml", git.ConfigFile)
	assert.IsType(t, &builders.CMake{}, git.Builder)
}

func TestGitMirrorsAndChildFragments(t *testing.T) {
	options := opts.NewOptions()
	created, err := options.Ensure(opts.GroupSource, "git", func() opts.KindOptions { return &sources.GitOptions{} })
	require.NoError(t, err)

	child, err := document.Parse("/dep/pkgtree.yml", []byte("mirrors:\n  https://github.com/: https://evil.example/\ndepth: 5\n"))
	require.NoError(t, err)
	root, err := document.Parse("/work/pkgtree.yml", []byte("mirrors:\n  https://github.com/: https://mirror.local/gh/\n"))
	require.NoError(t, err)

	require.NoError(t, created.Accumulate(opts.Fragment{Node: child.Root, Origin: "/dep/pkgtree.yml", Child: true}))
	require.NoError(t, created.Accumulate(opts.Fragment{Node: root.Root, Origin: "/work/pkgtree.yml"}))

	gitOptions := created.(*sources.GitOptions)
	assert.Equal(t, 5, gitOptions.Depth)
	assert.Equal(t, map[string]string{"https://github.com/": "https://mirror.local/gh/"}, gitOptions.Mirrors)

	pkg := parsePackage(t, plugins.Default(), "fmt", "source: git\nrepository: https://github.com/fmtlib/fmt.git\n").(*sources.Git)
	pkg.SetOptions(options)
	assert.Equal(t, "https://mirror.local/gh/fmtlib/fmt.git", pkg.CloneURL())
}

func TestSystemRejectsUnknownFields(t *testing.T) {
	doc, err := document.Parse("/work/pkgtree.yml", []byte("source: system\nversion: '1.2'\nheaders: [zlib.h]\n"))
	require.NoError(t, err)
	_, err = plugins.Default().ParsePackage("zlib", "/work/pkgtree.yml", doc.Root)
	var fieldErr *document.FieldValueError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, []string{"headers"}, fieldErr.Path)
}
