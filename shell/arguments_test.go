package shell

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/placeholder"
)

func sampleArgs() Arguments {
	return Arguments{
		Literal("cc"),
		Group{Literal("-I"), NewPath(BaseSrcDir, "include")},
		NewPath(BaseBuildDir, "out.o"),
	}
}

func TestFillIsPure(t *testing.T) {
	bases := map[string]string{BaseSrcDir: "/src", BaseBuildDir: "/build"}
	args := sampleArgs()

	first, err := args.Fill(bases)
	require.NoError(t, err)
	second, err := args.Fill(bases)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{
		"cc",
		"-I" + filepath.Join("/src", "include"),
		filepath.Join("/build", "out.o"),
	}, first)
}

func TestFillMissingBase(t *testing.T) {
	_, err := sampleArgs().Fill(map[string]string{BaseSrcDir: "/src"})

	var missing *MissingBaseError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, BaseBuildDir, missing.Base)
	assert.Equal(t, []string{BaseSrcDir}, missing.Have)
}

func TestAbsolutePathNeedsNoBase(t *testing.T) {
	out, err := Arguments{NewPath(BaseAbsolute, "/usr/bin/cc")}.Fill(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.FromSlash("/usr/bin/cc")}, out)
}

func TestParseKeepsQuotingAndMarkers(t *testing.T) {
	args, err := Parse(`--prefix=$builddir "two words" ${srcdir} $home`)
	require.NoError(t, err)

	require.Len(t, args, 4)
	assert.Equal(t, Group{Literal("--prefix="), NewPath(BaseBuildDir, "")}, args[0])
	assert.Equal(t, Literal("two words"), args[1])
	assert.Equal(t, NewPath(BaseSrcDir, ""), args[2])
	assert.Equal(t, Literal("$home"), args[3])
}

func TestSplitPreservesDelimiterBytes(t *testing.T) {
	s := placeholder.Concat(placeholder.Literal("a\x11b "), placeholder.Mark(NewPath(BaseSrcDir, "x")))

	args, err := Split(s)
	require.NoError(t, err)

	assert.True(t, args.Equal(Arguments{Literal("a\x11b"), NewPath(BaseSrcDir, "x")}), args.String())
}

func TestSplitRejectsForeignMarkers(t *testing.T) {
	_, err := Split(placeholder.Mark("not-a-path"))
	require.Error(t, err)
}

type command struct {
	Args Arguments `freezedry:"args"`
}

func TestArgumentsRoundTrip(t *testing.T) {
	original := command{Args: sampleArgs()}

	env, err := freezedry.Dehydrate(original)
	require.NoError(t, err)
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	restored, err := freezedry.RehydrateValue[command](freezedry.NewCodec(), decoded)
	require.NoError(t, err)

	assert.True(t, original.Args.Equal(restored.Args), restored.Args.String())
	assert.True(t, freezedry.Equal(original, restored))
}
