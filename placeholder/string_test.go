package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dirMarker string

func TestConcatMergesLiterals(t *testing.T) {
	s := Concat(Literal("foo"), Literal("bar"))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "foobar", s.Simplify())

	s = Concat(Literal("-I"), Mark(dirMarker("srcdir")), Literal("/inc"), Literal("lude"))
	assert.Equal(t, []any{"-I", dirMarker("srcdir"), "/include"}, s.Bits())
}

func TestConcatDropsEmptyLiterals(t *testing.T) {
	s := Concat(Literal(""), Mark(dirMarker("a")), Literal(""), Mark(dirMarker("a")))
	assert.Equal(t, []any{dirMarker("a"), dirMarker("a")}, s.Bits())
}

func TestSimplify(t *testing.T) {
	assert.Equal(t, "", String{}.Simplify())
	assert.Equal(t, "plain", Literal("plain").Simplify())

	marked := Mark(dirMarker("builddir"))
	got, ok := marked.Simplify().(String)
	require.True(t, ok)
	assert.True(t, got.Equal(marked))
}

func TestReplace(t *testing.T) {
	src := dirMarker("srcdir")
	s := Concat(Literal("cd "), Mark(src), Literal(" && ls "), Mark(src))

	replaced := s.ReplaceText(src, "/tmp/src")
	text, err := replaced.Text()
	require.NoError(t, err)
	assert.Equal(t, "cd /tmp/src && ls /tmp/src", text)
	assert.Equal(t, 1, replaced.Len())

	nested := s.Replace(src, Concat(Mark(dirMarker("root")), Literal("/src")))
	assert.Equal(t, []any{"cd ", dirMarker("root"), "/src && ls ", dirMarker("root"), "/src"}, nested.Bits())
}

func TestTextFailsWithMarkers(t *testing.T) {
	_, err := Concat(Literal("x"), Mark(dirMarker("d"))).Text()
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestUnbox(t *testing.T) {
	assert.Equal(t, "abc", Literal("abc").Unbox(true))
	assert.Equal(t, []any{"abc"}, Literal("abc").Unbox(false))
	assert.Equal(t, []any{"a", dirMarker("m")}, Concat(Literal("a"), Mark(dirMarker("m"))).Unbox(true))
}

func TestStashRoundTrip(t *testing.T) {
	cases := map[string]String{
		"empty":            {},
		"literal":          Literal("hello world"),
		"marker only":      Mark(dirMarker("m")),
		"mixed":            Concat(Literal("a"), Mark(dirMarker("m1")), Literal("b"), Mark(dirMarker("m2"))),
		"adjacent markers": Concat(Mark(dirMarker("m1")), Mark(dirMarker("m2"))),
		"delimiter text":   Concat(Literal("x\x11y\x13"), Mark(dirMarker("m")), Literal("\x11\x11\x13")),
		"delimiter only":   Literal("\x11"),
		"close byte only":  Concat(Literal("\x13"), Mark(dirMarker("m")), Literal("0\x13")),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			text, markers := s.Stash()
			got, err := Unstash(text, markers)
			require.NoError(t, err)
			assert.True(t, got.Equal(s), "got %v want %v", got.Bits(), s.Bits())
		})
	}
}

func TestUnstashPieces(t *testing.T) {
	s := Concat(Literal("cc -I"), Mark(dirMarker("inc")), Literal(" -o "), Mark(dirMarker("out")), Literal("/bin"))
	text, markers := s.Stash()
	require.Len(t, markers, 2)

	pieces := []string{"cc", "-I\x110\x13", "-o", "\x111\x13/bin"}
	assert.Equal(t, "cc "+pieces[1]+" "+pieces[2]+" "+pieces[3], text)

	got, err := Unstash(pieces[3], markers)
	require.NoError(t, err)
	assert.Equal(t, []any{dirMarker("out"), "/bin"}, got.Bits())
}

func TestUnstashRejectsBadIndex(t *testing.T) {
	_, err := Unstash("\x115\x13", []any{dirMarker("a")})
	require.Error(t, err)

	_, err = Unstash("\x110", []any{dirMarker("a")})
	require.Error(t, err)
}
