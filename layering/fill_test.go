package layering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type channel struct {
	Enabled *bool
	Labels  []string
}

type settings struct {
	Generator string
	Depth     int
	Env       map[string]string
	Channel   *channel
	Args      []string
}

func boolPtr(v bool) *bool { return &v }

func TestFillStrongestFirst(t *testing.T) {
	strong := settings{
		Generator: "Ninja",
		Env:       map[string]string{"CC": "clang"},
		Channel:   &channel{Enabled: boolPtr(false)},
	}
	weak := settings{
		Generator: "Unix Makefiles",
		Depth:     1,
		Env:       map[string]string{"CC": "gcc", "CXX": "g++"},
		Channel:   &channel{Enabled: boolPtr(true), Labels: []string{"ci"}},
		Args:      []string{"-j4"},
	}

	got := strong
	Fill(&got, weak)
	want := settings{
		Generator: "Ninja",
		Depth:     1,
		Env:       map[string]string{"CC": "clang", "CXX": "g++"},
		Channel:   &channel{Enabled: boolPtr(false), Labels: []string{"ci"}},
		Args:      []string{"-j4"},
	}
	assert.Equal(t, want, got)
}

func TestFillDoesNotAlias(t *testing.T) {
	weak := settings{Env: map[string]string{"A": "1"}, Args: []string{"x"}}
	var got settings
	Fill(&got, weak)
	got.Env["A"] = "2"
	got.Args[0] = "y"
	assert.Equal(t, "1", weak.Env["A"], "fill result aliases the fragment")
	assert.Equal(t, "x", weak.Args[0], "fill result aliases the fragment")
}

func TestFillWithoutFragments(t *testing.T) {
	dst := settings{Generator: "Ninja"}
	Fill(&dst)
	assert.Equal(t, settings{Generator: "Ninja"}, dst)
	Fill[settings](nil, settings{Generator: "Xcode"})
}

func TestFillKeepsFirstWrite(t *testing.T) {
	var dst settings
	Fill(&dst, settings{Generator: "Ninja"})
	Fill(&dst, settings{Generator: "Xcode", Depth: 3})
	assert.Equal(t, "Ninja", dst.Generator, "the first generator wins")
	assert.Equal(t, 3, dst.Depth, "a later fragment fills depth")
}

func TestFillMergesNestedMapsThroughInterfaces(t *testing.T) {
	type usage struct {
		Values map[string]any
	}
	dst := usage{Values: map[string]any{
		"cmake": map[string]any{"target": "zlib"},
	}}
	Fill(&dst, usage{Values: map[string]any{
		"cmake":  map[string]any{"target": "z", "components": "static"},
		"pkgcfg": "zlib.pc",
	}})

	want := usage{Values: map[string]any{
		"cmake":  map[string]any{"target": "zlib", "components": "static"},
		"pkgcfg": "zlib.pc",
	}}
	assert.Equal(t, want, dst)
}
