// Package shell builds argument vectors whose tokens may refer to directories
// that are only known later, such as a package's source or build directory.
package shell

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"

	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/placeholder"
)

// Element is one token of an argument vector: a Literal, a Path or a Group.
type Element interface {
	Fill(bases map[string]string) (string, error)
	isElement()
}

// Literal is a token used verbatim.
type Literal string

// Fill returns the literal text.
func (l Literal) Fill(map[string]string) (string, error) {
	return string(l), nil
}

func (Literal) isElement() {}
func (Path) isElement()    {}
func (Group) isElement()   {}

// Group fuses several pieces into a single token, for example "-I" followed by
// a Path. Pieces are Literals or Paths.
type Group []Element

// Fill concatenates the filled pieces.
func (g Group) Fill(bases map[string]string) (string, error) {
	var sb strings.Builder
	for _, piece := range g {
		text, err := piece.Fill(bases)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// Arguments is an ordered argument vector.
type Arguments []Element

// Strings builds a vector of literal tokens.
func Strings(words ...string) Arguments {
	out := make(Arguments, len(words))
	for i, word := range words {
		out[i] = Literal(word)
	}
	return out
}

// Fill resolves every symbolic path against bases and returns a plain argv.
// It fails with *MissingBaseError if a referenced base is absent.
func (a Arguments) Fill(bases map[string]string) ([]string, error) {
	out := make([]string, 0, len(a))
	for i, elem := range a {
		text, err := elem.Fill(bases)
		if err != nil {
			return nil, fmt.Errorf("shell: argument %d: %w", i, err)
		}
		out = append(out, text)
	}
	return out, nil
}

// Equal reports whether both vectors hold the same tokens.
func (a Arguments) Equal(other Arguments) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if !elementEqual(a[i], other[i]) {
			return false
		}
	}
	return true
}

func elementEqual(x, y Element) bool {
	gx, okx := x.(Group)
	gy, oky := y.(Group)
	if okx || oky {
		return okx && oky && Arguments(gx).Equal(Arguments(gy))
	}
	return x == y
}

func (a Arguments) String() string {
	words := make([]string, len(a))
	for i, elem := range a {
		words[i] = elementString(elem)
	}
	return strings.Join(words, " ")
}

func elementString(elem Element) string {
	switch e := elem.(type) {
	case Literal:
		return string(e)
	case Path:
		return e.String()
	case Group:
		var sb strings.Builder
		for _, piece := range e {
			sb.WriteString(elementString(piece))
		}
		return sb.String()
	default:
		return fmt.Sprint(elem)
	}
}

var varPattern = regexp.MustCompile(`\$(?:\{([a-z_]+)\}|([a-z_]+))`)

// Expand turns $name and ${name} references to base directories into Path
// markers. Unknown names are kept as literal text.
func Expand(text string, bases ...string) placeholder.String {
	if len(bases) == 0 {
		bases = []string{BaseCfgDir, BaseSrcDir, BaseBuildDir}
	}
	known := make(map[string]bool, len(bases))
	for _, base := range bases {
		known[base] = true
	}

	var parts []placeholder.String
	last := 0
	for _, m := range varPattern.FindAllStringSubmatchIndex(text, -1) {
		name := ""
		if m[2] >= 0 {
			name = text[m[2]:m[3]]
		} else {
			name = text[m[4]:m[5]]
		}
		if !known[name] {
			continue
		}
		parts = append(parts, placeholder.Literal(text[last:m[0]]), placeholder.Mark(NewPath(name, "")))
		last = m[1]
	}
	parts = append(parts, placeholder.Literal(text[last:]))
	return placeholder.Concat(parts...)
}

// Split tokenizes s with shell quoting rules. Markers in s must be Paths and
// survive the split: a token holding only a marker becomes a Path, a token
// mixing text and markers becomes a Group.
func Split(s placeholder.String) (Arguments, error) {
	text, markers := s.Stash()
	words, err := shlex.Split(text)
	if err != nil {
		return nil, fmt.Errorf("shell: split %q: %w", s.String(), err)
	}
	out := make(Arguments, 0, len(words))
	for _, word := range words {
		piece, err := placeholder.Unstash(word, markers)
		if err != nil {
			return nil, fmt.Errorf("shell: split %q: %w", s.String(), err)
		}
		elem, err := Word(piece)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

// Parse expands base references in text and splits it into arguments.
func Parse(text string) (Arguments, error) {
	return Split(Expand(text))
}

// Word converts a single token into an Element without splitting it.
func Word(s placeholder.String) (Element, error) {
	if text, ok := s.Simplify().(string); ok {
		return Literal(text), nil
	}
	bits := s.Bits()
	group := make(Group, 0, len(bits))
	for _, b := range bits {
		switch v := b.(type) {
		case string:
			group = append(group, Literal(v))
		case Path:
			group = append(group, v)
		default:
			return nil, fmt.Errorf("shell: marker %v is not a path", b)
		}
	}
	if len(group) == 1 {
		return group[0], nil
	}
	return group, nil
}

// Dehydrate stores literals as strings, paths as envelopes and groups as
// nested lists.
func (a Arguments) Dehydrate(c *freezedry.Codec) (any, error) {
	out := make([]any, 0, len(a))
	for i, elem := range a {
		value, err := dehydrateElement(c, elem)
		if err != nil {
			return nil, fmt.Errorf("shell: argument %d: %w", i, err)
		}
		out = append(out, value)
	}
	return out, nil
}

func dehydrateElement(c *freezedry.Codec, elem Element) (any, error) {
	switch e := elem.(type) {
	case Literal:
		return string(e), nil
	case Path:
		return c.Dehydrate(e)
	case Group:
		return Arguments(e).Dehydrate(c)
	default:
		return nil, fmt.Errorf("unsupported element %T", elem)
	}
}

// Rehydrate restores a vector produced by Dehydrate.
func (a *Arguments) Rehydrate(c *freezedry.Codec, raw any) error {
	items, err := rawList(raw)
	if err != nil {
		return err
	}
	out := make(Arguments, 0, len(items))
	for i, item := range items {
		elem, err := rehydrateElement(c, item)
		if err != nil {
			return fmt.Errorf("shell: argument %d: %w", i, err)
		}
		out = append(out, elem)
	}
	*a = out
	return nil
}

func rehydrateElement(c *freezedry.Codec, raw any) (Element, error) {
	switch v := raw.(type) {
	case string:
		return Literal(v), nil
	case []any, []string:
		var group Arguments
		if err := group.Rehydrate(c, v); err != nil {
			return nil, err
		}
		return Group(group), nil
	default:
		return freezedry.RehydrateValue[Path](c, raw)
	}
}

func rawList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("shell: expected a list of arguments, got %T", raw)
	}
}
