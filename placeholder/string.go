// Package placeholder models strings that embed opaque markers standing for
// values that are not known yet (an eventual build directory, for example).
//
// A String is an ordered sequence of bits. Each bit is either a literal run of
// text or a marker identity. Strings are always kept canonical: two literal
// bits are never adjacent.
package placeholder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolved reports an attempt to materialize a String that still carries
// markers.
var ErrUnresolved = errors.New("placeholder: unresolved markers remain")

type bit struct {
	text   string
	marker any
	mark   bool
}

// String is a symbolic string. The zero value is the empty string.
type String struct {
	bits []bit
}

// Literal returns a String holding text verbatim.
func Literal(text string) String {
	if text == "" {
		return String{}
	}
	return String{bits: []bit{{text: text}}}
}

// Mark returns a String holding a single marker. Markers are compared with ==,
// so marker values must be comparable.
func Mark(marker any) String {
	return String{bits: []bit{{marker: marker, mark: true}}}
}

// Concat joins parts into one canonical String.
func Concat(parts ...String) String {
	var out String
	for _, part := range parts {
		for _, b := range part.bits {
			out.push(b)
		}
	}
	return out
}

func (s *String) push(b bit) {
	if !b.mark {
		if b.text == "" {
			return
		}
		if n := len(s.bits); n > 0 && !s.bits[n-1].mark {
			s.bits[n-1].text += b.text
			return
		}
	}
	s.bits = append(s.bits, b)
}

// Len reports the number of bits.
func (s String) Len() int {
	return len(s.bits)
}

// Bits returns the bits as literal strings and raw marker identities.
func (s String) Bits() []any {
	out := make([]any, len(s.bits))
	for i, b := range s.bits {
		if b.mark {
			out[i] = b.marker
		} else {
			out[i] = b.text
		}
	}
	return out
}

// Markers returns the marker identities in order of appearance.
func (s String) Markers() []any {
	var out []any
	for _, b := range s.bits {
		if b.mark {
			out = append(out, b.marker)
		}
	}
	return out
}

// HasMarkers reports whether any marker remains.
func (s String) HasMarkers() bool {
	for _, b := range s.bits {
		if b.mark {
			return true
		}
	}
	return false
}

// Simplify returns a plain string when s holds no bits or a single literal
// bit, and s itself otherwise.
func (s String) Simplify() any {
	switch {
	case len(s.bits) == 0:
		return ""
	case len(s.bits) == 1 && !s.bits[0].mark:
		return s.bits[0].text
	default:
		return s
	}
}

// Replace substitutes every occurrence of marker with value.
func (s String) Replace(marker any, value String) String {
	var out String
	for _, b := range s.bits {
		if b.mark && b.marker == marker {
			for _, vb := range value.bits {
				out.push(vb)
			}
			continue
		}
		out.push(b)
	}
	return out
}

// ReplaceText substitutes every occurrence of marker with the literal text.
func (s String) ReplaceText(marker any, text string) String {
	return s.Replace(marker, Literal(text))
}

// Unbox returns the raw representation of s: a plain string when simplify is
// set and s simplifies, otherwise the bits as a slice.
func (s String) Unbox(simplify bool) any {
	if simplify {
		if text, ok := s.Simplify().(string); ok {
			return text
		}
	}
	return s.Bits()
}

// Text materializes s as a plain string.
func (s String) Text() (string, error) {
	var sb strings.Builder
	for _, b := range s.bits {
		if b.mark {
			return "", fmt.Errorf("%w: %v", ErrUnresolved, b.marker)
		}
		sb.WriteString(b.text)
	}
	return sb.String(), nil
}

// Equal reports whether both strings hold the same bits.
func (s String) Equal(other String) bool {
	if len(s.bits) != len(other.bits) {
		return false
	}
	for i := range s.bits {
		if s.bits[i] != other.bits[i] {
			return false
		}
	}
	return true
}

func (s String) String() string {
	var sb strings.Builder
	for _, b := range s.bits {
		if b.mark {
			fmt.Fprintf(&sb, "${%v}", b.marker)
			continue
		}
		sb.WriteString(b.text)
	}
	return sb.String()
}
