package placeholder

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	stashOpen  = '\x11'
	stashClose = '\x13'
)

// Stash encodes s as plain text so a tokenizer that knows nothing about
// markers can split it. Each marker becomes "\x11<index>\x13" and every
// literal "\x11" is doubled. The returned markers are indexed by position.
func (s String) Stash() (string, []any) {
	var sb strings.Builder
	var markers []any
	for _, b := range s.bits {
		if b.mark {
			sb.WriteByte(stashOpen)
			sb.WriteString(strconv.Itoa(len(markers)))
			sb.WriteByte(stashClose)
			markers = append(markers, b.marker)
			continue
		}
		sb.WriteString(strings.ReplaceAll(b.text, string(stashOpen), string([]byte{stashOpen, stashOpen})))
	}
	return sb.String(), markers
}

// Unstash decodes one piece of stashed text back into a canonical String.
// The piece may hold any number of markers interleaved with literal text.
func Unstash(text string, markers []any) (String, error) {
	var out String
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out.push(bit{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != stashOpen {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(text) && text[i+1] == stashOpen {
			lit.WriteByte(stashOpen)
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], stashClose)
		if end < 0 {
			return String{}, fmt.Errorf("placeholder: unterminated marker at offset %d", i)
		}
		index, err := strconv.Atoi(text[i+1 : i+1+end])
		if err != nil || index < 0 || index >= len(markers) {
			return String{}, fmt.Errorf("placeholder: invalid marker index %q at offset %d", text[i+1:i+1+end], i)
		}
		flush()
		out.push(bit{marker: markers[index], mark: true})
		i += end + 1
	}
	flush()
	return out, nil
}
