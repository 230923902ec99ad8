package regex

import "unicode"

// Text is read-only indexed character access over the searched input.
// Valid positions are 0 through Len(); At is only called for positions below Len().
type Text interface {
	Len() int
	At(i int) rune
}

// Bytes is a Text where every byte is one character.
// Offsets into Bytes are byte offsets, which is what the grep tool reports.
type Bytes []byte

func (b Bytes) Len() int      { return len(b) }
func (b Bytes) At(i int) rune { return rune(b[i]) }

// Runes is a Text of decoded unicode code points.
type Runes []rune

func (r Runes) Len() int      { return len(r) }
func (r Runes) At(i int) rune { return r[i] }

// Slice returns the characters in [from, to) as a string.
func Slice(t Text, from, to int) string {
	switch t := t.(type) {
	case Bytes:
		return string(t[from:to])
	case Runes:
		return string(t[from:to])
	}
	rs := make([]rune, 0, to-from)
	for i := from; i < to; i++ {
		rs = append(rs, t.At(i))
	}
	return string(rs)
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
