package regex

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Unbounded is the Max of a Repeat without an upper bound.
const Unbounded = -1

// Node is an element of a parsed pattern.
// The compiler consumes a Node tree, never the pattern string.
type Node interface {
	fmt.Stringer
}

// Empty matches the empty string.
type Empty struct{}

// Literal matches a single character.
type Literal struct {
	Char     rune
	FoldCase bool
}

// Class matches a single character of a character class.
type Class CharClass

// Any matches any single character except newline, or any character at all if Newline is set.
type Any struct {
	Newline bool
}

// Assert is a zero-width anchor.
type Assert struct {
	Anchor Anchor
}

// Concat matches its children one after another.
type Concat struct {
	Subs []Node
}

// Alternate matches the first of its children that lets the whole pattern match.
type Alternate struct {
	Subs []Node
}

// Repeat matches Sub at least Min and at most Max times.
// Greedy repeats prefer more iterations, lazy ones fewer.
type Repeat struct {
	Sub  Node
	Min  int
	Max  int
	Lazy bool
}

// Group wraps Sub in capture group Index. Index 0 groups without capturing.
type Group struct {
	Index int
	Sub   Node
}

// Backref matches the text last captured by group Group.
type Backref struct {
	Group    int
	FoldCase bool
}

// MatchBound moves the reported start (\zs) or end (\ze) of the match to the current position.
type MatchBound struct {
	End bool
}

// Anchor is the kind of a zero-width assertion.
type Anchor uint8

const (
	AnchorLineStart Anchor = iota
	AnchorLineEnd
	AnchorWordStart
	AnchorWordEnd
	AnchorTextStart
	AnchorTextEnd
)

func (a Anchor) String() string {
	switch a {
	case AnchorLineStart:
		return "^"
	case AnchorLineEnd:
		return "$"
	case AnchorWordStart:
		return `\<`
	case AnchorWordEnd:
		return `\>`
	case AnchorTextStart:
		return `\%^`
	case AnchorTextEnd:
		return `\%$`
	default:
		return fmt.Sprintf("Anchor(%d)", a)
	}
}

// CharRange is an inclusive range of characters.
type CharRange struct {
	From rune
	To   rune
}

func (r CharRange) inRange(c rune) bool {
	return c >= r.From && c <= r.To
}

// CharClass is a set of characters given by ranges.
// Newline never matches unless it is in a non-negated range or Newline is set,
// the same as in a Vim buffer where lines carry no newline.
type CharClass struct {
	Negate   bool
	Ranges   []CharRange
	FoldCase bool
	Newline  bool
}

// Contains reports whether c is a member of the class. An empty class contains nothing.
func (cc *CharClass) Contains(c rune) bool {
	if c == '\n' {
		return cc.Newline || (!cc.Negate && cc.inRanges(c))
	}
	in := cc.inRanges(c)
	if !in && cc.FoldCase {
		for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
			if cc.inRanges(f) {
				in = true
				break
			}
		}
	}
	return in != cc.Negate
}

func (cc *CharClass) inRanges(c rune) bool {
	for _, r := range cc.Ranges {
		if r.inRange(c) {
			return true
		}
	}
	return false
}

func (Empty) String() string { return "" }

func (l Literal) String() string {
	if strings.ContainsRune(`\.*[~^$/`, l.Char) {
		return `\` + string(l.Char)
	}
	switch l.Char {
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	}
	return string(l.Char)
}

func (c Class) String() string {
	var b strings.Builder
	if c.Newline {
		b.WriteString(`\_`)
	}
	b.WriteByte('[')
	if c.Negate {
		b.WriteByte('^')
	}
	for _, r := range c.Ranges {
		b.WriteString(classChar(r.From))
		if r.To != r.From {
			b.WriteByte('-')
			b.WriteString(classChar(r.To))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func classChar(c rune) string {
	switch c {
	case ']', '^', '-', '\\':
		return `\` + string(c)
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	}
	return string(c)
}

func (a Any) String() string {
	if a.Newline {
		return `\_.`
	}
	return "."
}

func (a Assert) String() string { return a.Anchor.String() }

func (c Concat) String() string {
	var b strings.Builder
	for _, s := range c.Subs {
		if _, ok := s.(Alternate); ok {
			b.WriteString(`\%(` + s.String() + `\)`)
			continue
		}
		b.WriteString(s.String())
	}
	return b.String()
}

func (a Alternate) String() string {
	subs := make([]string, len(a.Subs))
	for i, s := range a.Subs {
		subs[i] = s.String()
	}
	return strings.Join(subs, `\|`)
}

func (r Repeat) String() string {
	sub := r.Sub.String()
	switch r.Sub.(type) {
	case Literal, Class, Any, Group, Backref:
	default:
		sub = `\%(` + sub + `\)`
	}
	if !r.Lazy {
		switch {
		case r.Min == 0 && r.Max == Unbounded:
			return sub + "*"
		case r.Min == 1 && r.Max == Unbounded:
			return sub + `\+`
		case r.Min == 0 && r.Max == 1:
			return sub + `\=`
		}
	}
	var b strings.Builder
	b.WriteString(sub)
	b.WriteString(`\{`)
	if r.Lazy {
		b.WriteByte('-')
	}
	switch {
	case r.Min == r.Max:
		b.WriteString(strconv.Itoa(r.Min))
	default:
		if r.Min > 0 {
			b.WriteString(strconv.Itoa(r.Min))
		}
		b.WriteByte(',')
		if r.Max != Unbounded {
			b.WriteString(strconv.Itoa(r.Max))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func (g Group) String() string {
	if g.Index == 0 {
		return `\%(` + g.Sub.String() + `\)`
	}
	return `\(` + g.Sub.String() + `\)`
}

func (b Backref) String() string { return `\` + strconv.Itoa(b.Group) }

func (m MatchBound) String() string {
	if m.End {
		return `\ze`
	}
	return `\zs`
}
