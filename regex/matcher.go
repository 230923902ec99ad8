package regex

import (
	"fmt"
	"unicode"
)

// MatcherKind selects which test a Matcher performs.
type MatcherKind uint8

const (
	// MatchEpsilon always succeeds without consuming input.
	MatchEpsilon MatcherKind = iota

	// MatchChar consumes one character equal to Char.
	MatchChar

	// MatchClass consumes one character contained in Class.
	MatchClass

	// MatchAny consumes any one character, newline only if Newline is set.
	MatchAny

	// MatchAnchor is a zero-width assertion on the surrounding characters.
	MatchAnchor

	// MatchGroupStart and MatchGroupEnd record the position into the slots of Group.
	MatchGroupStart
	MatchGroupEnd

	// MatchBackref consumes a copy of the text captured by Group.
	MatchBackref

	// MatchSetStart and MatchSetEnd move the reported bounds of the whole match.
	MatchSetStart
	MatchSetEnd
)

func (k MatcherKind) String() string {
	switch k {
	case MatchEpsilon:
		return "Epsilon"
	case MatchChar:
		return "Char"
	case MatchClass:
		return "Class"
	case MatchAny:
		return "Any"
	case MatchAnchor:
		return "Anchor"
	case MatchGroupStart:
		return "GroupStart"
	case MatchGroupEnd:
		return "GroupEnd"
	case MatchBackref:
		return "Backref"
	case MatchSetStart:
		return "SetStart"
	case MatchSetEnd:
		return "SetEnd"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Matcher is the test guarding the transition out of a matching state.
// Only the fields used by Kind are meaningful.
type Matcher struct {
	Kind     MatcherKind
	Char     rune
	Class    CharClass
	Newline  bool
	Anchor   Anchor
	Group    int
	FoldCase bool
}

// match tests the matcher at pos and returns the number of characters consumed.
// Group markers always succeed here; the simulator records their positions so
// that it can undo them. caps holds the start and end of group n at caps[2n]
// and caps[2n+1], -1 when unset.
func (m *Matcher) match(t Text, pos int, caps []int) (int, bool) {
	switch m.Kind {
	case MatchEpsilon, MatchGroupStart, MatchGroupEnd, MatchSetStart, MatchSetEnd:
		return 0, true
	case MatchChar:
		if pos >= t.Len() {
			return 0, false
		}
		return consumed(sameChar(t.At(pos), m.Char, m.FoldCase))
	case MatchClass:
		if pos >= t.Len() {
			return 0, false
		}
		return consumed(m.Class.Contains(t.At(pos)))
	case MatchAny:
		if pos >= t.Len() {
			return 0, false
		}
		return consumed(m.Newline || t.At(pos) != '\n')
	case MatchAnchor:
		return 0, assert(m.Anchor, t, pos)
	case MatchBackref:
		return backref(t, pos, caps, m.Group, m.FoldCase)
	default:
		panic("unexpected matcher kind " + m.Kind.String())
	}
}

func (m *Matcher) String() string {
	switch m.Kind {
	case MatchChar:
		return Literal{Char: m.Char, FoldCase: m.FoldCase}.String()
	case MatchClass:
		return Class(m.Class).String()
	case MatchAny:
		return Any{Newline: m.Newline}.String()
	case MatchAnchor:
		return m.Anchor.String()
	case MatchGroupStart:
		return fmt.Sprintf("(%d", m.Group)
	case MatchGroupEnd:
		return fmt.Sprintf("%d)", m.Group)
	case MatchBackref:
		return Backref{Group: m.Group}.String()
	case MatchSetStart:
		return `\zs`
	case MatchSetEnd:
		return `\ze`
	default:
		return "ε"
	}
}

func consumed(ok bool) (int, bool) {
	if ok {
		return 1, true
	}
	return 0, false
}

func assert(a Anchor, t Text, pos int) bool {
	switch a {
	case AnchorLineStart:
		return pos == 0 || t.At(pos-1) == '\n'
	case AnchorLineEnd:
		return pos == t.Len() || t.At(pos) == '\n'
	case AnchorWordStart:
		return pos < t.Len() && isWordChar(t.At(pos)) && (pos == 0 || !isWordChar(t.At(pos-1)))
	case AnchorWordEnd:
		return pos > 0 && isWordChar(t.At(pos-1)) && (pos == t.Len() || !isWordChar(t.At(pos)))
	case AnchorTextStart:
		return pos == 0
	case AnchorTextEnd:
		return pos == t.Len()
	}
	return false
}

func backref(t Text, pos int, caps []int, group int, fold bool) (int, bool) {
	start, end := caps[2*group], caps[2*group+1]
	if start < 0 || end < start {
		return 0, false
	}
	n := end - start
	if pos+n > t.Len() {
		return 0, false
	}
	for i := 0; i < n; i++ {
		if !sameChar(t.At(pos+i), t.At(start+i), fold) {
			return 0, false
		}
	}
	return n, true
}

func sameChar(a, b rune, fold bool) bool {
	if a == b {
		return true
	}
	if !fold {
		return false
	}
	for f := unicode.SimpleFold(b); f != b; f = unicode.SimpleFold(f) {
		if f == a {
			return true
		}
	}
	return false
}
