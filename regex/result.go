package regex

import "fmt"

// Span is the half-open range [Start, End) of character offsets.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string { return fmt.Sprintf("[%d, %d)", s.Start, s.End) }

// Match is the outcome of one simulation. The zero value is a failed match.
type Match struct {
	// slots holds the start and end of group n at 2n and 2n+1, -1 if the group did not participate.
	slots []int
}

func newMatch(caps []int, pos int) Match {
	slots := make([]int, len(caps))
	copy(slots, caps)
	if slots[1] < 0 {
		slots[1] = pos
	}
	if slots[1] < slots[0] {
		slots[1] = slots[0]
	}
	for i := 2; i < len(slots); i += 2 {
		if slots[i] < 0 || slots[i+1] < slots[i] {
			slots[i], slots[i+1] = -1, -1
		}
	}
	return Match{slots: slots}
}

// Matched reports whether the match succeeded.
func (m Match) Matched() bool { return m.slots != nil }

// Span returns the matched span, the zero Span on failure.
func (m Match) Span() Span {
	if m.slots == nil {
		return Span{}
	}
	return Span{Start: m.slots[0], End: m.slots[1]}
}

// Group returns the span captured by group n. Group 0 is the whole match.
// ok is false if the match failed, n is out of range, or the group did not participate.
func (m Match) Group(n int) (s Span, ok bool) {
	if n < 0 || 2*n+1 >= len(m.slots) || m.slots[2*n] < 0 {
		return Span{}, false
	}
	return Span{Start: m.slots[2*n], End: m.slots[2*n+1]}, true
}

// NumGroups returns the number of capture groups, not counting the whole match.
func (m Match) NumGroups() int {
	if m.slots == nil {
		return 0
	}
	return len(m.slots)/2 - 1
}

func (m Match) String() string {
	if m.slots == nil {
		return "no match"
	}
	return m.Span().String()
}
