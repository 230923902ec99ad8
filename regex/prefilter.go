package regex

import (
	"bytes"

	"github.com/coregx/ahocorasick"
)

// maxPrefilterLiterals bounds the literal set; past it the cross products of
// alternations stop paying for themselves.
const maxPrefilterLiterals = 64

// prefilter finds offsets where one of the literals every match must start
// with occurs. Offsets it skips cannot start a match.
type prefilter struct {
	literals []string
	patterns [][]byte
	ac       *ahocorasick.Automaton
}

// newPrefilter returns nil if the pattern has no usable leading literals.
func newPrefilter(tree Node) *prefilter {
	lits, _ := leadingLiterals(tree)
	if len(lits) == 0 {
		return nil
	}
	builder := ahocorasick.NewBuilder()
	patterns := make([][]byte, len(lits))
	for i, lit := range lits {
		if lit == "" {
			return nil
		}
		patterns[i] = []byte(lit)
		builder.AddPattern(patterns[i])
	}
	ac, err := builder.Build()
	if err != nil {
		return nil
	}
	return &prefilter{literals: lits, patterns: patterns, ac: ac}
}

// next returns the first candidate start at or after at, or -1 if there is none.
// Only byte text can be scanned; for any other text every offset is a candidate.
func (p *prefilter) next(t Text, at int) int {
	b, ok := t.(Bytes)
	if !ok {
		return at
	}
	if at >= len(b) {
		return at
	}
	m := p.ac.Find(b, at)
	if m == nil {
		return -1
	}
	if len(p.patterns) == 1 {
		return m.Start
	}

	// The automaton reports the first match to end, and a literal nested in a
	// longer one ends first. Any occurrence starting earlier lies in a window
	// ending just short of m.Start plus its own length.
	start := m.Start
	for _, pat := range p.patterns {
		end := min(len(b), start+len(pat)-1)
		if end-at < len(pat) {
			continue
		}
		if i := bytes.Index(b[at:end], pat); i >= 0 && at+i < start {
			start = at + i
		}
	}
	return start
}

// leadingLiterals returns strings one of which every match of n starts with.
// exact reports that n matches exactly those strings and nothing else, so a
// following node may extend them.
func leadingLiterals(n Node) (lits []string, exact bool) {
	switch n := n.(type) {
	case Empty, Assert, MatchBound:
		return []string{""}, true
	case Literal:
		if n.FoldCase || n.Char >= 0x80 {
			return nil, false
		}
		return []string{string(n.Char)}, true
	case Group:
		return leadingLiterals(n.Sub)
	case Repeat:
		if n.Min == 0 {
			return nil, false
		}
		lits, exact := leadingLiterals(n.Sub)
		return lits, exact && n.Min == 1 && n.Max == 1
	case Alternate:
		exact = true
		for _, s := range n.Subs {
			sl, se := leadingLiterals(s)
			if sl == nil {
				return nil, false
			}
			lits = append(lits, sl...)
			exact = exact && se
		}
		if len(lits) > maxPrefilterLiterals {
			return nil, false
		}
		return lits, exact
	case Concat:
		lits = []string{""}
		for _, s := range n.Subs {
			sl, se := leadingLiterals(s)
			if sl == nil || len(lits)*len(sl) > maxPrefilterLiterals {
				return lits, false
			}
			cross := make([]string, 0, len(lits)*len(sl))
			for _, a := range lits {
				for _, b := range sl {
					cross = append(cross, a+b)
				}
			}
			lits = cross
			if !se {
				return lits, false
			}
		}
		return lits, true
	}
	return nil, false
}
