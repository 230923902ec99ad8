package regex

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Regex is a compiled Vim pattern. It is safe for concurrent use.
type Regex struct {
	pattern   string
	flags     Flags
	auto      *Automaton
	prefilter *prefilter
	anchored  bool
	sim       Simulator
}

// Submatch is a captured group in a string; Offset is a byte offset, -1 if the
// group did not participate in the match.
type Submatch struct {
	Offset int
	Str    string
}

// Compile parses and compiles a Vim pattern with case-sensitive matching.
func Compile(re string) (*Regex, error) {
	return CompileFlags(re, Flags{})
}

// CompileFlags parses and compiles a Vim pattern.
func CompileFlags(re string, flags Flags) (*Regex, error) {
	tree, err := Parse(re, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regex from %q: %w", re, err)
	}
	auto, err := CompileTree(tree)
	if err != nil {
		if pe, ok := err.(*PatternError); ok {
			pe.Pattern = re
		}
		return nil, err
	}
	return &Regex{
		pattern:   re,
		flags:     flags,
		auto:      auto,
		prefilter: newPrefilter(tree),
		anchored:  startsAtText(tree),
	}, nil
}

func MustCompile(re string) *Regex {
	r, err := Compile(re)
	if err != nil {
		panic(err)
	}
	return r
}

// WithMaxSteps returns a copy of re whose simulations give up with ErrStepLimit
// after visiting n states. n <= 0 removes the budget.
func (re *Regex) WithMaxSteps(n int) *Regex {
	c := *re
	c.sim = Simulator{MaxSteps: max(n, 0)}
	return &c
}

func (re *Regex) String() string { return re.pattern }

func (re *Regex) Flags() Flags { return re.flags }

func (re *Regex) Automaton() *Automaton { return re.auto }

// NumGroups returns the number of capture groups in the pattern.
func (re *Regex) NumGroups() int { return re.auto.Groups() }

// MatchAt matches the pattern starting exactly at offset.
func (re *Regex) MatchAt(t Text, offset int) (Match, error) {
	return re.sim.Run(re.auto, t, offset)
}

// Search returns the first match starting at or after from.
func (re *Regex) Search(t Text, from int) (Match, error) {
	m, _, err := re.search(t, from)
	return m, err
}

// search also returns the offset the match was attempted at, which differs
// from the span start when the pattern uses \zs.
func (re *Regex) search(t Text, from int) (Match, int, error) {
	if from < 0 {
		from = 0
	}
	for at := from; at <= t.Len(); at++ {
		if re.anchored && at > 0 {
			break
		}
		if re.prefilter != nil {
			if at = re.prefilter.next(t, at); at < 0 {
				break
			}
		}
		m, err := re.sim.Run(re.auto, t, at)
		if err != nil {
			return Match{}, at, err
		}
		if m.Matched() {
			return m, at, nil
		}
	}
	return Match{}, -1, nil
}

// FindAll returns up to n successive non-overlapping matches, all of them if n < 0.
func (re *Regex) FindAll(t Text, n int) ([]Match, error) {
	var matches []Match
	prevEnd := -1
	for from := 0; from <= t.Len() && (n < 0 || len(matches) < n); {
		m, at, err := re.search(t, from)
		if err != nil {
			return matches, err
		}
		if !m.Matched() {
			break
		}
		// an empty match directly after the previous one is not reported, as in :s///g
		if span := m.Span(); span.Len() > 0 || span.Start != prevEnd {
			matches = append(matches, m)
			prevEnd = span.End
		}
		// an empty match must not be found again at the same place
		from = m.Span().End
		if from <= at {
			from = at + 1
		}
	}
	return matches, nil
}

// FindAllSubmatches finds up to maxCount matches of the pattern in the given string
// To return all matches pass a maxCount of -1
// Running out of steps (see WithMaxSteps) ends the search with the matches found
// so far; use Submatches to tell that apart from the end of the string.
func (re *Regex) FindAllSubmatches(s string, maxCount int) [][]Submatch {
	all, _ := re.Submatches(s, maxCount)
	return all
}

// Submatches is FindAllSubmatches that also returns ErrStepLimit, along with the
// matches found before the budget ran out.
func (re *Regex) Submatches(s string, maxCount int) ([][]Submatch, error) {
	t, toByte := textOf(s)
	matches, err := re.FindAll(t, maxCount)
	all := make([][]Submatch, 0, len(matches))
	for _, m := range matches {
		all = append(all, submatches(s, m, toByte))
	}
	return all, err
}

func (re *Regex) FindSubmatch(s string) []Submatch {
	submatch := re.FindAllSubmatches(s, 1)
	if len(submatch) < 1 {
		return nil
	}
	return submatch[0]
}

// Match reports whether s holds a match. A search that runs out of steps before
// the first match counts as no match.
func (re *Regex) Match(s string) bool {
	return len(re.FindSubmatch(s)) > 0
}

// Replace replaces the first match in s like Vim's :s without the g flag.
// In with, & and \0 stand for the whole match, \1 to \9 for the groups, \n for
// a newline and \& or \\ for the literal character. Running out of steps leaves
// the rest of s unchanged.
func (re *Regex) Replace(s string, with string) string {
	return re.replace(s, with, 1)
}

// ReplaceAll replaces every match in s like Vim's :s with the g flag.
func (re *Regex) ReplaceAll(s string, with string) string {
	return re.replace(s, with, -1)
}

func (re *Regex) replace(s string, with string, n int) string {
	out := strings.Builder{}
	last := 0
	for _, sm := range re.FindAllSubmatches(s, n) {
		out.WriteString(s[last:sm[0].Offset])
		expandReplacement(&out, with, sm)
		last = sm[0].Offset + len(sm[0].Str)
	}
	out.WriteString(s[last:])
	return out.String()
}

func expandReplacement(out *strings.Builder, with string, submatches []Submatch) {
	for i := 0; i < len(with); i++ {
		switch {
		case with[i] == '&':
			out.WriteString(submatches[0].Str)
		case with[i] == '\\' && i+1 < len(with):
			i++
			switch c := with[i]; {
			case c >= '0' && c <= '9':
				if num := int(c - '0'); num < len(submatches) {
					out.WriteString(submatches[num].Str)
				}
			case c == 'n' || c == 'r':
				out.WriteByte('\n')
			case c == 't':
				out.WriteByte('\t')
			default:
				out.WriteByte(c)
			}
		default:
			out.WriteByte(with[i])
		}
	}
}

func submatches(s string, m Match, toByte func(int) int) []Submatch {
	sms := make([]Submatch, m.NumGroups()+1)
	for i := range sms {
		span, ok := m.Group(i)
		if !ok {
			sms[i] = Submatch{Offset: -1}
			continue
		}
		from, to := toByte(span.Start), toByte(span.End)
		sms[i] = Submatch{Offset: from, Str: s[from:to]}
	}
	return sms
}

// TextOf returns b as Text: Bytes when it is plain ASCII, Runes otherwise.
func TextOf(b []byte) Text {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return Runes([]rune(string(b)))
		}
	}
	return Bytes(b)
}

// textOf is TextOf for strings, returning the conversion from character to byte offsets.
func textOf(s string) (Text, func(int) int) {
	t := TextOf([]byte(s))
	if _, ok := t.(Bytes); ok {
		return t, func(i int) int { return i }
	}
	offsets := make([]int, 0, t.Len()+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(s))
	return t, func(i int) int { return offsets[i] }
}

// startsAtText reports whether every match must start at offset 0.
func startsAtText(n Node) bool {
	switch n := n.(type) {
	case Assert:
		return n.Anchor == AnchorTextStart
	case Group:
		return startsAtText(n.Sub)
	case Concat:
		return len(n.Subs) > 0 && startsAtText(n.Subs[0])
	case Alternate:
		for _, s := range n.Subs {
			if !startsAtText(s) {
				return false
			}
		}
		return len(n.Subs) > 0
	}
	return false
}
