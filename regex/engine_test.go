package regex

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const lorem = "Lorem Ipsum\n\nLorem ipsum dolor"

func mustAutomaton(t *testing.T, re string) *Automaton {
	t.Helper()
	tree, err := Parse(re, Flags{})
	if err != nil {
		t.Fatalf("Parse(%q): %v", re, err)
	}
	a, err := CompileTree(tree)
	if err != nil {
		t.Fatalf("CompileTree(%q): %v", re, err)
	}
	return a
}

func TestSimulate(t *testing.T) {
	tests := map[string]struct {
		givenText   string
		givenRe     string
		givenOffset int
		wantMatch   bool
		wantSpan    Span
	}{
		"no match": {
			givenText: lorem,
			givenRe:   "VIM",
		},
		"literal at start": {
			givenText: lorem,
			givenRe:   "Lorem",
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"literal at offset": {
			givenText:   lorem,
			givenRe:     "Lorem",
			givenOffset: 13,
			wantMatch:   true,
			wantSpan:    Span{13, 18},
		},
		"literal is not searched for": {
			givenText:   lorem,
			givenRe:     "Lorem",
			givenOffset: 1,
		},
		"escaped star": {
			givenText: "a*bcd",
			givenRe:   `a\*`,
			wantMatch: true,
			wantSpan:  Span{0, 2},
		},
		"star is greedy": {
			givenText: "aaaaabcd",
			givenRe:   "a*",
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"star matches empty": {
			givenText: "bcd",
			givenRe:   "a*",
			wantMatch: true,
			wantSpan:  Span{0, 0},
		},
		"plus": {
			givenText: "aaaaabcd",
			givenRe:   `a\+`,
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"plus needs one": {
			givenText: "bcd",
			givenRe:   `a\+`,
		},
		"brace up to three": {
			givenText: "aaaaabcd",
			givenRe:   `a\{0,3}`,
			wantMatch: true,
			wantSpan:  Span{0, 3},
		},
		"brace at least two": {
			givenText: "aaaaabcd",
			givenRe:   `a\{2,}`,
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"brace at most two": {
			givenText: "aaaaabcd",
			givenRe:   `a\{,2}`,
			wantMatch: true,
			wantSpan:  Span{0, 2},
		},
		"brace exactly two": {
			givenText: "aaaaabcd",
			givenRe:   `a\{2}`,
			wantMatch: true,
			wantSpan:  Span{0, 2},
		},
		"brace not enough repetitions": {
			givenText: "aaaaabcd",
			givenRe:   `a\{6,}`,
		},
		"brace with closing backslash": {
			givenText: "aaaaabcd",
			givenRe:   `a\{1,2\}`,
			wantMatch: true,
			wantSpan:  Span{0, 2},
		},
		"bounded repeat gives back for the rest": {
			givenText: "aaaab",
			givenRe:   `a\{2,4}ab`,
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"bounded repeat takes the maximum": {
			givenText: "aaaaab",
			givenRe:   `a\{2,4}ab`,
			wantMatch: true,
			wantSpan:  Span{0, 6},
		},
		"bounded repeat no count works": {
			givenText: "aab",
			givenRe:   `a\{2,4}ab`,
		},
		"lazy plus": {
			givenText: "aaa",
			givenRe:   `a\{-1,}`,
			wantMatch: true,
			wantSpan:  Span{0, 1},
		},
		"lazy star": {
			givenText: "aaa",
			givenRe:   `a\{-}`,
			wantMatch: true,
			wantSpan:  Span{0, 0},
		},
		"lazy bounded": {
			givenText: "aaaa",
			givenRe:   `a\{-2,3}`,
			wantMatch: true,
			wantSpan:  Span{0, 2},
		},
		"lazy extends when needed": {
			givenText: "aaab",
			givenRe:   `a\{-}b`,
			wantMatch: true,
			wantSpan:  Span{0, 4},
		},
		"first alternative wins": {
			givenText: "abc",
			givenRe:   `a\|ab`,
			wantMatch: true,
			wantSpan:  Span{0, 1},
		},
		"alternative backtracks": {
			givenText: "abc",
			givenRe:   `\(a\|ab\)c`,
			wantMatch: true,
			wantSpan:  Span{0, 3},
		},
		"nested empty loops terminate": {
			givenText: "aab",
			givenRe:   `\(a*\)*b`,
			wantMatch: true,
			wantSpan:  Span{0, 3},
		},
		"empty group loop terminates": {
			givenText: "x",
			givenRe:   `\(\)*`,
			wantMatch: true,
			wantSpan:  Span{0, 0},
		},
		"loop over empty alternative terminates": {
			givenText: "aab",
			givenRe:   `\%(a\|\)*b`,
			wantMatch: true,
			wantSpan:  Span{0, 3},
		},
		"nested empty loops fail": {
			givenText: "aac",
			givenRe:   `\(a*\)*b`,
		},
		"back reference": {
			givenText: "aabaa",
			givenRe:   `\(a\+\)b\1`,
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"back reference needs the same text": {
			givenText: "aaba",
			givenRe:   `\(a\+\)b\1`,
		},
		"back reference to group not taken": {
			givenText: "bb",
			givenRe:   `\%(\(a\)\|b\)\1`,
		},
		"back reference to abandoned group": {
			givenText: "aa",
			givenRe:   `\%(\(a\)x\|a\)\1`,
		},
		"line start after newline": {
			givenText:   lorem,
			givenRe:     "^Lorem",
			givenOffset: 13,
			wantMatch:   true,
			wantSpan:    Span{13, 18},
		},
		"line start inside line": {
			givenText:   lorem,
			givenRe:     "^Ipsum",
			givenOffset: 6,
		},
		"line end": {
			givenText:   lorem,
			givenRe:     "Ipsum$",
			givenOffset: 6,
			wantMatch:   true,
			wantSpan:    Span{6, 11},
		},
		"word boundaries": {
			givenText:   lorem,
			givenRe:     `\<ipsum\>`,
			givenOffset: 19,
			wantMatch:   true,
			wantSpan:    Span{19, 24},
		},
		"no word start inside word": {
			givenText:   lorem,
			givenRe:     `\<orem`,
			givenOffset: 1,
		},
		"dot does not match newline": {
			givenText:   lorem,
			givenRe:     "Ipsum.",
			givenOffset: 6,
		},
		"newline dot": {
			givenText:   lorem,
			givenRe:     `Ipsum\_.\_.L`,
			givenOffset: 6,
			wantMatch:   true,
			wantSpan:    Span{6, 14},
		},
		"newline escape": {
			givenText:   lorem,
			givenRe:     `Ipsum\n\nLorem`,
			givenOffset: 6,
			wantMatch:   true,
			wantSpan:    Span{6, 18},
		},
		"match start moved": {
			givenText: lorem,
			givenRe:   `Lorem \zsIpsum`,
			wantMatch: true,
			wantSpan:  Span{6, 11},
		},
		"match end moved": {
			givenText: lorem,
			givenRe:   `Lorem\ze Ipsum`,
			wantMatch: true,
			wantSpan:  Span{0, 5},
		},
		"ignore case": {
			givenText:   lorem,
			givenRe:     `\cIPSUM`,
			givenOffset: 19,
			wantMatch:   true,
			wantSpan:    Span{19, 24},
		},
		"class": {
			givenText: "2024-01-01",
			givenRe:   `\d\{4}-[0-9]\+`,
			wantMatch: true,
			wantSpan:  Span{0, 7},
		},
		"text start": {
			givenText:   lorem,
			givenRe:     `\%^Lorem`,
			givenOffset: 13,
		},
		"text end": {
			givenText:   lorem,
			givenRe:     `dolor\%$`,
			givenOffset: 25,
			wantMatch:   true,
			wantSpan:    Span{25, 30},
		},
		"empty pattern at end of text": {
			givenText:   "abc",
			givenRe:     "",
			givenOffset: 3,
			wantMatch:   true,
			wantSpan:    Span{3, 3},
		},
		"offset past end": {
			givenText:   "abc",
			givenRe:     "",
			givenOffset: 4,
		},
		"negative offset": {
			givenText:   "abc",
			givenRe:     "a",
			givenOffset: -1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := mustAutomaton(t, tt.givenRe)

			// when
			got := Simulate(a, Bytes(tt.givenText), tt.givenOffset)

			// then
			if got.Matched() != tt.wantMatch {
				t.Fatalf("got matched %v, want %v", got.Matched(), tt.wantMatch)
			}
			if d := cmp.Diff(tt.wantSpan, got.Span()); d != "" {
				t.Errorf("got diff (-want +got):\n%s", d)
			}
		})
	}
}

func TestSimulateGroups(t *testing.T) {
	unset := Span{-1, -1}
	tests := map[string]struct {
		givenText  string
		givenRe    string
		wantGroups []Span
	}{
		"optional group not taken": {
			givenText:  "ac",
			givenRe:    `\(a\)\(b\)\=c`,
			wantGroups: []Span{{0, 2}, {0, 1}, unset},
		},
		"group keeps last iteration": {
			givenText:  "abb",
			givenRe:    `\(a\|b\)*`,
			wantGroups: []Span{{0, 3}, {2, 3}},
		},
		"inner group keeps earlier iteration": {
			givenText:  "ab",
			givenRe:    `\(\(a\)\|b\)\+`,
			wantGroups: []Span{{0, 2}, {1, 2}, {0, 1}},
		},
		"group undone on backtrack": {
			givenText:  "ab",
			givenRe:    `\%(\(a\)c\|a\(b\)\)`,
			wantGroups: []Span{{0, 2}, unset, {1, 2}},
		},
		"empty group": {
			givenText:  "x",
			givenRe:    `\(\)x`,
			wantGroups: []Span{{0, 1}, {0, 0}},
		},
		"nested groups": {
			givenText:  "abc",
			givenRe:    `\(a\(b\)\)c`,
			wantGroups: []Span{{0, 3}, {0, 2}, {1, 2}},
		},
		"group inside moved start": {
			givenText:  "foobar",
			givenRe:    `foo\zs\(bar\)`,
			wantGroups: []Span{{3, 6}, {3, 6}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := mustAutomaton(t, tt.givenRe)

			// when
			m := Simulate(a, Bytes(tt.givenText), 0)

			// then
			if !m.Matched() {
				t.Fatalf("%q did not match %q", tt.givenRe, tt.givenText)
			}
			got := make([]Span, m.NumGroups()+1)
			for i := range got {
				s, ok := m.Group(i)
				if !ok {
					s = unset
				}
				got[i] = s
			}
			if d := cmp.Diff(tt.wantGroups, got); d != "" {
				t.Errorf("got diff (-want +got):\n%s", d)
			}
		})
	}
}

func TestSimulatorStepLimit(t *testing.T) {
	a := mustAutomaton(t, `a*b`)
	text := Bytes(strings.Repeat("a", 20))

	// when
	_, gotErr := Simulator{MaxSteps: 10}.Run(a, text, 0)

	// then
	if !errors.Is(gotErr, ErrStepLimit) {
		t.Errorf("got error %v, want %v", gotErr, ErrStepLimit)
	}

	// when
	m, gotErr := Simulator{}.Run(a, text, 0)

	// then
	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if m.Matched() {
		t.Errorf("got match %v, want none", m)
	}
}

func TestSimulateRunes(t *testing.T) {
	a := mustAutomaton(t, `ü\+\(ß\)`)

	// when
	m := Simulate(a, Runes("xüüß"), 1)

	// then
	if d := cmp.Diff(Span{1, 4}, m.Span()); d != "" {
		t.Errorf("got diff (-want +got):\n%s", d)
	}
}

func TestSimulateSharedAutomaton(t *testing.T) {
	a := mustAutomaton(t, `\(\w\+\) \1`)
	texts := []string{"hey hey", "ho ho", "hey ho"}
	want := []bool{true, true, false}

	// when
	got := make([]bool, len(texts))
	done := make(chan struct{})
	for i, s := range texts {
		go func() {
			got[i] = Simulate(a, Bytes(s), 0).Matched()
			done <- struct{}{}
		}()
	}
	for range texts {
		<-done
	}

	// then
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("got diff (-want +got):\n%s", d)
	}
}
