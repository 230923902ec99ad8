package regex

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompileTreeBackrefs(t *testing.T) {
	tests := map[string]struct {
		givenRe   string
		wantGroup int
		wantErr   bool
	}{
		"reference to earlier group": {
			givenRe: `\(a\)\1`,
		},
		"reference to later group": {
			givenRe: `\1\(a\)`,
		},
		"reference to missing group": {
			givenRe:   `\(a\)\2`,
			wantGroup: 2,
			wantErr:   true,
		},
		"non-capturing group has no number": {
			givenRe:   `\%(a\)\1`,
			wantGroup: 1,
			wantErr:   true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tree, err := Parse(tt.givenRe, Flags{})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			// when
			_, gotErr := CompileTree(tree)

			// then
			if !tt.wantErr {
				if gotErr != nil {
					t.Fatalf("unexpected error: %v", gotErr)
				}
				return
			}
			if !errors.Is(gotErr, ErrInvalidBackref) {
				t.Fatalf("got error %v, want %v", gotErr, ErrInvalidBackref)
			}
			var pe *PatternError
			if !errors.As(gotErr, &pe) {
				t.Fatalf("got error of type %T, want *PatternError", gotErr)
			}
			if pe.Group != tt.wantGroup {
				t.Errorf("got group %d, want %d", pe.Group, tt.wantGroup)
			}
		})
	}
}

func TestCompileTreeRepeatBounds(t *testing.T) {
	tests := map[string]struct {
		givenMin int
		givenMax int
		wantErr  bool
	}{
		"ordered":            {givenMin: 1, givenMax: 3},
		"exact":              {givenMin: 2, givenMax: 2},
		"unbounded":          {givenMin: 0, givenMax: Unbounded},
		"negative min":       {givenMin: -1, givenMax: 2, wantErr: true},
		"negative unbounded": {givenMin: -1, givenMax: Unbounded, wantErr: true},
		"max below min":      {givenMin: 3, givenMax: 1, wantErr: true},
		"negative max":       {givenMin: 0, givenMax: -5, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tree := Repeat{Sub: Literal{Char: 'a'}, Min: tt.givenMin, Max: tt.givenMax}

			// when
			_, gotErr := CompileTree(tree)

			// then
			if (gotErr != nil) != tt.wantErr {
				t.Errorf("got error %v, want error %v", gotErr, tt.wantErr)
			}
		})
	}
}

func TestCompileTreeGroups(t *testing.T) {
	tests := map[string]struct {
		givenRe    string
		wantGroups int
		wantLoops  int
	}{
		"no groups": {
			givenRe: "abc",
		},
		"two groups one loop": {
			givenRe:    `\(a\)*\(b\)`,
			wantGroups: 2,
			wantLoops:  1,
		},
		"bounded repeat does not loop": {
			givenRe:    `\(a\)\{2,5}`,
			wantGroups: 1,
		},
		"plus loops once": {
			givenRe:   `a\+`,
			wantLoops: 1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			// when
			a := mustAutomaton(t, tt.givenRe)

			// then
			if a.Groups() != tt.wantGroups {
				t.Errorf("got %d groups, want %d", a.Groups(), tt.wantGroups)
			}
			loops := 0
			for id := range a.States() {
				if a.State(StateID(id)).IsLoop() {
					loops++
				}
			}
			if loops != tt.wantLoops {
				t.Errorf("got %d loops, want %d", loops, tt.wantLoops)
			}
			if a.State(a.Accept()).Kind() != StateAccept {
				t.Errorf("accept state is %v", a.State(a.Accept()).Kind())
			}
		})
	}
}

func TestConcatAssociative(t *testing.T) {
	a := Repeat{Sub: Literal{Char: 'a'}, Min: 0, Max: Unbounded}
	b := Group{Index: 1, Sub: Alternate{Subs: []Node{Literal{Char: 'a'}, Literal{Char: 'b'}}}}
	c := Repeat{Sub: Literal{Char: 'b'}, Min: 0, Max: 1}
	left := Concat{Subs: []Node{Concat{Subs: []Node{a, b}}, c}}
	right := Concat{Subs: []Node{a, Concat{Subs: []Node{b, c}}}}

	leftAuto, err := CompileTree(left)
	if err != nil {
		t.Fatalf("CompileTree: %v", err)
	}
	rightAuto, err := CompileTree(right)
	if err != nil {
		t.Fatalf("CompileTree: %v", err)
	}

	for _, s := range []string{"", "a", "aab", "aabb", "bbb", "caab", "aaaa"} {
		for offset := 0; offset <= len(s); offset++ {
			// when
			gotLeft := Simulate(leftAuto, Bytes(s), offset)
			gotRight := Simulate(rightAuto, Bytes(s), offset)

			// then
			if gotLeft.Matched() != gotRight.Matched() {
				t.Fatalf("%q at %d: matched %v and %v", s, offset, gotLeft.Matched(), gotRight.Matched())
			}
			if d := cmp.Diff(gotLeft.Span(), gotRight.Span()); d != "" {
				t.Errorf("%q at %d: got diff (-left +right):\n%s", s, offset, d)
			}
		}
	}
}

func TestBuilder(t *testing.T) {
	tests := map[string]struct {
		givenBuild  func(b *Builder) (StateID, StateID)
		wantErr     bool
		wantStateID StateID
	}{
		"happy single matcher": {
			givenBuild: func(b *Builder) (StateID, StateID) {
				accept := b.AddAccept()
				return b.AddMatcher(Matcher{Kind: MatchChar, Char: 'a'}, accept), accept
			},
		},
		"unpatched transition": {
			givenBuild: func(b *Builder) (StateID, StateID) {
				start := b.AddMatcher(Matcher{Kind: MatchChar, Char: 'a'}, InvalidState)
				return start, b.AddAccept()
			},
			wantErr:     true,
			wantStateID: 0,
		},
		"unpatched loop": {
			givenBuild: func(b *Builder) (StateID, StateID) {
				accept := b.AddAccept()
				l := b.AddLoop(1)
				_ = b.PatchAlt(l, 1, accept)
				return l, accept
			},
			wantErr:     true,
			wantStateID: 1,
		},
		"unreachable accept": {
			givenBuild: func(b *Builder) (StateID, StateID) {
				a := b.AddEpsilon(InvalidState)
				_ = b.Patch(a, a)
				return a, b.AddAccept()
			},
			wantErr:     true,
			wantStateID: 1,
		},
		"accept is not an accept state": {
			givenBuild: func(b *Builder) (StateID, StateID) {
				a := b.AddEpsilon(InvalidState)
				_ = b.Patch(a, a)
				return a, a
			},
			wantErr:     true,
			wantStateID: InvalidState,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := NewBuilder()
			start, accept := tt.givenBuild(b)

			// when
			_, gotErr := b.Build(start, accept)

			// then
			if !tt.wantErr {
				if gotErr != nil {
					t.Fatalf("unexpected error: %v", gotErr)
				}
				return
			}
			var be *BuildError
			if !errors.As(gotErr, &be) {
				t.Fatalf("got error %v, want *BuildError", gotErr)
			}
			if be.StateID != tt.wantStateID {
				t.Errorf("got error at state %d, want %d", be.StateID, tt.wantStateID)
			}
		})
	}
}

func TestBuilderPatch(t *testing.T) {
	b := NewBuilder()
	accept := b.AddAccept()
	branch := b.AddBranch(accept)

	if err := b.Patch(branch, accept); err == nil {
		t.Errorf("patching a branch succeeded")
	}
	if err := b.Patch(StateID(42), accept); err == nil {
		t.Errorf("patching a missing state succeeded")
	}
	if err := b.PatchAlt(branch, 3, accept); err == nil {
		t.Errorf("patching a missing alternative succeeded")
	}
	if err := b.PatchAlt(branch, 0, accept); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
