package regex

import (
	"fmt"
	"strings"
)

// StateID indexes a state in an Automaton.
type StateID uint32

// InvalidState marks a transition that has not been patched yet.
const InvalidState StateID = 0xFFFFFFFF

// StateKind identifies the type of an automaton state.
type StateKind uint8

const (
	// StateMatcher has one transition guarded by a Matcher.
	StateMatcher StateKind = iota

	// StateBranch has priority-ordered epsilon transitions; the first is tried first.
	StateBranch

	// StateAccept ends a successful path.
	StateAccept
)

func (k StateKind) String() string {
	switch k {
	case StateMatcher:
		return "Matcher"
	case StateBranch:
		return "Branch"
	case StateAccept:
		return "Accept"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// State is a single automaton state. The kind determines which fields are valid.
type State struct {
	kind StateKind

	// For StateMatcher
	matcher Matcher
	next    StateID

	// For StateBranch
	alts []StateID

	// loop is 1 + the loop slot of a repetition loop branch, 0 for every other state.
	// exit is the index in alts of the alternative leaving the loop.
	loop int
	exit int
}

func (s *State) Kind() StateKind { return s.kind }

// Matcher returns the matcher and successor of a StateMatcher.
func (s *State) Matcher() (Matcher, StateID) {
	if s.kind == StateMatcher {
		return s.matcher, s.next
	}
	return Matcher{}, InvalidState
}

// Alternatives returns the successors of a StateBranch in priority order.
func (s *State) Alternatives() []StateID {
	if s.kind == StateBranch {
		return s.alts
	}
	return nil
}

// IsLoop reports whether the state is the branch of an unbounded repetition.
func (s *State) IsLoop() bool {
	return s.loop > 0
}

// Automaton is a compiled pattern. It is never modified after Build and may be
// shared by any number of concurrent simulations.
type Automaton struct {
	states []State
	start  StateID
	accept StateID
	groups int
	loops  int
}

func (a *Automaton) Start() StateID          { return a.start }
func (a *Automaton) Accept() StateID         { return a.accept }
func (a *Automaton) States() int             { return len(a.states) }
func (a *Automaton) State(id StateID) *State { return &a.states[id] }

// Groups returns the number of capture groups, not counting the whole match.
func (a *Automaton) Groups() int { return a.groups }

func (a *Automaton) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start=%d accept=%d groups=%d\n", a.start, a.accept, a.groups)
	for i := range a.states {
		s := &a.states[i]
		switch s.kind {
		case StateMatcher:
			fmt.Fprintf(&b, "%d: %s -> %d\n", i, s.matcher.String(), s.next)
		case StateBranch:
			kind := "branch"
			if s.loop > 0 {
				kind = "loop"
			}
			fmt.Fprintf(&b, "%d: %s %v\n", i, kind, s.alts)
		case StateAccept:
			fmt.Fprintf(&b, "%d: accept\n", i)
		}
	}
	return b.String()
}

// BuildError reports an automaton that cannot be finished.
type BuildError struct {
	Message string
	StateID StateID
}

func (e *BuildError) Error() string {
	if e.StateID != InvalidState {
		return fmt.Sprintf("automaton build error at state %d: %s", e.StateID, e.Message)
	}
	return fmt.Sprintf("automaton build error: %s", e.Message)
}

// Builder assembles an Automaton state by state.
// Transitions to states that do not exist yet are left as InvalidState and patched later.
type Builder struct {
	states []State
	groups int
	loops  int
}

func NewBuilder() *Builder {
	return &Builder{states: make([]State, 0, 16)}
}

func (b *Builder) add(s State) StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, s)
	return id
}

// AddMatcher adds a state that moves to next when m matches.
func (b *Builder) AddMatcher(m Matcher, next StateID) StateID {
	if m.Kind == MatchGroupStart || m.Kind == MatchGroupEnd || m.Kind == MatchBackref {
		b.groups = max(b.groups, m.Group)
	}
	return b.add(State{kind: StateMatcher, matcher: m, next: next})
}

// SetGroups raises the number of capture groups to at least n.
func (b *Builder) SetGroups(n int) {
	b.groups = max(b.groups, n)
}

// AddEpsilon adds a matching state that always moves to next.
func (b *Builder) AddEpsilon(next StateID) StateID {
	return b.AddMatcher(Matcher{Kind: MatchEpsilon}, next)
}

// AddBranch adds a branch trying alts in the given order.
func (b *Builder) AddBranch(alts ...StateID) StateID {
	return b.add(State{kind: StateBranch, alts: append([]StateID(nil), alts...)})
}

// AddLoop adds the branch of an unbounded repetition. Both alternatives start
// unpatched; set them with PatchAlt. Alternative exit leaves the loop.
func (b *Builder) AddLoop(exit int) StateID {
	b.loops++
	return b.add(State{
		kind: StateBranch,
		alts: []StateID{InvalidState, InvalidState},
		loop: b.loops,
		exit: exit,
	})
}

// AddAccept adds an accept state.
func (b *Builder) AddAccept() StateID {
	return b.add(State{kind: StateAccept})
}

// Patch sets the successor of a matching state.
func (b *Builder) Patch(id, target StateID) error {
	if int(id) >= len(b.states) {
		return &BuildError{Message: "state ID out of bounds", StateID: id}
	}
	s := &b.states[id]
	if s.kind != StateMatcher {
		return &BuildError{Message: "cannot patch " + s.kind.String() + " state", StateID: id}
	}
	s.next = target
	return nil
}

// PatchAlt sets alternative i of a branch state.
func (b *Builder) PatchAlt(id StateID, i int, target StateID) error {
	if int(id) >= len(b.states) {
		return &BuildError{Message: "state ID out of bounds", StateID: id}
	}
	s := &b.states[id]
	if s.kind != StateBranch || i >= len(s.alts) {
		return &BuildError{Message: fmt.Sprintf("no alternative %d to patch", i), StateID: id}
	}
	s.alts[i] = target
	return nil
}

// Build finishes the automaton. Every transition must be patched and accept
// must be reachable from start.
func (b *Builder) Build(start, accept StateID) (*Automaton, error) {
	n := StateID(len(b.states))
	if start >= n || accept >= n || b.states[accept].kind != StateAccept {
		return nil, &BuildError{Message: "invalid start or accept state", StateID: InvalidState}
	}
	for i := range b.states {
		s := &b.states[i]
		switch s.kind {
		case StateMatcher:
			if s.next >= n {
				return nil, &BuildError{Message: "unpatched transition", StateID: StateID(i)}
			}
		case StateBranch:
			for _, alt := range s.alts {
				if alt >= n {
					return nil, &BuildError{Message: "unpatched alternative", StateID: StateID(i)}
				}
			}
		}
	}
	if !b.reachable(start, accept) {
		return nil, &BuildError{Message: "accept state is unreachable", StateID: accept}
	}
	return &Automaton{
		states: b.states,
		start:  start,
		accept: accept,
		groups: b.groups,
		loops:  b.loops,
	}, nil
}

func (b *Builder) reachable(from, to StateID) bool {
	seen := make([]bool, len(b.states))
	stack := []StateID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		s := &b.states[id]
		switch s.kind {
		case StateMatcher:
			stack = append(stack, s.next)
		case StateBranch:
			stack = append(stack, s.alts...)
		}
	}
	return false
}
