package regex

import "errors"

// ErrStepLimit is returned when a simulation exceeds its step budget.
var ErrStepLimit = errors.New("step limit exceeded")

type frameKind uint8

const (
	// frameTry resumes the search at (state, pos).
	frameTry frameKind = iota

	// frameExit resumes at the exit of loop slot, leaving the loop.
	frameExit

	// frameRestoreCap and frameRestoreLoop undo a write made on the abandoned path.
	frameRestoreCap
	frameRestoreLoop
)

// frame is an entry of the backtracking stack: either an untried alternative
// or the undo record of a slot write. Undo records sit above the alternatives
// they were made after, so popping back to an alternative restores the slots
// to what they were when it was pushed.
type frame struct {
	kind  frameKind
	state StateID
	pos   int
	slot  int
	old   int
}

// Simulator runs the backtracking search. The zero value has no step budget.
type Simulator struct {
	// MaxSteps bounds the number of states visited by one Run; 0 means no bound.
	MaxSteps int
}

// Simulate runs a over t starting at start and returns the first match found in
// priority order, or a failed Match.
func Simulate(a *Automaton, t Text, start int) Match {
	m, _ := Simulator{}.Run(a, t, start)
	return m
}

// Run is Simulate with the step budget of s. It returns ErrStepLimit when the
// budget runs out before the search is decided.
func (s Simulator) Run(a *Automaton, t Text, start int) (Match, error) {
	if start < 0 || start > t.Len() {
		return Match{}, nil
	}

	caps := make([]int, 2*(a.groups+1))
	for i := range caps {
		caps[i] = -1
	}
	caps[0] = start

	// loops[k] is the position at which loop k was last entered on the current path
	loops := make([]int, a.loops)
	for i := range loops {
		loops[i] = -1
	}

	stack := []frame{{kind: frameTry, state: a.start, pos: start}}
	setCap := func(slot, v int) {
		stack = append(stack, frame{kind: frameRestoreCap, slot: slot, old: caps[slot]})
		caps[slot] = v
	}
	setLoop := func(slot, v int) {
		stack = append(stack, frame{kind: frameRestoreLoop, slot: slot, old: loops[slot]})
		loops[slot] = v
	}

	steps := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch f.kind {
		case frameRestoreCap:
			caps[f.slot] = f.old
			continue
		case frameRestoreLoop:
			loops[f.slot] = f.old
			continue
		case frameExit:
			setLoop(f.slot, -1)
		}

		id, pos := f.state, f.pos
	path:
		for {
			steps++
			if s.MaxSteps > 0 && steps > s.MaxSteps {
				return Match{}, ErrStepLimit
			}

			st := &a.states[id]
			switch st.kind {
			case StateAccept:
				return newMatch(caps, pos), nil

			case StateMatcher:
				m := &st.matcher
				switch m.Kind {
				case MatchGroupStart:
					setCap(2*m.Group, pos)
					setCap(2*m.Group+1, -1)
				case MatchGroupEnd:
					setCap(2*m.Group+1, pos)
				case MatchSetStart:
					setCap(0, pos)
				case MatchSetEnd:
					setCap(1, pos)
				default:
					n, ok := m.match(t, pos, caps)
					if !ok {
						break path
					}
					pos += n
				}
				id = st.next

			case StateBranch:
				if st.loop == 0 {
					for i := len(st.alts) - 1; i > 0; i-- {
						stack = append(stack, frame{kind: frameTry, state: st.alts[i], pos: pos})
					}
					id = st.alts[0]
					continue
				}

				k := st.loop - 1
				exit, body := st.alts[st.exit], st.alts[1-st.exit]
				if loops[k] == pos {
					// the last iteration consumed nothing, so looping again cannot make progress
					setLoop(k, -1)
					id = exit
					continue
				}
				setLoop(k, pos)
				if st.exit == 1 {
					stack = append(stack, frame{kind: frameExit, state: exit, pos: pos, slot: k})
					id = body
				} else {
					stack = append(stack, frame{kind: frameTry, state: body, pos: pos})
					setLoop(k, -1)
					id = exit
				}
			}
		}
	}
	return Match{}, nil
}
