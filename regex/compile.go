package regex

import (
	"errors"
	"fmt"
)

// ErrInvalidBackref is returned for a back-reference to a group the pattern does not define.
var ErrInvalidBackref = errors.New("invalid back reference")

// PatternError is a problem with the pattern found while compiling it.
type PatternError struct {
	Pattern string
	Group   int
	Err     error
}

func (e *PatternError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("pattern %q: %v \\%d", e.Pattern, e.Err, e.Group)
	}
	return fmt.Sprintf("%v \\%d", e.Err, e.Group)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// frag is a piece of automaton under construction. end is a matching state
// whose successor is still unpatched.
type frag struct {
	start StateID
	end   StateID
}

type compiler struct {
	b *Builder
}

// CompileTree builds the automaton for a syntax tree.
func CompileTree(tree Node) (*Automaton, error) {
	groups := map[int]bool{}
	maxGroup := 0
	collectGroups(tree, groups, &maxGroup)
	if err := checkBackrefs(tree, groups); err != nil {
		return nil, err
	}

	c := compiler{b: NewBuilder()}
	c.b.SetGroups(maxGroup)
	f, err := c.compile(tree)
	if err != nil {
		return nil, err
	}
	accept := c.b.AddAccept()
	if err := c.b.Patch(f.end, accept); err != nil {
		return nil, err
	}
	return c.b.Build(f.start, accept)
}

func collectGroups(n Node, groups map[int]bool, maxGroup *int) {
	switch n := n.(type) {
	case Group:
		if n.Index > 0 {
			groups[n.Index] = true
			*maxGroup = max(*maxGroup, n.Index)
		}
		collectGroups(n.Sub, groups, maxGroup)
	case Concat:
		for _, s := range n.Subs {
			collectGroups(s, groups, maxGroup)
		}
	case Alternate:
		for _, s := range n.Subs {
			collectGroups(s, groups, maxGroup)
		}
	case Repeat:
		collectGroups(n.Sub, groups, maxGroup)
	}
}

func checkBackrefs(n Node, groups map[int]bool) error {
	switch n := n.(type) {
	case Backref:
		if !groups[n.Group] {
			return &PatternError{Group: n.Group, Err: ErrInvalidBackref}
		}
	case Group:
		return checkBackrefs(n.Sub, groups)
	case Concat:
		for _, s := range n.Subs {
			if err := checkBackrefs(s, groups); err != nil {
				return err
			}
		}
	case Alternate:
		for _, s := range n.Subs {
			if err := checkBackrefs(s, groups); err != nil {
				return err
			}
		}
	case Repeat:
		return checkBackrefs(n.Sub, groups)
	}
	return nil
}

func (c *compiler) compile(n Node) (frag, error) {
	switch n := n.(type) {
	case nil, Empty:
		return c.leaf(Matcher{Kind: MatchEpsilon}), nil
	case Literal:
		return c.leaf(Matcher{Kind: MatchChar, Char: n.Char, FoldCase: n.FoldCase}), nil
	case Class:
		return c.leaf(Matcher{Kind: MatchClass, Class: CharClass(n)}), nil
	case Any:
		return c.leaf(Matcher{Kind: MatchAny, Newline: n.Newline}), nil
	case Assert:
		return c.leaf(Matcher{Kind: MatchAnchor, Anchor: n.Anchor}), nil
	case Backref:
		return c.leaf(Matcher{Kind: MatchBackref, Group: n.Group, FoldCase: n.FoldCase}), nil
	case MatchBound:
		if n.End {
			return c.leaf(Matcher{Kind: MatchSetEnd}), nil
		}
		return c.leaf(Matcher{Kind: MatchSetStart}), nil
	case Concat:
		return c.concat(n.Subs)
	case Alternate:
		return c.alternate(n.Subs)
	case Group:
		if n.Index == 0 {
			return c.compile(n.Sub)
		}
		return c.group(n)
	case Repeat:
		return c.repeat(n)
	default:
		return frag{}, fmt.Errorf("unexpected node type %T", n)
	}
}

func (c *compiler) leaf(m Matcher) frag {
	id := c.b.AddMatcher(m, InvalidState)
	return frag{start: id, end: id}
}

func (c *compiler) concat(subs []Node) (frag, error) {
	if len(subs) == 0 {
		return c.leaf(Matcher{Kind: MatchEpsilon}), nil
	}
	var out frag
	for i, s := range subs {
		f, err := c.compile(s)
		if err != nil {
			return frag{}, err
		}
		if i == 0 {
			out = f
			continue
		}
		if err := c.b.Patch(out.end, f.start); err != nil {
			return frag{}, err
		}
		out.end = f.end
	}
	return out, nil
}

func (c *compiler) group(g Group) (frag, error) {
	open := c.leaf(Matcher{Kind: MatchGroupStart, Group: g.Index})
	inner, err := c.compile(g.Sub)
	if err != nil {
		return frag{}, err
	}
	closing := c.leaf(Matcher{Kind: MatchGroupEnd, Group: g.Index})
	if err := c.b.Patch(open.end, inner.start); err != nil {
		return frag{}, err
	}
	if err := c.b.Patch(inner.end, closing.start); err != nil {
		return frag{}, err
	}
	return frag{start: open.start, end: closing.end}, nil
}

func (c *compiler) alternate(subs []Node) (frag, error) {
	if len(subs) == 1 {
		return c.compile(subs[0])
	}
	end := c.b.AddEpsilon(InvalidState)
	starts := make([]StateID, len(subs))
	for i, s := range subs {
		f, err := c.compile(s)
		if err != nil {
			return frag{}, err
		}
		if err := c.b.Patch(f.end, end); err != nil {
			return frag{}, err
		}
		starts[i] = f.start
	}
	return frag{start: c.b.AddBranch(starts...), end: end}, nil
}

// repeat unrolls Min mandatory copies of the sub-pattern followed by either a
// loop (unbounded) or Max-Min nested optional copies. The parser orders the
// bounds; trees built by hand must do so too.
func (c *compiler) repeat(r Repeat) (frag, error) {
	if r.Min < 0 || (r.Max != Unbounded && r.Max < r.Min) {
		return frag{}, fmt.Errorf("invalid repeat bounds {%d,%d}", r.Min, r.Max)
	}

	subs := make([]Node, r.Min)
	for i := range subs {
		subs[i] = r.Sub
	}
	var out frag
	var err error
	if len(subs) > 0 {
		if out, err = c.concat(subs); err != nil {
			return frag{}, err
		}
	}

	var tail frag
	switch {
	case r.Max == Unbounded:
		tail, err = c.loop(r.Sub, r.Lazy)
	case r.Max > r.Min:
		tail, err = c.optional(r.Sub, r.Max-r.Min, r.Lazy)
	default:
		if len(subs) == 0 {
			return c.leaf(Matcher{Kind: MatchEpsilon}), nil
		}
		return out, nil
	}
	if err != nil {
		return frag{}, err
	}
	if len(subs) == 0 {
		return tail, nil
	}
	if err := c.b.Patch(out.end, tail.start); err != nil {
		return frag{}, err
	}
	return frag{start: out.start, end: tail.end}, nil
}

// loop compiles sub* as a branch whose body returns to the branch itself.
func (c *compiler) loop(sub Node, lazy bool) (frag, error) {
	body, exit := 0, 1
	if lazy {
		body, exit = 1, 0
	}
	l := c.b.AddLoop(exit)
	end := c.b.AddEpsilon(InvalidState)
	f, err := c.compile(sub)
	if err != nil {
		return frag{}, err
	}
	if err := c.b.Patch(f.end, l); err != nil {
		return frag{}, err
	}
	if err := c.b.PatchAlt(l, body, f.start); err != nil {
		return frag{}, err
	}
	if err := c.b.PatchAlt(l, exit, end); err != nil {
		return frag{}, err
	}
	return frag{start: l, end: end}, nil
}

// optional compiles n nested optional copies of sub, so skipping one copy skips
// all later ones too: x\{0,3} becomes \%(x\%(x\%(x\)\=\)\=\)\=.
func (c *compiler) optional(sub Node, n int, lazy bool) (frag, error) {
	end := c.b.AddEpsilon(InvalidState)
	next := end
	for _i := 0; _i < n; _i++ {
		f, err := c.compile(sub)
		if err != nil {
			return frag{}, err
		}
		if err := c.b.Patch(f.end, next); err != nil {
			return frag{}, err
		}
		if lazy {
			next = c.b.AddBranch(end, f.start)
		} else {
			next = c.b.AddBranch(f.start, end)
		}
	}
	return frag{start: next, end: end}, nil
}
