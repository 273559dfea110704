package graph

import (
	"github.com/nathoo/voicequest/engine/rules"
	"github.com/nathoo/voicequest/types"
)

// Resolution describes one fired transition.
type Resolution struct {
	Owner   *Node // node whose handler list fired
	Index   int   // position of the fired entry in that list
	Target  *Node // resolved target before initial descent
	Exited  []*Node
	Entered []*Node // outermost first; entry actions run in this order
	Leaf    *Node   // new active leaf
}

// Handler finds the handler list for ev, bubbling from the active leaf
// to the root. The owner is nil when no node handles ev.
func Handler(active *Node, ev types.EventType) (*Node, []Transition) {
	for _, n := range active.Chain() {
		if list := n.On[ev]; len(list) > 0 {
			return n, list
		}
	}
	return nil, nil
}

// InternalActions returns the non-transitional actions for ev declared by
// the innermost active node that has any.
func InternalActions(active *Node, ev types.EventType) []types.Action {
	for _, n := range active.Chain() {
		if acts, ok := n.Internal[ev]; ok {
			return acts
		}
	}
	return nil
}

// Resolve picks the transition for ev from the active leaf. Guards are
// evaluated in declared order and the first true or unguarded entry wins.
// When nothing handles ev or no guard matches, ok is false and the
// session stays where it is.
func Resolve(active *Node, ev types.EventType, s *types.State, eval rules.Evaluator) (Resolution, bool) {
	owner, list := Handler(active, ev)
	if owner == nil {
		return Resolution{}, false
	}

	guards := make([]*types.Condition, len(list))
	for i, t := range list {
		guards[i] = t.Guard
	}
	i, ok := eval.Select(guards, s)
	if !ok {
		return Resolution{}, false
	}

	res := Transit(active, owner, list[i].Target)
	res.Index = i
	return res, true
}

// Transit computes the exit and entry sets for a transition from the
// active leaf, owned by owner, to target. Ancestors that stay active are
// neither exited nor re-entered.
func Transit(active, owner, target *Node) Resolution {
	dom := domain(owner, target)

	var exited []*Node
	for n := active; n != nil && n != dom; n = n.Parent {
		exited = append(exited, n)
	}

	var down []*Node
	for n := target; n != nil && n != dom; n = n.Parent {
		down = append(down, n)
	}
	entered := make([]*Node, 0, len(down)+2)
	for i := len(down) - 1; i >= 0; i-- {
		entered = append(entered, down[i])
	}
	descent := Descend(target)
	entered = append(entered, descent[1:]...)

	return Resolution{
		Owner:   owner,
		Target:  target,
		Exited:  exited,
		Entered: entered,
		Leaf:    descent[len(descent)-1],
	}
}

// Start returns the entry sequence for a new session: the root and its
// initial chain down to a leaf.
func (g *Graph) Start() Resolution {
	entered := Descend(g.Root)
	return Resolution{
		Target:  g.Root,
		Entered: entered,
		Leaf:    entered[len(entered)-1],
	}
}

// domain is the node a transition stays inside: the owner when the
// target is its descendant, otherwise the nearest proper ancestor of
// both.
func domain(owner, target *Node) *Node {
	if owner.Contains(target) {
		return owner
	}
	for d := owner.Parent; d != nil; d = d.Parent {
		if d.Contains(target) {
			return d
		}
	}
	return nil
}
