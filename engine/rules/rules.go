package rules

import "github.com/nathoo/voicequest/types"

// Evaluator checks guards without letting a failing predicate escape.
type Evaluator struct {
	// OnPanic, if set, is called with the guard and the recovered value
	// whenever a predicate panics.
	OnPanic func(c types.Condition, recovered any)
}

// Check evaluates a guard. A nil guard is true. A guard that panics is false.
func (e Evaluator) Check(c *types.Condition, s *types.State) (ok bool) {
	if c == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if e.OnPanic != nil {
				e.OnPanic(*c, r)
			}
		}
	}()
	return EvalCondition(*c, s)
}

// Select returns the index of the first guard in declared order that is
// nil or true. The boolean is false when nothing matches.
func (e Evaluator) Select(guards []*types.Condition, s *types.State) (int, bool) {
	for i, g := range guards {
		if e.Check(g, s) {
			return i, true
		}
	}
	return -1, false
}
