// Package rules implements the guard evaluator: pure predicates over the
// session state, composed explicitly with all, any and not.
package rules

import (
	"github.com/nathoo/voicequest/engine/state"
	"github.com/nathoo/voicequest/types"
)

// EvalCondition evaluates a single condition against the current state.
// Unknown condition types are false. A "func" condition may panic; use
// an Evaluator where that must not escape.
func EvalCondition(c types.Condition, s *types.State) bool {
	switch c.Type {
	case "intent_is":
		name, _ := c.Params["intent"].(string)
		return state.TopIntent(s) == name

	case "entity_is":
		category, _ := c.Params["category"].(string)
		value, _ := c.Params["value"].(string)
		return MatchEntity(s, category, value)

	case "has_item":
		item, _ := c.Params["item"].(string)
		return state.HasItem(s, item)

	case "utterance_in":
		return MatchUtterance(s, toStrings(c.Params["candidates"]))

	case "name_known":
		return s.PlayerName != ""

	case "heard":
		_, ok := state.LastUtterance(s)
		return ok

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, s)

	case "all":
		return EvalAll(c.Terms, s)

	case "any":
		for _, t := range c.Terms {
			if EvalCondition(t, s) {
				return true
			}
		}
		return false

	case "func":
		if c.Fn == nil {
			return false
		}
		return c.Fn(s)

	default:
		return false
	}
}

// EvalAll returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAll(conditions []types.Condition, s *types.State) bool {
	for _, c := range conditions {
		if !EvalCondition(c, s) {
			return false
		}
	}
	return true
}

// toStrings converts a list parameter from Go or Lua form.
func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	default:
		return nil
	}
}
