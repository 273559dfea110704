package rules

import (
	"slices"
	"strings"

	"github.com/nathoo/voicequest/engine/state"
	"github.com/nathoo/voicequest/types"
)

// MatchEntity reports whether the first entity of the category matches
// value, case-insensitively, by its text or by its list key. Later entities
// of the same category are ignored.
func MatchEntity(s *types.State, category, value string) bool {
	got, ok := state.EntityValues(s, category)
	if !ok {
		return false
	}
	return slices.Contains(got, strings.ToLower(value))
}

// MatchUtterance reports whether the best raw hypothesis equals one of the
// candidates exactly. Comparison is case-sensitive and never uses the
// interpretation.
func MatchUtterance(s *types.State, candidates []string) bool {
	u, ok := state.LastUtterance(s)
	if !ok {
		return false
	}
	for _, c := range candidates {
		if u == c {
			return true
		}
	}
	return false
}
