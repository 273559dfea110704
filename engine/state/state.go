// Package state manages the mutable session record: inventory, player
// name, the last recognition result and the media currently presented.
package state

import (
	"slices"
	"strings"

	"github.com/nathoo/voicequest/types"
)

// NewState creates a fresh session state holding the game's start inventory.
func NewState(game *types.GameDef) *types.State {
	return &types.State{
		Inventory: slices.Clone(nonNil(game.StartInventory)),
	}
}

// HasItem returns true if the item is in the inventory.
func HasItem(s *types.State, item string) bool {
	return slices.Contains(s.Inventory, item)
}

// AddItem appends an item to the inventory. It does not deduplicate:
// the graph must route away from granting nodes once the item is held.
func AddItem(s *types.State, item string) {
	s.Inventory = append(s.Inventory, item)
}

// TopIntent returns the top intent of the last interpretation, or "".
func TopIntent(s *types.State) string {
	if s.LastInterpretation == nil {
		return ""
	}
	return s.LastInterpretation.TopIntent
}

// FirstEntity returns the text of the first entity of the given category
// in the last interpretation. The boolean is false when there is none.
func FirstEntity(s *types.State, category string) (string, bool) {
	if s.LastInterpretation == nil {
		return "", false
	}
	for _, e := range s.LastInterpretation.Entities {
		if e.Category == category {
			return e.Text, true
		}
	}
	return "", false
}

// EntityValues returns the lower-cased forms of the first entity of the
// category that guards compare against: its text and, when the interpreter
// resolved one, its list key.
func EntityValues(s *types.State, category string) ([]string, bool) {
	if s.LastInterpretation == nil {
		return nil, false
	}
	for _, e := range s.LastInterpretation.Entities {
		if e.Category != category {
			continue
		}
		values := []string{strings.ToLower(e.Text)}
		for _, info := range e.ExtraInformation {
			if info.Kind == types.ListKeyInfo && info.Key != "" {
				values = append(values, strings.ToLower(info.Key))
			}
		}
		return values, true
	}
	return nil, false
}

// LastUtterance returns the best raw hypothesis of the last recognition.
// It is empty after a no-input turn.
func LastUtterance(s *types.State) (string, bool) {
	if len(s.LastResult) == 0 {
		return "", false
	}
	return s.LastResult[0].Utterance, true
}

// Recognised records a recognition result.
func Recognised(s *types.State, hyps []types.Hypothesis, interp *types.Interpretation) {
	s.LastResult = hyps
	s.LastInterpretation = interp
	s.Turn++
}

// NoInput records a listen that timed out. The previous interpretation is kept.
func NoInput(s *types.State) {
	s.LastResult = nil
	s.Turn++
}

// Restart applies the restart policy when the session returns to its start.
// Media is cleared under every policy.
func Restart(s *types.State, game *types.GameDef) {
	s.Media = types.Media{}
	if game.RestartPolicy != types.RestartReset {
		return
	}
	s.Inventory = slices.Clone(nonNil(game.StartInventory))
	s.PlayerName = ""
	s.LastInterpretation = nil
	s.LastResult = nil
}

// InventoryText joins the inventory for narration.
func InventoryText(s *types.State) string {
	return strings.Join(s.Inventory, ", ")
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
