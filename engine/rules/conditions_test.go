package rules

import (
	"testing"

	"github.com/nathoo/voicequest/engine/state"
	"github.com/nathoo/voicequest/types"
)

func condTestState() *types.State {
	s := state.NewState(&types.GameDef{StartInventory: []string{"your notepad", "your pen"}})
	state.AddItem(s, "a brown stick")
	state.Recognised(s,
		[]types.Hypothesis{{Utterance: "go back", Confidence: 0.8}},
		&types.Interpretation{
			TopIntent: "MoveToX",
			Entities: []types.Entity{
				{Category: "Direction", Text: "Back"},
				{Category: "Direction", Text: "right"},
			},
		})
	return s
}

func intentIs(name string) types.Condition {
	return types.Condition{Type: "intent_is", Params: map[string]any{"intent": name}}
}

func entityIs(category, value string) types.Condition {
	return types.Condition{Type: "entity_is", Params: map[string]any{"category": category, "value": value}}
}

func hasItem(item string) types.Condition {
	return types.Condition{Type: "has_item", Params: map[string]any{"item": item}}
}

func not(c types.Condition) types.Condition {
	return types.Condition{Type: "not", Inner: &c}
}

func all(terms ...types.Condition) types.Condition {
	return types.Condition{Type: "all", Terms: terms}
}

func any_(terms ...types.Condition) types.Condition {
	return types.Condition{Type: "any", Terms: terms}
}

func TestMatchEntity_TextOrListKey(t *testing.T) {
	s := state.NewState(&types.GameDef{})
	state.Recognised(s,
		[]types.Hypothesis{{Utterance: "walk to the vehicle", Confidence: 0.9}},
		&types.Interpretation{
			TopIntent: "ApproachX",
			Entities: []types.Entity{{
				Category:         "NonPickupObject",
				Text:             "Vehicle",
				ExtraInformation: []types.EntityInfo{{Kind: types.ListKeyInfo, Key: "car"}},
			}},
		})

	tests := []struct {
		value string
		want  bool
	}{
		{"car", true},
		{"vehicle", true},
		{"VEHICLE", true},
		{"flowers", false},
	}
	for _, tt := range tests {
		if got := MatchEntity(s, "NonPickupObject", tt.value); got != tt.want {
			t.Errorf("MatchEntity(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestEvalCondition(t *testing.T) {
	s := condTestState()

	tests := []struct {
		name string
		cond types.Condition
		want bool
	}{
		{"intent_is: match", intentIs("MoveToX"), true},
		{"intent_is: mismatch", intentIs("ApproachX"), false},
		{"entity_is: first entity lower-cased", entityIs("Direction", "back"), true},
		{"entity_is: only first entity counts", entityIs("Direction", "right"), false},
		{"entity_is: missing category", entityIs("DoorColor", "blue"), false},
		{"has_item: held", hasItem("a brown stick"), true},
		{"has_item: not held", hasItem("a green key"), false},
		{"not: negates", not(hasItem("a green key")), true},
		{"not: nil inner", types.Condition{Type: "not"}, true},
		{"all: every term", all(intentIs("MoveToX"), entityIs("Direction", "back")), true},
		{"all: one term false", all(intentIs("MoveToX"), entityIs("Direction", "left")), false},
		{"all: empty", all(), true},
		{"any: one term true", any_(entityIs("Direction", "previous"), entityIs("Direction", "back")), true},
		{"any: empty", any_(), false},
		{"name_known: empty name", types.Condition{Type: "name_known"}, false},
		{"heard: utterance present", types.Condition{Type: "heard"}, true},
		{"func: nil", types.Condition{Type: "func"}, false},
		{"func: predicate", types.Condition{Type: "func", Fn: func(s *types.State) bool { return s.Turn == 1 }}, true},
		{"unknown type", types.Condition{Type: "flag_set"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvalCondition(tt.cond, s); got != tt.want {
				t.Errorf("EvalCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The "go back" guards must bind the direction choice inside the intent
// check. An unrelated intent naming "previous" must not satisfy them.
func TestEvalCondition_ExplicitGrouping(t *testing.T) {
	s := condTestState()
	s.LastInterpretation = &types.Interpretation{
		TopIntent: "ExploreAround",
		Entities:  []types.Entity{{Category: "Direction", Text: "previous"}},
	}

	goBack := all(
		intentIs("MoveToX"),
		any_(entityIs("Direction", "back"), entityIs("Direction", "previous")),
	)
	if EvalCondition(goBack, s) {
		t.Error("go-back guard matched without MoveToX intent")
	}

	s.LastInterpretation.TopIntent = "MoveToX"
	if !EvalCondition(goBack, s) {
		t.Error("go-back guard did not match MoveToX + previous")
	}
}

func TestEvalCondition_Password(t *testing.T) {
	password := types.Condition{
		Type: "utterance_in",
		Params: map[string]any{
			"candidates": []any{"295233", "295 233", "two nine five two three three"},
		},
	}

	tests := []struct {
		utterance string
		want      bool
	}{
		{"295233", true},
		{"295 233", true},
		{"two nine five two three three", true},
		{"29523", false},
		{"2952333", false},
		{"295 23", false},
		{"Two nine five two three three", false},
		{"two nine five two three", false},
		{"123456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			s := condTestState()
			state.Recognised(s, []types.Hypothesis{{Utterance: tt.utterance}}, &types.Interpretation{TopIntent: "None"})
			if got := EvalCondition(password, s); got != tt.want {
				t.Errorf("password(%q) = %v, want %v", tt.utterance, got, tt.want)
			}
		})
	}

	s := condTestState()
	state.NoInput(s)
	if EvalCondition(password, s) {
		t.Error("password matched after no-input")
	}
	if EvalCondition(types.Condition{Type: "heard"}, s) {
		t.Error("heard is true after no-input")
	}
}

func TestEvalAll(t *testing.T) {
	s := condTestState()

	if !EvalAll(nil, s) {
		t.Error("empty list should be true")
	}
	if EvalAll([]types.Condition{intentIs("MoveToX"), hasItem("a green key")}, s) {
		t.Error("expected false when one condition fails")
	}
}
