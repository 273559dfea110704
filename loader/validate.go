package loader

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nathoo/voicequest/nlu"
	"github.com/nathoo/voicequest/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known action kinds.
var validActionKinds = map[types.ActionKind]bool{
	types.ActionSpeak:       true,
	types.ActionSpeakMarkup: true,
	types.ActionListen:      true,
	types.ActionStopMedia:   true,
	types.ActionGiveItem:    true,
	types.ActionCaptureName: true,
	types.ActionShowImage:   true,
	types.ActionShowVideo:   true,
	types.ActionPlaySound:   true,
}

// Known events.
var validEvents = map[types.EventType]bool{
	types.EventSpeakComplete:  true,
	types.EventListenComplete: true,
	types.EventRecognised:     true,
	types.EventNoInput:        true,
	types.EventClick:          true,
	types.EventSpeakFailed:    true,
	types.EventListenFailed:   true,
}

// validate checks the compiled game for content problems the graph builder
// does not look at: metadata, event names, action fields and the lexicon.
// Warnings are returned even when the game is valid.
func validate(game *types.GameDef) ([]string, error) {
	ve := &ValidationError{}

	if game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.title is required")
	}
	if game.Root.ID == "" {
		ve.Errors = append(ve.Errors, "Game.id is required")
	}
	if game.Root.Initial == "" {
		ve.Errors = append(ve.Errors, "Game.start is required")
	}
	if len(game.Root.Children) == 0 {
		ve.Errors = append(ve.Errors, "no nodes defined")
	}
	switch game.RestartPolicy {
	case types.RestartKeep, types.RestartReset:
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("Game.restart %q must be %q or %q",
			game.RestartPolicy, types.RestartKeep, types.RestartReset))
	}
	for i, item := range game.StartInventory {
		if strings.TrimSpace(item) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("Game.inventory[%d] is empty", i+1))
		}
	}

	categories := map[string]bool{}
	for _, e := range game.Lexicon.Entities {
		categories[e.Category] = true
	}
	seen := map[string]bool{}
	for _, in := range game.Lexicon.Intents {
		if seen[in.Name] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("intent %q defined more than once", in.Name))
		}
		seen[in.Name] = true
		if len(in.Patterns) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("intent %q has no patterns and can never match offline", in.Name))
		}
	}
	if _, err := nlu.NewKeyword(game.Lexicon); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("lexicon: %v", err))
	}

	validateNode(game.Root, game.Root.ID, categories, ve)

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

func validateNode(def types.NodeDef, path string, categories map[string]bool, ve *ValidationError) {
	for _, ev := range slices.Sorted(maps.Keys(def.On)) {
		if !validEvents[ev] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: unknown event %q", path, ev))
		}
	}
	for _, ev := range slices.Sorted(maps.Keys(def.Internal)) {
		acts := def.Internal[ev]
		switch ev {
		case types.EventRecognised, types.EventNoInput:
		default:
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: internal actions only run on %s or %s, not %q",
				path, types.EventRecognised, types.EventNoInput, ev))
		}
		for _, a := range acts {
			switch a.Kind {
			case types.ActionSpeak, types.ActionSpeakMarkup, types.ActionListen:
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s: internal %s: %s would suspend outside an entry", path, ev, a.Kind))
			}
			validateAction(a, path, categories, ve)
		}
	}
	for _, a := range def.Entry {
		validateAction(a, path, categories, ve)
	}
	for _, c := range def.Children {
		validateNode(c, path+"."+c.ID, categories, ve)
	}
}

func validateAction(a types.Action, path string, categories map[string]bool, ve *ValidationError) {
	switch a.Kind {
	case types.ActionGiveItem:
		if a.Item == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: GiveItem needs an item", path))
		}
	case types.ActionShowImage, types.ActionShowVideo, types.ActionPlaySound:
		if a.URL == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %s needs a url", path, a.Kind))
		}
	case types.ActionCaptureName:
		if a.Category == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: CaptureName needs an entity category", path))
		} else if len(categories) > 0 && !categories[a.Category] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: CaptureName references undeclared entity category %q", path, a.Category))
		}
	case types.ActionSpeakMarkup:
		if !strings.Contains(a.Text, "<speak") {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s: SpeakMarkup text has no <speak> element", path))
		}
	}
}
