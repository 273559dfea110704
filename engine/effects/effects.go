// Package effects implements the sequential action executor. State
// mutations are applied in place; speech, listen and media changes are
// returned as capability requests in the order they were produced.
package effects

import (
	"html"
	"strings"

	"github.com/nathoo/voicequest/engine/state"
	"github.com/nathoo/voicequest/types"
)

// Apply runs actions top to bottom against the state and returns the
// capability requests they produced.
func Apply(s *types.State, actions []types.Action) []types.Request {
	var reqs []types.Request

	for _, a := range actions {
		switch a.Kind {
		case types.ActionSpeak:
			reqs = append(reqs, types.Request{Kind: types.RequestSpeak, Text: interpolate(a.Text, s, false)})

		case types.ActionSpeakMarkup:
			reqs = append(reqs, types.Request{Kind: types.RequestSpeakMarkup, Text: interpolate(a.Text, s, true)})

		case types.ActionListen:
			reqs = append(reqs, types.Request{Kind: types.RequestListen})

		case types.ActionGiveItem:
			state.AddItem(s, a.Item)

		case types.ActionCaptureName:
			if name, ok := state.FirstEntity(s, a.Category); ok {
				s.PlayerName = name
			}

		case types.ActionShowImage:
			s.Media.Image = a.URL
			reqs = present(reqs, s.Media)

		case types.ActionShowVideo:
			s.Media.Video = a.URL
			reqs = present(reqs, s.Media)

		case types.ActionPlaySound:
			s.Media.Sound = a.URL
			s.Media.Loop = a.Loop
			reqs = present(reqs, s.Media)

		case types.ActionStopMedia:
			s.Media.Sound = ""
			s.Media.Video = ""
			s.Media.Loop = false
			reqs = append(reqs, types.Request{Kind: types.RequestStopMedia})
			reqs = present(reqs, s.Media)
		}
	}

	return reqs
}

// present records the current media, merging with an immediately
// preceding present request.
func present(reqs []types.Request, m types.Media) []types.Request {
	if n := len(reqs); n > 0 && reqs[n-1].Kind == types.RequestPresent {
		reqs[n-1].Media = m
		return reqs
	}
	return append(reqs, types.Request{Kind: types.RequestPresent, Media: m})
}

// interpolate replaces template variables with state values. Values
// placed into markup are escaped.
func interpolate(text string, s *types.State, markup bool) string {
	if !strings.Contains(text, "{") {
		return text
	}
	name := s.PlayerName
	inv := state.InventoryText(s)
	if markup {
		name = html.EscapeString(name)
		inv = html.EscapeString(inv)
	}
	r := strings.NewReplacer(
		"{player.name}", name,
		"{player.inventory}", inv,
	)
	return r.Replace(text)
}
