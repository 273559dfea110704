// Package snapshot implements JSON encoding of a session: the active node
// path and the game state. Snapshots live in memory; the engine never
// writes them anywhere.
package snapshot

import (
	"encoding/json"
	"slices"

	"github.com/samber/oops"

	"github.com/nathoo/voicequest/types"
)

// Snapshot is the JSON-serializable session format.
type Snapshot struct {
	Game    string      `json:"game"`
	Version string      `json:"version"`
	Session string      `json:"session,omitempty"`
	Path    string      `json:"path"`
	State   types.State `json:"state"`
}

// Take copies the session into a snapshot. The copy shares nothing
// mutable with s.
func Take(game *types.GameDef, session, path string, s *types.State) *Snapshot {
	cp := *s
	cp.Inventory = slices.Clone(s.Inventory)
	cp.LastResult = slices.Clone(s.LastResult)
	if s.LastInterpretation != nil {
		interp := *s.LastInterpretation
		interp.Intents = slices.Clone(interp.Intents)
		interp.Entities = slices.Clone(interp.Entities)
		cp.LastInterpretation = &interp
	}
	return &Snapshot{
		Game:    game.Title,
		Version: game.Version,
		Session: session,
		Path:    path,
		State:   cp,
	}
}

// Encode serializes a snapshot to indented JSON.
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, oops.Code("SNAPSHOT_INVALID").Wrap(err)
	}
	return data, nil
}

// Decode parses a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, oops.Code("SNAPSHOT_INVALID").Wrap(err)
	}
	if snap.Path == "" {
		return nil, oops.Code("SNAPSHOT_INVALID").Errorf("snapshot has no path")
	}
	if snap.State.Inventory == nil {
		snap.State.Inventory = []string{}
	}
	return &snap, nil
}
