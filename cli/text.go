package cli

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/oops"

	"github.com/nathoo/voicequest/engine"
	"github.com/nathoo/voicequest/engine/snapshot"
	"github.com/nathoo/voicequest/types"
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// PlainText returns the text a listener would hear from SSML markup.
func PlainText(markup string) string {
	text := html.UnescapeString(markupTag.ReplaceAllString(markup, " "))
	return strings.Join(strings.Fields(text), " ")
}

// DescribeMedia renders the media record as one line, or "" if nothing shows.
func DescribeMedia(m types.Media) string {
	var parts []string
	if m.Image != "" {
		parts = append(parts, "image: "+m.Image)
	}
	if m.Video != "" {
		parts = append(parts, "video: "+m.Video)
	}
	if m.Sound != "" {
		sound := "sound: " + m.Sound
		if m.Loop {
			sound += " (loop)"
		}
		parts = append(parts, sound)
	}
	return strings.Join(parts, ", ")
}

// FormatStep renders a processed event for trace output.
func FormatStep(st types.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[trace] %s", st.Event)
	if st.Fired {
		fmt.Fprintf(&b, " %s -> %s", orStart(st.From), st.To)
	} else {
		fmt.Fprintf(&b, " at %s (no transition)", st.To)
	}
	for _, r := range st.Requests {
		fmt.Fprintf(&b, " +%s", r.Kind)
	}
	return b.String()
}

func orStart(path string) string {
	if path == "" {
		return "(start)"
	}
	return path
}

// HelpLines lists the meta-commands.
func HelpLines() []string {
	return []string{
		"System:",
		"  /save [name]  Save the session (default: quicksave)",
		"  /load [name]  Restore a saved session (default: quicksave)",
		"  /click        Click the screen",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump the session snapshot",
		"  /trace        Toggle debug trace output",
		"",
		"Playing:",
		"  Type what you would say at the > prompt.",
		"  An empty line is silence: the game may ask again.",
		"  When nobody is listening, Enter clicks to continue.",
	}
}

// SaveSnapshot writes the session to dir/name.json and returns the name used.
func SaveSnapshot(dir, name string, e *engine.Engine) (string, error) {
	path, name, err := snapshotPath(dir, name)
	if err != nil {
		return "", err
	}
	data, err := snapshot.Encode(e.Snapshot())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", oops.Code("SAVE_FAILED").With("dir", dir).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", oops.Code("SAVE_FAILED").With("path", path).Wrap(err)
	}
	return name, nil
}

// LoadSnapshot restores the session saved as dir/name.json.
func LoadSnapshot(ctx context.Context, dir, name string, e *engine.Engine) ([]types.Step, error) {
	path, _, err := snapshotPath(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("SNAPSHOT_INVALID").With("path", path).Wrap(err)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, err
	}
	if snap.Game != e.Game.Title {
		return nil, oops.Code("SNAPSHOT_INVALID").
			With("game", snap.Game).
			Errorf("snapshot belongs to %q, not %q", snap.Game, e.Game.Title)
	}
	return e.Restore(ctx, snap)
}

func snapshotPath(dir, name string) (string, string, error) {
	if name == "" {
		name = "quicksave"
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", "", oops.Code("SAVE_FAILED").With("name", name).Errorf("invalid save name")
	}
	return filepath.Join(dir, name+".json"), name, nil
}
