package tui

import (
	"context"

	"github.com/nathoo/voicequest/cli"
	"github.com/nathoo/voicequest/types"
)

type line struct {
	text string
	kind lineKind
}

// Driver is the speech capability and presentation sink of a TUI
// session. Pass it to engine.New and engine.WithPresenter; the Model
// collects what it produced after every event.
type Driver struct {
	lines   []line
	pending []types.EventType
	listens int
	media   types.Media
}

// NewDriver creates an empty driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Speak shows narration. The completion is delivered once the current
// event has been processed.
func (d *Driver) Speak(_ context.Context, text string) error {
	d.lines = append(d.lines, line{text: text, kind: kindNarration})
	d.pending = append(d.pending, types.EventSpeakComplete)
	return nil
}

// SpeakMarkup shows the text content of SSML narration.
func (d *Driver) SpeakMarkup(_ context.Context, markup string) error {
	d.lines = append(d.lines, line{text: cli.PlainText(markup), kind: kindMarkup})
	d.pending = append(d.pending, types.EventSpeakComplete)
	return nil
}

// Listen opens the input line. Each call starts a new listen; the Model
// times it out when nothing is submitted.
func (d *Driver) Listen(context.Context) error {
	d.listens++
	return nil
}

// Present records the media and shows a description of it.
func (d *Driver) Present(_ context.Context, m types.Media) {
	d.media = m
	if desc := cli.DescribeMedia(m); desc != "" {
		d.lines = append(d.lines, line{text: desc, kind: kindMedia})
	}
}

// StopMedia is followed by a Present of what remains.
func (d *Driver) StopMedia(context.Context) {}

func (d *Driver) takeLines() []line {
	out := d.lines
	d.lines = nil
	return out
}

func (d *Driver) takeCompletion() (types.EventType, bool) {
	if len(d.pending) == 0 {
		return "", false
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, true
}
