// Package cli is a console driver for a voicequest session: narration is
// printed, and typed lines stand in for recognised speech.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/voicequest/engine"
	"github.com/nathoo/voicequest/engine/snapshot"
	"github.com/nathoo/voicequest/errutil"
	"github.com/nathoo/voicequest/nlu"
	"github.com/nathoo/voicequest/types"
)

// CLI plays a session on a terminal. It is the session's speech
// capability and presentation sink: pass it to engine.New and
// engine.WithPresenter, then call Run.
type CLI struct {
	NLU       nlu.Interpreter
	In        io.Reader
	Out       io.Writer
	Logger    *slog.Logger
	Width     int
	SaveDir   string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	engine  *engine.Engine
	pending []types.EventType // completions of speech already printed
}

// New creates a CLI reading stdin and writing stdout.
func New(interp nlu.Interpreter) *CLI {
	return &CLI{
		NLU:     interp,
		In:      os.Stdin,
		Out:     os.Stdout,
		Logger:  slog.Default(),
		Width:   80,
		SaveDir: DefaultSaveDir(),
	}
}

// DefaultSaveDir is ~/.voicequest/saves.
func DefaultSaveDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voicequest", "saves")
}

// Speak prints narration. Printing cannot fail, so the completion is
// queued at once and delivered after the current event.
func (c *CLI) Speak(_ context.Context, text string) error {
	c.printLine(c.wrap(text))
	c.pending = append(c.pending, types.EventSpeakComplete)
	return nil
}

// SpeakMarkup prints the text content of SSML narration.
func (c *CLI) SpeakMarkup(ctx context.Context, markup string) error {
	return c.Speak(ctx, PlainText(markup))
}

// Listen is answered by the next input line.
func (c *CLI) Listen(context.Context) error { return nil }

// Present prints the media now showing.
func (c *CLI) Present(_ context.Context, m types.Media) {
	if line := DescribeMedia(m); line != "" {
		c.printSystem(line)
	}
}

// StopMedia prints nothing; the following Present shows what remains.
func (c *CLI) StopMedia(context.Context) {}

// Run starts the session (unless it was restored) and loops: prompt,
// read, deliver, until /quit, end of input or cancellation.
func (c *CLI) Run(ctx context.Context, e *engine.Engine) error {
	c.engine = e
	if e.Active() == nil {
		steps, err := e.Start(ctx)
		if err != nil {
			return err
		}
		c.trace(steps)
	}
	c.drain(ctx)

	scanner := bufio.NewScanner(c.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Phase() == engine.PhaseListening {
			c.print("> ")
		} else {
			c.print("[Enter to continue] ")
		}
		if !scanner.Scan() {
			c.printLine("")
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return nil
			}
			continue
		}

		switch e.Phase() {
		case engine.PhaseListening:
			c.send(ctx, c.hear(ctx, input))
		case engine.PhaseWaiting:
			c.send(ctx, types.Event{Type: types.EventClick})
		}
		c.drain(ctx)
	}
}

// hear turns a typed line into the event a recogniser would deliver.
func (c *CLI) hear(ctx context.Context, input string) types.Event {
	return Hear(ctx, c.NLU, c.Logger, input)
}

// Hear interprets a typed utterance. An empty line is a no-input
// timeout; an interpreter error is a failed listen.
func Hear(ctx context.Context, interp nlu.Interpreter, logger *slog.Logger, input string) types.Event {
	if input == "" {
		return types.Event{Type: types.EventNoInput}
	}
	result, err := interp.Interpret(ctx, input)
	if err != nil {
		errutil.LogError(logger, "interpreting utterance", err)
		return types.Event{Type: types.EventListenFailed, Err: err}
	}
	return types.Event{
		Type:           types.EventRecognised,
		Hypotheses:     []types.Hypothesis{{Utterance: input, Confidence: 1}},
		Interpretation: result,
	}
}

func (c *CLI) send(ctx context.Context, ev types.Event) {
	c.trace(c.engine.Send(ctx, ev))
}

// drain delivers queued speech completions until the session listens or waits.
func (c *CLI) drain(ctx context.Context) {
	for len(c.pending) > 0 {
		ev := c.pending[0]
		c.pending = c.pending[1:]
		c.send(ctx, types.Event{Type: ev})
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/click":
		c.send(ctx, types.Event{Type: types.EventClick})
		c.drain(ctx)

	case "/save":
		name, err := SaveSnapshot(c.SaveDir, arg, c.engine)
		if err != nil {
			c.printSystem(fmt.Sprintf("Save failed: %v", err))
			return false
		}
		c.printSystem(fmt.Sprintf("Game saved to %s.", name))

	case "/load":
		c.pending = nil
		steps, err := LoadSnapshot(ctx, c.SaveDir, arg, c.engine)
		if err != nil {
			c.printSystem(fmt.Sprintf("Load failed: %v", err))
			return false
		}
		c.trace(steps)
		c.drain(ctx)

	case "/help":
		for _, line := range HelpLines() {
			c.printLine(line)
		}

	case "/state":
		data, err := snapshot.Encode(c.engine.Snapshot())
		if err != nil {
			c.printSystem(fmt.Sprintf("State failed: %v", err))
			return false
		}
		c.printLine(string(data))

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) trace(steps []types.Step) {
	if !c.Trace {
		return
	}
	for _, st := range steps {
		c.printLine(FormatStep(st))
	}
}

func (c *CLI) wrap(text string) string {
	if c.Width <= 0 {
		return text
	}
	return wordwrap.String(text, c.Width)
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
