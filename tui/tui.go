// Package tui provides a Bubble Tea terminal UI for a voicequest session.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/voicequest/cli"
	"github.com/nathoo/voicequest/engine"
	"github.com/nathoo/voicequest/engine/snapshot"
	"github.com/nathoo/voicequest/nlu"
	"github.com/nathoo/voicequest/types"
)

// Config holds the TUI settings.
type Config struct {
	NLU           nlu.Interpreter
	Logger        *slog.Logger
	ListenTimeout time.Duration // 0 waits for input forever
	SaveDir       string
}

// Model is the Bubble Tea model for a voicequest session.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	driver *Driver
	cfg    Config

	viewport viewport.Model
	input    textinput.Model
	recall   *recall

	lines []line // accumulated output, unstyled for re-wrapping

	width        int
	height       int
	ready        bool
	trace        bool
	quitting     bool
	interpreting bool
	armed        int // listen number the current timeout was set for
	generation   int // bumped by /load; older interpretations are dropped
}

type startMsg struct{}

// heardMsg carries an interpreted utterance back into the Update loop.
// generation is the session generation the utterance was typed in.
type heardMsg struct {
	event      types.Event
	generation int
}

// listenTimeoutMsg fires when listen number seq has waited too long.
type listenTimeoutMsg struct {
	seq int
}

// New creates a TUI model over a session whose speech capability and
// presenter are d.
func New(ctx context.Context, e *engine.Engine, d *Driver, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = cli.DefaultSaveDir()
	}

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	m := Model{
		ctx:    ctx,
		engine: e,
		driver: d,
		cfg:    cfg,
		input:  ti,
		recall: newRecall(100),
	}
	m.updatePrompt()
	return m
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, e *engine.Engine, d *Driver, cfg Config) error {
	m := New(ctx, e, d, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init shows the title and starts the session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return startMsg{} })
}

// Update handles messages (key presses, window resize, interpreted
// speech and listen timeouts).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := max(m.height-2, 1) // 1 status bar + 1 input line
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()
		return m, nil

	case startMsg:
		return m.start()

	case heardMsg:
		if msg.generation != m.generation {
			return m, nil
		}
		m.interpreting = false
		if m.engine.Phase() != engine.PhaseListening {
			return m, nil
		}
		return m.send(msg.event)

	case listenTimeoutMsg:
		if m.interpreting || msg.seq != m.driver.listens || m.engine.Phase() != engine.PhaseListening {
			return m, nil
		}
		return m.send(types.Event{Type: types.EventNoInput})

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.recall.back(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			next, _ := m.recall.forward()
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

func (m Model) start() (tea.Model, tea.Cmd) {
	g := m.engine.Game
	title := g.Title
	if g.Version != "" {
		title += " v" + g.Version
	}
	if g.Author != "" {
		title += " by " + g.Author
	}
	m.appendLines(line{text: title, kind: kindNarration}, line{kind: kindBlank})

	if m.engine.Active() == nil {
		steps, err := m.engine.Start(m.ctx)
		if err != nil {
			m.appendLines(line{text: fmt.Sprintf("Start failed: %v", err), kind: kindSystem})
			return m, nil
		}
		m.traceSteps(steps)
	} else {
		m.appendLines(line{text: "Resumed at " + nodeDisplayName(m.engine.Path()) + ".", kind: kindSystem})
	}
	cmd := m.settle()
	return m, cmd
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input != "" {
		m.recall.add(input)
	}

	if strings.HasPrefix(input, "/") {
		m.appendLines(line{text: input, kind: kindInput})
		quit := m.handleMeta(input)
		m.appendLines(line{kind: kindBlank})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		cmd := m.settle()
		return m, cmd
	}

	switch m.engine.Phase() {
	case engine.PhaseWaiting:
		return m.send(types.Event{Type: types.EventClick})

	case engine.PhaseListening:
		if m.interpreting {
			return m, nil
		}
		if input == "" {
			m.appendLines(line{text: "(silence)", kind: kindInput})
			return m.send(types.Event{Type: types.EventNoInput})
		}
		m.appendLines(line{text: input, kind: kindInput})
		m.interpreting = true
		m.updatePrompt()
		return m, m.interpret(input)
	}
	return m, nil
}

// interpret runs the interpreter off the Update loop.
func (m Model) interpret(input string) tea.Cmd {
	ctx, interp, logger, gen := m.ctx, m.cfg.NLU, m.cfg.Logger, m.generation
	return func() tea.Msg {
		return heardMsg{event: cli.Hear(ctx, interp, logger, input), generation: gen}
	}
}

// send delivers an event and settles the session.
func (m Model) send(ev types.Event) (tea.Model, tea.Cmd) {
	m.traceSteps(m.engine.Send(m.ctx, ev))
	cmd := m.settle()
	return m, cmd
}

// settle delivers speech completions until the session listens or
// waits, shows what was produced and arms the listen timeout.
func (m *Model) settle() tea.Cmd {
	for {
		ev, ok := m.driver.takeCompletion()
		if !ok {
			break
		}
		m.traceSteps(m.engine.Send(m.ctx, types.Event{Type: ev}))
	}
	if out := m.driver.takeLines(); len(out) > 0 {
		m.appendLines(out...)
		m.appendLines(line{kind: kindBlank})
	}
	m.updatePrompt()

	if m.engine.Phase() != engine.PhaseListening || m.driver.listens == m.armed || m.cfg.ListenTimeout <= 0 {
		return nil
	}
	m.armed = m.driver.listens
	seq := m.armed
	return tea.Tick(m.cfg.ListenTimeout, func(time.Time) tea.Msg {
		return listenTimeoutMsg{seq: seq}
	})
}

func (m *Model) updatePrompt() {
	switch {
	case m.interpreting:
		m.input.Prompt = "... "
	case m.engine.Phase() == engine.PhaseListening:
		m.input.Prompt = "> "
	default:
		m.input.Prompt = "[Enter] "
	}
}

func (m *Model) traceSteps(steps []types.Step) {
	if !m.trace {
		return
	}
	for _, st := range steps {
		m.driver.lines = append(m.driver.lines, line{text: cli.FormatStep(st), kind: kindTrace})
	}
}

func (m *Model) appendLines(ls ...line) {
	m.lines = append(m.lines, ls...)
	m.refreshViewport()
}

// refreshViewport re-wraps and re-styles all lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)

	styled := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		if l.kind == kindBlank || l.text == "" {
			styled = append(styled, "")
			continue
		}
		styled = append(styled, l.kind.style().Render(wordwrap.String(l.kind.decorate(l.text), width)))
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (m *Model) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}
	system := func(text string) {
		m.appendLines(line{text: text, kind: kindSystem})
	}

	switch cmd {
	case "/quit", "/exit":
		system("Goodbye.")
		return true

	case "/click":
		m.traceSteps(m.engine.Send(m.ctx, types.Event{Type: types.EventClick}))

	case "/save":
		name, err := cli.SaveSnapshot(m.cfg.SaveDir, arg, m.engine)
		if err != nil {
			system(fmt.Sprintf("Save failed: %v", err))
			return false
		}
		system(fmt.Sprintf("Game saved to %s.", name))

	case "/load":
		m.driver.pending = nil
		m.interpreting = false
		m.generation++
		steps, err := cli.LoadSnapshot(m.ctx, m.cfg.SaveDir, arg, m.engine)
		if err != nil {
			system(fmt.Sprintf("Load failed: %v", err))
			return false
		}
		system(fmt.Sprintf("Game loaded (turn %d).", m.engine.State.Turn))
		m.traceSteps(steps)

	case "/help":
		for _, l := range cli.HelpLines() {
			m.appendLines(line{text: l, kind: kindNarration})
		}
		m.appendLines(line{text: "Navigation: PgUp/PgDn to scroll, Up/Down for input history", kind: kindNarration})

	case "/state":
		data, err := snapshot.Encode(m.engine.Snapshot())
		if err != nil {
			system(fmt.Sprintf("State failed: %v", err))
			return false
		}
		for _, l := range strings.Split(string(data), "\n") {
			m.appendLines(line{text: l, kind: kindTrace})
		}

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			system("Trace output enabled.")
		} else {
			system("Trace output disabled.")
		}

	default:
		system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return false
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
