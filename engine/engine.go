// Package engine provides the turn controller: it drives the narrative
// graph through speak, listen and dispatch, one event at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/nathoo/voicequest/engine/effects"
	"github.com/nathoo/voicequest/engine/events"
	"github.com/nathoo/voicequest/engine/graph"
	"github.com/nathoo/voicequest/engine/rules"
	"github.com/nathoo/voicequest/engine/snapshot"
	"github.com/nathoo/voicequest/engine/state"
	"github.com/nathoo/voicequest/types"
)

// Phase is the turn controller's position within a turn.
type Phase int

const (
	// PhaseIdle is before Start.
	PhaseIdle Phase = iota
	// PhaseSpeaking waits for SPEAK_COMPLETE.
	PhaseSpeaking
	// PhaseListening waits for RECOGNISED or ASR_NOINPUT.
	PhaseListening
	// PhaseWaiting has settled with nothing outstanding; only an
	// external event such as CLICK moves the session on.
	PhaseWaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpeaking:
		return "speaking"
	case PhaseListening:
		return "listening"
	case PhaseWaiting:
		return "waiting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Engine is one game session. It is not safe for concurrent use: feed it
// from a single goroutine, or through Run.
type Engine struct {
	Graph *graph.Graph
	Game  *types.GameDef
	State *types.State
	ID    string

	speech    Speech
	presenter Presenter
	logger    *slog.Logger
	metrics   *Metrics
	observer  func(types.Step)
	eval      rules.Evaluator

	active   *graph.Node
	phase    Phase
	queue    events.Queue
	draining bool
	failures int // capability calls that failed to start during the current run
}

// maxCapabilityFailures bounds the capability calls that may fail to start
// within one run. Past it the session stops re-issuing requests and waits.
const maxCapabilityFailures = 3

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The session id is added to every record.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPresenter sets the presentation sink.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// WithMetrics records engine metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.ID = id }
}

// WithObserver is called with every processed step.
func WithObserver(fn func(types.Step)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates a session over a built graph.
func New(g *graph.Graph, game *types.GameDef, speech Speech, opts ...Option) *Engine {
	e := &Engine{
		Graph:  g,
		Game:   game,
		State:  state.NewState(game),
		ID:     uuid.NewString(),
		speech: speech,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("session_id", e.ID)
	e.eval = rules.Evaluator{OnPanic: func(c types.Condition, r any) {
		e.metrics.guardPanic()
		e.logger.Warn("guard panicked", "guard", c.Type, "node", e.Path(), "panic", fmt.Sprint(r))
	}}
	return e
}

// Phase returns the current turn phase.
func (e *Engine) Phase() Phase { return e.phase }

// Active returns the active leaf, or nil before Start.
func (e *Engine) Active() *graph.Node { return e.active }

// Path returns the active leaf's full path, or "" before Start.
func (e *Engine) Path() string {
	if e.active == nil {
		return ""
	}
	return e.active.Path()
}

// Start enters the root's initial chain and runs its entry actions.
func (e *Engine) Start(ctx context.Context) ([]types.Step, error) {
	if e.active != nil {
		return nil, oops.Code("SESSION_STARTED").With("session", e.ID).Errorf("session already started")
	}
	res := e.Graph.Start()
	e.logger.Info("session started", "game", e.Game.Title, "node", res.Leaf.Path())
	return e.run(ctx, func() types.Step {
		return e.enter(ctx, "START", "", res)
	}), nil
}

// Restore replaces the state with the snapshot's and enters the node at
// its path, running the entry actions of that node and its initial chain.
// Ancestors are treated as already active.
func (e *Engine) Restore(ctx context.Context, snap *snapshot.Snapshot) ([]types.Step, error) {
	n, ok := e.Graph.Lookup(snap.Path)
	if !ok {
		return nil, oops.Code("SNAPSHOT_INVALID").With("path", snap.Path).Errorf("no such node")
	}
	if n == e.Graph.Root {
		return nil, oops.Code("SNAPSHOT_INVALID").With("path", snap.Path).Errorf("cannot restore to the root")
	}
	s := snap.State
	s.Inventory = append([]string{}, snap.State.Inventory...)
	*e.State = s
	e.queue.Reset()

	from := e.Path()
	entered := graph.Descend(n)
	res := graph.Resolution{Target: n, Entered: entered, Leaf: entered[len(entered)-1]}
	e.logger.Info("session restored", "node", res.Leaf.Path())
	return e.run(ctx, func() types.Step {
		return e.enter(ctx, "RESTORE", from, res)
	}), nil
}

// Snapshot captures the session.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return snapshot.Take(e.Game, e.ID, e.Path(), e.State)
}

// Send delivers an event and processes it, and anything it queues, to
// completion. Events sent while the engine is already processing are
// queued and handled after the current one; the nested call returns nil.
func (e *Engine) Send(ctx context.Context, ev types.Event) []types.Step {
	if e.active == nil {
		e.logger.Warn("event before start dropped", "event", ev.Type)
		return nil
	}
	e.queue.Push(ev)
	if e.draining {
		return nil
	}
	return e.run(ctx, nil)
}

// run executes first (if any) and then drains the queue.
func (e *Engine) run(ctx context.Context, first func() types.Step) []types.Step {
	e.draining = true
	e.failures = 0
	defer func() { e.draining = false }()

	var steps []types.Step
	record := func(st types.Step) {
		steps = append(steps, st)
		if e.observer != nil {
			e.observer(st)
		}
	}
	if first != nil {
		record(first())
	}
	for {
		ev, ok := e.queue.Pop()
		if !ok {
			return steps
		}
		record(e.handle(ctx, ev))
	}
}

// handle processes one event.
func (e *Engine) handle(ctx context.Context, ev types.Event) types.Step {
	e.metrics.event(string(ev.Type))

	switch ev.Type {
	case types.EventSpeakComplete:
		if e.phase != PhaseSpeaking {
			return e.stale(ev)
		}
		return e.dispatch(ctx, ev.Type, types.EventSpeakComplete)

	case types.EventSpeakFailed:
		if e.phase != PhaseSpeaking {
			return e.stale(ev)
		}
		e.metrics.failure("speak")
		e.logger.Warn("speech output failed", "node", e.Path(), "error", errString(ev.Err))
		if owner, _ := graph.Handler(e.active, types.EventSpeakFailed); owner != nil {
			return e.dispatch(ctx, ev.Type, types.EventSpeakFailed)
		}
		return e.dispatch(ctx, ev.Type, types.EventSpeakComplete)

	case types.EventRecognised:
		if e.phase != PhaseListening {
			return e.stale(ev)
		}
		state.Recognised(e.State, ev.Hypotheses, ev.Interpretation)
		e.logger.Debug("recognised", "node", e.Path(), "utterance", firstUtterance(ev.Hypotheses), "intent", state.TopIntent(e.State))
		return e.absorb(ctx, ev.Type)

	case types.EventNoInput:
		if e.phase != PhaseListening {
			return e.stale(ev)
		}
		e.metrics.noInput()
		state.NoInput(e.State)
		return e.absorb(ctx, ev.Type)

	case types.EventListenFailed:
		if e.phase != PhaseListening {
			return e.stale(ev)
		}
		e.metrics.failure("listen")
		e.logger.Warn("speech input failed", "node", e.Path(), "error", errString(ev.Err))
		if owner, _ := graph.Handler(e.active, types.EventListenFailed); owner != nil {
			return e.dispatch(ctx, ev.Type, types.EventListenFailed)
		}
		state.NoInput(e.State)
		return e.absorb(ctx, types.EventNoInput)

	case types.EventListenComplete:
		if e.phase != PhaseListening {
			return e.stale(ev)
		}
		return e.dispatch(ctx, ev.Type, types.EventListenComplete)

	default:
		return e.dispatch(ctx, ev.Type, ev.Type)
	}
}

// absorb runs the internal actions for a listen outcome and then
// dispatches the synthetic LISTEN_COMPLETE.
func (e *Engine) absorb(ctx context.Context, ev types.EventType) types.Step {
	var reqs []types.Request
	if acts := graph.InternalActions(e.active, ev); len(acts) > 0 {
		reqs = effects.Apply(e.State, acts)
		e.perform(ctx, reqs)
	}
	st := e.dispatch(ctx, ev, types.EventListenComplete)
	st.Requests = append(reqs, st.Requests...)
	return st
}

// dispatch resolves trigger against the graph. received is the event
// that arrived, recorded in the step.
func (e *Engine) dispatch(ctx context.Context, received, trigger types.EventType) types.Step {
	from := e.Path()
	res, ok := graph.Resolve(e.active, trigger, e.State, e.eval)
	if !ok {
		if consumes(trigger) {
			e.phase = PhaseWaiting
		}
		e.logger.Debug("no transition", "event", trigger, "node", from)
		return types.Step{Event: received, From: from, To: from}
	}

	e.metrics.transition(string(trigger))
	e.logger.Debug("transition",
		"event", trigger,
		"from", from,
		"owner", res.Owner.Path(),
		"entry", res.Index,
		"to", res.Leaf.Path(),
	)

	for _, n := range res.Entered {
		if n == e.Graph.Root.Initial {
			state.Restart(e.State, e.Game)
			e.logger.Info("session restarted", "policy", e.Game.RestartPolicy)
		}
	}
	return e.enter(ctx, received, from, res)
}

// enter runs entry actions outermost first, moves the active leaf and
// derives the next phase from the requests issued.
func (e *Engine) enter(ctx context.Context, received types.EventType, from string, res graph.Resolution) types.Step {
	e.active = res.Leaf
	e.phase = PhaseWaiting

	var reqs []types.Request
	for _, n := range res.Entered {
		r := effects.Apply(e.State, n.Entry)
		e.perform(ctx, r)
		reqs = append(reqs, r...)
	}
	return types.Step{Event: received, From: from, To: res.Leaf.Path(), Fired: true, Requests: reqs}
}

// perform hands requests to the capabilities. A request that cannot start
// is turned into a failure event, so the session never waits on it.
func (e *Engine) perform(ctx context.Context, reqs []types.Request) {
	for _, r := range reqs {
		switch r.Kind {
		case types.RequestSpeak:
			if e.failures >= maxCapabilityFailures {
				continue
			}
			e.phase = PhaseSpeaking
			if err := e.speech.Speak(ctx, r.Text); err != nil {
				e.failed(types.EventSpeakFailed, err)
			}

		case types.RequestSpeakMarkup:
			if e.failures >= maxCapabilityFailures {
				continue
			}
			e.phase = PhaseSpeaking
			if err := e.speech.SpeakMarkup(ctx, r.Text); err != nil {
				e.failed(types.EventSpeakFailed, err)
			}

		case types.RequestListen:
			if e.failures >= maxCapabilityFailures {
				continue
			}
			e.phase = PhaseListening
			if err := e.speech.Listen(ctx); err != nil {
				e.failed(types.EventListenFailed, err)
			}

		case types.RequestPresent:
			if e.presenter != nil {
				e.presenter.Present(ctx, r.Media)
			}

		case types.RequestStopMedia:
			if e.presenter != nil {
				e.presenter.StopMedia(ctx)
			}
		}
	}
}

// failed queues the failure event for a request that could not start.
// Once the run has seen maxCapabilityFailures of them the session gives up
// on the capability and waits for an external event instead.
func (e *Engine) failed(ev types.EventType, err error) {
	e.failures++
	if e.failures < maxCapabilityFailures {
		e.queue.Push(types.Event{Type: ev, Err: err})
		return
	}
	e.phase = PhaseWaiting
	if ev == types.EventSpeakFailed {
		e.metrics.failure("speak")
	} else {
		e.metrics.failure("listen")
	}
	e.logger.Error("capability keeps failing, session waiting",
		"error", oops.Code("CAPABILITY_FAILED").
			With("node", e.Path()).
			With("event", string(ev)).
			With("failures", e.failures).
			Wrap(err),
	)
}

// consumes reports whether trigger ends the outstanding request.
func consumes(trigger types.EventType) bool {
	switch trigger {
	case types.EventSpeakComplete, types.EventSpeakFailed, types.EventListenComplete, types.EventListenFailed:
		return true
	}
	return false
}

func (e *Engine) stale(ev types.Event) types.Step {
	e.logger.Debug("stale event dropped", "event", ev.Type, "phase", e.phase.String(), "node", e.Path())
	return types.Step{Event: ev.Type, From: e.Path(), To: e.Path()}
}

func firstUtterance(hyps []types.Hypothesis) string {
	if len(hyps) == 0 {
		return ""
	}
	return hyps[0].Utterance
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
