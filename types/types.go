// Package types defines the shared data structures for the voicequest engine.
// This package contains only type definitions: no logic, no methods.
package types

// IntentScore is one classified intent with its confidence.
type IntentScore struct {
	Category        string  `json:"category"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Entity is a recognized span of an utterance tagged with a category.
type Entity struct {
	Category         string       `json:"category"`
	Text             string       `json:"text"`
	ConfidenceScore  float64      `json:"confidenceScore"`
	Offset           int          `json:"offset"`
	Length           int          `json:"length"`
	ExtraInformation []EntityInfo `json:"extraInformation,omitempty"`
}

// EntityInfo is extra resolution data for an entity. A list entity carries
// the canonical value it matched as Kind "ListKey".
type EntityInfo struct {
	Kind string `json:"extraInformationKind"`
	Key  string `json:"key,omitempty"`
}

// ListKeyInfo is the EntityInfo kind naming a list entity's canonical value.
const ListKeyInfo = "ListKey"

// Interpretation is the normalized result of one NLU call.
// It is produced once per recognized utterance and never modified.
type Interpretation struct {
	TopIntent   string        `json:"topIntent"`
	ProjectKind string        `json:"projectKind,omitempty"`
	Intents     []IntentScore `json:"intents"`
	Entities    []Entity      `json:"entities"`
}

// Hypothesis is one raw recognition candidate.
type Hypothesis struct {
	Utterance  string  `json:"utterance"`
	Confidence float64 `json:"confidence"`
}

// Media is the cosmetic output record consumed by a presentation sink.
type Media struct {
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`
	Sound string `json:"sound,omitempty"`
	Loop  bool   `json:"loop,omitempty"`
}

// State is the complete mutable session record.
type State struct {
	Inventory          []string        `json:"inventory"`
	PlayerName         string          `json:"player_name"`
	LastInterpretation *Interpretation `json:"last_interpretation,omitempty"`
	LastResult         []Hypothesis    `json:"last_result,omitempty"`
	Media              Media           `json:"media"`
	Turn               int             `json:"turn"`
}

// EventType names an event understood by the turn controller and the graph.
type EventType string

const (
	EventSpeakComplete  EventType = "SPEAK_COMPLETE"
	EventListenComplete EventType = "LISTEN_COMPLETE"
	EventRecognised     EventType = "RECOGNISED"
	EventNoInput        EventType = "ASR_NOINPUT"
	EventClick          EventType = "CLICK"
	EventSpeakFailed    EventType = "SPEAK_FAILED"
	EventListenFailed   EventType = "LISTEN_FAILED"
)

// Event is delivered to the turn controller by a capability or the UI.
type Event struct {
	Type           EventType
	Hypotheses     []Hypothesis    // RECOGNISED only
	Interpretation *Interpretation // RECOGNISED only
	Err            error           // *_FAILED only
}

// ActionKind tags an Action variant.
type ActionKind string

const (
	ActionSpeak       ActionKind = "speak"
	ActionSpeakMarkup ActionKind = "speak_markup"
	ActionListen      ActionKind = "listen"
	ActionStopMedia   ActionKind = "stop_media"
	ActionGiveItem    ActionKind = "give_item"
	ActionCaptureName ActionKind = "capture_name"
	ActionShowImage   ActionKind = "show_image"
	ActionShowVideo   ActionKind = "show_video"
	ActionPlaySound   ActionKind = "play_sound"
)

// Action is a single entry or internal action of a narrative node.
type Action struct {
	Kind     ActionKind
	Text     string // speak, speak_markup
	Item     string // give_item
	Category string // capture_name
	URL      string // show_image, show_video, play_sound
	Loop     bool   // play_sound
}

// Condition is a guard predicate over the session state.
type Condition struct {
	Type   string         // "intent_is", "entity_is", "has_item", "utterance_in", "name_known", "heard", "not", "all", "any", "func"
	Params map[string]any // condition-specific parameters
	Inner  *Condition     // for "not"
	Terms  []Condition    // for "all" and "any"
	Fn     func(*State) bool
}

// TargetKind distinguishes how a transition target is anchored.
type TargetKind int

const (
	// TargetSibling is rooted at the defining node's parent.
	TargetSibling TargetKind = iota
	// TargetChild is rooted at the defining node itself.
	TargetChild
	// TargetAbsolute is rooted at the graph root.
	TargetAbsolute
)

// TargetRef is a typed transition target, resolved once at build time.
type TargetRef struct {
	Kind TargetKind
	Path []string
	Raw  string // as authored, for diagnostics
}

// TransitionDef is one guarded entry of a node's handler list.
type TransitionDef struct {
	Guard  *Condition // nil means unguarded
	Target TargetRef
}

// NodeDef is the authored definition of a narrative node.
type NodeDef struct {
	ID       string
	Initial  string // composite only
	Entry    []Action
	Internal map[EventType][]Action
	On       map[EventType][]TransitionDef
	Children []NodeDef
}

// Lexicon is the closed NLU vocabulary declared by a game.
type Lexicon struct {
	Intents  []IntentDef
	Entities []EntityDef
}

// IntentDef lists the phrase patterns that signal an intent.
type IntentDef struct {
	Name     string
	Patterns []string
}

// EntityDef lists the canonical values of an entity category and their
// synonyms. Captures are phrase templates for open categories such as
// names: "{}" stands for the captured text, e.g. "my name is {}".
type EntityDef struct {
	Category string
	Values   []EntityValue
	Captures []string
}

// EntityValue is one canonical entity value.
type EntityValue struct {
	Value    string
	Synonyms []string
}

// RestartPolicy controls what survives a return to the start node.
type RestartPolicy string

const (
	RestartKeep  RestartPolicy = "keep"
	RestartReset RestartPolicy = "reset"
)

// GameDef holds game metadata and the narrative root.
type GameDef struct {
	Title          string
	Author         string
	Version        string
	StartInventory []string
	RestartPolicy  RestartPolicy
	Root           NodeDef
	Lexicon        Lexicon
}

// RequestKind tags a capability request.
type RequestKind string

const (
	RequestSpeak       RequestKind = "speak"
	RequestSpeakMarkup RequestKind = "speak_markup"
	RequestListen      RequestKind = "listen"
	RequestStopMedia   RequestKind = "stop_media"
	RequestPresent     RequestKind = "present"
)

// Request is an effect the core asks a capability to perform.
type Request struct {
	Kind  RequestKind
	Text  string
	Media Media // present only
}

// Step is the record of one processed event.
type Step struct {
	Event    EventType
	From     string
	To       string
	Fired    bool
	Requests []Request
}
