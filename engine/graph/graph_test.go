package graph

import (
	"strings"
	"testing"

	"github.com/nathoo/voicequest/types"
)

func speak(text string) types.Action { return types.Action{Kind: types.ActionSpeak, Text: text} }
func listen() types.Action          { return types.Action{Kind: types.ActionListen} }

func to(target string) types.TransitionDef {
	return types.TransitionDef{Target: MustTarget(target)}
}

func when(c types.Condition, target string) types.TransitionDef {
	return types.TransitionDef{Guard: &c, Target: MustTarget(target)}
}

func intentIs(name string) types.Condition {
	return types.Condition{Type: "intent_is", Params: map[string]any{"intent": name}}
}

func hasItem(item string) types.Condition {
	return types.Condition{Type: "has_item", Params: map[string]any{"item": item}}
}

func notHas(item string) types.Condition {
	c := hasItem(item)
	return types.Condition{Type: "not", Inner: &c}
}

func all(terms ...types.Condition) types.Condition {
	return types.Condition{Type: "all", Terms: terms}
}

// room builds a Prompt/Ask/NoInput composite with the given extra children
// and LISTEN_COMPLETE list.
func room(id, prompt string, listenComplete []types.TransitionDef, extra ...types.NodeDef) types.NodeDef {
	children := []types.NodeDef{
		{ID: "Prompt", Entry: []types.Action{speak(prompt)}, On: map[types.EventType][]types.TransitionDef{
			types.EventSpeakComplete: {to("Ask")},
		}},
		{ID: "Ask", Entry: []types.Action{listen()}},
		{ID: "NoInput", Entry: []types.Action{speak("")}, On: map[types.EventType][]types.TransitionDef{
			types.EventSpeakComplete: {to("Ask")},
		}},
	}
	return types.NodeDef{
		ID:       id,
		Initial:  "Prompt",
		Children: append(children, extra...),
		On:       map[types.EventType][]types.TransitionDef{types.EventListenComplete: listenComplete},
	}
}

func testGame() *types.GameDef {
	car := room("Car", "A German car.", []types.TransitionDef{
		when(all(intentIs("TakeTheStick"), notHas("a brown stick")), ".TakeTheStick"),
		when(intentIs("MoveToX"), "Entrance"),
		to(".NoInput"),
	}, types.NodeDef{
		ID: "TakeTheStick",
		Entry: []types.Action{
			{Kind: types.ActionGiveItem, Item: "a brown stick"},
			speak("You take the stick with you."),
		},
		On: map[types.EventType][]types.TransitionDef{
			types.EventSpeakComplete: {to("#Entrance.NoInput")},
		},
	})

	entrance := room("Entrance", "A cold breeze.", []types.TransitionDef{
		when(all(intentIs("ApproachX"), notHas("a brown stick")), "Car"),
		when(all(intentIs("ApproachX"), hasItem("a brown stick")), "CarNoItem"),
		to(".NoInput"),
	})

	return &types.GameDef{
		Title:          "Test",
		StartInventory: []string{"your notepad", "your pen"},
		Root: types.NodeDef{
			ID:      "dm",
			Initial: "Start",
			Children: []types.NodeDef{
				{ID: "Start", On: map[types.EventType][]types.TransitionDef{
					types.EventClick: {to("Entrance")},
				}},
				entrance,
				car,
				{ID: "CarNoItem", Entry: []types.Action{speak("Nothing left here.")}, On: map[types.EventType][]types.TransitionDef{
					types.EventSpeakComplete: {to("Entrance.NoInput")},
				}},
			},
		},
	}
}

func mustBuild(t *testing.T, game *types.GameDef) *Graph {
	t.Helper()
	g, _, err := Build(game)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func mustLookup(t *testing.T, g *Graph, path string) *Node {
	t.Helper()
	n, ok := g.Lookup(path)
	if !ok {
		t.Fatalf("no node %q", path)
	}
	return n
}

func paths(nodes []*Node) string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return strings.Join(out, ",")
}

func interpreted(intent string) *types.State {
	return &types.State{
		Inventory:          []string{"your notepad", "your pen"},
		LastInterpretation: &types.Interpretation{TopIntent: intent},
		LastResult:         []types.Hypothesis{{Utterance: "x"}},
	}
}

func TestBuild_Topology(t *testing.T) {
	g := mustBuild(t, testGame())

	if g.Root.Path() != "dm" {
		t.Errorf("root path = %q", g.Root.Path())
	}
	ask := mustLookup(t, g, "dm.Car.Ask")
	if !ask.IsLeaf() || ask.Depth() != 2 {
		t.Errorf("dm.Car.Ask leaf=%v depth=%d", ask.IsLeaf(), ask.Depth())
	}
	car := mustLookup(t, g, "dm.Car")
	if car.Initial == nil || car.Initial.ID != "Prompt" {
		t.Errorf("car initial = %v", car.Initial)
	}
	if n, ok := g.Find("Entrance.NoInput"); !ok || n.Path() != "dm.Entrance.NoInput" {
		t.Errorf("Find = %v, %v", n, ok)
	}

	// Targets are node handles.
	take := car.On[types.EventListenComplete][0]
	if take.Target != mustLookup(t, g, "dm.Car.TakeTheStick") {
		t.Errorf("child target resolved to %s", take.Target.Path())
	}
	abs := mustLookup(t, g, "dm.Car.TakeTheStick").On[types.EventSpeakComplete][0]
	if abs.Target != mustLookup(t, g, "dm.Entrance.NoInput") {
		t.Errorf("absolute target resolved to %s", abs.Target.Path())
	}
	sib := mustLookup(t, g, "dm.CarNoItem").On[types.EventSpeakComplete][0]
	if sib.Target != mustLookup(t, g, "dm.Entrance.NoInput") {
		t.Errorf("sibling path target resolved to %s", sib.Target.Path())
	}

	if len(g.Nodes()) != 12 {
		t.Errorf("len(Nodes) = %d, want 12", len(g.Nodes()))
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.GameDef)
		want   string
	}{
		{
			name: "unresolvable target",
			mutate: func(g *types.GameDef) {
				g.Root.Children[0].On[types.EventClick] = []types.TransitionDef{to("Nowhere")}
			},
			want: `target "Nowhere"`,
		},
		{
			name: "missing initial child",
			mutate: func(g *types.GameDef) {
				g.Root.Children[1].Initial = ""
			},
			want: "dm.Entrance: composite node has no initial child",
		},
		{
			name: "unknown initial child",
			mutate: func(g *types.GameDef) {
				g.Root.Children[1].Initial = "Missing"
			},
			want: `initial child "Missing" does not exist`,
		},
		{
			name: "duplicate child id",
			mutate: func(g *types.GameDef) {
				g.Root.Children = append(g.Root.Children, types.NodeDef{ID: "Start"})
			},
			want: `duplicate child id "Start"`,
		},
		{
			name: "missing fallback",
			mutate: func(g *types.GameDef) {
				list := g.Root.Children[1].On[types.EventListenComplete]
				g.Root.Children[1].On[types.EventListenComplete] = list[:len(list)-1]
			},
			want: "no unguarded fallback",
		},
		{
			name: "two suspending actions",
			mutate: func(g *types.GameDef) {
				g.Root.Children[3].Entry = append(g.Root.Children[3].Entry, listen())
			},
			want: "more than one speak or listen",
		},
		{
			name: "composite speaks and its initial child listens",
			mutate: func(g *types.GameDef) {
				g.Root.Children[1].Entry = []types.Action{speak("You arrive.")}
			},
			want: "dm.Entrance: entry and initial children run more than one speak or listen action",
		},
		{
			name: "transition enters a speaking composite at a listening child",
			mutate: func(g *types.GameDef) {
				g.Root.Children[2].Entry = []types.Action{speak("The car.")}
				g.Root.Children[0].On[types.EventClick] = []types.TransitionDef{to("Car.Ask")}
			},
			want: "dm.Start: on CLICK: entering dm.Car.Ask runs more than one speak or listen action",
		},
		{
			name: "empty target path",
			mutate: func(g *types.GameDef) {
				g.Root.Children[0].On[types.EventClick] = []types.TransitionDef{to("#Start"), {Target: types.TargetRef{Kind: types.TargetChild, Path: nil, Raw: "."}}}
			},
			want: "empty path",
		},
		{
			name: "undeclared intent",
			mutate: func(g *types.GameDef) {
				g.Lexicon.Intents = []types.IntentDef{{Name: "ApproachX"}, {Name: "MoveToX"}}
			},
			want: `undeclared intent "TakeTheStick"`,
		},
		{
			name: "leaf declares initial",
			mutate: func(g *types.GameDef) {
				g.Root.Children[3].Initial = "X"
			},
			want: "leaf node declares initial child",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := testGame()
			tt.mutate(game)
			g, _, err := Build(game)
			if err == nil {
				t.Fatal("expected error")
			}
			if g != nil {
				t.Error("expected nil graph on error")
			}
			be, ok := err.(*BuildError)
			if !ok {
				t.Fatalf("error type = %T, want *BuildError", err)
			}
			found := false
			for _, msg := range be.Errors {
				if strings.Contains(msg, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %q do not mention %q", be.Errors, tt.want)
			}
		})
	}
}

func TestBuild_Warnings(t *testing.T) {
	game := testGame()
	list := game.Root.Children[1].On[types.EventListenComplete]
	game.Root.Children[1].On[types.EventListenComplete] = append([]types.TransitionDef{to(".NoInput")}, list...)
	game.Root.Children = append(game.Root.Children, types.NodeDef{ID: "Stuck"})

	_, warnings, err := Build(game)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "shadows 3 later entries") {
		t.Errorf("missing shadow warning in %q", joined)
	}
	if !strings.Contains(joined, "dm.Stuck: leaf waits for nothing") {
		t.Errorf("missing dead-end warning in %q", joined)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw     string
		kind    types.TargetKind
		path    string
		wantErr bool
	}{
		{"#FirstEntrance.NoInput", types.TargetAbsolute, "FirstEntrance,NoInput", false},
		{".Ask", types.TargetChild, "Ask", false},
		{"Ask", types.TargetSibling, "Ask", false},
		{"FirstEntrance.NoInput", types.TargetSibling, "FirstEntrance,NoInput", false},
		{"", 0, "", true},
		{"#", 0, "", true},
		{".", 0, "", true},
		{"A..B", 0, "", true},
		{"A.#B", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, err := ParseTarget(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTarget(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q): %v", tt.raw, err)
			}
			if ref.Kind != tt.kind || strings.Join(ref.Path, ",") != tt.path {
				t.Errorf("ParseTarget(%q) = %v %v", tt.raw, ref.Kind, ref.Path)
			}
		})
	}
}
