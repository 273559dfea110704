package loader

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/voicequest/types"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

// evalTable runs src, which must return a table, and returns that table.
func evalTable(t *testing.T, L *lua.LState, src string) *lua.LTable {
	t.Helper()
	if err := L.DoString(src); err != nil {
		t.Fatal(err)
	}
	return L.CheckTable(-1)
}

func TestCompileGame(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tbl := evalTable(t, L, `
		return {
			title = "Test Game",
			author = "Author",
			version = "1.0",
			inventory = { "a pen" },
			restart = "reset",
		}
	`)
	game := compileGame(tbl)

	if game.Title != "Test Game" {
		t.Errorf("Title = %q, want %q", game.Title, "Test Game")
	}
	if game.Author != "Author" {
		t.Errorf("Author = %q, want %q", game.Author, "Author")
	}
	if game.Version != "1.0" {
		t.Errorf("Version = %q, want %q", game.Version, "1.0")
	}
	if len(game.StartInventory) != 1 || game.StartInventory[0] != "a pen" {
		t.Errorf("StartInventory = %v", game.StartInventory)
	}
	if game.RestartPolicy != types.RestartReset {
		t.Errorf("RestartPolicy = %q, want reset", game.RestartPolicy)
	}
}

func TestCompileTransitions_Forms(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tests := []struct {
		name    string
		src     string
		targets []string
		guarded []bool
	}{
		{"bare string", `return "Next"`, []string{"Next"}, []bool{false}},
		{"single Go", `return Go("#A.B", HasItem "key")`, []string{"#A.B"}, []bool{true}},
		{"single Go unguarded", `return Go ".Ask"`, []string{".Ask"}, []bool{false}},
		{"mixed list", `return { Go("X", NameKnown()), "Y" }`, []string{"X", "Y"}, []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.src); err != nil {
				t.Fatal(err)
			}
			v := L.Get(-1)
			L.Pop(1)

			list, err := compileTransitions(v)
			if err != nil {
				t.Fatalf("compileTransitions: %v", err)
			}
			if len(list) != len(tt.targets) {
				t.Fatalf("got %d entries, want %d", len(list), len(tt.targets))
			}
			for i, td := range list {
				if td.Target.Raw != tt.targets[i] {
					t.Errorf("entry %d target = %q, want %q", i, td.Target.Raw, tt.targets[i])
				}
				if (td.Guard != nil) != tt.guarded[i] {
					t.Errorf("entry %d guarded = %v, want %v", i, td.Guard != nil, tt.guarded[i])
				}
			}
		})
	}
}

func TestCompileTransitions_BadTarget(t *testing.T) {
	_, err := compileTransitions(lua.LString("#"))
	if err == nil || !strings.Contains(err.Error(), "empty path") {
		t.Errorf("error = %v, want empty path", err)
	}
}

func TestCompileCondition_Nested(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tbl := evalTable(t, L, `
		return All {
			IntentIs "MoveToX",
			Any { EntityIs("Direction", "back"), UtteranceIn { "go back", "return" } },
			Not(Heard()),
		}
	`)
	c, err := compileCondition(tbl)
	if err != nil {
		t.Fatalf("compileCondition: %v", err)
	}

	if c.Type != "all" || len(c.Terms) != 3 {
		t.Fatalf("top = %+v", c)
	}
	if got := c.Terms[0].Params["intent"]; got != "MoveToX" {
		t.Errorf("intent = %v", got)
	}
	anyTerm := c.Terms[1]
	if anyTerm.Type != "any" || len(anyTerm.Terms) != 2 {
		t.Fatalf("any = %+v", anyTerm)
	}
	ent := anyTerm.Terms[0]
	if ent.Params["category"] != "Direction" || ent.Params["value"] != "back" {
		t.Errorf("entity_is params = %v", ent.Params)
	}
	cands, _ := anyTerm.Terms[1].Params["candidates"].([]string)
	if strings.Join(cands, "|") != "go back|return" {
		t.Errorf("candidates = %v", cands)
	}
	if c.Terms[2].Type != "not" || c.Terms[2].Inner == nil || c.Terms[2].Inner.Type != "heard" {
		t.Errorf("not = %+v", c.Terms[2])
	}
}

func TestCompileActions(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tbl := evalTable(t, L, `
		return {
			StopMedia(),
			ShowImage "room.png",
			PlaySound("rain.mp3", true),
			GiveItem "a key",
			Speak "You take the key.",
		}
	`)
	acts, err := compileActions(tbl)
	if err != nil {
		t.Fatalf("compileActions: %v", err)
	}

	want := []types.Action{
		{Kind: types.ActionStopMedia},
		{Kind: types.ActionShowImage, URL: "room.png"},
		{Kind: types.ActionPlaySound, URL: "rain.mp3", Loop: true},
		{Kind: types.ActionGiveItem, Item: "a key"},
		{Kind: types.ActionSpeak, Text: "You take the key."},
	}
	if len(acts) != len(want) {
		t.Fatalf("got %d actions, want %d", len(acts), len(want))
	}
	for i := range want {
		if acts[i] != want[i] {
			t.Errorf("action %d = %+v, want %+v", i, acts[i], want[i])
		}
	}
}

func TestCompile_NestedStates(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Game { id = "g", title = "T", start = "Outer" }
		Node "Outer" {
			initial = "Inner",
			states = {
				Node "Inner" {
					initial = "Leaf",
					states = { Node "Leaf" { entry = { Listen() } } },
				},
			},
		}
		Node "Other" { entry = { Listen() } }
	`); err != nil {
		t.Fatal(err)
	}

	game, err := compile(coll)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	root := game.Root
	if root.ID != "g" || root.Initial != "Outer" {
		t.Errorf("root = %q/%q", root.ID, root.Initial)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	outer := root.Children[0]
	if outer.ID != "Outer" || len(outer.Children) != 1 {
		t.Fatalf("outer = %+v", outer)
	}
	inner := outer.Children[0]
	if inner.ID != "Inner" || inner.Initial != "Leaf" || len(inner.Children) != 1 || inner.Children[0].ID != "Leaf" {
		t.Errorf("inner = %+v", inner)
	}
	if root.Children[1].ID != "Other" {
		t.Errorf("second root child = %q", root.Children[1].ID)
	}
}

func TestCompileLexicon(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Intent "TakeTheKey" { "take * key", "grab * key" }
		Entity "DoorColor" { "blue", grey = { "gray" } }
		Entity "PersonName" { captures = { "call me {}" } }
	`); err != nil {
		t.Fatal(err)
	}

	lex, err := compileLexicon(coll)
	if err != nil {
		t.Fatalf("compileLexicon: %v", err)
	}
	if len(lex.Intents) != 1 || len(lex.Intents[0].Patterns) != 2 {
		t.Errorf("intents = %+v", lex.Intents)
	}
	if len(lex.Entities) != 2 {
		t.Fatalf("entities = %+v", lex.Entities)
	}
	colors := lex.Entities[0]
	if len(colors.Values) != 2 || colors.Values[0].Value != "blue" || colors.Values[1].Value != "grey" ||
		colors.Values[1].Synonyms[0] != "gray" {
		t.Errorf("DoorColor = %+v", colors.Values)
	}
	names := lex.Entities[1]
	if len(names.Values) != 0 || len(names.Captures) != 1 {
		t.Errorf("PersonName = %+v", names)
	}
}
