// Package loader loads Lua game content into Go structs at load time.
// The Lua VM is discarded after loading; nothing runs Lua during play.
package loader

import (
	"fmt"
	"slices"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/voicequest/engine/graph"
	"github.com/nathoo/voicequest/types"
)

// rawNode holds a node table before compilation.
type rawNode struct {
	id    string
	table *lua.LTable
	order int
}

// rawLexeme holds an Intent or Entity table before compilation.
type rawLexeme struct {
	name  string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// arrayStrings returns the string elements of a table's array part.
func arrayStrings(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// arrayTables returns the table elements of a table's array part.
func arrayTables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// compile converts all collected Lua data into a GameDef. Nodes that are
// not listed in another node's states become children of the root.
func compile(coll *collector) (*types.GameDef, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	game := compileGame(coll.game)

	nested := map[*lua.LTable]bool{}
	for _, raw := range coll.nodes {
		for _, child := range arrayTables(getTable(raw.table, "states")) {
			nested[child] = true
		}
	}
	ids := map[*lua.LTable]string{}
	for _, raw := range coll.nodes {
		ids[raw.table] = raw.id
	}

	root := types.NodeDef{
		ID:      getString(coll.game, "id"),
		Initial: getString(coll.game, "start"),
	}
	for _, raw := range coll.nodes {
		if nested[raw.table] {
			continue
		}
		def, err := compileNode(raw.id, raw.table, ids)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, def)
	}
	game.Root = root

	lex, err := compileLexicon(coll)
	if err != nil {
		return nil, err
	}
	game.Lexicon = lex
	return game, nil
}

func compileGame(tbl *lua.LTable) *types.GameDef {
	game := &types.GameDef{
		Title:          getString(tbl, "title"),
		Author:         getString(tbl, "author"),
		Version:        getString(tbl, "version"),
		StartInventory: arrayStrings(getTable(tbl, "inventory")),
		RestartPolicy:  types.RestartPolicy(getString(tbl, "restart")),
	}
	if game.StartInventory == nil {
		game.StartInventory = []string{}
	}
	if game.RestartPolicy == "" {
		game.RestartPolicy = types.RestartKeep
	}
	return game
}

// compileNode compiles a node table and, recursively, its states.
func compileNode(id string, tbl *lua.LTable, ids map[*lua.LTable]string) (types.NodeDef, error) {
	def := types.NodeDef{
		ID:      id,
		Initial: getString(tbl, "initial"),
	}

	var err error
	if def.Entry, err = compileActions(getTable(tbl, "entry")); err != nil {
		return def, fmt.Errorf("node %s: entry: %w", id, err)
	}

	if internal := getTable(tbl, "internal"); internal != nil {
		def.Internal = map[types.EventType][]types.Action{}
		for _, ev := range sortedKeys(internal) {
			acts, err := compileActions(getTable(internal, ev))
			if err != nil {
				return def, fmt.Errorf("node %s: internal %s: %w", id, ev, err)
			}
			def.Internal[types.EventType(ev)] = acts
		}
	}

	if on := getTable(tbl, "on"); on != nil {
		def.On = map[types.EventType][]types.TransitionDef{}
		for _, ev := range sortedKeys(on) {
			list, err := compileTransitions(on.RawGetString(ev))
			if err != nil {
				return def, fmt.Errorf("node %s: on %s: %w", id, ev, err)
			}
			def.On[types.EventType(ev)] = list
		}
	}

	for _, child := range arrayTables(getTable(tbl, "states")) {
		childID, ok := ids[child]
		if !ok {
			return def, fmt.Errorf("node %s: states must hold Node \"id\" {...} entries", id)
		}
		cd, err := compileNode(childID, child, ids)
		if err != nil {
			return def, err
		}
		def.Children = append(def.Children, cd)
	}
	return def, nil
}

// compileTransitions accepts a bare target string, a single Go(...) entry
// or a list of them.
func compileTransitions(v lua.LValue) ([]types.TransitionDef, error) {
	switch val := v.(type) {
	case lua.LString:
		ref, err := graph.ParseTarget(string(val))
		if err != nil {
			return nil, err
		}
		return []types.TransitionDef{{Target: ref}}, nil

	case *lua.LTable:
		if val.RawGetString("target") != lua.LNil {
			td, err := compileTransition(val)
			if err != nil {
				return nil, err
			}
			return []types.TransitionDef{td}, nil
		}
		var list []types.TransitionDef
		for i := 1; i <= val.MaxN(); i++ {
			entry := val.RawGetInt(i)
			if s, ok := entry.(lua.LString); ok {
				ref, err := graph.ParseTarget(string(s))
				if err != nil {
					return nil, err
				}
				list = append(list, types.TransitionDef{Target: ref})
				continue
			}
			tbl, ok := entry.(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("entry %d: expected Go(...) or a target string", i)
			}
			td, err := compileTransition(tbl)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			list = append(list, td)
		}
		return list, nil

	default:
		return nil, fmt.Errorf("expected a target string or Go(...) list, got %s", v.Type())
	}
}

func compileTransition(tbl *lua.LTable) (types.TransitionDef, error) {
	ref, err := graph.ParseTarget(getString(tbl, "target"))
	if err != nil {
		return types.TransitionDef{}, err
	}
	td := types.TransitionDef{Target: ref}
	if g := getTable(tbl, "guard"); g != nil {
		c, err := compileCondition(g)
		if err != nil {
			return td, err
		}
		td.Guard = &c
	}
	return td, nil
}

func compileCondition(tbl *lua.LTable) (types.Condition, error) {
	c := types.Condition{Type: getString(tbl, "type")}
	switch c.Type {
	case "intent_is":
		c.Params = map[string]any{"intent": getString(tbl, "intent")}
	case "entity_is":
		c.Params = map[string]any{"category": getString(tbl, "category"), "value": getString(tbl, "value")}
	case "has_item":
		c.Params = map[string]any{"item": getString(tbl, "item")}
	case "utterance_in":
		c.Params = map[string]any{"candidates": arrayStrings(getTable(tbl, "candidates"))}
	case "name_known", "heard":
	case "not":
		inner := getTable(tbl, "inner")
		if inner == nil {
			return c, fmt.Errorf("Not() needs a guard")
		}
		in, err := compileCondition(inner)
		if err != nil {
			return c, err
		}
		c.Inner = &in
	case "all", "any":
		for _, t := range arrayTables(getTable(tbl, "terms")) {
			term, err := compileCondition(t)
			if err != nil {
				return c, err
			}
			c.Terms = append(c.Terms, term)
		}
		if len(c.Terms) == 0 {
			return c, fmt.Errorf("%s{} needs at least one guard", c.Type)
		}
	default:
		return c, fmt.Errorf("unknown guard type %q", c.Type)
	}
	return c, nil
}

func compileActions(tbl *lua.LTable) ([]types.Action, error) {
	if tbl == nil {
		return nil, nil
	}
	// A single action may be given without a wrapping list.
	if tbl.RawGetString("kind") != lua.LNil {
		a, err := compileAction(tbl)
		if err != nil {
			return nil, err
		}
		return []types.Action{a}, nil
	}
	var actions []types.Action
	for i, t := range arrayTables(tbl) {
		a, err := compileAction(t)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func compileAction(tbl *lua.LTable) (types.Action, error) {
	a := types.Action{
		Kind:     types.ActionKind(getString(tbl, "kind")),
		Text:     getString(tbl, "text"),
		Item:     getString(tbl, "item"),
		Category: getString(tbl, "category"),
		URL:      getString(tbl, "url"),
		Loop:     getBool(tbl, "loop", false),
	}
	if !validActionKinds[a.Kind] {
		return a, fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return a, nil
}

func compileLexicon(coll *collector) (types.Lexicon, error) {
	var lex types.Lexicon
	for _, raw := range coll.intents {
		lex.Intents = append(lex.Intents, types.IntentDef{
			Name:     raw.name,
			Patterns: arrayStrings(raw.table),
		})
	}
	for _, raw := range coll.entities {
		def := types.EntityDef{
			Category: raw.name,
			Captures: arrayStrings(getTable(raw.table, "captures")),
		}
		for _, v := range arrayStrings(raw.table) {
			def.Values = append(def.Values, types.EntityValue{Value: v})
		}
		for _, key := range sortedKeys(raw.table) {
			if key == "captures" {
				continue
			}
			syn, ok := raw.table.RawGetString(key).(*lua.LTable)
			if !ok {
				return lex, fmt.Errorf("entity %s: value %q must list its synonyms", raw.name, key)
			}
			def.Values = append(def.Values, types.EntityValue{Value: key, Synonyms: arrayStrings(syn)})
		}
		lex.Entities = append(lex.Entities, def)
	}
	return lex, nil
}

// sortedKeys returns a table's string keys in order, so that compiled
// output does not depend on Lua's hash iteration.
func sortedKeys(tbl *lua.LTable) []string {
	var keys []string
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
		}
	})
	sort.Strings(keys)
	return keys
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	slices.Sort(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
