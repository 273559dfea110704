package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerGuardHelpers(L)
	registerActionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", id = "...", start = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		if coll.game != nil {
			L.RaiseError("Game{} defined more than once")
		}
		coll.game = tbl
		return 0
	}))

	// Node "id" { ... } is curried and returns the table so nodes can be
	// nested inside another node's states list.
	L.SetGlobal("Node", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.nodes = append(coll.nodes, rawNode{id: id, table: tbl, order: coll.nextSourceOrder()})
			L.Push(tbl)
			return 1
		}))
		return 1
	}))

	// Intent "Name" { "pattern", ... }
	L.SetGlobal("Intent", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.intents = append(coll.intents, rawLexeme{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// Entity "Category" { "value", value = { "synonym", ... }, captures = { ... } }
	L.SetGlobal("Entity", L.NewFunction(func(L *lua.LState) int {
		category := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.entities = append(coll.entities, rawLexeme{name: category, table: tbl})
			return 0
		}))
		return 1
	}))

	// Go("target", guard) builds one handler entry. The guard may be omitted.
	L.SetGlobal("Go", L.NewFunction(func(L *lua.LState) int {
		target := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("target", lua.LString(target))
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			tbl.RawSetString("guard", L.CheckTable(2))
		}
		L.Push(tbl)
		return 1
	}))
}

func registerGuardHelpers(L *lua.LState) {
	// IntentIs("Name")
	L.SetGlobal("IntentIs", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "intent_is", "intent", lua.LString(L.CheckString(1))))
		return 1
	}))

	// EntityIs("Category", "value")
	L.SetGlobal("EntityIs", L.NewFunction(func(L *lua.LState) int {
		tbl := guard(L, "entity_is", "category", lua.LString(L.CheckString(1)))
		tbl.RawSetString("value", lua.LString(L.CheckString(2)))
		L.Push(tbl)
		return 1
	}))

	// HasItem("item")
	L.SetGlobal("HasItem", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "has_item", "item", lua.LString(L.CheckString(1))))
		return 1
	}))

	// UtteranceIn { "a", "b" }
	L.SetGlobal("UtteranceIn", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "utterance_in", "candidates", L.CheckTable(1)))
		return 1
	}))

	// NameKnown()
	L.SetGlobal("NameKnown", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("name_known"))
		L.Push(tbl)
		return 1
	}))

	// Heard() is true when the last listen produced an utterance.
	L.SetGlobal("Heard", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("heard"))
		L.Push(tbl)
		return 1
	}))

	// Not(guard)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "not", "inner", L.CheckTable(1)))
		return 1
	}))

	// All { guard, ... }
	L.SetGlobal("All", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "all", "terms", L.CheckTable(1)))
		return 1
	}))

	// Any { guard, ... }
	L.SetGlobal("Any", L.NewFunction(func(L *lua.LState) int {
		L.Push(guard(L, "any", "terms", L.CheckTable(1)))
		return 1
	}))
}

func guard(L *lua.LState, typ, key string, value lua.LValue) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	tbl.RawSetString(key, value)
	return tbl
}

func registerActionHelpers(L *lua.LState) {
	textAction := func(kind, field string) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString("kind", lua.LString(kind))
			tbl.RawSetString(field, lua.LString(L.CheckString(1)))
			L.Push(tbl)
			return 1
		})
	}

	// Speak("text"), SpeakMarkup("<speak>...</speak>")
	L.SetGlobal("Speak", textAction("speak", "text"))
	L.SetGlobal("SpeakMarkup", textAction("speak_markup", "text"))

	// GiveItem("item"), CaptureName("Category")
	L.SetGlobal("GiveItem", textAction("give_item", "item"))
	L.SetGlobal("CaptureName", textAction("capture_name", "category"))

	// ShowImage("url"), ShowVideo("url")
	L.SetGlobal("ShowImage", textAction("show_image", "url"))
	L.SetGlobal("ShowVideo", textAction("show_video", "url"))

	// PlaySound("url", loop)
	L.SetGlobal("PlaySound", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("kind", lua.LString("play_sound"))
		tbl.RawSetString("url", lua.LString(L.CheckString(1)))
		tbl.RawSetString("loop", lua.LBool(L.OptBool(2, false)))
		L.Push(tbl)
		return 1
	}))

	// Listen(), StopMedia()
	bare := func(kind string) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString("kind", lua.LString(kind))
			L.Push(tbl)
			return 1
		})
	}
	L.SetGlobal("Listen", bare("listen"))
	L.SetGlobal("StopMedia", bare("stop_media"))
}
