package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/voicequest/engine/graph"
	"github.com/nathoo/voicequest/types"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	nodes    []rawNode
	intents  []rawLexeme
	entities []rawLexeme
	order    int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Content is a loaded game: its definition and the graph built from it.
type Content struct {
	Game     *types.GameDef
	Graph    *graph.Graph
	Warnings []string
}

// Load reads all .lua files from dir, compiles them into a game definition,
// validates it and builds the narrative graph. The Lua VM is discarded
// after loading.
func Load(dir string) (*Content, error) {
	errb := oops.Code("LOAD_FAILED").With("dir", dir)

	game, err := Compile(dir)
	if err != nil {
		return nil, err
	}

	warnings, err := validate(game)
	if err != nil {
		return nil, errb.Wrap(err)
	}

	g, buildWarnings, err := graph.Build(game)
	warnings = append(warnings, buildWarnings...)
	if err != nil {
		return nil, oops.Code("GRAPH_INVALID").With("dir", dir).Wrap(err)
	}

	return &Content{Game: game, Graph: g, Warnings: warnings}, nil
}

// Compile runs the Lua files in dir and returns the game definition
// without validating it.
func Compile(dir string) (*types.GameDef, error) {
	errb := oops.Code("LOAD_FAILED").With("dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errb.Wrapf(err, "reading game directory")
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, errb.Errorf("no .lua files found in %s", dir)
	}

	// game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			var apiErr *lua.ApiError
			if errors.As(err, &apiErr) {
				return nil, errb.With("file", f).Wrapf(errors.New(apiErr.Object.String()), "executing %s", f)
			}
			return nil, errb.With("file", f).Wrapf(err, "executing %s", f)
		}
	}

	game, err := compile(coll)
	if err != nil {
		return nil, errb.Wrapf(err, "compiling game data")
	}
	return game, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.concat, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.rep, etc.)
	lua.OpenString(L)
}

// sandbox removes globals that reach outside the content directory or
// make loading nondeterministic.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "newproxy", "print",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
}
