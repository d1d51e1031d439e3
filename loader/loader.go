// Package loader loads Lua quest definitions into a logic context at
// load time. The Lua VM is discarded after loading — zero Lua at
// runtime.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
	lua "github.com/yuin/gopher-lua"
)

// QuestInfo holds quest metadata from Lua.
type QuestInfo struct {
	Title   string
	Author  string
	Version string
	Intro   string
}

// Definitions is the fully loaded quest: the immutable logic context,
// the initial world state, the goal, failure conditions, and the
// chaining options the quest author suggested.
type Definitions struct {
	Quest    QuestInfo
	Ctx      *logic.Context
	Interner *logic.Interner
	Initial  *state.State
	Goal     chain.Goal
	FailWhen []*logic.Proposition
	Options  chain.Options
}

// collector accumulates Lua definitions during file execution.
type collector struct {
	quest      *lua.LTable
	types      []rawType
	predicates []rawPredicate
	rules      []rawRule
	entities   []rawEntity
	world      []string
	goal       *lua.LTable
	failWhen   []string
	options    *lua.LTable
}

// Load reads all .lua files from dir, compiles them into a logic
// context plus initial state and goal, validates cross references, and
// returns the immutable Definitions.
func Load(dir string) (*Definitions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading quest directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	sort.Strings(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		path := filepath.Join(dir, f)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling quest data: %w", err)
	}
	return defs, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Remove math.randomseed to preserve determinism.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
