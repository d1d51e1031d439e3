package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors as globals. Declarations
// follow the curried style: `Type "container" { parent = "thing" }`.
func registerAPI(L *lua.LState, coll *collector) {
	// Quest { title = "...", author = "...", intro = "..." }
	L.SetGlobal("Quest", L.NewFunction(func(L *lua.LState) int {
		coll.quest = L.CheckTable(1)
		return 0
	}))

	// Type "container" { parent = "thing" } — curried.
	L.SetGlobal("Type", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.types = append(coll.types, rawType{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// Predicate "in" { "object", "container" } — curried.
	L.SetGlobal("Predicate", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.predicates = append(coll.predicates, rawPredicate{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// Rule "open" { params = {"c:container"}, pre = {...}, add = {...}, del = {...} }
	L.SetGlobal("Rule", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.rules = append(coll.rules, rawRule{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// Entity "box" { type = "container" } — curried.
	L.SetGlobal("Entity", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.entities = append(coll.entities, rawEntity{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// World { "closed(box)", "in(key, box)" }
	L.SetGlobal("World", L.NewFunction(func(L *lua.LState) int {
		coll.world = append(coll.world, tableToStrings(L.CheckTable(1))...)
		return 0
	}))

	// Goal { "in(key, player)", vars = { "x:object" } }
	L.SetGlobal("Goal", L.NewFunction(func(L *lua.LState) int {
		coll.goal = L.CheckTable(1)
		return 0
	}))

	// FailWhen { "destroyed(key)" }
	L.SetGlobal("FailWhen", L.NewFunction(func(L *lua.LState) int {
		coll.failWhen = append(coll.failWhen, tableToStrings(L.CheckTable(1))...)
		return 0
	}))

	// Options { max_depth = 4, max_breadth = 32, seed = 7, ... }
	L.SetGlobal("Options", L.NewFunction(func(L *lua.LState) int {
		coll.options = L.CheckTable(1)
		return 0
	}))
}
