package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
	lua "github.com/yuin/gopher-lua"
)

// rawType holds a type declaration before compilation.
type rawType struct {
	name  string
	table *lua.LTable
}

// rawPredicate holds a predicate signature before compilation.
type rawPredicate struct {
	name  string
	table *lua.LTable
}

// rawRule holds a rule before compilation.
type rawRule struct {
	name  string
	table *lua.LTable
}

// rawEntity holds an entity declaration before compilation.
type rawEntity struct {
	name  string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if tbl == nil {
		return ""
	}
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	if tbl == nil {
		return 0
	}
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if tbl == nil {
		return def
	}
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if tbl == nil {
		return nil
	}
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// tableToStrings returns the array part of a Lua table as strings.
func tableToStrings(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var result []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			result = append(result, string(s))
		}
	}
	return result
}

// splitTyped parses a "name:type" declaration.
func splitTyped(s string) (name, typ string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("malformed typed name %q, want \"name:type\"", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// compile converts all collected Lua data into Definitions.
func compile(coll *collector) (*Definitions, error) {
	hierarchy, err := compileHierarchy(coll.types)
	if err != nil {
		return nil, err
	}

	var sigs []logic.Signature
	for _, raw := range coll.predicates {
		sigs = append(sigs, logic.Signature{
			Name:  raw.name,
			Types: tableToStrings(raw.table),
		})
	}

	var rules []*logic.Rule
	for _, raw := range coll.rules {
		r, err := compileRule(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %s: %w", raw.name, err)
		}
		rules = append(rules, r)
	}

	ctx, err := logic.NewContext(hierarchy, sigs, rules)
	if err != nil {
		return nil, err
	}

	entities := map[string]logic.Entity{}
	for _, raw := range coll.entities {
		typ := getString(raw.table, "type")
		if !hierarchy.Has(typ) {
			return nil, fmt.Errorf("entity %s has undeclared type %q", raw.name, typ)
		}
		if _, dup := entities[raw.name]; dup {
			return nil, fmt.Errorf("duplicate entity %s", raw.name)
		}
		entities[raw.name] = logic.Entity{Name: raw.name, Type: typ}
	}

	interner := logic.NewInterner()
	initial, err := compileWorld(ctx, interner, entities, coll.world)
	if err != nil {
		return nil, err
	}

	goal, err := compileGoal(coll.goal)
	if err != nil {
		return nil, err
	}

	var failWhen []*logic.Proposition
	for _, atom := range coll.failWhen {
		p, err := groundAtom(interner, entities, atom)
		if err != nil {
			return nil, fmt.Errorf("fail condition %q: %w", atom, err)
		}
		failWhen = append(failWhen, p)
	}

	defs := &Definitions{
		Quest: QuestInfo{
			Title:   getString(coll.quest, "title"),
			Author:  getString(coll.quest, "author"),
			Version: getString(coll.quest, "version"),
			Intro:   getString(coll.quest, "intro"),
		},
		Ctx:      ctx,
		Interner: interner,
		Initial:  initial,
		Goal:     goal,
		FailWhen: failWhen,
		Options: chain.Options{
			MaxDepth:        getInt(coll.options, "max_depth"),
			MaxBreadth:      getInt(coll.options, "max_breadth"),
			AllowedTypes:    tableToStrings(getTable(coll.options, "allowed_types")),
			RestrictedTypes: tableToStrings(getTable(coll.options, "restricted_types")),
			CreateVariables: getBool(coll.options, "create_variables", false),
			Backward:        getBool(coll.options, "backward", false),
			Seed:            int64(getInt(coll.options, "seed")),
		},
	}
	return defs, validate(defs)
}

// compileHierarchy declares types parents-first regardless of file
// order, rejecting unknown parents and cycles.
func compileHierarchy(raw []rawType) (*logic.Hierarchy, error) {
	h := logic.NewHierarchy()
	pending := append([]rawType(nil), raw...)
	for len(pending) > 0 {
		progressed := false
		var stuck []rawType
		for _, t := range pending {
			parent := getString(t.table, "parent")
			if parent != "" && !h.Has(parent) {
				stuck = append(stuck, t)
				continue
			}
			if err := h.Add(t.name, parent); err != nil {
				return nil, fmt.Errorf("declaring type %s: %w", t.name, err)
			}
			progressed = true
		}
		if !progressed {
			names := make([]string, len(stuck))
			for i, t := range stuck {
				names[i] = t.name
			}
			return nil, fmt.Errorf("types %v name unknown or cyclic parents", names)
		}
		pending = stuck
	}
	return h, nil
}

// compileRule parses one rule table: ordered "name:type" params and
// pattern atoms whose names are classified as variables when declared
// as params, constants otherwise.
func compileRule(raw rawRule) (*logic.Rule, error) {
	var params []logic.Placeholder
	paramSet := map[string]bool{}
	for _, decl := range tableToStrings(getTable(raw.table, "params")) {
		name, typ, err := splitTyped(decl)
		if err != nil {
			return nil, err
		}
		params = append(params, logic.Placeholder{Name: name, Type: typ})
		paramSet[name] = true
	}
	parse := func(key string) ([]logic.Pattern, error) {
		var pats []logic.Pattern
		for _, atom := range tableToStrings(getTable(raw.table, key)) {
			pat, err := parsePattern(atom, paramSet)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", key, atom, err)
			}
			pats = append(pats, pat)
		}
		return pats, nil
	}
	pre, err := parse("pre")
	if err != nil {
		return nil, err
	}
	add, err := parse("add")
	if err != nil {
		return nil, err
	}
	del, err := parse("del")
	if err != nil {
		return nil, err
	}
	return &logic.Rule{Name: raw.name, Params: params, Pre: pre, Add: add, Del: del}, nil
}

// parsePattern turns an atom string into a pattern, marking arguments
// found in vars as variables.
func parsePattern(atom string, vars map[string]bool) (logic.Pattern, error) {
	pred, args, err := logic.ParseAtom(atom)
	if err != nil {
		return logic.Pattern{}, err
	}
	terms := make([]logic.Term, len(args))
	for i, a := range args {
		if vars[a] {
			terms[i] = logic.Var(a)
		} else {
			terms[i] = logic.Const(a)
		}
	}
	return logic.Pattern{Pred: pred, Args: terms}, nil
}

// compileWorld builds the initial state: every declared entity is in
// the universe even when no fact mentions it yet.
func compileWorld(ctx *logic.Context, in *logic.Interner, entities map[string]logic.Entity, atoms []string) (*state.State, error) {
	st, err := state.New(ctx, in)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		st.DeclareEntity(e)
	}
	for _, atom := range atoms {
		p, err := groundAtom(in, entities, atom)
		if err != nil {
			return nil, fmt.Errorf("world fact %q: %w", atom, err)
		}
		if err := st.Add(p); err != nil {
			return nil, fmt.Errorf("world fact %q: %w", atom, err)
		}
	}
	return st, nil
}

// groundAtom parses and grounds one atom whose arguments must all be
// declared entities.
func groundAtom(in *logic.Interner, entities map[string]logic.Entity, atom string) (*logic.Proposition, error) {
	pred, args, err := logic.ParseAtom(atom)
	if err != nil {
		return nil, err
	}
	ents := make([]logic.Entity, len(args))
	for i, a := range args {
		e, ok := entities[a]
		if !ok {
			return nil, fmt.Errorf("unknown entity %q", a)
		}
		ents[i] = e
	}
	return in.Prop(pred, ents...), nil
}

// compileGoal parses the goal table: atoms plus an optional vars list
// declaring free variables and their types.
func compileGoal(tbl *lua.LTable) (chain.Goal, error) {
	if tbl == nil {
		return chain.Goal{}, fmt.Errorf("no Goal{} definition found")
	}
	vars := map[string]string{}
	for _, decl := range tableToStrings(getTable(tbl, "vars")) {
		name, typ, err := splitTyped(decl)
		if err != nil {
			return chain.Goal{}, err
		}
		vars[name] = typ
	}
	varSet := map[string]bool{}
	for v := range vars {
		varSet[v] = true
	}
	var patterns []logic.Pattern
	for _, atom := range tableToStrings(tbl) {
		pat, err := parsePattern(atom, varSet)
		if err != nil {
			return chain.Goal{}, fmt.Errorf("goal %q: %w", atom, err)
		}
		patterns = append(patterns, pat)
	}
	if len(patterns) == 0 {
		return chain.Goal{}, fmt.Errorf("Goal{} declares no facts")
	}
	return chain.Goal{Patterns: patterns, Vars: vars}, nil
}
