package loader

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
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

func TestCompileRule_VariableClassification(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Rule "take" {
			params = { "o:object", "c:container" },
			pre = { "in(o, c)", "open(c)" },
			add = { "in(o, player)" },
			del = { "in(o, c)" },
		}
	`); err != nil {
		t.Fatal(err)
	}
	if len(coll.rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(coll.rules))
	}

	r, err := compileRule(coll.rules[0])
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "take" {
		t.Errorf("Name = %q, want take", r.Name)
	}
	if len(r.Params) != 2 || r.Params[0].Name != "o" || r.Params[0].Type != "object" {
		t.Errorf("Params = %v, want [o:object c:container]", r.Params)
	}
	// Declared params become variables, everything else is a constant.
	if !r.Pre[0].Args[0].IsVar || !r.Pre[0].Args[1].IsVar {
		t.Errorf("pre in(o, c) args should both be variables, got %v", r.Pre[0].Args)
	}
	if !r.Add[0].Args[0].IsVar {
		t.Error("add in(o, player) first arg should be a variable")
	}
	if r.Add[0].Args[1].IsVar {
		t.Error("add in(o, player) second arg should be a constant")
	}
}

func TestCompileRule_MalformedParam(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Rule "broken" {
			params = { "no_type" },
			pre = {},
			add = {},
		}
	`); err != nil {
		t.Fatal(err)
	}

	_, err := compileRule(coll.rules[0])
	if err == nil {
		t.Fatal("expected error for param without type")
	}
	if !strings.Contains(err.Error(), "malformed typed name") {
		t.Errorf("error = %q, expected 'malformed typed name'", err.Error())
	}
}

func TestCompileHierarchy_OutOfOrderParents(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	// Children declared before their parents must still resolve.
	if err := L.DoString(`
		Type "sword" { parent = "weapon" }
		Type "weapon" { parent = "thing" }
		Type "thing" {}
	`); err != nil {
		t.Fatal(err)
	}

	h, err := compileHierarchy(coll.types)
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsA("sword", "thing") {
		t.Error("sword should be a transitive subtype of thing")
	}
}

func TestCompileHierarchy_UnknownParent(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Type "sword" { parent = "weapon" }`); err != nil {
		t.Fatal(err)
	}

	_, err := compileHierarchy(coll.types)
	if err == nil {
		t.Fatal("expected error for unknown parent type")
	}
}

func TestCompileGoal_Vars(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Goal {
			"in(x, player)",
			"open(c)",
			vars = { "x:object", "c:container" },
		}
	`); err != nil {
		t.Fatal(err)
	}

	goal, err := compileGoal(coll.goal)
	if err != nil {
		t.Fatal(err)
	}
	if len(goal.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(goal.Patterns))
	}
	if goal.Vars["x"] != "object" || goal.Vars["c"] != "container" {
		t.Errorf("Vars = %v, want x:object c:container", goal.Vars)
	}
	if !goal.Patterns[0].Args[0].IsVar {
		t.Error("goal variable x not classified as variable")
	}
	if goal.Patterns[0].Args[1].IsVar {
		t.Error("goal constant player classified as variable")
	}
}

func TestCompileGoal_Empty(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Goal { vars = { "x:object" } }`); err != nil {
		t.Fatal(err)
	}

	_, err := compileGoal(coll.goal)
	if err == nil {
		t.Fatal("expected error for goal with no facts")
	}
	if !strings.Contains(err.Error(), "declares no facts") {
		t.Errorf("error = %q, expected 'declares no facts'", err.Error())
	}
}

func TestSplitTyped(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		typ      string
		wantsErr bool
	}{
		{"o:object", "o", "object", false},
		{" c : container ", "c", "container", false},
		{"plain", "", "", true},
		{":object", "", "", true},
		{"o:", "", "", true},
	}
	for _, tc := range cases {
		name, typ, err := splitTyped(tc.in)
		if tc.wantsErr {
			if err == nil {
				t.Errorf("splitTyped(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitTyped(%q) failed: %v", tc.in, err)
			continue
		}
		if name != tc.name || typ != tc.typ {
			t.Errorf("splitTyped(%q) = %q, %q, want %q, %q", tc.in, name, typ, tc.name, tc.typ)
		}
	}
}
