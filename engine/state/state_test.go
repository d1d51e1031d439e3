package state

import (
	"errors"
	"testing"

	"github.com/nathoo/questforge/engine/logic"
)

var (
	box    = logic.Entity{Name: "box", Type: "container"}
	chest  = logic.Entity{Name: "chest", Type: "container"}
	key    = logic.Entity{Name: "key", Type: "object"}
	player = logic.Entity{Name: "player", Type: "agent"}
)

func testContext(t *testing.T) *logic.Context {
	t.Helper()
	h := logic.NewHierarchy()
	for _, decl := range [][2]string{
		{"thing", ""},
		{"container", "thing"},
		{"object", "thing"},
		{"agent", "thing"},
	} {
		if err := h.Add(decl[0], decl[1]); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	sigs := []logic.Signature{
		{Name: "closed", Types: []string{"container"}},
		{Name: "open", Types: []string{"container"}},
		{Name: "in", Types: []string{"object", "thing"}},
	}
	rules := []*logic.Rule{
		{
			Name:   "open",
			Params: []logic.Placeholder{{Name: "c", Type: "container"}},
			Pre:    []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("c")}}},
			Add:    []logic.Pattern{{Pred: "open", Args: []logic.Term{logic.Var("c")}}},
			Del:    []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("c")}}},
		},
	}
	ctx, err := logic.NewContext(h, sigs, rules)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx
}

func TestNew_RejectsNonconformingFacts(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()

	var ise *InconsistentStateError

	// Undeclared predicate.
	_, err := New(ctx, in, in.Prop("sparkling", box))
	if !errors.As(err, &ise) {
		t.Fatalf("want InconsistentStateError, got %v", err)
	}

	// Wrong arity.
	if _, err := New(ctx, in, in.Prop("closed", box, key)); !errors.As(err, &ise) {
		t.Fatalf("want InconsistentStateError for arity, got %v", err)
	}

	// Incompatible argument type.
	if _, err := New(ctx, in, in.Prop("closed", player)); !errors.As(err, &ise) {
		t.Fatalf("want InconsistentStateError for type, got %v", err)
	}
}

func TestCanonicalKey_OrderIndependent(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()
	a := in.Prop("closed", box)
	b := in.Prop("in", key, box)

	s1, err := New(ctx, in, a, b)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s2, err := New(ctx, in, b, a)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s1.CanonicalKey() != s2.CanonicalKey() {
		t.Errorf("keys differ:\n%s\n%s", s1.CanonicalKey(), s2.CanonicalKey())
	}
	// Pure function: calling twice yields the same key.
	if s1.CanonicalKey() != s1.CanonicalKey() {
		t.Error("CanonicalKey is not stable")
	}
}

func TestApply_Atomic(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()
	st, err := New(ctx, in, in.Prop("closed", box))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	st.DeclareEntity(player)

	openRule, _ := ctx.Rule("open")
	openBox, err := openRule.Ground(ctx.Hierarchy(), in, st.Entity, logic.Binding{"c": box})
	if err != nil {
		t.Fatalf("Ground failed: %v", err)
	}

	if err := st.Apply(openBox); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if st.Holds(in.Prop("closed", box)) {
		t.Error("closed(box) should be deleted")
	}
	if !st.Holds(in.Prop("open", box)) {
		t.Error("open(box) should be added")
	}

	// Second application: precondition gone, state untouched.
	before := st.CanonicalKey()
	err = st.Apply(openBox)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("want PreconditionError, got %v", err)
	}
	if st.CanonicalKey() != before {
		t.Error("failed Apply must not change the state")
	}
}

func TestCopy_Independent(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()
	st, err := New(ctx, in, in.Prop("closed", box))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cp := st.Copy()
	cp.Remove(in.Prop("closed", box))
	if !st.Holds(in.Prop("closed", box)) {
		t.Error("mutating a copy must not affect the original")
	}
	if _, ok := cp.Entity("box"); !ok {
		t.Error("copy should keep the entity universe")
	}
}

func TestSatisfy(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()
	st, err := New(ctx, in,
		in.Prop("closed", box),
		in.Prop("closed", chest),
		in.Prop("in", key, box),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// One free variable over two matching facts.
	pats := []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("c")}}}
	got := st.Satisfy(pats, map[string]string{"c": "container"}, nil)
	if len(got) != 2 {
		t.Fatalf("Satisfy found %d bindings, want 2", len(got))
	}
	// Deterministic order.
	if got[0]["c"] != box || got[1]["c"] != chest {
		t.Errorf("bindings out of order: %v", got)
	}

	// Joined patterns share the variable.
	pats = []logic.Pattern{
		{Pred: "in", Args: []logic.Term{logic.Var("o"), logic.Var("c")}},
		{Pred: "closed", Args: []logic.Term{logic.Var("c")}},
	}
	got = st.Satisfy(pats, map[string]string{"o": "object", "c": "container"}, nil)
	if len(got) != 1 || got[0]["c"] != box || got[0]["o"] != key {
		t.Errorf("joined Satisfy = %v", got)
	}

	// Constant term.
	pats = []logic.Pattern{{Pred: "in", Args: []logic.Term{logic.Var("o"), logic.Const("chest")}}}
	if st.Satisfiable(pats, map[string]string{"o": "object"}, nil) {
		t.Error("nothing is in the chest")
	}

	// Type filter: an agent-typed variable cannot bind a container.
	pats = []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("a")}}}
	if st.Satisfiable(pats, map[string]string{"a": "agent"}, nil) {
		t.Error("agent variable must not bind a container")
	}
}

func TestEntitiesOf_Subtypes(t *testing.T) {
	ctx := testContext(t)
	in := logic.NewInterner()
	st, err := New(ctx, in, in.Prop("in", key, box))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	st.DeclareEntity(player)

	things := st.EntitiesOf("thing")
	if len(things) != 3 {
		t.Errorf("EntitiesOf(thing) = %v, want box, key, player", things)
	}
	containers := st.EntitiesOf("container")
	if len(containers) != 1 || containers[0] != box {
		t.Errorf("EntitiesOf(container) = %v", containers)
	}
}
