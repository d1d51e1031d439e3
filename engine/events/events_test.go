package events

import (
	"errors"
	"testing"

	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
)

var (
	box    = logic.Entity{Name: "box", Type: "container"}
	key    = logic.Entity{Name: "key", Type: "object"}
	lamp   = logic.Entity{Name: "lamp", Type: "object"}
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
		{Name: "unlit", Types: []string{"object"}},
		{Name: "lit", Types: []string{"object"}},
	}
	rules := []*logic.Rule{
		{
			Name:   "open_rule",
			Params: []logic.Placeholder{{Name: "c", Type: "container"}},
			Pre:    []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("c")}}},
			Add:    []logic.Pattern{{Pred: "open", Args: []logic.Term{logic.Var("c")}}},
			Del:    []logic.Pattern{{Pred: "closed", Args: []logic.Term{logic.Var("c")}}},
		},
		{
			Name:   "take_rule",
			Params: []logic.Placeholder{{Name: "o", Type: "object"}, {Name: "c", Type: "container"}},
			Pre: []logic.Pattern{
				{Pred: "in", Args: []logic.Term{logic.Var("o"), logic.Var("c")}},
				{Pred: "open", Args: []logic.Term{logic.Var("c")}},
			},
			Add: []logic.Pattern{{Pred: "in", Args: []logic.Term{logic.Var("o"), logic.Const("player")}}},
			Del: []logic.Pattern{{Pred: "in", Args: []logic.Term{logic.Var("o"), logic.Var("c")}}},
		},
		{
			Name:   "light_rule",
			Params: []logic.Placeholder{{Name: "o", Type: "object"}},
			Pre:    []logic.Pattern{{Pred: "unlit", Args: []logic.Term{logic.Var("o")}}},
			Add:    []logic.Pattern{{Pred: "lit", Args: []logic.Term{logic.Var("o")}}},
			Del:    []logic.Pattern{{Pred: "unlit", Args: []logic.Term{logic.Var("o")}}},
		},
	}
	ctx, err := logic.NewContext(h, sigs, rules)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	return ctx
}

// designChain searches for the chain so event tests work from an
// accepted chain rather than a hand-assembled one.
func designChain(t *testing.T, goalPats []logic.Pattern, seedFacts ...string) (*chain.Chain, []*logic.Proposition) {
	t.Helper()
	ctx := testContext(t)
	in := logic.NewInterner()
	st, err := state.New(ctx, in,
		in.Prop("closed", box),
		in.Prop("in", key, box),
		in.Prop("unlit", lamp),
	)
	if err != nil {
		t.Fatalf("New state failed: %v", err)
	}
	st.DeclareEntity(player)

	ch := chain.New(ctx, chain.Options{MaxDepth: 4, Seed: 1})
	c, err := ch.Chain(st, chain.Goal{Patterns: goalPats})
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}

	final := c.Final()
	goalFacts := make([]*logic.Proposition, 0, len(goalPats))
	for _, pat := range goalPats {
		args := make([]logic.Entity, len(pat.Args))
		for i, term := range pat.Args {
			e, ok := final.Entity(term.Name)
			if !ok {
				t.Fatalf("unknown entity %q", term.Name)
			}
			args[i] = e
		}
		goalFacts = append(goalFacts, in.Prop(pat.Pred, args...))
	}
	return c, goalFacts
}

func TestBuild_LockedBox(t *testing.T) {
	c, goalFacts := designChain(t, []logic.Pattern{
		{Pred: "in", Args: []logic.Term{logic.Const("key"), logic.Const("player")}},
	})

	tree, err := Build(c, goalFacts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// open -> take -> goal.
	if tree.Len() != 3 {
		t.Fatalf("tree has %d events, want 3", tree.Len())
	}
	sinks := tree.WinSinks()
	if len(sinks) != 1 || !sinks[0].IsGoal() {
		t.Fatalf("win sinks = %v, want the single goal event", sinks)
	}

	evs := tree.Events()
	if preds := tree.Predecessors(evs[1]); len(preds) != 1 || preds[0] != evs[0] {
		t.Errorf("take should depend on open, got %v", preds)
	}
	if succs := tree.Successors(evs[1]); len(succs) != 1 || !succs[0].IsGoal() {
		t.Errorf("take should feed the goal, got %v", succs)
	}
}

func TestBuild_TopologicalOrderComplete(t *testing.T) {
	c, goalFacts := designChain(t, []logic.Pattern{
		{Pred: "in", Args: []logic.Term{logic.Const("key"), logic.Const("player")}},
		{Pred: "lit", Args: []logic.Term{logic.Const("lamp")}},
	})

	tree, err := Build(c, goalFacts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	order := tree.TopologicalOrder()
	if len(order) != tree.Len() {
		t.Fatalf("topological order covers %d of %d events", len(order), tree.Len())
	}
	// Every event precedes its successors in the order.
	pos := map[*Event]int{}
	for i, ev := range order {
		pos[ev] = i
	}
	for _, ev := range tree.Events() {
		for _, succ := range tree.Successors(ev) {
			if pos[ev] >= pos[succ] {
				t.Errorf("%s ordered after its successor %s", ev.Name, succ.Name)
			}
		}
	}
	// Goal event is the unique sink even with two independent branches.
	if sinks := tree.WinSinks(); len(sinks) != 1 || !sinks[0].IsGoal() {
		t.Errorf("win sinks = %v", sinks)
	}
}

func TestBuild_IndependentBranches(t *testing.T) {
	c, goalFacts := designChain(t, []logic.Pattern{
		{Pred: "in", Args: []logic.Term{logic.Const("key"), logic.Const("player")}},
		{Pred: "lit", Args: []logic.Term{logic.Const("lamp")}},
	})

	tree, err := Build(c, goalFacts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// light_rule(lamp) depends on nothing but the initial state.
	for _, ev := range tree.Events() {
		if ev.Action != nil && ev.Action.Rule == "light_rule" {
			if preds := tree.Predecessors(ev); len(preds) != 0 {
				t.Errorf("light_rule should have no predecessors, got %v", preds)
			}
		}
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	c, goalFacts := designChain(t, []logic.Pattern{
		{Pred: "in", Args: []logic.Term{logic.Const("key"), logic.Const("player")}},
	})
	tree, err := Build(c, goalFacts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Tamper the graph into a cycle; validation must reject it. This
	// cannot happen for a chain-derived tree, where edges only point
	// forward.
	tree.succ[1] = append(tree.succ[1], 0)
	tree.pred[0] = append(tree.pred[0], 1)
	err = tree.validate()
	var cd *CyclicDependencyError
	if !errors.As(err, &cd) {
		t.Fatalf("want CyclicDependencyError, got %v", err)
	}
	if len(cd.Involved) == 0 {
		t.Error("error should name the cyclic events")
	}
}
