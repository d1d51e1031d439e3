package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
)

// backward runs iterative-deepening regression search: starting from a
// grounded goal fact set, pick rules whose add-set produces an open
// fact, replace it with the rule's preconditions, and stop when every
// open fact already holds in the initial state. Because regression can
// silently assume facts the initial state never guaranteed, every plan
// found this way is re-verified by forward replay before acceptance;
// plans failing verification are discarded and the search continues.
func (ch *Chainer) backward(initial *state.State, goal Goal) (*Chain, error) {
	groundings, err := ch.groundGoal(initial, goal)
	if err != nil {
		return nil, err
	}
	for _, open := range groundings {
		if initial.HoldsAll(open) {
			return Replay(initial, nil)
		}
	}
	for limit := 1; limit <= ch.opts.MaxDepth; limit++ {
		for _, goalFacts := range groundings {
			if c, err := ch.regress(initial, goalFacts, limit); err != nil {
				return nil, err
			} else if c != nil {
				return c, nil
			}
		}
	}
	return nil, &PlanningFailureError{Goal: goal.String(), Depth: ch.opts.MaxDepth}
}

// bframe is one regression stack entry: the open fact set still to be
// established, and the action chosen below it (applied after everything
// deeper on the stack resolves).
type bframe struct {
	open []*logic.Proposition
	act  *logic.Action
	cand []*logic.Action
	next int
}

func (ch *Chainer) regress(initial *state.State, goalFacts []*logic.Proposition, limit int) (*Chain, error) {
	cand, err := ch.producers(initial, goalFacts)
	if err != nil {
		return nil, err
	}
	visited := map[string]int{openKey(goalFacts): 0}
	stack := []*bframe{{open: goalFacts, cand: cand}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.cand) {
			stack = stack[:len(stack)-1]
			continue
		}
		a := top.cand[top.next]
		top.next++
		ch.stats.Expanded++
		depth := len(stack)
		if depth > ch.stats.Deepest {
			ch.stats.Deepest = depth
		}

		open := regressOpen(top.open, a)
		if open == nil {
			continue // action deletes a fact the goal still needs
		}

		if initial.HoldsAll(open) {
			actions := make([]*logic.Action, 0, depth)
			actions = append(actions, a)
			for i := len(stack) - 1; i >= 1; i-- {
				actions = append(actions, stack[i].act)
			}
			c, err := Replay(initial, actions)
			if err == nil && c.Final().HoldsAll(goalFacts) {
				return c, nil
			}
			continue // unsound regression; keep searching
		}

		key := openKey(open)
		if d, ok := visited[key]; ok && d <= depth {
			ch.stats.Pruned++
			continue
		}
		visited[key] = depth

		if depth < limit {
			c, err := ch.producers(initial, open)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &bframe{open: open, act: a, cand: c})
		}
	}
	return nil, nil
}

// regressOpen computes the open set before action a: (open minus
// a.Add) union a.Pre. Returns nil when a deletes a fact the remaining
// open set still requires, which makes a unusable as the next action.
func regressOpen(open []*logic.Proposition, a *logic.Action) []*logic.Proposition {
	adds := map[string]bool{}
	for _, p := range a.Add {
		adds[p.Key()] = true
	}
	dels := map[string]bool{}
	for _, p := range a.Del {
		dels[p.Key()] = true
	}
	result := map[string]*logic.Proposition{}
	for _, p := range open {
		if adds[p.Key()] {
			continue
		}
		if dels[p.Key()] {
			return nil
		}
		result[p.Key()] = p
	}
	for _, p := range a.Pre {
		result[p.Key()] = p
	}
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*logic.Proposition, len(keys))
	for i, k := range keys {
		out[i] = result[k]
	}
	return out
}

// producers enumerates grounded actions whose add-set establishes at
// least one open fact, seed-shuffled and truncated like forward
// candidates.
func (ch *Chainer) producers(initial *state.State, open []*logic.Proposition) ([]*logic.Action, error) {
	h := ch.ctx.Hierarchy()
	universe := backUniverse(initial, open)
	resolve := func(name string) (logic.Entity, bool) {
		e, ok := universe[name]
		return e, ok
	}
	var acts []*logic.Action
	seen := map[string]bool{}
	for _, r := range ch.ctx.Rules() {
		for _, pat := range r.Add {
			for _, fact := range open {
				if fact.Name != pat.Pred {
					continue
				}
				b, ok := unifyGround(h, r, pat, fact, universe)
				if !ok {
					continue
				}
				for _, fb := range ch.backCompletions(universe, r, b) {
					if !ch.bindingAllowed(h, fb) {
						continue
					}
					a, err := r.Ground(h, initial.Interner(), resolve, fb)
					if err != nil {
						return nil, err
					}
					if seen[a.Key()] {
						continue
					}
					seen[a.Key()] = true
					acts = append(acts, a)
				}
			}
		}
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i].Key() < acts[j].Key() })
	ch.rng.Shuffle(len(acts), func(i, j int) { acts[i], acts[j] = acts[j], acts[i] })
	if len(acts) > ch.opts.MaxBreadth {
		acts = acts[:ch.opts.MaxBreadth]
	}
	return acts, nil
}

// unifyGround matches one add pattern against one ground fact, binding
// the pattern's variables. Constant terms must name the same entity.
func unifyGround(h *logic.Hierarchy, r *logic.Rule, pat logic.Pattern, fact *logic.Proposition, universe map[string]logic.Entity) (logic.Binding, bool) {
	if len(pat.Args) != len(fact.Args) {
		return nil, false
	}
	b := logic.Binding{}
	for i, t := range pat.Args {
		arg := fact.Args[i]
		if !t.IsVar {
			e, ok := universe[t.Name]
			if !ok || e != arg {
				return nil, false
			}
			continue
		}
		if bound, ok := b[t.Name]; ok {
			if bound != arg {
				return nil, false
			}
			continue
		}
		if want, ok := r.ParamType(t.Name); ok && !h.IsA(arg.Type, want) {
			return nil, false
		}
		b[t.Name] = arg
	}
	return b, true
}

// backCompletions fills remaining open parameters from the regression
// universe (initial entities plus entities the open facts mention),
// optionally minting fresh entities.
func (ch *Chainer) backCompletions(universe map[string]logic.Entity, r *logic.Rule, b logic.Binding) []logic.Binding {
	h := ch.ctx.Hierarchy()
	var open []logic.Placeholder
	for _, p := range r.Params {
		if _, ok := b[p.Name]; !ok {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return []logic.Binding{b}
	}
	names := make([]string, 0, len(universe))
	for n := range universe {
		names = append(names, n)
	}
	sort.Strings(names)
	results := []logic.Binding{b}
	for _, p := range open {
		var choices []logic.Entity
		for _, n := range names {
			if e := universe[n]; h.IsA(e.Type, p.Type) {
				choices = append(choices, e)
			}
		}
		if ch.opts.CreateVariables {
			choices = append(choices, ch.mintFrom(universe, p.Type))
		}
		var next []logic.Binding
		for _, base := range results {
			for _, e := range choices {
				nb := base.Copy()
				nb[p.Name] = e
				next = append(next, nb)
			}
		}
		results = next
	}
	return results
}

func (ch *Chainer) mintFrom(universe map[string]logic.Entity, typ string) logic.Entity {
	for {
		ch.fresh++
		name := fmt.Sprintf("%s_%d", typ, ch.fresh)
		if _, taken := universe[name]; !taken {
			return logic.Entity{Name: name, Type: typ}
		}
	}
}

// backUniverse is the entity pool regression may draw on: the initial
// state's universe plus every entity the open facts mention.
func backUniverse(initial *state.State, open []*logic.Proposition) map[string]logic.Entity {
	universe := map[string]logic.Entity{}
	for _, e := range initial.Entities() {
		universe[e.Name] = e
	}
	for _, p := range open {
		for _, e := range p.Args {
			universe[e.Name] = e
		}
	}
	return universe
}

// groundGoal instantiates the goal's free variables against the initial
// state's entity universe, producing every ground goal fact set in a
// deterministic order.
func (ch *Chainer) groundGoal(initial *state.State, goal Goal) ([][]*logic.Proposition, error) {
	vars := map[string]bool{}
	var order []string
	for _, pat := range goal.Patterns {
		for _, t := range pat.Args {
			if t.IsVar && !vars[t.Name] {
				vars[t.Name] = true
				order = append(order, t.Name)
			}
		}
	}
	bindings := []logic.Binding{{}}
	for _, v := range order {
		typ := goal.Vars[v]
		var choices []logic.Entity
		if typ == "" {
			choices = initial.Entities()
		} else {
			choices = initial.EntitiesOf(typ)
		}
		var next []logic.Binding
		for _, base := range bindings {
			for _, e := range choices {
				nb := base.Copy()
				nb[v] = e
				next = append(next, nb)
			}
		}
		bindings = next
	}
	var groundings [][]*logic.Proposition
	for _, b := range bindings {
		facts := make([]*logic.Proposition, 0, len(goal.Patterns))
		ok := true
		for _, pat := range goal.Patterns {
			args := make([]logic.Entity, len(pat.Args))
			for i, t := range pat.Args {
				if t.IsVar {
					args[i] = b[t.Name]
					continue
				}
				e, found := initial.Entity(t.Name)
				if !found {
					ok = false
					break
				}
				args[i] = e
			}
			if !ok {
				break
			}
			facts = append(facts, initial.Interner().Prop(pat.Pred, args...))
		}
		if ok {
			groundings = append(groundings, facts)
		}
	}
	if len(groundings) == 0 {
		return nil, &PlanningFailureError{Goal: goal.String(), Depth: ch.opts.MaxDepth}
	}
	return groundings, nil
}

func openKey(open []*logic.Proposition) string {
	keys := make([]string, len(open))
	for i, p := range open {
		keys[i] = p.Key()
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
