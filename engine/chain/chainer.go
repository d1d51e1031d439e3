package chain

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
)

// Chainer is the bounded search engine. One chainer serves one context;
// each Chain call owns its own visited cache, statistics, and RNG, so
// independent chainers may run in parallel against a shared context.
type Chainer struct {
	ctx   *logic.Context
	opts  Options
	rng   *rand.Rand
	stats Stats
	fresh int
}

// New creates a chainer over a context with the given options.
func New(ctx *logic.Context, opts Options) *Chainer {
	return &Chainer{ctx: ctx, opts: opts.normalized()}
}

// Options returns the normalized options in effect.
func (ch *Chainer) Options() Options { return ch.opts }

// Stats returns the statistics of the most recent Chain call.
func (ch *Chainer) Stats() Stats { return ch.stats }

// Chain searches for a sequence of grounded actions transforming
// initial into a state satisfying goal. The returned chain is always
// verified by forward replay from initial. Exhaustion of the bounded
// search space fails with PlanningFailureError.
func (ch *Chainer) Chain(initial *state.State, goal Goal) (*Chain, error) {
	ch.stats = Stats{}
	ch.fresh = 0
	ch.rng = rand.New(rand.NewSource(ch.opts.Seed))
	if ch.opts.Backward {
		return ch.backward(initial, goal)
	}
	return ch.forward(initial, goal)
}

// frame is one entry of the explicit search stack. act is the action
// that produced st (nil at the root); cand are the not-yet-tried
// candidate instantiations at st.
type frame struct {
	st   *state.State
	act  *logic.Action
	cand []*logic.Action
	next int
}

// forward runs iterative-deepening forward search: at each state,
// enumerate rule instantiations whose preconditions hold, apply one,
// recurse. The visited cache prunes states already reached at equal or
// lesser depth within the current deepening pass.
func (ch *Chainer) forward(initial *state.State, goal Goal) (*Chain, error) {
	if initial.Satisfiable(goal.Patterns, goal.Vars, nil) {
		return Replay(initial, nil)
	}
	for limit := 1; limit <= ch.opts.MaxDepth; limit++ {
		cand, err := ch.candidates(initial)
		if err != nil {
			return nil, err
		}
		visited := map[string]int{initial.CanonicalKey(): 0}
		stack := []*frame{{st: initial, cand: cand}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next >= len(top.cand) {
				stack = stack[:len(stack)-1]
				continue
			}
			a := top.cand[top.next]
			top.next++

			next := top.st.Copy()
			if err := next.Apply(a); err != nil {
				return nil, fmt.Errorf("applying candidate %s: %w", a, err)
			}
			ch.stats.Expanded++
			depth := len(stack)
			if depth > ch.stats.Deepest {
				ch.stats.Deepest = depth
			}

			if next.Satisfiable(goal.Patterns, goal.Vars, nil) {
				actions := make([]*logic.Action, 0, depth)
				for _, f := range stack[1:] {
					actions = append(actions, f.act)
				}
				actions = append(actions, a)
				return Replay(initial, actions)
			}

			key := next.CanonicalKey()
			if d, ok := visited[key]; ok && d <= depth {
				ch.stats.Pruned++
				continue
			}
			visited[key] = depth

			if depth < limit {
				c, err := ch.candidates(next)
				if err != nil {
					return nil, err
				}
				stack = append(stack, &frame{st: next, act: a, cand: c})
			}
		}
	}
	return nil, &PlanningFailureError{Goal: goal.String(), Depth: ch.opts.MaxDepth}
}

// candidates enumerates every applicable grounded rule instantiation at
// st, in a stable seed-shuffled order, truncated to MaxBreadth.
func (ch *Chainer) candidates(st *state.State) ([]*logic.Action, error) {
	h := ch.ctx.Hierarchy()
	var acts []*logic.Action
	seen := map[string]bool{}
	for _, r := range ch.ctx.Rules() {
		varTypes := map[string]string{}
		for _, p := range r.Params {
			varTypes[p.Name] = p.Type
		}
		for _, b := range st.Satisfy(r.Pre, varTypes, nil) {
			for _, fb := range ch.completions(st, r, b) {
				if !ch.bindingAllowed(h, fb) {
					continue
				}
				a, err := r.Ground(h, st.Interner(), st.Entity, fb)
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
	sort.Slice(acts, func(i, j int) bool { return acts[i].Key() < acts[j].Key() })
	ch.rng.Shuffle(len(acts), func(i, j int) { acts[i], acts[j] = acts[j], acts[i] })
	if len(acts) > ch.opts.MaxBreadth {
		acts = acts[:ch.opts.MaxBreadth]
	}
	return acts, nil
}

// completions fills the rule parameters the precondition match left
// open: each binds to an existing entity of a compatible type, or, when
// variable creation is enabled, to one freshly minted entity reused for
// the remainder of that branch.
func (ch *Chainer) completions(st *state.State, r *logic.Rule, b logic.Binding) []logic.Binding {
	var open []logic.Placeholder
	for _, p := range r.Params {
		if _, ok := b[p.Name]; !ok {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return []logic.Binding{b}
	}
	results := []logic.Binding{b}
	for _, p := range open {
		var next []logic.Binding
		choices := st.EntitiesOf(p.Type)
		if ch.opts.CreateVariables {
			choices = append(choices, ch.mint(st, p.Type))
		}
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

// mint creates a fresh entity of the given type with a name unused in
// the state's universe.
func (ch *Chainer) mint(st *state.State, typ string) logic.Entity {
	for {
		ch.fresh++
		name := fmt.Sprintf("%s_%d", typ, ch.fresh)
		if _, taken := st.Entity(name); !taken {
			return logic.Entity{Name: name, Type: typ}
		}
	}
}

func (ch *Chainer) bindingAllowed(h *logic.Hierarchy, b logic.Binding) bool {
	for _, e := range b {
		if !ch.opts.typeAllowed(h, e.Type) {
			return false
		}
	}
	return true
}
