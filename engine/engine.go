// Package engine wires the planning pipeline into a playable quest:
// chainer -> chain -> event dependency tree -> progression. The cli and
// tui front ends drive play exclusively through Quest.
package engine

import (
	"fmt"

	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/events"
	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/progress"
	"github.com/nathoo/questforge/engine/state"
)

// Quest bundles one designed quest: the accepted chain, its dependency
// tree, and a live progression.
type Quest struct {
	Ctx      *logic.Context
	Initial  *state.State
	Goal     chain.Goal
	Chain    *chain.Chain
	Tree     *events.Tree
	Progress *progress.Progression
	Stats    chain.Stats
}

// Design searches for a solvable quest and prepares it for play. The
// chain is found with chainOpts, the goal facts become the win sink of
// the dependency tree, and the progression starts at the chain's
// initial state.
func Design(initial *state.State, goal chain.Goal, chainOpts chain.Options, progOpts progress.Options) (*Quest, error) {
	ctx := initial.Context()
	ch := chain.New(ctx, chainOpts)
	c, err := ch.Chain(initial, goal)
	if err != nil {
		return nil, err
	}

	goalFacts, err := groundGoalFacts(c.Final(), goal)
	if err != nil {
		return nil, err
	}
	tree, err := events.Build(c, goalFacts)
	if err != nil {
		return nil, err
	}

	if progOpts.MaxDepth == 0 {
		progOpts.MaxDepth = ch.Options().MaxDepth
	}
	if progOpts.MaxBreadth == 0 {
		progOpts.MaxBreadth = ch.Options().MaxBreadth
	}
	return &Quest{
		Ctx:      ctx,
		Initial:  c.Initial(),
		Goal:     goal,
		Chain:    c,
		Tree:     tree,
		Progress: progress.New(c, tree, progOpts),
		Stats:    ch.Stats(),
	}, nil
}

// groundGoalFacts instantiates the goal patterns against the chain's
// final state, which the chainer guarantees satisfies them.
func groundGoalFacts(final *state.State, goal chain.Goal) ([]*logic.Proposition, error) {
	bindings := final.Satisfy(goal.Patterns, goal.Vars, nil)
	if len(bindings) == 0 {
		return nil, fmt.Errorf("accepted chain's final state does not satisfy goal [%s]", goal)
	}
	b := bindings[0]
	facts := make([]*logic.Proposition, 0, len(goal.Patterns))
	for _, pat := range goal.Patterns {
		args := make([]logic.Entity, len(pat.Args))
		for i, t := range pat.Args {
			if t.IsVar {
				args[i] = b[t.Name]
				continue
			}
			e, ok := final.Entity(t.Name)
			if !ok {
				return nil, fmt.Errorf("goal names unknown entity %s", t.Name)
			}
			args[i] = e
		}
		facts = append(facts, final.Interner().Prop(pat.Pred, args...))
	}
	return facts, nil
}

// ParseCommand grounds a textual action literal like "open(box)"
// against the quest: the rule is looked up by name and its parameters
// bound, in order, to the named entities from the current world.
func (q *Quest) ParseCommand(input string) (*logic.Action, error) {
	name, args, err := logic.ParseAtom(input)
	if err != nil {
		return nil, err
	}
	r, ok := q.Ctx.Rule(name)
	if !ok {
		return nil, fmt.Errorf("unknown rule %q", name)
	}
	if len(args) != len(r.Params) {
		return nil, fmt.Errorf("rule %s takes %d arguments, got %d", name, len(r.Params), len(args))
	}
	world := q.Progress.State()
	b := logic.Binding{}
	for i, p := range r.Params {
		e, ok := world.Entity(args[i])
		if !ok {
			return nil, fmt.Errorf("unknown entity %q", args[i])
		}
		b[p.Name] = e
	}
	return r.Ground(q.Ctx.Hierarchy(), world.Interner(), world.Entity, b)
}

// Feed parses and plays one action literal, returning the new status.
func (q *Quest) Feed(input string) (progress.Status, error) {
	a, err := q.ParseCommand(input)
	if err != nil {
		return q.Progress.Status(), err
	}
	return q.Progress.Feed(a)
}
