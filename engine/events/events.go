// Package events derives the milestone structure of an accepted chain:
// each action becomes one event, an explicit goal event closes the
// graph, and dependency edges follow fact flow from producers to
// consumers. The result is a DAG with the goal event as its win sink.
package events

import (
	"fmt"
	"sort"

	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/logic"
)

// Event is one milestone of a quest: either one action's effect set or
// an explicit goal fact set. Immutable once derived.
type Event struct {
	Name    string
	Action  *logic.Action       // nil for the goal event
	Effects []*logic.Proposition // facts whose presence triggers the event
}

// IsGoal reports whether this is an explicit goal event.
func (e *Event) IsGoal() bool { return e.Action == nil }

// Tree is the directed acyclic dependency graph over a chain's events.
// An edge E1 -> E2 means a fact E1 produces is consumed by E2 (or by a
// later consumer on E2's path), so E1 must trigger before E2 can.
type Tree struct {
	events []*Event
	succ   [][]int // successors by event index
	pred   [][]int // predecessors by event index
	order  []int   // one valid topological order
	sinks  []int   // win sinks: terminal events with no successors
}

// CyclicDependencyError reports a cycle among derived events. A
// structurally valid chain can never produce one; it indicates a
// malformed logic context and must be fixed upstream.
type CyclicDependencyError struct {
	Involved []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic event dependency involving %v", e.Involved)
}

// Build derives the dependency tree from an accepted chain. Each action
// becomes one event; goalFacts, when non-empty, add an explicit goal
// event consuming them. Edges run from each consumed fact's nearest
// earlier producer to its consumer. Acyclicity is validated here by
// topological sort, and every event is guaranteed a path to a win sink.
func Build(c *chain.Chain, goalFacts []*logic.Proposition) (*Tree, error) {
	var evs []*Event
	for _, a := range c.Actions {
		evs = append(evs, &Event{
			Name:    a.String(),
			Action:  a,
			Effects: a.Add,
		})
	}
	goalIdx := -1
	if len(goalFacts) > 0 {
		goalIdx = len(evs)
		evs = append(evs, &Event{Name: "goal", Effects: goalFacts})
	}

	t := &Tree{
		events: evs,
		succ:   make([][]int, len(evs)),
		pred:   make([][]int, len(evs)),
	}

	// Producer edges: for each consumed fact, link from the nearest
	// earlier event whose add-set produced it.
	edge := func(from, to int) {
		for _, s := range t.succ[from] {
			if s == to {
				return
			}
		}
		t.succ[from] = append(t.succ[from], to)
		t.pred[to] = append(t.pred[to], from)
	}
	producerOf := func(fact *logic.Proposition, before int) int {
		for i := before - 1; i >= 0; i-- {
			for _, p := range c.Actions[i].Add {
				if p == fact || p.Key() == fact.Key() {
					return i
				}
			}
		}
		return -1
	}
	for j, a := range c.Actions {
		for _, pre := range a.Pre {
			if i := producerOf(pre, j); i >= 0 {
				edge(i, j)
			}
		}
	}
	if goalIdx >= 0 {
		for _, g := range goalFacts {
			if i := producerOf(g, len(c.Actions)); i >= 0 {
				edge(i, goalIdx)
			}
		}
		// Events whose effects feed nothing downstream still gate the
		// quest: give them a path to the win sink.
		for i := range c.Actions {
			if len(t.succ[i]) == 0 {
				edge(i, goalIdx)
			}
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate runs a topological sort, failing with CyclicDependencyError
// when some events can never be ordered, and records sinks.
func (t *Tree) validate() error {
	indeg := make([]int, len(t.events))
	for _, succs := range t.succ {
		for _, s := range succs {
			indeg[s]++
		}
	}
	var queue []int
	for i := range t.events {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)
	t.order = t.order[:0]
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		t.order = append(t.order, n)
		for _, s := range t.succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(t.order) != len(t.events) {
		var cyclic []string
		for i, d := range indeg {
			if d > 0 {
				cyclic = append(cyclic, t.events[i].Name)
			}
		}
		return &CyclicDependencyError{Involved: cyclic}
	}
	t.sinks = t.sinks[:0]
	for i := range t.events {
		if len(t.succ[i]) == 0 {
			t.sinks = append(t.sinks, i)
		}
	}
	return nil
}

// Events returns all events in chain order (goal event last).
func (t *Tree) Events() []*Event {
	return append([]*Event(nil), t.events...)
}

// Len returns the number of events.
func (t *Tree) Len() int { return len(t.events) }

// WinSinks returns the terminal events: triggering any of them wins the
// quest.
func (t *Tree) WinSinks() []*Event {
	result := make([]*Event, len(t.sinks))
	for i, s := range t.sinks {
		result[i] = t.events[s]
	}
	return result
}

// Predecessors returns the events that must trigger before ev can.
func (t *Tree) Predecessors(ev *Event) []*Event {
	i := t.index(ev)
	if i < 0 {
		return nil
	}
	result := make([]*Event, len(t.pred[i]))
	for j, p := range t.pred[i] {
		result[j] = t.events[p]
	}
	return result
}

// Successors returns the events directly depending on ev.
func (t *Tree) Successors(ev *Event) []*Event {
	i := t.index(ev)
	if i < 0 {
		return nil
	}
	result := make([]*Event, len(t.succ[i]))
	for j, s := range t.succ[i] {
		result[j] = t.events[s]
	}
	return result
}

// TopologicalOrder returns one valid total order of the events.
func (t *Tree) TopologicalOrder() []*Event {
	result := make([]*Event, len(t.order))
	for i, n := range t.order {
		result[i] = t.events[n]
	}
	return result
}

func (t *Tree) index(ev *Event) int {
	for i, e := range t.events {
		if e == ev {
			return i
		}
	}
	return -1
}
