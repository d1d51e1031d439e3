package chain

import (
	"fmt"
	"strings"

	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
)

// Chain is an accepted plan: an ordered sequence of grounded actions
// together with every state it produces. States[0] is the initial
// state; States[i+1] results from applying Actions[i] to States[i].
type Chain struct {
	Actions []*logic.Action
	States  []*state.State
}

// Initial returns the starting state of the chain.
func (c *Chain) Initial() *state.State { return c.States[0] }

// Final returns the state after the last action.
func (c *Chain) Final() *state.State { return c.States[len(c.States)-1] }

// Len returns the number of actions.
func (c *Chain) Len() int { return len(c.Actions) }

func (c *Chain) String() string {
	parts := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, " -> ") + "]"
}

// Replay applies the actions in order from initial, verifying each
// precondition along the way, and returns the full chain. This is the
// acceptance check for every plan the search proposes: a plan whose
// preconditions lean on facts absent from the initial state fails here.
func Replay(initial *state.State, actions []*logic.Action) (*Chain, error) {
	states := make([]*state.State, 0, len(actions)+1)
	st := initial.Copy()
	states = append(states, st)
	for i, a := range actions {
		next := st.Copy()
		if err := next.Apply(a); err != nil {
			return nil, fmt.Errorf("replaying action %d (%s): %w", i, a, err)
		}
		states = append(states, next)
		st = next
	}
	return &Chain{Actions: actions, States: states}, nil
}
