// Package progress tracks a quest at runtime: it consumes grounded
// player actions, keeps the current world state, marks milestone events
// as they trigger, and reports whether the quest is ongoing, won, or
// lost, replanning against the dependency tree as play diverges from
// the designed chain.
package progress

import (
	"github.com/nathoo/questforge/engine/chain"
	"github.com/nathoo/questforge/engine/events"
	"github.com/nathoo/questforge/engine/logic"
	"github.com/nathoo/questforge/engine/state"
)

// Status is the progression state machine value. Won and Lost are
// terminal: further feeds are no-ops returning the same status.
type Status int

const (
	Ongoing Status = iota
	Won
	Lost
)

func (s Status) String() string {
	switch s {
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "ongoing"
	}
}

// Options configures a progression.
type Options struct {
	// MaxDepth is the replanning depth budget from the current state.
	// Zero inherits the chainer default.
	MaxDepth int
	// MaxBreadth bounds replanning breadth. Zero inherits the default.
	MaxBreadth int
	// Seed drives replanning tie-breaks, keeping reported policies
	// deterministic.
	Seed int64
	// FailWhen lists failure conditions: the quest is lost the moment
	// any of these facts holds.
	FailWhen []*logic.Proposition
}

// Progression is the runtime tracker for one play-through. It owns its
// state exclusively; all mutation goes through Feed.
type Progression struct {
	tree      *events.Tree
	world     *state.State
	opts      Options
	status    Status
	triggered map[*events.Event]bool
	policy    []*logic.Action
}

// New creates a progression at the start of the given chain's quest:
// status ongoing, world equal to the chain's initial state, no events
// triggered, and the chain's own actions as the initial policy.
func New(c *chain.Chain, t *events.Tree, opts Options) *Progression {
	p := &Progression{
		tree:      t,
		world:     c.Initial().Copy(),
		opts:      opts,
		status:    Ongoing,
		triggered: map[*events.Event]bool{},
		policy:    append([]*logic.Action(nil), c.Actions...),
	}
	// Entities the designed chain introduces along the way are part of
	// the quest's vocabulary; replanning must be able to name them even
	// before the action creating them has been played.
	for _, ev := range t.Events() {
		for _, f := range ev.Effects {
			for _, e := range f.Args {
				p.world.DeclareEntity(e)
			}
		}
	}
	// A trivially satisfied quest is won before any action.
	p.mark()
	p.resolve(false)
	return p
}

// Status returns the current status without feeding.
func (p *Progression) Status() Status { return p.status }

// State returns the current world state. Callers must not mutate it.
func (p *Progression) State() *state.State { return p.world }

// Triggered returns the events triggered so far, in tree order.
func (p *Progression) Triggered() []*events.Event {
	var result []*events.Event
	for _, ev := range p.tree.Events() {
		if p.triggered[ev] {
			result = append(result, ev)
		}
	}
	return result
}

// RemainingPolicy returns the ordered actions currently believed
// sufficient to win, or nil when the quest is terminal or no single
// deterministic remaining plan is known.
func (p *Progression) RemainingPolicy() []*logic.Action {
	if p.policy == nil {
		return nil
	}
	return append([]*logic.Action(nil), p.policy...)
}

// Feed applies one player action and recomputes the status. Feeding an
// action whose preconditions do not hold fails with PreconditionError
// and changes nothing; feeding after a terminal status is a no-op
// returning the same status.
func (p *Progression) Feed(a *logic.Action) (Status, error) {
	if p.status != Ongoing {
		return p.status, nil
	}
	next := p.world.Copy()
	if err := next.Apply(a); err != nil {
		return p.status, err
	}
	p.world = next
	p.mark()
	p.resolve(true)
	return p.status, nil
}

// mark triggers every untriggered event whose full effect set is
// contained in the current facts. Triggering is monotone: an event
// stays triggered even when a later action deletes its effects.
func (p *Progression) mark() {
	for _, ev := range p.tree.Events() {
		if !p.triggered[ev] && p.world.HoldsAll(ev.Effects) {
			p.triggered[ev] = true
		}
	}
}

// resolve recomputes the status: won when a win sink has triggered,
// lost when a failure fact holds or no remaining plan to any win sink
// exists within the depth budget, otherwise ongoing with a refreshed
// policy. Replanning runs the chainer backward from the current state,
// so irreversible-but-irrelevant actions and reordered independent
// branches do not count as losses.
func (p *Progression) resolve(replan bool) {
	for _, sink := range p.tree.WinSinks() {
		if p.triggered[sink] {
			p.status = Won
			p.policy = nil
			return
		}
	}
	for _, f := range p.opts.FailWhen {
		if p.world.Holds(f) {
			p.status = Lost
			p.policy = nil
			return
		}
	}
	if !replan {
		return
	}
	p.policy = p.replan()
	if p.policy == nil {
		p.status = Lost
	}
}

// replan searches backward from the current world toward each win sink
// and returns the first plan found, or nil when every sink is out of
// reach. The reported policy among equally valid completions is
// whichever the seeded search finds; the choice is deterministic per
// seed but otherwise unspecified.
func (p *Progression) replan() []*logic.Action {
	for _, sink := range p.tree.WinSinks() {
		goal := make([]logic.Pattern, 0, len(sink.Effects))
		for _, f := range sink.Effects {
			args := make([]logic.Term, len(f.Args))
			for i, e := range f.Args {
				args[i] = logic.Const(e.Name)
			}
			goal = append(goal, logic.Pattern{Pred: f.Name, Args: args})
		}
		ch := chain.New(p.world.Context(), chain.Options{
			MaxDepth:   p.opts.MaxDepth,
			MaxBreadth: p.opts.MaxBreadth,
			Backward:   true,
			Seed:       p.opts.Seed,
		})
		c, err := ch.Chain(p.world, chain.Goal{Patterns: goal})
		if err != nil {
			continue
		}
		if c.Actions == nil {
			return []*logic.Action{}
		}
		return c.Actions
	}
	return nil
}
