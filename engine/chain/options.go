// Package chain implements the bounded planning search: given a logic
// context, a starting state, and a goal, it grows the state through
// typed rule instantiation until the goal holds, producing a verified
// chain of grounded actions.
package chain

import (
	"fmt"

	"github.com/nathoo/questforge/engine/logic"
)

// Options configures one chaining invocation.
type Options struct {
	// MaxDepth bounds the chain length. Zero means DefaultDepth.
	MaxDepth int
	// MaxBreadth bounds how many candidate instantiations are explored
	// per step before pruning. Zero means DefaultBreadth.
	MaxBreadth int
	// AllowedTypes, when non-empty, whitelists the entity types (and
	// their subtypes) that may be bound or introduced.
	AllowedTypes []string
	// RestrictedTypes blacklists entity types (and their subtypes).
	RestrictedTypes []string
	// CreateVariables permits minting fresh entities to fill open rule
	// parameters. When false, only entities already present may bind.
	CreateVariables bool
	// Backward selects regression search from the goal instead of
	// forward search from the initial state.
	Backward bool
	// Seed controls tie-breaking among otherwise-equal candidate
	// instantiations. Identical seeds reproduce identical chains.
	Seed int64
}

// Default search bounds.
const (
	DefaultDepth   = 8
	DefaultBreadth = 64
)

func (o Options) normalized() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultDepth
	}
	if o.MaxBreadth <= 0 {
		o.MaxBreadth = DefaultBreadth
	}
	return o
}

// typeAllowed applies the whitelist/blacklist to one entity type.
func (o Options) typeAllowed(h *logic.Hierarchy, t string) bool {
	for _, r := range o.RestrictedTypes {
		if h.IsA(t, r) {
			return false
		}
	}
	if len(o.AllowedTypes) == 0 {
		return true
	}
	for _, a := range o.AllowedTypes {
		if h.IsA(t, a) {
			return true
		}
	}
	return false
}

// Goal is what a chain must establish: a set of proposition templates,
// possibly with free variables whose types are declared in Vars.
type Goal struct {
	Patterns []logic.Pattern
	Vars     map[string]string
}

func (g Goal) String() string {
	s := ""
	for i, p := range g.Patterns {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}

// Stats records what one chaining invocation did. Surfaced through the
// --trace flag.
type Stats struct {
	Expanded int // nodes expanded
	Pruned   int // nodes cut by the visited cache
	Deepest  int // deepest depth reached
}

func (s Stats) String() string {
	return fmt.Sprintf("expanded=%d pruned=%d deepest=%d", s.Expanded, s.Pruned, s.Deepest)
}

// PlanningFailureError reports search exhaustion: no chain reaches the
// goal within the configured bounds. Recoverable: the caller may relax
// the options or retry with a different seed.
type PlanningFailureError struct {
	Goal  string
	Depth int
}

func (e *PlanningFailureError) Error() string {
	return fmt.Sprintf("planning failure: no chain to [%s] within depth %d", e.Goal, e.Depth)
}
