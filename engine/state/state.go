// Package state manages a mutable set of ground facts conforming to a
// logic context: queries, atomic action application, pattern
// satisfaction, and canonicalization for search memoization.
package state

import (
	"sort"
	"strings"

	"github.com/nathoo/questforge/engine/logic"
)

// State is a set of propositions plus the context they conform to.
// Every member fact's predicate has a declared signature and every
// argument's type is compatible with it. A state also tracks its entity
// universe: the entities named by its facts plus any declared extras,
// so constant rule terms and fresh goal arguments can be resolved.
type State struct {
	ctx      *logic.Context
	interner *logic.Interner
	facts    map[string]*logic.Proposition
	entities map[string]logic.Entity
}

// New creates a state over the given context and interner, seeded with
// the given facts. Fails with InconsistentStateError if any fact does
// not conform to the context.
func New(ctx *logic.Context, in *logic.Interner, facts ...*logic.Proposition) (*State, error) {
	s := &State{
		ctx:      ctx,
		interner: in,
		facts:    make(map[string]*logic.Proposition, len(facts)),
		entities: map[string]logic.Entity{},
	}
	for _, p := range facts {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Context returns the logic context this state conforms to.
func (s *State) Context() *logic.Context { return s.ctx }

// Interner returns the session intern table.
func (s *State) Interner() *logic.Interner { return s.interner }

// Copy returns an independent state with the same facts and entity
// universe. The context and interner are shared.
func (s *State) Copy() *State {
	c := &State{
		ctx:      s.ctx,
		interner: s.interner,
		facts:    make(map[string]*logic.Proposition, len(s.facts)),
		entities: make(map[string]logic.Entity, len(s.entities)),
	}
	for k, p := range s.facts {
		c.facts[k] = p
	}
	for k, e := range s.entities {
		c.entities[k] = e
	}
	return c
}

// Len returns the number of facts.
func (s *State) Len() int { return len(s.facts) }

// Holds reports whether the fact is present.
func (s *State) Holds(p *logic.Proposition) bool {
	_, ok := s.facts[p.Key()]
	return ok
}

// HoldsAll reports whether every fact in the set is present.
func (s *State) HoldsAll(props []*logic.Proposition) bool {
	for _, p := range props {
		if !s.Holds(p) {
			return false
		}
	}
	return true
}

// Facts returns all facts sorted by canonical key.
func (s *State) Facts() []*logic.Proposition {
	keys := make([]string, 0, len(s.facts))
	for k := range s.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]*logic.Proposition, len(keys))
	for i, k := range keys {
		result[i] = s.facts[k]
	}
	return result
}

// Add inserts a fact after checking it against the context. Adding a
// fact whose predicate has no signature, whose arity disagrees, or
// whose argument types are incompatible fails with
// InconsistentStateError.
func (s *State) Add(p *logic.Proposition) error {
	sig, ok := s.ctx.Signature(p.Name)
	if !ok {
		return &InconsistentStateError{Fact: p.String(), Reason: "no declared signature"}
	}
	if len(p.Args) != sig.Arity() {
		return &InconsistentStateError{Fact: p.String(), Reason: "arity disagrees with signature"}
	}
	h := s.ctx.Hierarchy()
	for i, a := range p.Args {
		if !h.IsA(a.Type, sig.Types[i]) {
			return &InconsistentStateError{
				Fact:   p.String(),
				Reason: "argument " + a.Name + " has type " + a.Type + ", signature wants " + sig.Types[i],
			}
		}
	}
	s.facts[p.Key()] = p
	for _, a := range p.Args {
		s.entities[a.Name] = a
	}
	return nil
}

// Remove deletes a fact if present. Entities stay in the universe even
// when their last fact disappears.
func (s *State) Remove(p *logic.Proposition) {
	delete(s.facts, p.Key())
}

// DeclareEntity adds an entity to the universe without asserting any
// fact about it.
func (s *State) DeclareEntity(e logic.Entity) {
	s.entities[e.Name] = e
}

// Entity resolves an entity name against the universe.
func (s *State) Entity(name string) (logic.Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Entities returns the entity universe sorted by name.
func (s *State) Entities() []logic.Entity {
	names := make([]string, 0, len(s.entities))
	for n := range s.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	result := make([]logic.Entity, len(names))
	for i, n := range names {
		result[i] = s.entities[n]
	}
	return result
}

// EntitiesOf returns the entities whose type is t or a subtype of it,
// sorted by name.
func (s *State) EntitiesOf(t string) []logic.Entity {
	h := s.ctx.Hierarchy()
	var result []logic.Entity
	for _, e := range s.Entities() {
		if h.IsA(e.Type, t) {
			result = append(result, e)
		}
	}
	return result
}

// Apply applies a grounded action atomically: if any precondition fact
// is absent it fails with PreconditionError and the state is untouched;
// otherwise the delete-set is removed and the add-set inserted. Add-set
// conformance was established when the action was grounded, so Apply
// cannot leave the state inconsistent.
func (s *State) Apply(a *logic.Action) error {
	for _, p := range a.Pre {
		if !s.Holds(p) {
			return &PreconditionError{Action: a.String(), Missing: p.String()}
		}
	}
	for _, p := range a.Del {
		s.Remove(p)
	}
	for _, p := range a.Add {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// CanonicalKey returns a value identifying the fact set independent of
// insertion history. Two states with identical facts produce equal
// keys, making the key usable for search-visited memoization.
func (s *State) CanonicalKey() string {
	keys := make([]string, 0, len(s.facts))
	for k := range s.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
