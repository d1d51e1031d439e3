package state

import (
	"sort"

	"github.com/nathoo/questforge/engine/logic"
)

// Satisfy finds every binding, extending base, under which all the
// given proposition templates are present facts. varTypes declares the
// type each free variable ranges over; a variable binds to an entity
// only if the entity's type is that type or a subtype. Constant terms
// resolve against the state's entity universe. Bindings are returned in
// a deterministic order so identical states yield identical candidate
// sequences.
func (s *State) Satisfy(patterns []logic.Pattern, varTypes map[string]string, base logic.Binding) []logic.Binding {
	if base == nil {
		base = logic.Binding{}
	}
	var results []logic.Binding
	s.satisfy(patterns, varTypes, base, &results)
	sort.Slice(results, func(i, j int) bool {
		return results[i].String() < results[j].String()
	})
	return results
}

// Satisfiable reports whether at least one satisfying binding exists.
func (s *State) Satisfiable(patterns []logic.Pattern, varTypes map[string]string, base logic.Binding) bool {
	return len(s.Satisfy(patterns, varTypes, base)) > 0
}

func (s *State) satisfy(patterns []logic.Pattern, varTypes map[string]string, b logic.Binding, out *[]logic.Binding) {
	if len(patterns) == 0 {
		*out = append(*out, b.Copy())
		return
	}
	pat := patterns[0]
	for _, fact := range s.factsNamed(pat.Pred) {
		if next, ok := s.unify(pat, fact, varTypes, b); ok {
			s.satisfy(patterns[1:], varTypes, next, out)
		}
	}
}

// unify matches one pattern against one fact under a binding, returning
// the extended binding on success. The input binding is never mutated.
func (s *State) unify(pat logic.Pattern, fact *logic.Proposition, varTypes map[string]string, b logic.Binding) (logic.Binding, bool) {
	if len(pat.Args) != len(fact.Args) {
		return nil, false
	}
	next := b
	cloned := false
	h := s.ctx.Hierarchy()
	for i, t := range pat.Args {
		arg := fact.Args[i]
		if !t.IsVar {
			e, ok := s.Entity(t.Name)
			if !ok || e != arg {
				return nil, false
			}
			continue
		}
		if bound, ok := next[t.Name]; ok {
			if bound != arg {
				return nil, false
			}
			continue
		}
		if want, ok := varTypes[t.Name]; ok && !h.IsA(arg.Type, want) {
			return nil, false
		}
		if !cloned {
			next = next.Copy()
			cloned = true
		}
		next[t.Name] = arg
	}
	if !cloned {
		next = next.Copy()
	}
	return next, true
}

// factsNamed returns the facts over one predicate, sorted by key.
func (s *State) factsNamed(pred string) []*logic.Proposition {
	var result []*logic.Proposition
	for _, p := range s.facts {
		if p.Name == pred {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })
	return result
}
