package loader

import (
	"fmt"

	"github.com/nathoo/questforge/engine/logic"
)

// validate cross-checks the compiled definitions: the goal and failure
// conditions must stay within the declared vocabulary. Rule and world
// fact conformance is already enforced by the context and state
// constructors.
func validate(defs *Definitions) error {
	h := defs.Ctx.Hierarchy()

	for v, typ := range defs.Goal.Vars {
		if !h.Has(typ) {
			return fmt.Errorf("goal variable %s has undeclared type %q", v, typ)
		}
	}
	for _, pat := range defs.Goal.Patterns {
		sig, ok := defs.Ctx.Signature(pat.Pred)
		if !ok {
			return fmt.Errorf("goal uses undeclared predicate %s", pat.Pred)
		}
		if len(pat.Args) != sig.Arity() {
			return fmt.Errorf("goal %s has %d args, signature wants %d", pat, len(pat.Args), sig.Arity())
		}
		for i, t := range pat.Args {
			if t.IsVar {
				if typ, ok := defs.Goal.Vars[t.Name]; ok && !h.IsA(typ, sig.Types[i]) {
					return fmt.Errorf("goal variable %s of type %s cannot fill %s slot of %s",
						t.Name, typ, sig.Types[i], pat.Pred)
				}
				continue
			}
			e, ok := defs.Initial.Entity(t.Name)
			if !ok {
				return fmt.Errorf("goal names unknown entity %q", t.Name)
			}
			if !h.IsA(e.Type, sig.Types[i]) {
				return fmt.Errorf("goal entity %s of type %s cannot fill %s slot of %s",
					e.Name, e.Type, sig.Types[i], pat.Pred)
			}
		}
	}

	for _, p := range defs.FailWhen {
		if err := conform(defs, p); err != nil {
			return fmt.Errorf("fail condition %s: %w", p, err)
		}
	}
	return nil
}

// conform checks one ground proposition against the context.
func conform(defs *Definitions, p *logic.Proposition) error {
	sig, ok := defs.Ctx.Signature(p.Name)
	if !ok {
		return fmt.Errorf("undeclared predicate %s", p.Name)
	}
	if len(p.Args) != sig.Arity() {
		return fmt.Errorf("%d args, signature wants %d", len(p.Args), sig.Arity())
	}
	h := defs.Ctx.Hierarchy()
	for i, a := range p.Args {
		if !h.IsA(a.Type, sig.Types[i]) {
			return fmt.Errorf("argument %s has type %s, signature wants %s", a.Name, a.Type, sig.Types[i])
		}
	}
	return nil
}
