package logic

import (
	"fmt"
	"sort"
	"strings"
)

// Signature declares a predicate: its name and the declared type of
// each argument position. Signatures are the vocabulary of legal facts.
type Signature struct {
	Name  string
	Types []string
}

// Arity returns the number of arguments the predicate takes.
func (s Signature) Arity() int { return len(s.Types) }

func (s Signature) String() string {
	return s.Name + "(" + strings.Join(s.Types, ", ") + ")"
}

// Term is one argument slot of a Pattern: either a rule-scoped variable
// or a constant entity name resolved at grounding time.
type Term struct {
	Name  string
	IsVar bool
}

// Var makes a variable term.
func Var(name string) Term { return Term{Name: name, IsVar: true} }

// Const makes a constant term naming a world entity.
func Const(name string) Term { return Term{Name: name} }

// Pattern is a proposition template: a predicate name applied to terms.
type Pattern struct {
	Pred string
	Args []Term
}

func (p Pattern) String() string {
	names := make([]string, len(p.Args))
	for i, t := range p.Args {
		names[i] = t.Name
	}
	return p.Pred + "(" + strings.Join(names, ", ") + ")"
}

// Placeholder declares one rule variable and the type it ranges over.
type Placeholder struct {
	Name string
	Type string
}

// Rule is a typed action template: grounding its placeholders yields an
// Action whose delete-set then add-set transforms a state. Every
// variable used in Add or Del must appear in Pre or be declared as a
// placeholder (a fresh parameter fillable when variable creation is
// enabled).
type Rule struct {
	Name   string
	Params []Placeholder // binding order; includes fresh parameters
	Pre    []Pattern
	Add    []Pattern
	Del    []Pattern
}

// ParamType returns the declared type of a rule variable.
func (r *Rule) ParamType(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Type, true
		}
	}
	return "", false
}

// FreeParams returns the placeholders that never occur in Pre. These
// are the open parameters that only variable creation (or an explicit
// caller binding) can fill.
func (r *Rule) FreeParams() []Placeholder {
	bound := map[string]bool{}
	for _, pat := range r.Pre {
		for _, t := range pat.Args {
			if t.IsVar {
				bound[t.Name] = true
			}
		}
	}
	var free []Placeholder
	for _, p := range r.Params {
		if !bound[p.Name] {
			free = append(free, p)
		}
	}
	return free
}

// Binding maps rule variables to concrete entities.
type Binding map[string]Entity

// Copy returns an independent copy of the binding.
func (b Binding) Copy() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

func (b Binding) String() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + b[k].Name
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// EntityResolver resolves a constant term to a concrete entity. States
// implement it over their entity universe.
type EntityResolver func(name string) (Entity, bool)

// Ground instantiates the rule under a complete binding, producing the
// grounded Action. Every placeholder must be bound to an entity whose
// type is the declared type or a subtype of it; constant terms are
// resolved through resolve. Violations return TypeMismatchError.
func (r *Rule) Ground(h *Hierarchy, in *Interner, resolve EntityResolver, b Binding) (*Action, error) {
	for _, p := range r.Params {
		e, ok := b[p.Name]
		if !ok {
			return nil, &TypeMismatchError{Rule: r.Name, Var: p.Name, Want: p.Type, Got: "unbound variable"}
		}
		if !h.IsA(e.Type, p.Type) {
			return nil, &TypeMismatchError{Rule: r.Name, Var: p.Name, Want: p.Type, Got: e.Type}
		}
	}
	ground := func(pats []Pattern) ([]*Proposition, error) {
		props := make([]*Proposition, 0, len(pats))
		for _, pat := range pats {
			args := make([]Entity, len(pat.Args))
			for i, t := range pat.Args {
				if t.IsVar {
					args[i] = b[t.Name]
					continue
				}
				e, ok := resolve(t.Name)
				if !ok {
					return nil, &TypeMismatchError{Rule: r.Name, Var: t.Name, Want: "a known entity", Got: "unknown name"}
				}
				args[i] = e
			}
			props = append(props, in.Prop(pat.Pred, args...))
		}
		return props, nil
	}
	pre, err := ground(r.Pre)
	if err != nil {
		return nil, err
	}
	add, err := ground(r.Add)
	if err != nil {
		return nil, err
	}
	del, err := ground(r.Del)
	if err != nil {
		return nil, err
	}
	return &Action{
		Rule:    r.Name,
		Binding: b.Copy(),
		Params:  append([]Placeholder(nil), r.Params...),
		Pre:     pre,
		Add:     add,
		Del:     del,
	}, nil
}

// validate checks the rule against the context's signatures and
// hierarchy at load time.
func (r *Rule) validate(c *Context) error {
	if r.Name == "" {
		return fmt.Errorf("rule with empty name")
	}
	declared := map[string]string{}
	for _, p := range r.Params {
		if _, dup := declared[p.Name]; dup {
			return fmt.Errorf("rule %s: duplicate parameter %s", r.Name, p.Name)
		}
		if !c.hierarchy.Has(p.Type) {
			return &TypeMismatchError{Rule: r.Name, Var: p.Name, Want: "a declared type", Got: p.Type}
		}
		declared[p.Name] = p.Type
	}
	check := func(pats []Pattern, where string) error {
		for _, pat := range pats {
			sig, ok := c.Signature(pat.Pred)
			if !ok {
				return fmt.Errorf("rule %s: %s uses undeclared predicate %s", r.Name, where, pat.Pred)
			}
			if len(pat.Args) != sig.Arity() {
				return fmt.Errorf("rule %s: %s %s has %d args, signature wants %d",
					r.Name, where, pat.Pred, len(pat.Args), sig.Arity())
			}
			for i, t := range pat.Args {
				if !t.IsVar {
					continue
				}
				vt, ok := declared[t.Name]
				if !ok {
					return fmt.Errorf("rule %s: %s uses undeclared variable %s", r.Name, where, t.Name)
				}
				if !c.hierarchy.IsA(vt, sig.Types[i]) {
					return &TypeMismatchError{Rule: r.Name, Var: t.Name, Want: sig.Types[i], Got: vt}
				}
			}
		}
		return nil
	}
	if err := check(r.Pre, "precondition"); err != nil {
		return err
	}
	if err := check(r.Add, "add-set"); err != nil {
		return err
	}
	return check(r.Del, "delete-set")
}
