package logic

import "fmt"

// Context is the immutable aggregate of a world's vocabulary: all
// predicate signatures, all rule templates, and the type hierarchy.
// It is shared by reference across states, chainers, and progressions
// and is never mutated after NewContext returns, so concurrent readers
// need no locking.
type Context struct {
	hierarchy *Hierarchy
	sigs      map[string]Signature
	rules     map[string]*Rule
	ruleOrder []string
}

// NewContext builds and validates a context. Every rule is checked
// against the signatures and the hierarchy; a malformed rule fails the
// whole load.
func NewContext(h *Hierarchy, sigs []Signature, rules []*Rule) (*Context, error) {
	c := &Context{
		hierarchy: h,
		sigs:      make(map[string]Signature, len(sigs)),
		rules:     make(map[string]*Rule, len(rules)),
	}
	for _, s := range sigs {
		if s.Name == "" {
			return nil, fmt.Errorf("signature with empty predicate name")
		}
		if _, dup := c.sigs[s.Name]; dup {
			return nil, fmt.Errorf("duplicate signature %s", s.Name)
		}
		for _, t := range s.Types {
			if !h.Has(t) {
				return nil, &TypeMismatchError{Want: "a declared type", Got: t}
			}
		}
		c.sigs[s.Name] = s
	}
	for _, r := range rules {
		if _, dup := c.rules[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %s", r.Name)
		}
		if err := r.validate(c); err != nil {
			return nil, err
		}
		c.rules[r.Name] = r
		c.ruleOrder = append(c.ruleOrder, r.Name)
	}
	return c, nil
}

// Hierarchy returns the type hierarchy.
func (c *Context) Hierarchy() *Hierarchy { return c.hierarchy }

// Signature looks up a predicate signature by name.
func (c *Context) Signature(name string) (Signature, bool) {
	s, ok := c.sigs[name]
	return s, ok
}

// Rule looks up a rule template by name.
func (c *Context) Rule(name string) (*Rule, bool) {
	r, ok := c.rules[name]
	return r, ok
}

// Rules returns all rule templates in declaration order.
func (c *Context) Rules() []*Rule {
	result := make([]*Rule, len(c.ruleOrder))
	for i, name := range c.ruleOrder {
		result[i] = c.rules[name]
	}
	return result
}
