// Package logic defines the typed relational vocabulary of a generated
// world: the type hierarchy, predicate signatures, ground propositions,
// rule templates, and grounded actions. Everything here is immutable
// once a Context is built; search and play only read it.
package logic

import "sort"

// Hierarchy is the subtype lattice over entity kinds. Each type has at
// most one parent. The subtype relation is reflexive and transitive.
type Hierarchy struct {
	parents map[string]string
	order   []string // declaration order, for deterministic listings
}

// NewHierarchy creates an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{parents: map[string]string{}}
}

// Add declares a type. An empty parent makes it a root. Re-declaring an
// existing type is an error, as is naming an unknown parent.
func (h *Hierarchy) Add(name, parent string) error {
	if name == "" {
		return &TypeMismatchError{Want: "non-empty type name"}
	}
	if _, ok := h.parents[name]; ok {
		return &TypeMismatchError{Got: name, Want: "a type declared once"}
	}
	if parent != "" {
		if _, ok := h.parents[parent]; !ok {
			return &TypeMismatchError{Got: parent, Want: "a declared parent type"}
		}
	}
	h.parents[name] = parent
	h.order = append(h.order, name)
	return nil
}

// Has reports whether the type is declared.
func (h *Hierarchy) Has(name string) bool {
	_, ok := h.parents[name]
	return ok
}

// Parent returns the direct parent of a type, or "" for roots and
// unknown types.
func (h *Hierarchy) Parent(name string) string {
	return h.parents[name]
}

// IsA reports whether t is ancestor itself or a (transitive) subtype
// of it.
func (h *Hierarchy) IsA(t, ancestor string) bool {
	for t != "" {
		if t == ancestor {
			return true
		}
		t = h.parents[t]
	}
	return false
}

// Descendants returns t and every declared subtype of t, sorted.
func (h *Hierarchy) Descendants(t string) []string {
	var result []string
	for name := range h.parents {
		if h.IsA(name, t) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// Types returns all declared type names in declaration order.
func (h *Hierarchy) Types() []string {
	return append([]string(nil), h.order...)
}
