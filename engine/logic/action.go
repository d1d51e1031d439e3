package logic

import "strings"

// Action is a grounded rule application: a rule name, the binding that
// grounded it, and the grounded precondition/add/delete fact sets.
// Actions are immutable once built.
type Action struct {
	Rule    string
	Binding Binding
	Params  []Placeholder // binding order, copied from the rule
	Pre     []*Proposition
	Add     []*Proposition
	Del     []*Proposition
}

// Key returns the canonical identity of the action, derived from the
// rule name and the bound entities in parameter order. Used for stable
// candidate ordering and for comparing fed actions against a policy.
func (a *Action) Key() string {
	var b strings.Builder
	b.WriteString(a.Rule)
	b.WriteByte('(')
	for i, p := range a.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Binding[p.Name].Name)
	}
	b.WriteByte(')')
	return b.String()
}

// String renders the action as "rule(arg, arg)" in parameter order.
func (a *Action) String() string {
	names := make([]string, len(a.Params))
	for i, p := range a.Params {
		names[i] = a.Binding[p.Name].Name
	}
	return a.Rule + "(" + strings.Join(names, ", ") + ")"
}
