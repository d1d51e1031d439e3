package logic

import "strings"

// Entity is a concrete world object: a name plus its declared type.
type Entity struct {
	Name string
	Type string
}

func (e Entity) String() string { return e.Name }

// Proposition is an immutable ground fact: a predicate name applied to
// concrete entities. Propositions are built through an Interner so that
// equal facts share one value and compare by pointer; Key is the
// canonical identity used for hashing and state canonicalization.
type Proposition struct {
	Name string
	Args []Entity
	key  string
}

// Key returns the canonical identity of the fact. Two propositions over
// the same predicate and entities produce the same key regardless of
// construction path.
func (p *Proposition) Key() string { return p.key }

// String renders the fact as "pred(a, b)" for display.
func (p *Proposition) String() string {
	names := make([]string, len(p.Args))
	for i, a := range p.Args {
		names[i] = a.Name
	}
	return p.Name + "(" + strings.Join(names, ", ") + ")"
}

func propKey(name string, args []Entity) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Name)
		b.WriteByte(':')
		b.WriteString(a.Type)
	}
	b.WriteByte(')')
	return b.String()
}

// Interner maps canonical (predicate, arguments) tuples to a single
// shared Proposition value. One interner belongs to one generation
// session; it is not safe for concurrent use and is never shared across
// sessions.
type Interner struct {
	props map[string]*Proposition
}

// NewInterner creates an empty intern table.
func NewInterner() *Interner {
	return &Interner{props: map[string]*Proposition{}}
}

// Prop returns the canonical Proposition for the given predicate and
// arguments, allocating it on first use.
func (in *Interner) Prop(name string, args ...Entity) *Proposition {
	key := propKey(name, args)
	if p, ok := in.props[key]; ok {
		return p
	}
	p := &Proposition{
		Name: name,
		Args: append([]Entity(nil), args...),
		key:  key,
	}
	in.props[key] = p
	return p
}

// Len returns the number of distinct interned facts.
func (in *Interner) Len() int { return len(in.props) }
