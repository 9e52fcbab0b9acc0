package lattice

// Lattice describes the value domain of a forward analysis.
type Lattice[V any] interface {
	Top() V
	Bottom() V
	Join(a, b V) V
	Meet(a, b V) V
	Equal(a, b V) bool
}

// State maps variable names to abstract values.
// Missing entries are interpreted as Top. A nil state represents Bottom
// (the program point is unreachable).
type State[V any] map[string]V

// Get returns the stored value or Top when absent.
func Get[V any](l Lattice[V], s State[V], name string) V {
	if s == nil {
		return l.Bottom()
	}
	if v, ok := s[name]; ok {
		return v
	}
	return l.Top()
}

// Set sets the entry or removes it when value is Top.
func Set[V any](l Lattice[V], s State[V], name string, v V) {
	if s == nil {
		return
	}
	if l.Equal(v, l.Top()) {
		delete(s, name)
		return
	}
	s[name] = v
}

// Clone returns a shallow copy of s.
func Clone[V any](s State[V]) State[V] {
	if s == nil {
		return nil
	}
	out := make(State[V], len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Join merges two states variable by variable. Names bound in only one
// state are Top in the other and therefore drop out.
func Join[V any](l Lattice[V], a, b State[V]) State[V] {
	if a == nil {
		return Clone(b)
	}
	if b == nil {
		return Clone(a)
	}
	out := make(State[V])
	for name, av := range a {
		if bv, ok := b[name]; ok {
			Set(l, out, name, l.Join(av, bv))
		}
	}
	return out
}

// Equal reports whether two states bind the same names to equal values.
func Equal[V any](l Lattice[V], a, b State[V]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !l.Equal(av, bv) {
			return false
		}
	}
	return true
}

// Refine narrows name to constraint. A contradiction makes the whole
// state unreachable.
func Refine[V any](l Lattice[V], s State[V], name string, constraint V) State[V] {
	if s == nil {
		return nil
	}
	current := Get(l, s, name)
	refined := l.Meet(current, constraint)
	if l.Equal(refined, l.Bottom()) {
		return nil
	}
	if l.Equal(refined, current) {
		return s
	}
	out := Clone(s)
	Set(l, out, name, refined)
	return out
}
