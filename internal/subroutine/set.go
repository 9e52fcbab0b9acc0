package subroutine

// Set is an immutable collection of subroutines deduplicated by Key.
// The zero value is an empty set.
type Set struct {
	items []*Subroutine
	keys  map[int]struct{}
}

// EmptySet returns a set with no members.
func EmptySet() Set { return Set{} }

// SetOf builds a set from subs, skipping nils and duplicates.
func SetOf(subs ...*Subroutine) Set {
	s := EmptySet()
	for _, sub := range subs {
		s = s.Add(sub)
	}
	return s
}

// Add returns a set containing sub. s is left unchanged. Adding nil or a
// subroutine whose key is already present returns s itself.
func (s Set) Add(sub *Subroutine) Set {
	if sub == nil || s.Contains(sub) {
		return s
	}
	items := make([]*Subroutine, len(s.items), len(s.items)+1)
	copy(items, s.items)
	keys := make(map[int]struct{}, len(s.keys)+1)
	for k := range s.keys {
		keys[k] = struct{}{}
	}
	keys[GetKey(sub)] = struct{}{}
	return Set{items: append(items, sub), keys: keys}
}

// Contains reports whether a subroutine with sub's key is a member.
func (s Set) Contains(sub *Subroutine) bool {
	if sub == nil {
		return false
	}
	_, ok := s.keys[GetKey(sub)]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.items) }

// Any returns an arbitrary member, or nil for an empty set.
func (s Set) Any() *Subroutine {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[0]
}

// Items returns the members in insertion order.
func (s Set) Items() []*Subroutine {
	return append([]*Subroutine(nil), s.items...)
}
