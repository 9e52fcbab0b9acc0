package subroutine

// CodeProvider exposes a sequence of contract clauses through an opaque
// label type L chosen by the implementer.
type CodeProvider[L comparable] interface {
	// Entry returns the label of the first clause.
	Entry() L
	// Next returns the label that follows l, if any.
	Next(l L) (L, bool)
	// Clause decodes the clause at l. ok is false for labels that carry
	// no clause (for example a clause whose text failed to parse).
	Clause(l L) (c Clause, ok bool)
}

// Builder holds the clauses gathered from a CodeProvider, independent of
// the provider's label type.
type Builder struct {
	clauses []Clause
}

// NewBuilder walks p from its entry label. A label seen twice ends the walk.
func NewBuilder[L comparable](p CodeProvider[L]) *Builder {
	b := &Builder{}
	seen := make(map[L]bool)
	for l, ok := p.Entry(), true; ok; l, ok = p.Next(l) {
		if seen[l] {
			break
		}
		seen[l] = true
		if c, has := p.Clause(l); has {
			b.clauses = append(b.clauses, c)
		}
	}
	return b
}

// BuilderOf wraps already decoded clauses.
func BuilderOf(clauses ...Clause) *Builder {
	return &Builder{clauses: append([]Clause(nil), clauses...)}
}

// Clauses returns the gathered clauses in provider order.
func (b *Builder) Clauses() []Clause { return b.clauses }

// Len returns the number of gathered clauses.
func (b *Builder) Len() int { return len(b.clauses) }

// Factory turns a builder and kind-specific context data into a subroutine.
type Factory[D any] func(b *Builder, data D) *Subroutine
