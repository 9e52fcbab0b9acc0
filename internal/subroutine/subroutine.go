package subroutine

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"
	"sync/atomic"
)

// Kind identifies which contract a subroutine represents.
type Kind int

const (
	Requires Kind = iota
	Ensures
	ModelEnsures
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Requires:
		return "requires"
	case Ensures:
		return "ensures"
	case ModelEnsures:
		return "model-ensures"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Edge tags used when a subroutine is attached to an edge of another one.
const (
	TagInherited = "inherited"
	TagExtra     = "extra"
)

// Clause is one decoded contract expression.
type Clause struct {
	Expr ast.Expr
	Text string
	Pos  token.Position

	// Func is the function whose contract declares the clause and Recv
	// its receiver name. Both are zero for invariants.
	Func *types.Func
	Recv string
}

// Block is a node of a subroutine graph. Entry and exit blocks carry no clause.
type Block struct {
	ID     int
	Clause *Clause

	succs []*Block
	preds []*Block
}

func (b *Block) Succs() []*Block { return b.succs }
func (b *Block) Preds() []*Block { return b.preds }

// EdgeSubroutine is a subroutine executed when control flows along From -> To.
type EdgeSubroutine struct {
	From, To *Block
	Sub      *Subroutine
	Tag      string
}

var nextKey atomic.Int64

// Subroutine is the control-flow representation of the clauses of one
// contract, together with the inherited contracts it calls into.
type Subroutine struct {
	key   int
	kind  Kind
	owner string

	entry  *Block
	exit   *Block
	blocks []*Block
	edges  []EdgeSubroutine

	initialized bool
}

func newSubroutine(kind Kind, owner string) *Subroutine {
	s := &Subroutine{
		key:   int(nextKey.Add(1)),
		kind:  kind,
		owner: owner,
	}
	s.entry = s.newBlock(nil)
	return s
}

func (s *Subroutine) newBlock(c *Clause) *Block {
	b := &Block{ID: len(s.blocks), Clause: c}
	s.blocks = append(s.blocks, b)
	return b
}

func link(from, to *Block) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// build lays out entry -> clause blocks -> exit and attaches every member of
// calls on the edge leaving the entry block.
func build(s *Subroutine, clauses []Clause, calls []*Subroutine) *Subroutine {
	prev := s.entry
	first := true
	for i := range clauses {
		c := clauses[i]
		b := s.newBlock(&c)
		link(prev, b)
		if first {
			for _, sub := range calls {
				s.edges = append(s.edges, EdgeSubroutine{From: prev, To: b, Sub: sub, Tag: TagInherited})
			}
			first = false
		}
		prev = b
	}
	s.exit = s.newBlock(nil)
	link(prev, s.exit)
	if first {
		for _, sub := range calls {
			s.edges = append(s.edges, EdgeSubroutine{From: prev, To: s.exit, Sub: sub, Tag: TagInherited})
		}
	}
	return s
}

// New builds a subroutine from the clauses gathered by b. The inherited
// set is called before the local clauses.
func New(kind Kind, owner string, b *Builder, inherited Set) *Subroutine {
	return build(newSubroutine(kind, owner), b.Clauses(), inherited.Items())
}

// NewContainer builds a subroutine without local clauses that only calls
// the inherited set. An empty set yields an empty contract.
func NewContainer(kind Kind, owner string, inherited Set) *Subroutine {
	return build(newSubroutine(kind, owner), nil, inherited.Items())
}

// NewInvariant builds a type invariant. base, when non-nil, is the single
// invariant inherited from the base type.
func NewInvariant(owner string, b *Builder, base *Subroutine) *Subroutine {
	var calls []*Subroutine
	if base != nil {
		calls = []*Subroutine{base}
	}
	var clauses []Clause
	if b != nil {
		clauses = b.Clauses()
	}
	return build(newSubroutine(Invariant, owner), clauses, calls)
}

// Initialize renumbers blocks in layout order and marks s as built.
// It is idempotent.
func (s *Subroutine) Initialize() {
	if s.initialized {
		return
	}
	for i, b := range s.blocks {
		b.ID = i
	}
	s.initialized = true
}

// Key is a stable identifier used for set deduplication.
func (s *Subroutine) Key() int { return s.key }

// GetKey is the key function of deduplicating sets.
func GetKey(s *Subroutine) int { return s.key }

func (s *Subroutine) Kind() Kind              { return s.kind }
func (s *Subroutine) Owner() string           { return s.owner }
func (s *Subroutine) Entry() *Block           { return s.entry }
func (s *Subroutine) Exit() *Block            { return s.exit }
func (s *Subroutine) Blocks() []*Block        { return s.blocks }
func (s *Subroutine) Edges() []EdgeSubroutine { return s.edges }
func (s *Subroutine) Initialized() bool       { return s.initialized }

// PredecessorBlocks returns the predecessors of b.
func (s *Subroutine) PredecessorBlocks(b *Block) []*Block { return b.preds }

// AddEdgeSubroutine attaches sub to the edge from -> to.
func (s *Subroutine) AddEdgeSubroutine(from, to *Block, sub *Subroutine, tag string) {
	s.edges = append(s.edges, EdgeSubroutine{From: from, To: to, Sub: sub, Tag: tag})
}

// Inherited returns the subroutines attached with TagInherited.
func (s *Subroutine) Inherited() []*Subroutine {
	return s.edgeSubs(TagInherited)
}

func (s *Subroutine) edgeSubs(tag string) []*Subroutine {
	var out []*Subroutine
	for _, e := range s.edges {
		if e.Tag == tag {
			out = append(out, e.Sub)
		}
	}
	return out
}

// LocalClauses returns the clauses declared by this subroutine only.
func (s *Subroutine) LocalClauses() []Clause {
	var out []Clause
	for _, b := range s.blocks {
		if b.Clause != nil {
			out = append(out, *b.Clause)
		}
	}
	return out
}

// IsContainer reports whether s has no clauses of its own and only
// delegates to inherited subroutines.
func (s *Subroutine) IsContainer() bool {
	return len(s.LocalClauses()) == 0 && len(s.Inherited()) > 0
}

// IsEmpty reports whether no clause is reachable from s.
func (s *Subroutine) IsEmpty() bool {
	return len(s.Clauses()) == 0
}

// Clauses flattens s: inherited clauses first, then local clauses, then
// extra clauses chained later. A subroutine reached twice contributes once.
func (s *Subroutine) Clauses() []Clause {
	var out []Clause
	seen := make(map[int]bool)
	s.collect(seen, &out)
	return out
}

func (s *Subroutine) collect(seen map[int]bool, out *[]Clause) {
	if seen[s.key] {
		return
	}
	seen[s.key] = true
	for _, sub := range s.Inherited() {
		sub.collect(seen, out)
	}
	*out = append(*out, s.LocalClauses()...)
	for _, sub := range s.edgeSubs(TagExtra) {
		sub.collect(seen, out)
	}
}

// String renders a one-line summary, e.g. "requires pkg.F [2 clauses, 1 inherited]".
func (s *Subroutine) String() string {
	return fmt.Sprintf("%s %s [%d clauses, %d inherited]",
		s.kind, s.owner, len(s.LocalClauses()), len(s.Inherited()))
}

// Describe renders the flattened clauses, one per line.
func (s *Subroutine) Describe() string {
	var sb strings.Builder
	for _, c := range s.Clauses() {
		sb.WriteString(s.kind.String())
		sb.WriteString(" ")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
