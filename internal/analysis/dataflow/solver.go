package dataflow

import (
	"go/ast"

	"github.com/gnolang/tverify/internal/analysis/cfg"
	"github.com/gnolang/tverify/internal/analysis/lattice"
	"github.com/gnolang/tverify/internal/timeout"
)

// Analysis is a forward analysis over a statement CFG.
type Analysis[V any] struct {
	Lattice lattice.Lattice[V]
	// Entry is the state on function entry. A nil Entry makes the whole
	// function unreachable.
	Entry lattice.State[V]
	// Transfer computes the state after s. It is never called with a nil
	// state and must not modify in.
	Transfer func(s ast.Stmt, in lattice.State[V]) lattice.State[V]
	// Refine narrows the state flowing along an edge that is only taken
	// when cond evaluates to taken. Optional.
	Refine func(cond ast.Expr, taken bool, s lattice.State[V]) lattice.State[V]
}

// Result holds the fixpoint of an Analysis.
type Result[V any] struct {
	in, out    map[ast.Stmt]lattice.State[V]
	iterations int
}

// Solve runs a to a fixpoint with a worklist. tc is consulted on every
// iteration; a nil tc never times out.
func Solve[V any](g *cfg.CFG, a Analysis[V], tc *timeout.Checker) (*Result[V], error) {
	r := &Result[V]{
		in:  make(map[ast.Stmt]lattice.State[V]),
		out: make(map[ast.Stmt]lattice.State[V]),
	}
	worklist := []ast.Stmt{g.Entry}
	queued := map[ast.Stmt]bool{g.Entry: true}

	for len(worklist) > 0 {
		if tc != nil {
			if err := tc.CheckTimeOut("dataflow fixpoint"); err != nil {
				return nil, err
			}
		}
		s := worklist[0]
		worklist = worklist[1:]
		queued[s] = false
		r.iterations++

		in := a.Entry
		if s != g.Entry {
			in = r.incoming(g, a, s)
		}
		r.in[s] = in

		out := in
		if in != nil && a.Transfer != nil {
			out = a.Transfer(s, in)
		}
		if prev, seen := r.out[s]; seen && lattice.Equal(a.Lattice, prev, out) {
			continue
		}
		r.out[s] = out

		for _, succ := range g.Succs(s) {
			if queued[succ] {
				continue
			}
			worklist = append(worklist, succ)
			queued[succ] = true
		}
	}
	return r, nil
}

func (r *Result[V]) incoming(g *cfg.CFG, a Analysis[V], s ast.Stmt) lattice.State[V] {
	var joined lattice.State[V]
	for _, p := range g.Preds(s) {
		edge := r.out[p]
		if cond, taken, ok := g.Branch(p, s); ok && edge != nil && a.Refine != nil {
			edge = a.Refine(cond, taken, edge)
		}
		joined = lattice.Join(a.Lattice, joined, edge)
	}
	return joined
}

// In returns the state before s, nil when s is unreachable.
func (r *Result[V]) In(s ast.Stmt) lattice.State[V] { return r.in[s] }

// Out returns the state after s, nil when s is unreachable or never
// completes.
func (r *Result[V]) Out(s ast.Stmt) lattice.State[V] { return r.out[s] }

// At returns the state at p.
func (r *Result[V]) At(p Point) lattice.State[V] {
	if p.After {
		return r.out[p.Stmt]
	}
	return r.in[p.Stmt]
}

// Iterations is the number of worklist steps taken to reach the fixpoint.
func (r *Result[V]) Iterations() int { return r.iterations }
