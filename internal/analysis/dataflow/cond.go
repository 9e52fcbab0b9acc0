package dataflow

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/analysis/lattice"
)

// Refiner narrows s assuming the atomic condition cond evaluates to taken.
type Refiner[V any] func(cond ast.Expr, taken bool, s lattice.State[V]) lattice.State[V]

// RefineCond decomposes parentheses, negation and the short-circuit
// operators, and hands every atom that must hold to atom.
func RefineCond[V any](cond ast.Expr, taken bool, s lattice.State[V], atom Refiner[V]) lattice.State[V] {
	if s == nil {
		return nil
	}
	switch c := cond.(type) {
	case *ast.ParenExpr:
		return RefineCond(c.X, taken, s, atom)
	case *ast.UnaryExpr:
		if c.Op == token.NOT {
			return RefineCond(c.X, !taken, s, atom)
		}
	case *ast.BinaryExpr:
		switch {
		case c.Op == token.LAND && taken, c.Op == token.LOR && !taken:
			return RefineCond(c.Y, taken, RefineCond(c.X, taken, s, atom), atom)
		case c.Op == token.LAND, c.Op == token.LOR:
			// Either operand may be responsible.
			return s
		}
	}
	return atom(cond, taken, s)
}
