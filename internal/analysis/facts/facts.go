// Package facts composes the fact queries of several analyses into one
// oracle.
package facts

import (
	"go/ast"
	"go/token"

	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/proof"
)

// Query answers whether a boolean expression holds at a program point.
// Providers that cannot decide return proof.Top.
type Query interface {
	IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome
}

// QueryFunc adapts a function to Query.
type QueryFunc func(p dataflow.Point, e ast.Expr) proof.Outcome

func (f QueryFunc) IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome { return f(p, e) }

// Assuming is implemented by providers that can decide e over the states
// at p in which every assumed condition holds.
type Assuming interface {
	IsTrueAssuming(p dataflow.Point, assumed []ast.Expr, e ast.Expr) proof.Outcome
}

// Unknown never decides anything.
var Unknown Query = QueryFunc(func(dataflow.Point, ast.Expr) proof.Outcome { return proof.Top })

// Composed asks its providers in order and keeps the first decided answer.
type Composed struct {
	isUnreachable func(dataflow.Point) bool
	providers     []Query
}

// NewComposed builds the oracle. isUnreachable may be nil when every
// point is reachable.
func NewComposed(isUnreachable func(dataflow.Point) bool, providers ...Query) *Composed {
	return &Composed{isUnreachable: isUnreachable, providers: providers}
}

// IsTrue returns Bottom at unreachable points. Otherwise connectives are
// decomposed and each atom gets the first non-Top answer of the providers.
// The right operand of && and || is decided assuming the left one made it
// evaluate.
func (c *Composed) IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome {
	if c.isUnreachable != nil && c.isUnreachable(p) {
		return proof.Bottom
	}
	return c.eval(p, nil, e)
}

func (c *Composed) eval(p dataflow.Point, assumed []ast.Expr, e ast.Expr) proof.Outcome {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return c.eval(p, assumed, x.X)
	case *ast.UnaryExpr:
		if x.Op == token.NOT {
			return c.eval(p, assumed, x.X).Negate()
		}
	case *ast.BinaryExpr:
		switch x.Op {
		case token.LAND:
			left := c.eval(p, assumed, x.X)
			if left == proof.False {
				return left
			}
			return proof.And(left, c.eval(p, assume(assumed, x.X), x.Y))
		case token.LOR:
			left := c.eval(p, assumed, x.X)
			if left == proof.True {
				return left
			}
			not := &ast.UnaryExpr{Op: token.NOT, X: &ast.ParenExpr{X: x.X}}
			return proof.Or(left, c.eval(p, assume(assumed, not), x.Y))
		}
	}
	return c.atom(p, assumed, e)
}

func assume(assumed []ast.Expr, e ast.Expr) []ast.Expr {
	return append(append([]ast.Expr(nil), assumed...), e)
}

// atom asks providers that cannot take assumptions about all states at p,
// which also bounds the assumed ones.
func (c *Composed) atom(p dataflow.Point, assumed []ast.Expr, e ast.Expr) proof.Outcome {
	for _, q := range c.providers {
		var o proof.Outcome
		if a, ok := q.(Assuming); ok && len(assumed) > 0 {
			o = a.IsTrueAssuming(p, assumed, e)
		} else {
			o = q.IsTrue(p, e)
		}
		if o != proof.Top {
			return o
		}
	}
	return proof.Top
}

// Len is the number of providers.
func (c *Composed) Len() int { return len(c.providers) }
