// Package constprop propagates compile-time constants through local
// variables and answers boolean queries over the result.
package constprop

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/lattice"
)

// maxShift bounds shift counts folded by the evaluator.
const maxShift = 1024

type State = lattice.State[lattice.Const]

var domain lattice.Constants

// Evaluator folds expressions over a constant State. Info and Pkg are
// optional; without them only literals and tracked locals are known.
type Evaluator struct {
	Info   *types.Info
	Pkg    *types.Package
	Locals *dataflow.Locals
}

func NewEvaluator(info *types.Info, pkg *types.Package, locals *dataflow.Locals) *Evaluator {
	return &Evaluator{Info: info, Pkg: pkg, Locals: locals}
}

// Eval returns the value of expr in s, Top when it is not a known
// constant.
func (e *Evaluator) Eval(expr ast.Expr, s State) lattice.Const {
	if s == nil {
		return domain.Bottom()
	}
	if e.Info != nil {
		if tv, ok := e.Info.Types[expr]; ok && tv.Value != nil {
			return lattice.ConstOf(tv.Value)
		}
	}
	switch x := expr.(type) {
	case *ast.BasicLit:
		return lattice.ConstOf(constant.MakeFromLiteral(x.Value, x.Kind, 0))
	case *ast.Ident:
		return e.ident(x, s)
	case *ast.ParenExpr:
		return e.Eval(x.X, s)
	case *ast.UnaryExpr:
		return unary(x.Op, e.Eval(x.X, s))
	case *ast.BinaryExpr:
		return e.binary(x, s)
	default:
		return domain.Top()
	}
}

func (e *Evaluator) ident(id *ast.Ident, s State) lattice.Const {
	if e.Locals.Tracked(id.Name) {
		return lattice.Get[lattice.Const](domain, s, id.Name)
	}
	if e.Locals.Declared(id.Name) {
		return domain.Top()
	}
	if e.Pkg != nil {
		if c, ok := e.Pkg.Scope().Lookup(id.Name).(*types.Const); ok {
			return lattice.ConstOf(c.Val())
		}
	}
	if c, ok := types.Universe.Lookup(id.Name).(*types.Const); ok {
		return lattice.ConstOf(c.Val())
	}
	return domain.Top()
}

func unary(op token.Token, c lattice.Const) lattice.Const {
	x, ok := c.Value()
	if !ok {
		return c
	}
	switch {
	case op == token.NOT && x.Kind() == constant.Bool,
		(op == token.ADD || op == token.SUB) && isNumeric(x),
		op == token.XOR && x.Kind() == constant.Int:
		return lattice.ConstOf(constant.UnaryOp(op, x, 0))
	}
	return domain.Top()
}

func (e *Evaluator) binary(b *ast.BinaryExpr, s State) lattice.Const {
	left := e.Eval(b.X, s)
	if x, ok := left.Value(); ok && x.Kind() == constant.Bool {
		// Short-circuit: the right operand does not matter.
		if b.Op == token.LAND && !constant.BoolVal(x) || b.Op == token.LOR && constant.BoolVal(x) {
			return left
		}
	}
	return Fold(b.Op, left, e.Eval(b.Y, s))
}

// Fold applies a binary operator to two constants. Operations that would
// panic or are not defined for the operand kinds yield Top.
func Fold(op token.Token, left, right lattice.Const) lattice.Const {
	x, okx := left.Value()
	y, oky := right.Value()
	if !okx || !oky || !lattice.Comparable(x, y) {
		return domain.Top()
	}

	switch op {
	case token.EQL, token.NEQ:
		return lattice.ConstOf(constant.MakeBool(constant.Compare(x, op, y)))
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		if x.Kind() == constant.Bool || x.Kind() == constant.Complex || y.Kind() == constant.Complex {
			return domain.Top()
		}
		return lattice.ConstOf(constant.MakeBool(constant.Compare(x, op, y)))
	case token.LAND, token.LOR:
		if x.Kind() != constant.Bool {
			return domain.Top()
		}
		return lattice.ConstOf(constant.BinaryOp(x, op, y))
	case token.SHL, token.SHR:
		n, exact := constant.Uint64Val(y)
		if x.Kind() != constant.Int || y.Kind() != constant.Int || !exact || n > maxShift {
			return domain.Top()
		}
		return lattice.ConstOf(constant.Shift(x, op, uint(n)))
	case token.ADD:
		if x.Kind() == constant.Bool {
			return domain.Top()
		}
		return lattice.ConstOf(constant.BinaryOp(x, op, y))
	case token.SUB, token.MUL:
		if !isNumeric(x) {
			return domain.Top()
		}
		return lattice.ConstOf(constant.BinaryOp(x, op, y))
	case token.QUO:
		if !isNumeric(x) || constant.Sign(y) == 0 {
			return domain.Top()
		}
		if x.Kind() == constant.Int && y.Kind() == constant.Int {
			op = token.QUO_ASSIGN
		}
		return lattice.ConstOf(constant.BinaryOp(x, op, y))
	case token.REM, token.AND, token.OR, token.XOR, token.AND_NOT:
		if x.Kind() != constant.Int || y.Kind() != constant.Int || op == token.REM && constant.Sign(y) == 0 {
			return domain.Top()
		}
		return lattice.ConstOf(constant.BinaryOp(x, op, y))
	default:
		return domain.Top()
	}
}

func isNumeric(v constant.Value) bool {
	switch v.Kind() {
	case constant.Int, constant.Float, constant.Complex:
		return true
	default:
		return false
	}
}

// AsBool returns the boolean value of c, if c is a known boolean.
func AsBool(c lattice.Const) (value bool, ok bool) {
	v, known := c.Value()
	if !known || v.Kind() != constant.Bool {
		return false, false
	}
	return constant.BoolVal(v), true
}
