package lattice

import (
	"go/ast"
	"go/token"
)

// ValueKind models the zero-ness lattice. For pointers Zero means nil.
type ValueKind int

const (
	Bottom ValueKind = iota // unreachable
	Zero
	NonZero
	MaybeZero
	Top
)

func (v ValueKind) String() string {
	switch v {
	case Bottom:
		return "Bottom"
	case Zero:
		return "Zero"
	case NonZero:
		return "NonZero"
	case MaybeZero:
		return "MaybeZero"
	case Top:
		return "Top"
	default:
		return "Unknown"
	}
}

// Zeroness is the Lattice of ValueKind.
//
//	     Top
//	      |
//	  MaybeZero
//	   /     \
//	Zero   NonZero
//	   \     /
//	   Bottom
type Zeroness struct{}

func (Zeroness) Top() ValueKind                { return Top }
func (Zeroness) Bottom() ValueKind             { return Bottom }
func (Zeroness) Equal(a, b ValueKind) bool     { return a == b }
func (Zeroness) Join(a, b ValueKind) ValueKind { return JoinKind(a, b) }
func (Zeroness) Meet(a, b ValueKind) ValueKind { return MeetKind(a, b) }

// JoinKind returns the least upper bound of a and b.
func JoinKind(a, b ValueKind) ValueKind {
	switch {
	case a == Bottom:
		return b
	case b == Bottom:
		return a
	case a == b:
		return a
	case a == Top || b == Top:
		return Top
	default:
		// Zero and NonZero, or either one with MaybeZero.
		return MaybeZero
	}
}

// MeetKind returns the greatest lower bound of a and b.
func MeetKind(a, b ValueKind) ValueKind {
	switch {
	case a == b:
		return a
	case a == Top:
		return b
	case b == Top:
		return a
	case a == MaybeZero && b != Bottom:
		return b
	case b == MaybeZero && a != Bottom:
		return a
	default:
		return Bottom
	}
}

// ZeroComparison matches `name op zero` and `zero op name`, where isZero
// recognizes the zero operand. The returned op is oriented so that name is
// on the left.
func ZeroComparison(expr ast.Expr, isZero func(ast.Expr) bool) (string, token.Token, bool) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return ZeroComparison(e.X, isZero)
	case *ast.BinaryExpr:
		if ident, ok := e.X.(*ast.Ident); ok && isZero(e.Y) {
			return ident.Name, e.Op, true
		}
		if ident, ok := e.Y.(*ast.Ident); ok && isZero(e.X) {
			return ident.Name, flipComparison(e.Op), true
		}
	}
	return "", token.ILLEGAL, false
}

func flipComparison(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.GTR:
		return token.LSS
	case token.LEQ:
		return token.GEQ
	case token.GEQ:
		return token.LEQ
	default:
		return op
	}
}

// ComparisonConstraint is what `x op 0` evaluating to taken says about x.
func ComparisonConstraint(op token.Token, taken bool) (ValueKind, bool) {
	switch op {
	case token.NEQ:
		if taken {
			return NonZero, true
		}
		return Zero, true
	case token.EQL:
		if taken {
			return Zero, true
		}
		return NonZero, true
	case token.GTR, token.LSS:
		if taken {
			return NonZero, true
		}
		return MaybeZero, true
	case token.GEQ, token.LEQ:
		if taken {
			return MaybeZero, true
		}
		return NonZero, true
	default:
		return Top, false
	}
}

// DecideComparison answers `x op 0` for a known zero-ness of x. Only
// equality comparisons can be decided; ok is false otherwise.
func DecideComparison(op token.Token, v ValueKind) (result bool, ok bool) {
	var isZero bool
	switch v {
	case Zero:
		isZero = true
	case NonZero:
		isZero = false
	default:
		return false, false
	}
	switch op {
	case token.EQL:
		return isZero, true
	case token.NEQ:
		return !isZero, true
	default:
		return false, false
	}
}
