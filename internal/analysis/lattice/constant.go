package lattice

import (
	"go/constant"
	"go/token"
)

type constKind uint8

const (
	constBottom constKind = iota
	constValue
	constTop
)

// Const is an element of the flat constant lattice: Bottom, one known
// go/constant value, or Top.
type Const struct {
	kind  constKind
	value constant.Value
}

// ConstOf lifts v. A nil or unknown value is Top.
func ConstOf(v constant.Value) Const {
	if v == nil || v.Kind() == constant.Unknown {
		return Const{kind: constTop}
	}
	return Const{kind: constValue, value: v}
}

// Value returns the known value, if any.
func (c Const) Value() (constant.Value, bool) {
	return c.value, c.kind == constValue
}

func (c Const) String() string {
	switch c.kind {
	case constBottom:
		return "Bottom"
	case constTop:
		return "Top"
	default:
		return c.value.ExactString()
	}
}

// Constants is the Lattice of Const.
type Constants struct{}

func (Constants) Top() Const    { return Const{kind: constTop} }
func (Constants) Bottom() Const { return Const{kind: constBottom} }

func (Constants) Equal(a, b Const) bool {
	if a.kind != b.kind {
		return false
	}
	return a.kind != constValue || SameConstant(a.value, b.value)
}

func (c Constants) Join(a, b Const) Const {
	switch {
	case a.kind == constBottom:
		return b
	case b.kind == constBottom:
		return a
	case c.Equal(a, b):
		return a
	default:
		return c.Top()
	}
}

func (c Constants) Meet(a, b Const) Const {
	switch {
	case a.kind == constTop:
		return b
	case b.kind == constTop:
		return a
	case c.Equal(a, b):
		return a
	default:
		return c.Bottom()
	}
}

// SameConstant reports whether x and y denote the same value. Values of
// unrelated kinds are never equal.
func SameConstant(x, y constant.Value) bool {
	if !Comparable(x, y) {
		return false
	}
	return constant.Compare(x, token.EQL, y)
}

// Comparable reports whether constant.Compare accepts x and y.
func Comparable(x, y constant.Value) bool {
	if x == nil || y == nil {
		return false
	}
	kx, ky := x.Kind(), y.Kind()
	if kx == constant.Unknown || ky == constant.Unknown {
		return false
	}
	return kx == ky || (isNumeric(kx) && isNumeric(ky))
}

func isNumeric(k constant.Kind) bool {
	return k == constant.Int || k == constant.Float || k == constant.Complex
}
