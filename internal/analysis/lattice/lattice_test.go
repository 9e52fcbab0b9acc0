package lattice

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want ValueKind
	}{
		{Bottom, Zero, Zero},
		{NonZero, Bottom, NonZero},
		{Zero, Zero, Zero},
		{Zero, NonZero, MaybeZero},
		{MaybeZero, NonZero, MaybeZero},
		{Top, Zero, Top},
		{MaybeZero, Top, Top},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinKind(tt.a, tt.b), "%s join %s", tt.a, tt.b)
		assert.Equal(t, tt.want, JoinKind(tt.b, tt.a), "%s join %s", tt.b, tt.a)
	}
}

func TestMeetKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want ValueKind
	}{
		{Top, Zero, Zero},
		{MaybeZero, NonZero, NonZero},
		{MaybeZero, Top, MaybeZero},
		{Zero, NonZero, Bottom},
		{Bottom, Top, Bottom},
		{MaybeZero, Bottom, Bottom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MeetKind(tt.a, tt.b), "%s meet %s", tt.a, tt.b)
		assert.Equal(t, tt.want, MeetKind(tt.b, tt.a), "%s meet %s", tt.b, tt.a)
	}
}

func TestStateHelpers(t *testing.T) {
	t.Parallel()
	var l Zeroness

	assert.Equal(t, Bottom, Get[ValueKind](l, nil, "x"))

	s := State[ValueKind]{}
	assert.Equal(t, Top, Get[ValueKind](l, s, "x"))
	Set[ValueKind](l, s, "x", Zero)
	assert.Equal(t, Zero, Get[ValueKind](l, s, "x"))
	Set[ValueKind](l, s, "x", Top)
	assert.NotContains(t, s, "x")

	a := State[ValueKind]{"x": Zero, "y": NonZero, "z": Zero}
	b := State[ValueKind]{"x": NonZero, "y": NonZero}
	joined := Join[ValueKind](l, a, b)
	assert.Equal(t, State[ValueKind]{"x": MaybeZero, "y": NonZero}, joined)

	assert.Equal(t, a, Join[ValueKind](l, a, nil))
	assert.Nil(t, Join[ValueKind](l, nil, nil))

	assert.True(t, Equal[ValueKind](l, nil, nil))
	assert.False(t, Equal[ValueKind](l, State[ValueKind]{}, nil))
	assert.True(t, Equal[ValueKind](l, Clone(a), a))
	assert.False(t, Equal[ValueKind](l, a, b))
}

func TestRefine(t *testing.T) {
	t.Parallel()
	var l Zeroness
	s := State[ValueKind]{"x": MaybeZero}

	refined := Refine[ValueKind](l, s, "x", NonZero)
	assert.Equal(t, NonZero, refined["x"])
	assert.Equal(t, MaybeZero, s["x"], "input state must not change")

	unchanged := Refine[ValueKind](l, s, "x", MaybeZero)
	assert.Equal(t, s, unchanged)

	assert.Nil(t, Refine[ValueKind](l, refined, "x", Zero))
	assert.Nil(t, Refine[ValueKind](l, nil, "x", Zero))
}

func TestConstants(t *testing.T) {
	t.Parallel()
	var l Constants
	one := ConstOf(constant.MakeInt64(1))
	oneFloat := ConstOf(constant.MakeFloat64(1))
	two := ConstOf(constant.MakeInt64(2))
	str := ConstOf(constant.MakeString("1"))

	assert.True(t, l.Equal(one, oneFloat))
	assert.False(t, l.Equal(one, str))
	assert.Equal(t, l.Top(), ConstOf(nil))
	assert.Equal(t, l.Top(), ConstOf(constant.MakeUnknown()))

	assert.Equal(t, one, l.Join(one, l.Bottom()))
	assert.Equal(t, l.Top(), l.Join(one, two))
	assert.True(t, l.Equal(one, l.Join(one, oneFloat)))

	assert.Equal(t, two, l.Meet(l.Top(), two))
	assert.Equal(t, l.Bottom(), l.Meet(one, two))
	assert.Equal(t, l.Bottom(), l.Meet(one, str))

	v, ok := two.Value()
	require.True(t, ok)
	assert.Equal(t, "2", v.ExactString())
	_, ok = l.Top().Value()
	assert.False(t, ok)

	assert.Equal(t, "2", two.String())
	assert.Equal(t, "Top", l.Top().String())
	assert.Equal(t, "Bottom", l.Bottom().String())
}

func TestZeroComparison(t *testing.T) {
	t.Parallel()
	isZero := func(e ast.Expr) bool {
		lit, ok := e.(*ast.BasicLit)
		return ok && lit.Value == "0"
	}
	tests := []struct {
		src  string
		name string
		op   token.Token
		ok   bool
	}{
		{"x != 0", "x", token.NEQ, true},
		{"(0 == y)", "y", token.EQL, true},
		{"0 < z", "z", token.GTR, true},
		{"0 >= z", "z", token.LEQ, true},
		{"x != 1", "", token.ILLEGAL, false},
		{"x.f != 0", "", token.ILLEGAL, false},
	}
	for _, tt := range tests {
		expr, err := parser.ParseExpr(tt.src)
		require.NoError(t, err)
		name, op, ok := ZeroComparison(expr, isZero)
		assert.Equal(t, tt.ok, ok, tt.src)
		assert.Equal(t, tt.name, name, tt.src)
		assert.Equal(t, tt.op, op, tt.src)
	}
}

func TestComparisonConstraint(t *testing.T) {
	t.Parallel()
	v, ok := ComparisonConstraint(token.NEQ, true)
	assert.True(t, ok)
	assert.Equal(t, NonZero, v)
	v, _ = ComparisonConstraint(token.EQL, true)
	assert.Equal(t, Zero, v)
	v, _ = ComparisonConstraint(token.GTR, false)
	assert.Equal(t, MaybeZero, v)
	v, _ = ComparisonConstraint(token.GEQ, false)
	assert.Equal(t, NonZero, v)
	_, ok = ComparisonConstraint(token.ADD, true)
	assert.False(t, ok)

	res, ok := DecideComparison(token.NEQ, NonZero)
	assert.True(t, ok)
	assert.True(t, res)
	res, ok = DecideComparison(token.NEQ, Zero)
	assert.True(t, ok)
	assert.False(t, res)
	_, ok = DecideComparison(token.EQL, MaybeZero)
	assert.False(t, ok)
	_, ok = DecideComparison(token.GTR, NonZero)
	assert.False(t, ok)
}
