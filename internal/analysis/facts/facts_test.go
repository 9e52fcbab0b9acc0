package facts

import (
	"go/ast"
	"go/parser"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/proof"
)

// table answers atoms by their source text.
type table map[string]proof.Outcome

func (t table) IsTrue(_ dataflow.Point, e ast.Expr) proof.Outcome {
	if o, ok := t[exprString(e)]; ok {
		return o
	}
	return proof.Top
}

func exprString(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return "?"
}

type mockQuery struct {
	mock.Mock
}

func (m *mockQuery) IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome {
	return m.Called(p, e).Get(0).(proof.Outcome)
}

func parse(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err)
	return e
}

func TestComposedFirstDecidedAnswerWins(t *testing.T) {
	t.Parallel()
	first := table{"a": proof.Top, "b": proof.False}
	second := table{"a": proof.True, "b": proof.True}
	q := NewComposed(nil, first, second)

	var p dataflow.Point
	assert.Equal(t, proof.True, q.IsTrue(p, parse(t, "a")))
	assert.Equal(t, proof.False, q.IsTrue(p, parse(t, "b")))
	assert.Equal(t, proof.Top, q.IsTrue(p, parse(t, "c")))
	assert.Equal(t, 2, q.Len())
}

func TestComposedConnectives(t *testing.T) {
	t.Parallel()
	q := NewComposed(nil, table{"t": proof.True, "f": proof.False})
	var p dataflow.Point
	tests := []struct {
		src  string
		want proof.Outcome
	}{
		{"t && t", proof.True},
		{"t && u", proof.Top},
		{"u && f", proof.False},
		{"f || u", proof.Top},
		{"u || t", proof.True},
		{"!(f || f)", proof.True},
		{"!u", proof.Top},
		{"(t)", proof.True},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, q.IsTrue(p, parse(t, tt.src)), tt.src)
	}
}

func TestComposedShortCircuits(t *testing.T) {
	t.Parallel()
	m := &mockQuery{}
	a := parse(t, "a && b").(*ast.BinaryExpr)
	var p dataflow.Point
	m.On("IsTrue", p, a.X).Return(proof.False).Once()

	q := NewComposed(nil, m)
	assert.Equal(t, proof.False, q.IsTrue(p, a))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "IsTrue", p, a.Y)
}

// assuming records the assumptions it is asked under and decides b only
// when there is at least one.
type assuming struct {
	seen [][]string
}

func (a *assuming) IsTrue(dataflow.Point, ast.Expr) proof.Outcome { return proof.Top }

func (a *assuming) IsTrueAssuming(_ dataflow.Point, assumed []ast.Expr, e ast.Expr) proof.Outcome {
	var names []string
	for _, x := range assumed {
		names = append(names, types.ExprString(x))
	}
	a.seen = append(a.seen, names)
	if exprString(e) == "b" {
		return proof.True
	}
	return proof.Top
}

func TestComposedAssumesLeftOperand(t *testing.T) {
	t.Parallel()
	var p dataflow.Point
	tests := []struct {
		src  string
		want proof.Outcome
		seen [][]string
	}{
		{"a && b", proof.Top, [][]string{{"a"}}},
		{"a || b", proof.True, [][]string{{"!(a)"}}},
		{"a && (c || b)", proof.Top, [][]string{{"a"}, {"a", "!(c)"}}},
		{"b", proof.Top, nil},
	}
	for _, tt := range tests {
		a := &assuming{}
		q := NewComposed(nil, a)
		assert.Equal(t, tt.want, q.IsTrue(p, parse(t, tt.src)), tt.src)
		assert.Equal(t, tt.seen, a.seen, tt.src)
	}
}

func TestComposedUnreachable(t *testing.T) {
	t.Parallel()
	m := &mockQuery{}
	q := NewComposed(func(dataflow.Point) bool { return true }, m)
	assert.Equal(t, proof.Bottom, q.IsTrue(dataflow.Point{}, parse(t, "a")))
	m.AssertNotCalled(t, "IsTrue", mock.Anything, mock.Anything)
}

func TestUnknown(t *testing.T) {
	t.Parallel()
	assert.Equal(t, proof.Top, Unknown.IsTrue(dataflow.Point{}, parse(t, "true")))
	q := NewComposed(nil, Unknown, QueryFunc(func(dataflow.Point, ast.Expr) proof.Outcome { return proof.False }))
	assert.Equal(t, proof.False, q.IsTrue(dataflow.Point{}, parse(t, "x")))
}
