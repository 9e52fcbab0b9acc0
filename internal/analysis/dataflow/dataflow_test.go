package dataflow

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/analysis/cfg"
	"github.com/gnolang/tverify/internal/analysis/lattice"
	"github.com/gnolang/tverify/internal/timeout"
)

type zeroState = lattice.State[lattice.ValueKind]

func isZeroLit(e ast.Expr) bool {
	lit, ok := e.(*ast.BasicLit)
	return ok && lit.Kind == token.INT && lit.Value == "0"
}

// zeroness is a minimal analysis: literal assignments only.
func zeroness() Analysis[lattice.ValueKind] {
	var l lattice.Zeroness
	atom := func(cond ast.Expr, taken bool, s zeroState) zeroState {
		name, op, ok := lattice.ZeroComparison(cond, isZeroLit)
		if !ok {
			return s
		}
		constraint, ok := lattice.ComparisonConstraint(op, taken)
		if !ok {
			return s
		}
		return lattice.Refine[lattice.ValueKind](l, s, name, constraint)
	}
	return Analysis[lattice.ValueKind]{
		Lattice: l,
		Entry:   zeroState{},
		Transfer: func(s ast.Stmt, in zeroState) zeroState {
			assign, ok := s.(*ast.AssignStmt)
			if !ok {
				return in
			}
			out := lattice.Clone(in)
			for i, lhs := range assign.Lhs {
				id, ok := lhs.(*ast.Ident)
				if !ok {
					continue
				}
				v := lattice.Top
				if lit, ok := assign.Rhs[i].(*ast.BasicLit); ok {
					v = lattice.NonZero
					if isZeroLit(lit) {
						v = lattice.Zero
					}
				}
				lattice.Set[lattice.ValueKind](l, out, id.Name, v)
			}
			return out
		},
		Refine: func(cond ast.Expr, taken bool, s zeroState) zeroState {
			return RefineCond(cond, taken, s, atom)
		},
	}
}

func parseBody(t *testing.T, src string) *ast.FuncDecl {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "src.go", src, 0)
	require.NoError(t, err)
	for _, d := range f.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			return fn
		}
	}
	t.Fatal("no function")
	return nil
}

func TestSolveStraightLine(t *testing.T) {
	t.Parallel()
	fn := parseBody(t, `package p
func f() {
	x := 0
	y := 1
	x = 2
}`)
	res, err := Solve(cfg.FromFunc(fn), zeroness(), nil)
	require.NoError(t, err)

	body := fn.Body.List
	assert.Empty(t, res.At(Before(body[0])))
	assert.Equal(t, zeroState{"x": lattice.Zero}, res.At(After(body[0])))
	assert.Equal(t, zeroState{"x": lattice.Zero, "y": lattice.NonZero}, res.In(body[2]))
	assert.Equal(t, zeroState{"x": lattice.NonZero, "y": lattice.NonZero}, res.Out(body[2]))
	assert.Positive(t, res.Iterations())
}

func TestSolvePrunesInfeasibleBranches(t *testing.T) {
	t.Parallel()
	fn := parseBody(t, `package p
func f() {
	x := 0
	if x != 0 {
		x = 1
	}
	if x == 0 && y != 0 {
		y = 0
	}
	if !(x == 0) {
		x = 3
	}
}`)
	res, err := Solve(cfg.FromFunc(fn), zeroness(), nil)
	require.NoError(t, err)

	body := fn.Body.List
	dead := body[1].(*ast.IfStmt).Body.List[0]
	assert.Nil(t, res.At(Before(dead)))

	live := body[2].(*ast.IfStmt).Body.List[0]
	assert.Equal(t, zeroState{"x": lattice.Zero, "y": lattice.NonZero}, res.At(Before(live)))

	negated := body[3].(*ast.IfStmt).Body.List[0]
	assert.Nil(t, res.At(Before(negated)))
}

func TestSolveJoinsLoops(t *testing.T) {
	t.Parallel()
	fn := parseBody(t, `package p
func f() {
	x := 0
	for {
		if x == 0 {
			x = 1
		}
	}
}`)
	g := cfg.FromFunc(fn)
	res, err := Solve(g, zeroness(), nil)
	require.NoError(t, err)

	loop := fn.Body.List[1]
	assert.Equal(t, zeroState{"x": lattice.MaybeZero}, res.In(loop))
	// An infinite loop never reaches the exit.
	assert.Nil(t, res.In(g.Exit))
}

func TestSolveUnreachableEntry(t *testing.T) {
	t.Parallel()
	fn := parseBody(t, `package p
func f() { x := 0 }`)
	a := zeroness()
	a.Entry = nil
	res, err := Solve(cfg.FromFunc(fn), a, nil)
	require.NoError(t, err)
	assert.Nil(t, res.At(After(fn.Body.List[0])))
}

func TestSolveTimesOut(t *testing.T) {
	t.Parallel()
	fn := parseBody(t, `package p
func f() { x := 0 }`)
	tc := timeout.New(time.Nanosecond, true)
	time.Sleep(time.Millisecond)

	_, err := Solve(cfg.FromFunc(fn), zeroness(), tc)
	require.ErrorIs(t, err, timeout.ErrTimedOut)

	_, again := Solve(cfg.FromFunc(fn), zeroness(), tc)
	assert.Same(t, err, again)
}

func TestRefineCondShortCircuit(t *testing.T) {
	t.Parallel()
	var seen []string
	atom := func(cond ast.Expr, taken bool, s zeroState) zeroState {
		seen = append(seen, types.ExprString(cond))
		return s
	}
	tests := []struct {
		src   string
		taken bool
		want  []string
	}{
		{"a && b", true, []string{"a", "b"}},
		{"a && b", false, nil},
		{"a || b", false, []string{"a", "b"}},
		{"a || b", true, nil},
		{"!(a || b)", true, []string{"a", "b"}},
		{"(a)", true, []string{"a"}},
	}
	for _, tt := range tests {
		seen = nil
		expr, err := parser.ParseExpr(tt.src)
		require.NoError(t, err)
		RefineCond(expr, tt.taken, zeroState{}, atom)
		assert.Equal(t, tt.want, seen, tt.src)
	}

	assert.Nil(t, RefineCond(ast.NewIdent("a"), true, zeroState(nil), atom))
}

func TestCollectLocals(t *testing.T) {
	t.Parallel()
	src := `package p

type counter int

func (c *counter) inc() { *c++ }

func f(a, b int, p *int) (r int) {
	x := 1
	_ = x
	y := 2
	_ = &y
	z := 3
	func() { z = 4 }()
	_ = z
	var w counter
	w.inc()
	if a > 0 {
		x := 5
		_ = x
	}
	return a + b
}`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, 0)
	require.NoError(t, err)
	info := &types.Info{
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	_, err = (&types.Config{}).Check("p", fset, []*ast.File{file}, info)
	require.NoError(t, err)

	fn := file.Decls[2].(*ast.FuncDecl)
	locals := CollectLocals(fn, info)
	assert.Equal(t, []string{"a", "b", "p", "r"}, locals.Names())
	v, ok := locals.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, "*int", v.Type().String())
	assert.False(t, locals.Tracked("x"), "declared twice")
	assert.False(t, locals.Tracked("y"), "address taken")
	assert.False(t, locals.Tracked("z"), "assigned in closure")
	assert.False(t, locals.Tracked("w"), "pointer method call")
	assert.True(t, locals.Declared("x"))
	assert.False(t, locals.Declared("counter"))

	assert.Empty(t, CollectLocals(fn, nil).Names())
}
