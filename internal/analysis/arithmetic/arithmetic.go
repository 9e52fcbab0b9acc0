// Package arithmetic tracks the zero-ness of integer locals and requires
// every integer division and remainder to have a non-zero divisor.
package arithmetic

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/tverify/internal/analysis"
	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/analysis/lattice"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/proof"
)

type state = lattice.State[lattice.ValueKind]

var domain lattice.Zeroness

type Module struct{}

func New() *Module { return &Module{} }

func (*Module) Name() string { return "arithmetic" }

// division is one integer division or remainder.
type division struct {
	node    ast.Node
	divisor ast.Expr
	op      token.Token
	at      ast.Stmt
	guards  []ast.Expr
}

type tracker struct {
	d        *driver.Driver
	integers map[string]bool
	// divisors holds the tracked divisors of each CFG node.
	divisors map[ast.Stmt][]string
}

func (m *Module) Analyze(_ string, d *driver.Driver) (analysis.MethodResult, error) {
	t := &tracker{d: d, integers: make(map[string]bool), divisors: make(map[ast.Stmt][]string)}
	for _, name := range d.Locals.Names() {
		v, _ := d.Locals.Lookup(name)
		if isInteger(v.Type()) {
			t.integers[name] = true
		}
	}

	divs := t.findDivisions()
	for _, div := range divs {
		if len(div.guards) > 0 {
			continue
		}
		if id, ok := astutil.Unparen(div.divisor).(*ast.Ident); ok && t.integers[id.Name] {
			t.divisors[div.at] = append(t.divisors[div.at], id.Name)
		}
	}

	entry := state{}
	for _, a := range d.Assumptions() {
		entry = t.refine(a, true, entry)
	}
	res, err := dataflow.Solve(d.CFG, dataflow.Analysis[lattice.ValueKind]{
		Lattice:  domain,
		Entry:    entry,
		Transfer: t.transfer,
		Refine:   t.refine,
	}, d.Timeout)
	if err != nil {
		return nil, err
	}
	return &result{tracker: t, res: res, divisions: divs}, nil
}

func isInteger(typ types.Type) bool {
	if typ == nil {
		return false
	}
	b, ok := typ.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func (t *tracker) findDivisions() []division {
	info := t.d.Info()
	var out []division
	t.d.InspectGuarded([]ast.Node{
		(*ast.BinaryExpr)(nil),
		(*ast.AssignStmt)(nil),
	}, func(n ast.Node, at ast.Stmt, guards []ast.Expr) {
		switch n := n.(type) {
		case *ast.BinaryExpr:
			if (n.Op == token.QUO || n.Op == token.REM) && isInteger(info.TypeOf(n)) {
				out = append(out, division{node: n, divisor: n.Y, op: n.Op, at: at, guards: guards})
			}
		case *ast.AssignStmt:
			if (n.Tok == token.QUO_ASSIGN || n.Tok == token.REM_ASSIGN) && len(n.Lhs) == 1 && isInteger(info.TypeOf(n.Lhs[0])) {
				out = append(out, division{node: n, divisor: n.Rhs[0], op: n.Tok, at: at, guards: guards})
			}
		}
	})
	return out
}

func isZeroLiteral(e ast.Expr) bool {
	switch x := astutil.Unparen(e).(type) {
	case *ast.BasicLit:
		if x.Kind != token.INT && x.Kind != token.FLOAT {
			return false
		}
		v := constant.MakeFromLiteral(x.Value, x.Kind, 0)
		return v.Kind() != constant.Unknown && constant.Sign(v) == 0
	case *ast.UnaryExpr:
		if x.Op == token.ADD || x.Op == token.SUB {
			return isZeroLiteral(x.X)
		}
	}
	return false
}

// eval computes the zero-ness of an integer expression.
func (t *tracker) eval(e ast.Expr, s state) lattice.ValueKind {
	if s == nil {
		return lattice.Bottom
	}
	if tv, ok := t.d.Info().Types[e]; ok && tv.Value != nil {
		return signOf(tv.Value)
	}
	switch x := e.(type) {
	case *ast.Ident:
		if t.integers[x.Name] {
			return lattice.Get[lattice.ValueKind](domain, s, x.Name)
		}
	case *ast.BasicLit:
		if x.Kind == token.INT || x.Kind == token.FLOAT || x.Kind == token.CHAR {
			return signOf(constant.MakeFromLiteral(x.Value, x.Kind, 0))
		}
	case *ast.ParenExpr:
		return t.eval(x.X, s)
	case *ast.UnaryExpr:
		if x.Op == token.ADD || x.Op == token.SUB {
			return t.eval(x.X, s)
		}
	case *ast.BinaryExpr:
		return combineBinary(x.Op, t.eval(x.X, s), t.eval(x.Y, s))
	}
	return lattice.Top
}

func signOf(v constant.Value) lattice.ValueKind {
	switch v.Kind() {
	case constant.Int, constant.Float:
		if constant.Sign(v) == 0 {
			return lattice.Zero
		}
		return lattice.NonZero
	default:
		return lattice.Top
	}
}

func combineBinary(op token.Token, lhs, rhs lattice.ValueKind) lattice.ValueKind {
	switch {
	case lhs == lattice.Bottom || rhs == lattice.Bottom:
		return lattice.Bottom
	case op == token.MUL && (lhs == lattice.Zero || rhs == lattice.Zero):
		return lattice.Zero
	case lhs == lattice.Top || rhs == lattice.Top:
		return lattice.Top
	}

	switch op {
	case token.MUL:
		if lhs == lattice.NonZero && rhs == lattice.NonZero {
			return lattice.NonZero
		}
	case token.ADD, token.SUB:
		if lhs == lattice.Zero {
			return rhs
		}
		if rhs == lattice.Zero {
			return lhs
		}
	case token.QUO, token.REM:
		if lhs == lattice.Zero && rhs == lattice.NonZero {
			return lattice.Zero
		}
	}
	return lattice.MaybeZero
}

func opFromAssign(tok token.Token) token.Token {
	switch tok {
	case token.ADD_ASSIGN:
		return token.ADD
	case token.SUB_ASSIGN:
		return token.SUB
	case token.MUL_ASSIGN:
		return token.MUL
	case token.QUO_ASSIGN:
		return token.QUO
	case token.REM_ASSIGN:
		return token.REM
	default:
		return token.ILLEGAL
	}
}

func incDecValue(v lattice.ValueKind) lattice.ValueKind {
	switch v {
	case lattice.Zero:
		return lattice.NonZero
	case lattice.NonZero:
		return lattice.MaybeZero
	default:
		return v
	}
}

func (t *tracker) bind(s state, target ast.Expr, v lattice.ValueKind) state {
	id, ok := target.(*ast.Ident)
	if !ok || !t.integers[id.Name] {
		return s
	}
	out := lattice.Clone(s)
	lattice.Set[lattice.ValueKind](domain, out, id.Name, v)
	return out
}

func (t *tracker) transfer(stmt ast.Stmt, in state) state {
	// A statement that completes did not divide by zero.
	s := in
	for _, name := range t.divisors[stmt] {
		s = lattice.Refine[lattice.ValueKind](domain, s, name, lattice.NonZero)
	}
	if s == nil {
		return nil
	}

	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		switch {
		case stmt.Tok == token.ASSIGN || stmt.Tok == token.DEFINE:
			if len(stmt.Lhs) != len(stmt.Rhs) {
				for _, lhs := range stmt.Lhs {
					s = t.bind(s, lhs, lattice.Top)
				}
				return s
			}
			values := make([]lattice.ValueKind, len(stmt.Rhs))
			for i, rhs := range stmt.Rhs {
				values[i] = t.eval(rhs, s)
			}
			for i, lhs := range stmt.Lhs {
				s = t.bind(s, lhs, values[i])
			}
		case len(stmt.Lhs) == 1 && len(stmt.Rhs) == 1:
			op := opFromAssign(stmt.Tok)
			v := lattice.Top
			if op != token.ILLEGAL {
				v = combineBinary(op, t.eval(stmt.Lhs[0], s), t.eval(stmt.Rhs[0], s))
			}
			s = t.bind(s, stmt.Lhs[0], v)
		}
	case *ast.IncDecStmt:
		s = t.bind(s, stmt.X, incDecValue(t.eval(stmt.X, s)))
	case *ast.DeclStmt:
		gen, ok := stmt.Decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			return s
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				v := lattice.Zero
				if len(vs.Values) > 0 {
					v = lattice.Top
					if len(vs.Values) == len(vs.Names) {
						v = t.eval(vs.Values[i], s)
					}
				}
				s = t.bind(s, name, v)
			}
		}
	case *ast.RangeStmt:
		s = t.bind(s, stmt.Key, lattice.Top)
		s = t.bind(s, stmt.Value, lattice.Top)
	}
	return s
}

func (t *tracker) refine(cond ast.Expr, taken bool, s state) state {
	return dataflow.RefineCond(cond, taken, s, func(atom ast.Expr, taken bool, s state) state {
		name, op, ok := lattice.ZeroComparison(atom, isZeroLiteral)
		if !ok || !t.integers[name] {
			return s
		}
		constraint, ok := lattice.ComparisonConstraint(op, taken)
		if !ok {
			return s
		}
		return lattice.Refine[lattice.ValueKind](domain, s, name, constraint)
	})
}

type result struct {
	*tracker
	res       *dataflow.Result[lattice.ValueKind]
	divisions []division
}

func (r *result) Query() facts.Query { return r }

func (r *result) IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome {
	return r.IsTrueAssuming(p, nil, e)
}

// IsTrueAssuming decides `e != 0` and `e == 0` for integer expressions e.
// An assumption that cannot hold at p makes e vacuously true.
func (r *result) IsTrueAssuming(p dataflow.Point, assumed []ast.Expr, e ast.Expr) proof.Outcome {
	s := r.res.At(p)
	if s == nil {
		return proof.Top
	}
	for _, a := range assumed {
		if s = r.refine(a, true, s); s == nil {
			return proof.True
		}
	}
	bin, ok := astutil.Unparen(e).(*ast.BinaryExpr)
	if !ok || (bin.Op != token.EQL && bin.Op != token.NEQ) {
		return proof.Top
	}
	operand := bin.X
	switch {
	case isZeroLiteral(bin.Y):
	case isZeroLiteral(bin.X):
		operand = bin.Y
	default:
		return proof.Top
	}
	if b, ok := lattice.DecideComparison(bin.Op, r.eval(operand, s)); ok {
		return proof.FromBool(b)
	}
	return proof.Top
}

func (r *result) ValidateImplicitAssertions(q facts.Query, sink analysis.Sink) error {
	for _, div := range r.divisions {
		if err := r.d.Timeout.CheckTimeOut("arithmetic obligations"); err != nil {
			return err
		}
		what := "division by "
		if div.op == token.REM || div.op == token.REM_ASSIGN {
			what = "remainder by "
		}
		analysis.Validate(q, sink, analysis.Obligation{
			Point:      dataflow.Before(div.at),
			Pos:        r.d.Position(div.node.Pos()),
			Provenance: what + types.ExprString(div.divisor),
			Cond:       &ast.BinaryExpr{X: div.divisor, Op: token.NEQ, Y: &ast.BasicLit{Kind: token.INT, Value: "0"}},
			Guards:     div.guards,
		})
	}
	return nil
}
