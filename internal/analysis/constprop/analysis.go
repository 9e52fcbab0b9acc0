package constprop

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/tverify/internal/analysis/cfg"
	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/lattice"
	"github.com/gnolang/tverify/internal/proof"
	"github.com/gnolang/tverify/internal/timeout"
)

// Result is the fixpoint of constant propagation over one function. It
// doubles as the constant fact provider.
type Result struct {
	*dataflow.Result[lattice.Const]
	eval *Evaluator
}

// Analyze propagates constants through g. Every assumption is taken to
// hold on entry; contradicting assumptions make the function unreachable.
func Analyze(g *cfg.CFG, e *Evaluator, assumptions []ast.Expr, tc *timeout.Checker) (*Result, error) {
	entry := State{}
	for _, a := range assumptions {
		entry = e.Refine(a, true, entry)
	}
	res, err := dataflow.Solve(g, dataflow.Analysis[lattice.Const]{
		Lattice:  domain,
		Entry:    entry,
		Transfer: e.Transfer,
		Refine:   e.Refine,
	}, tc)
	if err != nil {
		return nil, err
	}
	return &Result{Result: res, eval: e}, nil
}

// IsUnreachable reports whether no execution reaches p.
func (r *Result) IsUnreachable(p dataflow.Point) bool { return r.At(p) == nil }

// IsTrue evaluates expr at p.
func (r *Result) IsTrue(p dataflow.Point, expr ast.Expr) proof.Outcome {
	s := r.At(p)
	if s == nil {
		return proof.Bottom
	}
	if b, ok := AsBool(r.eval.Eval(expr, s)); ok {
		return proof.FromBool(b)
	}
	return proof.Top
}

// Transfer computes the constants after s.
func (e *Evaluator) Transfer(s ast.Stmt, in State) State {
	switch s := s.(type) {
	case *ast.AssignStmt:
		return e.assign(s, in)
	case *ast.IncDecStmt:
		op := token.ADD
		if s.Tok == token.DEC {
			op = token.SUB
		}
		one := &ast.BasicLit{Kind: token.INT, Value: "1"}
		return e.bind(in, s.X, e.Eval(&ast.BinaryExpr{X: s.X, Op: op, Y: one}, in))
	case *ast.DeclStmt:
		return e.decl(s, in)
	case *ast.RangeStmt:
		out := e.bind(in, s.Key, domain.Top())
		return e.bind(out, s.Value, domain.Top())
	default:
		return in
	}
}

func (e *Evaluator) assign(s *ast.AssignStmt, in State) State {
	switch s.Tok {
	case token.ASSIGN, token.DEFINE:
		if len(s.Lhs) != len(s.Rhs) {
			out := in
			for _, lhs := range s.Lhs {
				out = e.bind(out, lhs, domain.Top())
			}
			return out
		}
		// All right-hand sides are evaluated before any assignment.
		values := make([]lattice.Const, len(s.Rhs))
		for i, rhs := range s.Rhs {
			values[i] = e.Eval(rhs, in)
		}
		out := in
		for i, lhs := range s.Lhs {
			out = e.bind(out, lhs, values[i])
		}
		return out
	default:
		if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
			return in
		}
		op := opFromAssign(s.Tok)
		return e.bind(in, s.Lhs[0], e.Eval(&ast.BinaryExpr{X: s.Lhs[0], Op: op, Y: s.Rhs[0]}, in))
	}
}

func (e *Evaluator) decl(s *ast.DeclStmt, in State) State {
	gen, ok := s.Decl.(*ast.GenDecl)
	if !ok || gen.Tok != token.VAR {
		return in
	}
	out := in
	for _, spec := range gen.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			v := domain.Top()
			switch {
			case len(vs.Values) == len(vs.Names):
				v = e.Eval(vs.Values[i], in)
			case len(vs.Values) == 0:
				v = e.zeroValue(name.Name)
			}
			out = e.bind(out, name, v)
		}
	}
	return out
}

func (e *Evaluator) zeroValue(name string) lattice.Const {
	v, ok := e.Locals.Lookup(name)
	if !ok {
		return domain.Top()
	}
	basic, ok := v.Type().Underlying().(*types.Basic)
	if !ok {
		return domain.Top()
	}
	info := basic.Info()
	switch {
	case info&types.IsBoolean != 0:
		return lattice.ConstOf(constant.MakeBool(false))
	case info&types.IsString != 0:
		return lattice.ConstOf(constant.MakeString(""))
	case info&types.IsNumeric != 0:
		return lattice.ConstOf(constant.MakeInt64(0))
	default:
		return domain.Top()
	}
}

// bind assigns v to target when target is a tracked variable. The input
// state is never modified.
func (e *Evaluator) bind(in State, target ast.Expr, v lattice.Const) State {
	id, ok := target.(*ast.Ident)
	if !ok || !e.Locals.Tracked(id.Name) {
		return in
	}
	if domain.Equal(lattice.Get[lattice.Const](domain, in, id.Name), v) {
		return in
	}
	out := lattice.Clone(in)
	lattice.Set[lattice.Const](domain, out, id.Name, v)
	return out
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
	case token.AND_ASSIGN:
		return token.AND
	case token.OR_ASSIGN:
		return token.OR
	case token.XOR_ASSIGN:
		return token.XOR
	case token.SHL_ASSIGN:
		return token.SHL
	case token.SHR_ASSIGN:
		return token.SHR
	case token.AND_NOT_ASSIGN:
		return token.AND_NOT
	default:
		return token.ILLEGAL
	}
}

// Refine narrows s assuming cond evaluates to taken. A condition whose
// constant value contradicts taken prunes the edge.
func (e *Evaluator) Refine(cond ast.Expr, taken bool, s State) State {
	return dataflow.RefineCond(cond, taken, s, e.refineAtom)
}

func (e *Evaluator) refineAtom(cond ast.Expr, taken bool, s State) State {
	if b, ok := AsBool(e.Eval(cond, s)); ok {
		if b != taken {
			return nil
		}
		return s
	}
	switch c := astutil.Unparen(cond).(type) {
	case *ast.Ident:
		if e.Locals.Tracked(c.Name) {
			return lattice.Refine[lattice.Const](domain, s, c.Name, lattice.ConstOf(constant.MakeBool(taken)))
		}
	case *ast.BinaryExpr:
		if c.Op == token.EQL && taken || c.Op == token.NEQ && !taken {
			s = e.refineEqual(c.X, c.Y, s)
			return e.refineEqual(c.Y, c.X, s)
		}
	}
	return s
}

// refineEqual records that the tracked variable x equals the constant y.
func (e *Evaluator) refineEqual(x, y ast.Expr, s State) State {
	id, ok := astutil.Unparen(x).(*ast.Ident)
	if !ok || s == nil || !e.Locals.Tracked(id.Name) {
		return s
	}
	v := e.Eval(y, s)
	if _, known := v.Value(); !known {
		return s
	}
	return lattice.Refine[lattice.Const](domain, s, id.Name, v)
}
