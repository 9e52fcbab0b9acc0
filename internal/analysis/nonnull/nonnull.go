// Package nonnull tracks whether local pointers may be nil and requires
// every dereference to happen on a non-nil pointer.
package nonnull

import (
	"go/ast"
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

func (*Module) Name() string { return "nonnull" }

// deref is one dereference of a tracked pointer.
type deref struct {
	name   string
	node   ast.Node
	at     ast.Stmt
	guards []ast.Expr
}

type tracker struct {
	d        *driver.Driver
	pointers map[string]bool
	byStmt   map[ast.Stmt][]string
}

func (m *Module) Analyze(_ string, d *driver.Driver) (analysis.MethodResult, error) {
	t := &tracker{d: d, pointers: make(map[string]bool), byStmt: make(map[ast.Stmt][]string)}
	for _, name := range d.Locals.Names() {
		v, _ := d.Locals.Lookup(name)
		if _, ok := v.Type().Underlying().(*types.Pointer); ok {
			t.pointers[name] = true
		}
	}

	// Only unguarded dereferences prove their pointer non-nil afterwards.
	found := t.findDerefs()
	for _, f := range found {
		if len(f.guards) == 0 {
			t.byStmt[f.at] = append(t.byStmt[f.at], f.name)
		}
	}

	// Methods are assumed to be called on a non-nil receiver.
	entry := state{}
	if recv, _ := d.Receiver(); t.pointers[recv] {
		entry[recv] = lattice.NonZero
	}
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
	return &result{tracker: t, res: res, derefs: found}, nil
}

func (t *tracker) findDerefs() []deref {
	info := t.d.Info()
	var out []deref
	t.d.InspectGuarded([]ast.Node{
		(*ast.SelectorExpr)(nil),
		(*ast.StarExpr)(nil),
		(*ast.IndexExpr)(nil),
	}, func(n ast.Node, at ast.Stmt, guards []ast.Expr) {
		add := func(x ast.Expr, n ast.Node, at ast.Stmt) {
			if id, ok := astutil.Unparen(x).(*ast.Ident); ok && t.pointers[id.Name] {
				out = append(out, deref{name: id.Name, node: n, at: at, guards: guards})
			}
		}
		switch n := n.(type) {
		case *ast.SelectorExpr:
			if sel := info.Selections[n]; sel != nil && dereferences(sel) {
				add(n.X, n, at)
			}
		case *ast.StarExpr:
			add(n.X, n, at)
		case *ast.IndexExpr:
			if tv, ok := info.Types[n.X]; ok {
				if ptr, ok := tv.Type.Underlying().(*types.Pointer); ok {
					if _, ok := ptr.Elem().Underlying().(*types.Array); ok {
						add(n.X, n, at)
					}
				}
			}
		}
	})
	return out
}

// dereferences reports whether evaluating the selection reads through
// its pointer operand: field access and value-receiver method calls do,
// pointer-receiver method calls do not.
func dereferences(sel *types.Selection) bool {
	if _, ok := sel.Recv().Underlying().(*types.Pointer); !ok {
		return false
	}
	switch sel.Kind() {
	case types.FieldVal:
		return true
	case types.MethodVal:
		sig, ok := sel.Obj().Type().(*types.Signature)
		if !ok || sig.Recv() == nil {
			return false
		}
		_, ptrRecv := sig.Recv().Type().(*types.Pointer)
		return !ptrRecv
	default:
		return false
	}
}

func isNil(e ast.Expr) bool {
	id, ok := astutil.Unparen(e).(*ast.Ident)
	return ok && id.Name == "nil"
}

// value is the nil-ness of an expression assigned to a pointer.
func (t *tracker) value(e ast.Expr, s state) lattice.ValueKind {
	switch x := astutil.Unparen(e).(type) {
	case *ast.Ident:
		if x.Name == "nil" {
			return lattice.Zero
		}
		if t.pointers[x.Name] {
			return lattice.Get[lattice.ValueKind](domain, s, x.Name)
		}
	case *ast.UnaryExpr:
		if x.Op == token.AND {
			return lattice.NonZero
		}
	case *ast.CallExpr:
		if id, ok := x.Fun.(*ast.Ident); ok && id.Name == "new" {
			if _, builtin := t.d.Info().Uses[id].(*types.Builtin); builtin {
				return lattice.NonZero
			}
		}
	}
	return lattice.Top
}

func (t *tracker) bind(s state, target ast.Expr, v lattice.ValueKind) state {
	id, ok := target.(*ast.Ident)
	if !ok || !t.pointers[id.Name] {
		return s
	}
	out := lattice.Clone(s)
	lattice.Set[lattice.ValueKind](domain, out, id.Name, v)
	return out
}

func (t *tracker) transfer(stmt ast.Stmt, in state) state {
	// A statement that completes did not dereference nil.
	s := in
	for _, name := range t.byStmt[stmt] {
		s = lattice.Refine[lattice.ValueKind](domain, s, name, lattice.NonZero)
	}
	if s == nil {
		return nil
	}

	switch stmt := stmt.(type) {
	case *ast.AssignStmt:
		if len(stmt.Lhs) != len(stmt.Rhs) {
			for _, lhs := range stmt.Lhs {
				s = t.bind(s, lhs, lattice.Top)
			}
			return s
		}
		values := make([]lattice.ValueKind, len(stmt.Rhs))
		for i, rhs := range stmt.Rhs {
			values[i] = t.value(rhs, s)
		}
		for i, lhs := range stmt.Lhs {
			s = t.bind(s, lhs, values[i])
		}
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
						v = t.value(vs.Values[i], s)
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
		name, op, ok := lattice.ZeroComparison(atom, isNil)
		if !ok || !t.pointers[name] || (op != token.EQL && op != token.NEQ) {
			return s
		}
		constraint, _ := lattice.ComparisonConstraint(op, taken)
		return lattice.Refine[lattice.ValueKind](domain, s, name, constraint)
	})
}

type result struct {
	*tracker
	res    *dataflow.Result[lattice.ValueKind]
	derefs []deref
}

func (r *result) Query() facts.Query { return r }

func (r *result) IsTrue(p dataflow.Point, e ast.Expr) proof.Outcome {
	return r.IsTrueAssuming(p, nil, e)
}

// IsTrueAssuming decides `p != nil` and `p == nil` for tracked pointers.
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
	name, op, ok := lattice.ZeroComparison(e, isNil)
	if !ok || !r.pointers[name] {
		return proof.Top
	}
	if b, ok := lattice.DecideComparison(op, lattice.Get[lattice.ValueKind](domain, s, name)); ok {
		return proof.FromBool(b)
	}
	return proof.Top
}

func (r *result) ValidateImplicitAssertions(q facts.Query, sink analysis.Sink) error {
	for _, d := range r.derefs {
		if err := r.d.Timeout.CheckTimeOut("nonnull obligations"); err != nil {
			return err
		}
		analysis.Validate(q, sink, analysis.Obligation{
			Point:      dataflow.Before(d.at),
			Pos:        r.d.Position(d.node.Pos()),
			Provenance: "dereference of " + d.name,
			Cond:       &ast.BinaryExpr{X: ast.NewIdent(d.name), Op: token.NEQ, Y: ast.NewIdent("nil")},
			Guards:     d.guards,
		})
	}
	return nil
}
