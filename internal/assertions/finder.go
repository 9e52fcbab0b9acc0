// Package assertions finds the explicit assertions of a function body:
// //contract:assert directives, the preconditions of the functions it
// calls, its own postconditions and the invariant of its receiver.
package assertions

import (
	"go/ast"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/gnolang/tverify/internal/analysis"
	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/contracts"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/subroutine"
)

// ResultName denotes the single unnamed result in postconditions.
const ResultName = driver.ResultName

// AssertionSource lists the //contract:assert directives of a function.
type AssertionSource interface {
	Assertions(m *types.Func) []contracts.Assertion
}

type Finder struct {
	source AssertionSource
}

func NewFinder(source AssertionSource) *Finder {
	return &Finder{source: source}
}

// Validate checks every explicit assertion of the driver's function
// against q, in source order.
func (f *Finder) Validate(d *driver.Driver, q facts.Query, sink analysis.Sink) error {
	obligations := f.Find(d)
	for _, o := range obligations {
		if err := d.Timeout.CheckTimeOut("explicit assertions"); err != nil {
			return err
		}
		analysis.Validate(q, sink, o)
	}
	return nil
}

// Find collects the explicit obligations of the driver's function.
func (f *Finder) Find(d *driver.Driver) []analysis.Obligation {
	var out []analysis.Obligation
	out = append(out, f.asserts(d)...)
	out = append(out, callPreconditions(d)...)
	out = append(out, postconditions(d)...)
	out = append(out, invariants(d)...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out
}

func (f *Finder) asserts(d *driver.Driver) []analysis.Obligation {
	if f.source == nil {
		return nil
	}
	var out []analysis.Obligation
	for _, a := range f.source.Assertions(d.Method) {
		p := dataflow.Before(a.Stmt)
		if a.After {
			p = dataflow.After(a.Stmt)
		}
		out = append(out, analysis.Obligation{
			Point:      p,
			Pos:        a.Clause.Pos,
			Provenance: "assertion",
			Cond:       d.BindSelf(a.Clause.Expr),
		})
	}
	return out
}

// callPreconditions instantiates the preconditions of every statically
// known callee of the package at its call sites.
func callPreconditions(d *driver.Driver) []analysis.Obligation {
	cache := d.Contracts()
	if cache == nil {
		return nil
	}
	info := d.Info()
	var out []analysis.Obligation
	d.InspectGuarded([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, at ast.Stmt, guards []ast.Expr) {
		call := n.(*ast.CallExpr)
		callee, ok := typeutil.Callee(info, call).(*types.Func)
		if !ok || callee.Pkg() != d.Assembly.Pkg {
			return
		}
		req := cache.Requires(callee)
		if req == nil {
			return
		}
		bindings := callBindings(d, callee, call)
		for _, c := range req.Clauses() {
			out = append(out, analysis.Obligation{
				Point:      dataflow.Before(at),
				Pos:        d.Position(call.Pos()),
				Provenance: "precondition of " + metadata.FullName(callee),
				Cond:       driver.Substitute(driver.Rebind(c, callee), bindings),
				Guards:     guards,
			})
		}
	})
	return out
}

// callBindings maps the parameter and receiver names of callee to the
// argument expressions of call. A method expression such as T.M(recv, a)
// passes the receiver as its first argument.
func callBindings(d *driver.Driver, callee *types.Func, call *ast.CallExpr) map[string]ast.Expr {
	bindings := make(map[string]ast.Expr)
	sig := callee.Type().(*types.Signature)
	args := call.Args
	if sel, ok := astutil.Unparen(call.Fun).(*ast.SelectorExpr); ok && sig.Recv() != nil {
		recv := sel.X
		if s := d.Info().Selections[sel]; s == nil || s.Kind() == types.MethodExpr {
			if len(args) == 0 {
				return bindings
			}
			recv, args = args[0], args[1:]
		}
		bindings[driver.SelfName] = recv
		if name := metadata.ReceiverName(d.Assembly.Decl(callee)); name != "" {
			bindings[name] = recv
		}
	}
	params := sig.Params()
	for i := 0; i < params.Len() && i < len(args); i++ {
		if sig.Variadic() && i == params.Len()-1 {
			break
		}
		if name := params.At(i).Name(); name != "" && name != "_" {
			bindings[name] = args[i]
		}
	}
	return bindings
}

// postconditions checks ensures and model-ensures clauses at every
// return of a function with results, or once at exit otherwise.
func postconditions(d *driver.Driver) []analysis.Obligation {
	cache := d.Contracts()
	if cache == nil {
		return nil
	}
	var clauses []labeled
	clauses = appendClauses(clauses, cache.Ensures(d.Method), "postcondition")
	clauses = appendClauses(clauses, cache.ModelEnsures(d.Method), "model postcondition")
	if len(clauses) == 0 {
		return nil
	}

	results := d.Method.Type().(*types.Signature).Results()
	if results.Len() == 0 {
		return atExit(d, clauses)
	}

	var out []analysis.Obligation
	d.Inspect([]ast.Node{(*ast.ReturnStmt)(nil)}, func(n ast.Node, at ast.Stmt) {
		ret := n.(*ast.ReturnStmt)
		if at != ret {
			return
		}
		bindings := returnBindings(results, ret)
		for _, c := range clauses {
			out = append(out, analysis.Obligation{
				Point:      dataflow.Before(ret),
				Pos:        d.Position(ret.Pos()),
				Provenance: c.provenance,
				Cond:       driver.Substitute(d.Localize(c.clause), bindings),
			})
		}
	})
	return out
}

// returnBindings maps result names, and "result" for a single result, to
// the returned expressions. A bare return binds nothing: named results
// are then ordinary variables.
func returnBindings(results *types.Tuple, ret *ast.ReturnStmt) map[string]ast.Expr {
	bindings := make(map[string]ast.Expr)
	if len(ret.Results) != results.Len() {
		return bindings
	}
	for i, e := range ret.Results {
		if name := results.At(i).Name(); name != "" && name != "_" {
			bindings[name] = e
		}
	}
	if results.Len() == 1 {
		bindings[ResultName] = ret.Results[0]
	}
	return bindings
}

// invariants checks the receiver invariant when the method returns.
func invariants(d *driver.Driver) []analysis.Obligation {
	_, t := d.Receiver()
	clauses := d.ReceiverInvariant()
	if len(clauses) == 0 {
		return nil
	}
	var ls []labeled
	for _, c := range clauses {
		ls = append(ls, labeled{clause: c, provenance: "invariant of " + t.Name()})
	}
	return atExit(d, ls)
}

type labeled struct {
	clause     subroutine.Clause
	provenance string
}

func appendClauses(dst []labeled, s *subroutine.Subroutine, provenance string) []labeled {
	if s == nil {
		return dst
	}
	for _, c := range s.Clauses() {
		dst = append(dst, labeled{clause: c, provenance: provenance})
	}
	return dst
}

func atExit(d *driver.Driver, clauses []labeled) []analysis.Obligation {
	pos := d.Position(d.Decl.Body.Rbrace)
	out := make([]analysis.Obligation, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, analysis.Obligation{
			Point:      dataflow.Before(d.CFG.Exit),
			Pos:        pos,
			Provenance: c.provenance,
			Cond:       d.Localize(c.clause),
		})
	}
	return out
}
