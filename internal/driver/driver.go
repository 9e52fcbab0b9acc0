// Package driver prepares one function body for analysis: its control
// flow graph, entry assumptions, constant propagation and reachability.
package driver

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/gnolang/tverify/internal/analysis/cfg"
	"github.com/gnolang/tverify/internal/analysis/constprop"
	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/methodcache"
	"github.com/gnolang/tverify/internal/subroutine"
	"github.com/gnolang/tverify/internal/timeout"
)

// SelfName is the identifier contracts use to refer to the receiver.
const SelfName = "self"

// Config carries the collaborators shared by every driver of a run.
type Config struct {
	Meta      *metadata.Decoder
	Contracts *methodcache.MethodCache
	Timeout   *timeout.Checker
	Logger    *zap.Logger
}

// Driver is the per-function analysis context handed to every module.
type Driver struct {
	Method   *types.Func
	FullName string
	Decl     *ast.FuncDecl
	Assembly *metadata.Assembly
	CFG      *cfg.CFG
	Locals   *dataflow.Locals
	Timeout  *timeout.Checker
	Logger   *zap.Logger

	contracts    *methodcache.MethodCache
	receiver     string
	receiverType *types.TypeName
	assumptions  []ast.Expr
	eval         *constprop.Evaluator
	constants    *constprop.Result
	inspector    *inspector.Inspector
}

// New builds the driver of m and runs constant propagation over its body.
func New(conf Config, asm *metadata.Assembly, m *types.Func) (*Driver, error) {
	decl := asm.Decl(m)
	if decl == nil || decl.Body == nil {
		return nil, fmt.Errorf("%s has no body", metadata.FullName(m))
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Driver{
		Method:    m,
		FullName:  metadata.FullName(m),
		Decl:      decl,
		Assembly:  asm,
		CFG:       cfg.FromFunc(decl),
		Locals:    dataflow.CollectLocals(decl, asm.Info),
		Timeout:   conf.Timeout,
		Logger:    logger.With(zap.String("method", metadata.FullName(m))),
		contracts: conf.Contracts,
		inspector: inspector.New([]*ast.File{{Name: ast.NewIdent(asm.Pkg.Name()), Decls: []ast.Decl{decl}}}),
	}
	d.receiver = metadata.ReceiverName(decl)
	if conf.Meta != nil {
		d.receiverType = conf.Meta.ReceiverType(m)
	}
	d.assumptions = d.entryAssumptions()

	d.eval = constprop.NewEvaluator(asm.Info, asm.Pkg, d.Locals)
	consts, err := constprop.Analyze(d.CFG, d.eval, d.assumptions, d.Timeout)
	if err != nil {
		return nil, err
	}
	d.constants = consts
	d.Logger.Debug("constant propagation reached fixpoint",
		zap.Int("nodes", len(d.CFG.Blocks())),
		zap.Int("iterations", consts.Iterations()),
		zap.Int("assumptions", len(d.assumptions)))
	return d, nil
}

// entryAssumptions are the preconditions of the method and, for methods
// with a named receiver, the invariant of the receiver type.
func (d *Driver) entryAssumptions() []ast.Expr {
	if d.contracts == nil {
		return nil
	}
	var out []ast.Expr
	if req := d.contracts.Requires(d.Method); req != nil {
		for _, c := range req.Clauses() {
			out = append(out, d.Localize(c))
		}
	}
	for _, c := range d.ReceiverInvariant() {
		out = append(out, d.Localize(c))
	}
	return out
}

// ReceiverInvariant returns the invariant clauses of the receiver type,
// or nil when the method has no usable receiver.
func (d *Driver) ReceiverInvariant() []subroutine.Clause {
	if d.contracts == nil || d.receiver == "" || d.receiverType == nil {
		return nil
	}
	inv := d.contracts.Invariant(d.receiverType)
	if inv == nil {
		return nil
	}
	return inv.Clauses()
}

// BindSelf replaces self with the receiver name.
func (d *Driver) BindSelf(e ast.Expr) ast.Expr {
	if d.receiver == "" {
		return e
	}
	return Substitute(e, map[string]ast.Expr{SelfName: ast.NewIdent(d.receiver)})
}

// Receiver returns the receiver name and type; both are zero for
// functions and for anonymous receivers.
func (d *Driver) Receiver() (string, *types.TypeName) { return d.receiver, d.receiverType }

// Contracts returns the method cache of the run.
func (d *Driver) Contracts() *methodcache.MethodCache { return d.contracts }

// Assumptions returns the conditions assumed on entry.
func (d *Driver) Assumptions() []ast.Expr { return d.assumptions }

// Info returns the type information of the package.
func (d *Driver) Info() *types.Info { return d.Assembly.Info }

// Position resolves pos against the package file set.
func (d *Driver) Position(pos token.Pos) token.Position { return d.Assembly.Fset.Position(pos) }

// Constants returns the constant-propagation fact provider.
func (d *Driver) Constants() *constprop.Result { return d.constants }

// IsUnreachable reports whether no execution reaches p.
func (d *Driver) IsUnreachable(p dataflow.Point) bool { return d.constants.IsUnreachable(p) }

// Inspect calls fn for every node of the body whose type appears in
// filter, together with the innermost CFG node evaluating it. Function
// literals are not entered.
func (d *Driver) Inspect(filter []ast.Node, fn func(n ast.Node, at ast.Stmt)) {
	d.InspectGuarded(filter, func(n ast.Node, at ast.Stmt, _ []ast.Expr) { fn(n, at) })
}

// InspectGuarded is Inspect that also passes the short-circuit guards of n
// within its statement, outermost first: X when n is in the right operand
// of X && Y, and !(X) when it is in the right operand of X || Y.
func (d *Driver) InspectGuarded(filter []ast.Node, fn func(n ast.Node, at ast.Stmt, guards []ast.Expr)) {
	nodeTypes := append([]ast.Node{(*ast.FuncLit)(nil)}, filter...)
	d.inspector.WithStack(nodeTypes, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		if i := d.enclosingStmt(stack); i >= 0 {
			fn(n, stack[i].(ast.Stmt), guards(stack[i+1:]))
		}
		return true
	})
}

func (d *Driver) enclosingStmt(stack []ast.Node) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if s, ok := stack[i].(ast.Stmt); ok && d.CFG.Contains(s) {
			return i
		}
	}
	return -1
}

// guards collects the conditions under which the last node of path is
// evaluated.
func guards(path []ast.Node) []ast.Expr {
	var out []ast.Expr
	for i := 0; i+1 < len(path); i++ {
		bin, ok := path[i].(*ast.BinaryExpr)
		if !ok || path[i+1] != ast.Node(bin.Y) {
			continue
		}
		switch bin.Op {
		case token.LAND:
			out = append(out, bin.X)
		case token.LOR:
			out = append(out, Not(bin.X))
		}
	}
	return out
}

// Not returns the negation of e.
func Not(e ast.Expr) ast.Expr {
	return &ast.UnaryExpr{Op: token.NOT, X: &ast.ParenExpr{X: e}}
}
