package dataflow

import (
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ast/astutil"
)

// Locals are the variables of one function that analyses may track by
// name: parameters, results and locals that are declared exactly once,
// never have their address taken and are never assigned from a closure.
// A nil *Locals tracks nothing.
type Locals struct {
	vars     map[string]*types.Var
	declared map[string]bool
}

// CollectLocals finds the trackable variables of decl.
func CollectLocals(decl *ast.FuncDecl, info *types.Info) *Locals {
	l := &Locals{vars: make(map[string]*types.Var), declared: make(map[string]bool)}
	if info == nil {
		return l
	}
	defs := make(map[string][]*types.Var)
	escaped := make(map[string]bool)

	var walk func(root ast.Node, inClosure bool)
	walk = func(root ast.Node, inClosure bool) {
		ast.Inspect(root, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncLit:
				if n != root {
					walk(n, true)
					return false
				}
			case *ast.Ident:
				if v, ok := info.Defs[n].(*types.Var); ok && !v.IsField() {
					defs[n.Name] = append(defs[n.Name], v)
				}
			case *ast.UnaryExpr:
				if id, ok := astutil.Unparen(n.X).(*ast.Ident); ok && n.Op == token.AND {
					escaped[id.Name] = true
				}
			case *ast.SelectorExpr:
				if id, ok := astutil.Unparen(n.X).(*ast.Ident); ok && takesAddress(info, n) {
					escaped[id.Name] = true
				}
			case *ast.AssignStmt:
				if inClosure {
					for _, lhs := range n.Lhs {
						if id, ok := astutil.Unparen(lhs).(*ast.Ident); ok {
							escaped[id.Name] = true
						}
					}
				}
			case *ast.IncDecStmt:
				if id, ok := astutil.Unparen(n.X).(*ast.Ident); ok && inClosure {
					escaped[id.Name] = true
				}
			}
			return true
		})
	}
	walk(decl, false)

	for name, vs := range defs {
		l.declared[name] = true
		if len(vs) == 1 && !escaped[name] && name != "_" {
			l.vars[name] = vs[0]
		}
	}
	return l
}

// takesAddress reports whether sel calls a pointer method on an
// addressable value, which implicitly takes its address.
func takesAddress(info *types.Info, sel *ast.SelectorExpr) bool {
	s := info.Selections[sel]
	if s == nil || s.Kind() != types.MethodVal {
		return false
	}
	sig, ok := s.Obj().Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}
	_, ptrRecv := sig.Recv().Type().(*types.Pointer)
	_, ptrOperand := s.Recv().Underlying().(*types.Pointer)
	return ptrRecv && !ptrOperand
}

// Lookup returns the tracked variable called name.
func (l *Locals) Lookup(name string) (*types.Var, bool) {
	if l == nil {
		return nil, false
	}
	v, ok := l.vars[name]
	return v, ok
}

// Tracked reports whether name denotes a tracked variable.
func (l *Locals) Tracked(name string) bool {
	if l == nil {
		return false
	}
	_, ok := l.vars[name]
	return ok
}

// Declared reports whether any variable of the function is called name,
// tracked or not.
func (l *Locals) Declared(name string) bool { return l != nil && l.declared[name] }

// Names returns the tracked names in sorted order.
func (l *Locals) Names() []string {
	names := make([]string, 0, len(l.vars))
	for name := range l.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
