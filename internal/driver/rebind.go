package driver

import (
	"go/ast"
	"go/types"

	"github.com/gnolang/tverify/internal/subroutine"
)

// ResultName denotes the single unnamed result in postconditions.
const ResultName = "result"

// Rebind returns the expression of c written in terms of target. A clause
// declared on another function, such as an implemented interface method
// or a shadowed base method, names that function's parameters and
// results; they are renamed to target's by position, and its receiver
// name becomes self.
func Rebind(c subroutine.Clause, target *types.Func) ast.Expr {
	if c.Func == nil || target == nil || c.Func.Origin() == target.Origin() {
		return c.Expr
	}
	from, ok1 := c.Func.Type().(*types.Signature)
	to, ok2 := target.Type().(*types.Signature)
	if !ok1 || !ok2 {
		return c.Expr
	}

	bindings := make(map[string]ast.Expr)
	renameTuple(bindings, from.Params(), to.Params(), "")
	single := ""
	if to.Results().Len() == 1 {
		single = ResultName
	}
	renameTuple(bindings, from.Results(), to.Results(), single)
	if c.Recv != "" {
		bindings[c.Recv] = ast.NewIdent(SelfName)
	}
	if len(bindings) == 0 {
		return c.Expr
	}
	return Substitute(c.Expr, bindings)
}

// renameTuple binds each named variable of from to the variable of to at
// the same position. A target without a usable name maps to fallback, or
// to the blank identifier so that no unrelated variable is captured.
func renameTuple(bindings map[string]ast.Expr, from, to *types.Tuple, fallback string) {
	for i := 0; i < from.Len(); i++ {
		name := from.At(i).Name()
		if name == "" || name == "_" {
			continue
		}
		target := "_"
		if i < to.Len() {
			if n := to.At(i).Name(); n != "" && n != "_" {
				target = n
			} else if fallback != "" {
				target = fallback
			}
		}
		if target != name {
			bindings[name] = ast.NewIdent(target)
		}
	}
}

// Localize rebinds c to the driver's function and replaces self with its
// receiver.
func (d *Driver) Localize(c subroutine.Clause) ast.Expr {
	return d.BindSelf(Rebind(c, d.Method))
}
