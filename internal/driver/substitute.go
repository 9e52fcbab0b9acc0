package driver

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// Substitute returns a copy of e in which every identifier named in
// bindings is replaced by its binding. Field and method names are left
// alone. e itself is never modified.
func Substitute(e ast.Expr, bindings map[string]ast.Expr) ast.Expr {
	if len(bindings) == 0 {
		return e
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), e); err != nil {
		return e
	}
	fresh, err := parser.ParseExpr(buf.String())
	if err != nil {
		return e
	}
	return astutil.Apply(fresh, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok {
			return true
		}
		if sel, ok := c.Parent().(*ast.SelectorExpr); ok && sel.Sel == id {
			return true
		}
		if kv, ok := c.Parent().(*ast.KeyValueExpr); ok && kv.Key == id {
			return true
		}
		if b, ok := bindings[id.Name]; ok {
			c.Replace(wrap(b))
		}
		return true
	}, nil).(ast.Expr)
}

// wrap parenthesizes b unless it is already an operand.
func wrap(b ast.Expr) ast.Expr {
	switch b.(type) {
	case *ast.Ident, *ast.BasicLit, *ast.ParenExpr, *ast.SelectorExpr, *ast.CallExpr, *ast.IndexExpr:
		return b
	default:
		return &ast.ParenExpr{X: b}
	}
}
