package dataflow

import "go/ast"

// Point is a program point: right before or right after a CFG node.
type Point struct {
	Stmt  ast.Stmt
	After bool
}

func Before(s ast.Stmt) Point { return Point{Stmt: s} }
func After(s ast.Stmt) Point  { return Point{Stmt: s, After: true} }
