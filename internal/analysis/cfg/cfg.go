package cfg

import (
	"fmt"
	"go/ast"
	"go/token"
	"io"
	"sort"
)

// CFG is a statement-level control flow graph. Every statement is a node;
// Entry and Exit are synthetic sentinels that belong to no source position.
type CFG struct {
	Entry, Exit ast.Stmt

	blocks map[ast.Stmt]*block
	order  []ast.Stmt
	edges  map[edge]branch
}

type block struct {
	preds []ast.Stmt
	succs []ast.Stmt
}

type edge struct {
	from, to ast.Stmt
}

// branch records the condition an edge is conditioned on, if any.
type branch struct {
	cond  ast.Expr
	taken bool
}

// FromFunc builds the graph of a function body. A declaration without body
// yields a graph where Entry flows directly to Exit.
func FromFunc(f *ast.FuncDecl) *CFG {
	if f.Body == nil {
		return FromStmts(nil)
	}
	return FromStmts(f.Body.List)
}

// FromStmts builds the graph of a statement list.
func FromStmts(stmts []ast.Stmt) *CFG {
	c := &CFG{
		Entry:  &ast.BadStmt{},
		Exit:   &ast.BadStmt{},
		blocks: make(map[ast.Stmt]*block),
		edges:  make(map[edge]branch),
	}
	c.add(c.Entry)
	c.add(c.Exit)

	b := &builder{
		cfg:    c,
		prev:   []pred{{stmt: c.Entry}},
		labels: make(map[string]ast.Stmt),
	}
	b.stmtList(stmts)
	b.linkPrev(c.Exit)
	for _, g := range b.gotos {
		if target, ok := b.labels[g.Label.Name]; ok {
			c.link(pred{stmt: g}, target)
		}
	}
	return c
}

func (c *CFG) add(s ast.Stmt) {
	if _, ok := c.blocks[s]; ok {
		return
	}
	c.blocks[s] = &block{}
	c.order = append(c.order, s)
}

func (c *CFG) link(p pred, to ast.Stmt) {
	e := edge{from: p.stmt, to: to}
	if prev, exists := c.edges[e]; exists {
		// Both outcomes of a condition reach the same node.
		if prev.cond != p.cond || prev.taken != p.taken {
			c.edges[e] = branch{}
		}
		return
	}
	c.edges[e] = branch{cond: p.cond, taken: p.taken}
	c.blocks[p.stmt].succs = append(c.blocks[p.stmt].succs, to)
	c.blocks[to].preds = append(c.blocks[to].preds, p.stmt)
}

// Blocks returns every node, Entry and Exit first, then in construction order.
func (c *CFG) Blocks() []ast.Stmt {
	return append([]ast.Stmt(nil), c.order...)
}

// Succs returns the successors of s.
func (c *CFG) Succs(s ast.Stmt) []ast.Stmt {
	if b, ok := c.blocks[s]; ok {
		return append([]ast.Stmt(nil), b.succs...)
	}
	return nil
}

// Preds returns the predecessors of s.
func (c *CFG) Preds(s ast.Stmt) []ast.Stmt {
	if b, ok := c.blocks[s]; ok {
		return append([]ast.Stmt(nil), b.preds...)
	}
	return nil
}

// Contains reports whether s is a node of the graph.
func (c *CFG) Contains(s ast.Stmt) bool {
	_, ok := c.blocks[s]
	return ok
}

// Branch reports the condition guarding the edge from -> to and whether
// the edge is taken when it holds.
func (c *CFG) Branch(from, to ast.Stmt) (cond ast.Expr, taken bool, ok bool) {
	br := c.edges[edge{from: from, to: to}]
	return br.cond, br.taken, br.cond != nil
}

// Sort orders stmts by source position. The sentinels sort first.
func (c *CFG) Sort(stmts []ast.Stmt) {
	sort.SliceStable(stmts, func(i, j int) bool {
		return stmts[i].Pos() < stmts[j].Pos()
	})
}

// PrintDot writes the graph in GraphViz DOT format. addl may append extra
// text to each vertex label.
func (c *CFG) PrintDot(f io.Writer, fset *token.FileSet, addl func(n ast.Stmt) string) {
	fmt.Fprint(f, `
digraph mgraph {
	mode="heir";
	splines="ortho";

`)
	blocks := c.Blocks()
	c.Sort(blocks)
	for _, from := range blocks {
		succs := c.Succs(from)
		c.Sort(succs)
		for _, to := range succs {
			fmt.Fprintf(f, "\t%q -> %q\n",
				c.printVertex(from, fset, addl(from)),
				c.printVertex(to, fset, addl(to)))
		}
	}
	fmt.Fprintln(f, "}")
}

func (c *CFG) printVertex(s ast.Stmt, fset *token.FileSet, addl string) string {
	switch s {
	case c.Entry:
		return "ENTRY"
	case c.Exit:
		return "EXIT"
	}
	return fmt.Sprintf("%s - line %d%s", Describe(s), fset.Position(s.Pos()).Line, addl)
}

// Describe names the kind of a statement.
func Describe(s ast.Stmt) string {
	switch s := s.(type) {
	case *ast.AssignStmt:
		return "assignment"
	case *ast.IncDecStmt:
		if s.Tok == token.INC {
			return "increment statement"
		}
		return "decrement statement"
	case *ast.IfStmt:
		return "if statement"
	case *ast.ForStmt:
		return "for loop"
	case *ast.RangeStmt:
		return "range loop"
	case *ast.SwitchStmt:
		return "switch statement"
	case *ast.TypeSwitchStmt:
		return "type switch statement"
	case *ast.SelectStmt:
		return "select statement"
	case *ast.CaseClause:
		return "case clause"
	case *ast.CommClause:
		return "communication clause"
	case *ast.ReturnStmt:
		return "return statement"
	case *ast.BranchStmt:
		return s.Tok.String() + " statement"
	case *ast.DeclStmt:
		return "declaration"
	case *ast.DeferStmt:
		return "defer statement"
	case *ast.GoStmt:
		return "go statement"
	case *ast.SendStmt:
		return "send statement"
	case *ast.ExprStmt:
		return "expression statement"
	case *ast.LabeledStmt:
		return "labeled statement"
	case *ast.EmptyStmt:
		return "empty statement"
	default:
		return fmt.Sprintf("%T", s)
	}
}
