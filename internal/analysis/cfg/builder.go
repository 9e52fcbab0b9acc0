package cfg

import (
	"go/ast"
	"go/token"
)

// pred is a pending edge source. cond is set when the edge leaving stmt
// is only followed when cond evaluates to taken.
type pred struct {
	stmt  ast.Stmt
	cond  ast.Expr
	taken bool
}

// target is an enclosing statement that break and continue may refer to.
type target struct {
	label     string
	loop      bool
	breaks    []pred
	continues []pred
}

type builder struct {
	cfg *CFG
	// prev holds the nodes whose control falls through to the next statement.
	prev    []pred
	targets []*target
	labels  map[string]ast.Stmt
	gotos   []*ast.BranchStmt
	fall    []pred
	label   string
}

func (b *builder) stmtList(list []ast.Stmt) {
	for _, s := range list {
		b.stmt(s)
	}
}

// node adds s and links every pending predecessor to it.
func (b *builder) node(s ast.Stmt) {
	b.cfg.add(s)
	b.linkPrev(s)
	b.prev = []pred{{stmt: s}}
}

func (b *builder) linkPrev(to ast.Stmt) {
	for _, p := range b.prev {
		b.cfg.link(p, to)
	}
}

// takeLabel consumes the label of an enclosing labeled statement.
func (b *builder) takeLabel() string {
	l := b.label
	b.label = ""
	return l
}

func (b *builder) push(label string, loop bool) *target {
	t := &target{label: label, loop: loop}
	b.targets = append(b.targets, t)
	return t
}

func (b *builder) pop() {
	b.targets = b.targets[:len(b.targets)-1]
}

// lookup finds the target of a break (loop=false) or continue (loop=true).
func (b *builder) lookup(label *ast.Ident, loop bool) *target {
	for i := len(b.targets) - 1; i >= 0; i-- {
		t := b.targets[i]
		if label != nil {
			if t.label == label.Name {
				return t
			}
			continue
		}
		if !loop || t.loop {
			return t
		}
	}
	return nil
}

func (b *builder) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		b.stmtList(s.List)

	case *ast.LabeledStmt:
		b.node(s)
		b.labels[s.Label.Name] = s
		b.label = s.Label.Name
		b.stmt(s.Stmt)
		b.label = ""

	case *ast.IfStmt:
		b.label = ""
		if s.Init != nil {
			b.stmt(s.Init)
		}
		b.node(s)
		b.prev = []pred{{stmt: s, cond: s.Cond, taken: true}}
		b.stmt(s.Body)
		thenEnd := b.prev
		b.prev = []pred{{stmt: s, cond: s.Cond, taken: false}}
		if s.Else != nil {
			b.stmt(s.Else)
		}
		b.prev = append(thenEnd, b.prev...)

	case *ast.ForStmt:
		t := b.push(b.takeLabel(), true)
		if s.Init != nil {
			b.stmt(s.Init)
		}
		b.node(s)
		b.prev = []pred{{stmt: s, cond: s.Cond, taken: true}}
		b.stmt(s.Body)
		b.prev = append(b.prev, t.continues...)
		if s.Post != nil {
			b.stmt(s.Post)
		}
		b.linkPrev(s)
		b.prev = nil
		if s.Cond != nil {
			b.prev = []pred{{stmt: s, cond: s.Cond, taken: false}}
		}
		b.prev = append(b.prev, t.breaks...)
		b.pop()

	case *ast.RangeStmt:
		t := b.push(b.takeLabel(), true)
		b.node(s)
		b.stmt(s.Body)
		b.prev = append(b.prev, t.continues...)
		b.linkPrev(s)
		b.prev = append([]pred{{stmt: s}}, t.breaks...)
		b.pop()

	case *ast.SwitchStmt:
		label := b.takeLabel()
		if s.Init != nil {
			b.stmt(s.Init)
		}
		b.node(s)
		t := b.push(label, false)
		b.caseClauses(s, s.Body.List, s.Tag == nil)
		b.prev = append(b.prev, t.breaks...)
		b.pop()

	case *ast.TypeSwitchStmt:
		label := b.takeLabel()
		if s.Init != nil {
			b.stmt(s.Init)
		}
		b.stmt(s.Assign)
		b.node(s)
		t := b.push(label, false)
		b.caseClauses(s, s.Body.List, false)
		b.prev = append(b.prev, t.breaks...)
		b.pop()

	case *ast.SelectStmt:
		t := b.push(b.takeLabel(), false)
		b.node(s)
		var ends []pred
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CommClause)
			b.prev = []pred{{stmt: s}}
			b.node(cc)
			if cc.Comm != nil {
				b.stmt(cc.Comm)
			}
			b.stmtList(cc.Body)
			ends = append(ends, b.prev...)
		}
		b.prev = append(ends, t.breaks...)
		b.pop()

	case *ast.BranchStmt:
		b.node(s)
		switch s.Tok {
		case token.BREAK:
			if t := b.lookup(s.Label, false); t != nil {
				t.breaks = append(t.breaks, pred{stmt: s})
			}
		case token.CONTINUE:
			if t := b.lookup(s.Label, true); t != nil {
				t.continues = append(t.continues, pred{stmt: s})
			}
		case token.GOTO:
			b.gotos = append(b.gotos, s)
		case token.FALLTHROUGH:
			b.fall = []pred{{stmt: s}}
		}
		b.prev = nil

	case *ast.ReturnStmt:
		b.node(s)
		b.linkPrev(b.cfg.Exit)
		b.prev = nil

	case *ast.ExprStmt:
		b.node(s)
		if isPanic(s.X) {
			b.prev = nil
		}

	default:
		b.label = ""
		b.node(s)
	}
}

// caseClauses wires the clauses of a switch whose head node is head.
// Clauses of a tagless switch with a single expression guard their body
// with it.
func (b *builder) caseClauses(head ast.Stmt, clauses []ast.Stmt, tagless bool) {
	var ends, fall []pred
	hasDefault := false
	for _, cl := range clauses {
		cc := cl.(*ast.CaseClause)
		if cc.List == nil {
			hasDefault = true
		}
		b.prev = []pred{{stmt: head}}
		b.node(cc)

		var cond ast.Expr
		if tagless && len(cc.List) == 1 {
			cond = cc.List[0]
		}
		b.prev = append([]pred{{stmt: cc, cond: cond, taken: true}}, fall...)
		b.stmtList(cc.Body)
		fall, b.fall = b.fall, nil
		ends = append(ends, b.prev...)
	}
	if !hasDefault {
		ends = append(ends, pred{stmt: head})
	}
	b.prev = ends
}

func isPanic(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	id, ok := call.Fun.(*ast.Ident)
	return ok && id.Name == "panic"
}
