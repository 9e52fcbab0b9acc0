package contracts

import (
	"go/ast"
	"go/token"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/subroutine"
)

// Assertion is an explicit //contract:assert in a function body. It must
// hold before Stmt executes, or right after it when After is set.
type Assertion struct {
	Clause subroutine.Clause
	Stmt   ast.Stmt
	After  bool
}

func findAssertions(logger *zap.Logger, asm *metadata.Assembly, decl *ast.FuncDecl) []Assertion {
	file := fileOf(asm, decl)
	if file == nil {
		return nil
	}
	stmtMap := indexStatementsByLine(asm.Fset, decl.Body)

	var out []Assertion
	for _, cg := range file.Comments {
		if cg.Pos() < decl.Body.Lbrace || cg.End() > decl.Body.Rbrace {
			continue
		}
		for _, c := range cg.List {
			dir, err := parseDirective(c, asm.Fset)
			if err != nil || dir.verb != verbAssert {
				continue
			}
			clause, err := ParseClause(dir.text, dir.pos)
			if err != nil {
				logger.Debug("skipping undecodable assertion",
					zap.String("pos", dir.pos.String()), zap.Error(err))
				continue
			}
			stmt, after, ok := placeAssertion(asm.Fset, decl.Body, stmtMap, c)
			if !ok {
				logger.Debug("assertion has no program point", zap.String("pos", dir.pos.String()))
				continue
			}
			out = append(out, Assertion{Clause: clause, Stmt: stmt, After: after})
		}
	}
	return out
}

func fileOf(asm *metadata.Assembly, decl *ast.FuncDecl) *ast.File {
	for _, f := range asm.Files {
		if f.Pos() <= decl.Pos() && decl.End() <= f.End() {
			return f
		}
	}
	return nil
}

// placeAssertion attaches c to a statement. An inline comment after a
// simple statement holds after it. Otherwise the comment holds before the
// next statement of its enclosing block, or after the last one.
func placeAssertion(fset *token.FileSet, body *ast.BlockStmt, stmtMap map[int]ast.Stmt, c *ast.Comment) (ast.Stmt, bool, bool) {
	line := fset.Position(c.Slash).Line
	if stmt, ok := stmtMap[line]; ok && stmt.Pos() < c.Slash && isSimple(stmt) {
		return stmt, true, true
	}

	list, ok := enclosingList(body, c.Slash)
	if !ok {
		return nil, false, false
	}
	if len(list) > 0 {
		switch list[0].(type) {
		case *ast.CaseClause, *ast.CommClause:
			return nil, false, false
		}
	}
	for _, stmt := range list {
		if stmt.Pos() > c.Slash {
			return stmt, false, true
		}
	}
	if n := len(list); n > 0 && isSimple(list[n-1]) {
		return list[n-1], true, true
	}
	return nil, false, false
}

// enclosingList returns the innermost statement list whose extent contains pos.
// Comments inside function literals have no list.
func enclosingList(body *ast.BlockStmt, pos token.Pos) ([]ast.Stmt, bool) {
	list, found := body.List, true
	ast.Inspect(body, func(n ast.Node) bool {
		if n == nil || pos < n.Pos() || pos >= n.End() {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			found = false
			return false
		case *ast.BlockStmt:
			list = n.List
		case *ast.CaseClause:
			list = n.Body
		case *ast.CommClause:
			list = n.Body
		}
		return true
	})
	return list, found
}

func isSimple(stmt ast.Stmt) bool {
	switch stmt.(type) {
	case *ast.AssignStmt, *ast.IncDecStmt, *ast.ExprStmt, *ast.DeclStmt,
		*ast.SendStmt, *ast.GoStmt, *ast.DeferStmt, *ast.EmptyStmt:
		return true
	}
	return false
}

// indexStatementsByLine maps each line of body to the first statement that
// starts on it. Statements of function literals are not indexed.
func indexStatementsByLine(fset *token.FileSet, body *ast.BlockStmt) map[int]ast.Stmt {
	stmtMap := make(map[int]ast.Stmt)
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case nil:
			return false
		case *ast.FuncLit:
			return false
		case *ast.BlockStmt:
			return true
		case ast.Stmt:
			line := fset.Position(n.Pos()).Line
			if _, exists := stmtMap[line]; !exists {
				stmtMap[line] = n
			}
		}
		return true
	})
	return stmtMap
}
