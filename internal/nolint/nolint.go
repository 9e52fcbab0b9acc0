// Package nolint finds //tverify:ignore comments and the code they
// silence.
//
//	//tverify:ignore                     every diagnostic
//	//tverify:ignore arithmetic,nonnull  only these categories
//
// A comment before the package clause covers the whole file. A comment
// at the end of a statement covers that statement. A comment on its own
// line covers the statement or function declaration that follows it.
// Any other comment covers its own line.
package nolint

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"strings"
)

const ignorePrefix = "//tverify:ignore"

// Diagnostic categories, named after the directive or module that
// produces them.
const (
	Assert       = "assert"
	Requires     = "requires"
	Ensures      = "ensures"
	ModelEnsures = "model-ensures"
	Invariant    = "invariant"
	NonNull      = "nonnull"
	Arithmetic   = "arithmetic"
)

var errNotIgnore = errors.New("not an ignore comment")

// Category classifies a diagnostic by its provenance.
func Category(provenance string) string {
	switch {
	case provenance == "assertion":
		return Assert
	case strings.HasPrefix(provenance, "precondition of "):
		return Requires
	case strings.HasPrefix(provenance, "model postcondition"):
		return ModelEnsures
	case strings.HasPrefix(provenance, "postcondition"):
		return Ensures
	case strings.HasPrefix(provenance, "invariant of "):
		return Invariant
	case strings.HasPrefix(provenance, "dereference of "):
		return NonNull
	case strings.HasPrefix(provenance, "division by "), strings.HasPrefix(provenance, "remainder by "):
		return Arithmetic
	default:
		return provenance
	}
}

// Manager answers whether a position is covered by an ignore comment.
type Manager struct {
	scopes map[string][]scope
}

// scope is a line range of one file. An empty category set means every
// category.
type scope struct {
	categories map[string]bool
	start, end int
}

// Parse collects the ignore comments of files. Malformed comments are
// returned as errors and otherwise skipped.
func Parse(fset *token.FileSet, files ...*ast.File) (*Manager, []error) {
	m := &Manager{scopes: make(map[string][]scope)}
	var errs []error
	for _, f := range files {
		fp := newFileParser(fset, f)
		for _, cg := range f.Comments {
			for _, c := range cg.List {
				s, err := fp.parse(c)
				if errors.Is(err, errNotIgnore) {
					continue
				}
				if err != nil {
					errs = append(errs, err)
					continue
				}
				filename := fset.Position(c.Slash).Filename
				m.scopes[filename] = append(m.scopes[filename], s)
			}
		}
	}
	return m, errs
}

type fileParser struct {
	fset        *token.FileSet
	file        *ast.File
	stmts       map[int]ast.Stmt
	packageLine int
}

func newFileParser(fset *token.FileSet, f *ast.File) *fileParser {
	return &fileParser{
		fset:        fset,
		file:        f,
		stmts:       indexStatementsByLine(fset, f),
		packageLine: fset.Position(f.Package).Line,
	}
}

func (p *fileParser) parse(c *ast.Comment) (scope, error) {
	rest, ok := strings.CutPrefix(c.Text, ignorePrefix)
	if !ok {
		return scope{}, errNotIgnore
	}
	pos := p.fset.Position(c.Slash)
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return scope{}, errNotIgnore
	}
	s := scope{categories: parseCategories(rest)}
	if strings.TrimSpace(rest) != "" && len(s.categories) == 0 {
		return scope{}, fmt.Errorf("%s: empty category list", pos)
	}
	s.start, s.end = p.lines(c, pos)
	return s, nil
}

// lines resolves the line range covered by the comment at pos.
func (p *fileParser) lines(c *ast.Comment, pos token.Position) (int, int) {
	if pos.Line < p.packageLine {
		return 1, p.fset.Position(p.file.End()).Line
	}
	if stmt, ok := p.stmts[pos.Line]; ok && pos.Offset > p.fset.Position(stmt.Pos()).Offset {
		return p.fset.Position(stmt.Pos()).Line, p.fset.Position(stmt.End()).Line
	}
	if stmt, ok := p.stmts[pos.Line+1]; ok {
		return pos.Line, p.fset.Position(stmt.End()).Line
	}
	for _, decl := range p.file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if p.fset.Position(fn.Pos()).Line == pos.Line+1 {
			return pos.Line, p.fset.Position(fn.End()).Line
		}
	}
	return pos.Line, pos.Line
}

func parseCategories(text string) map[string]bool {
	categories := make(map[string]bool)
	for _, c := range strings.Split(text, ",") {
		if c = strings.TrimSpace(c); c != "" {
			categories[c] = true
		}
	}
	return categories
}

// indexStatementsByLine maps each line to the first statement starting on it.
func indexStatementsByLine(fset *token.FileSet, f *ast.File) map[int]ast.Stmt {
	stmts := make(map[int]ast.Stmt)
	ast.Inspect(f, func(n ast.Node) bool {
		if stmt, ok := n.(ast.Stmt); ok {
			line := fset.Position(stmt.Pos()).Line
			if _, exists := stmts[line]; !exists {
				stmts[line] = stmt
			}
		}
		return true
	})
	return stmts
}

// Ignored reports whether diagnostics of category at pos are silenced.
// A nil Manager silences nothing.
func (m *Manager) Ignored(pos token.Position, category string) bool {
	if m == nil {
		return false
	}
	for _, s := range m.scopes[pos.Filename] {
		if pos.Line < s.start || pos.Line > s.end {
			continue
		}
		if len(s.categories) == 0 || s.categories[category] {
			return true
		}
	}
	return false
}

// Len is the number of ignore comments found.
func (m *Manager) Len() int {
	n := 0
	for _, s := range m.scopes {
		n += len(s)
	}
	return n
}
