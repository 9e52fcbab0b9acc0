package contracts

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/gnolang/tverify/internal/subroutine"
)

const directivePrefix = "//contract:"

type verb string

const (
	verbRequires     verb = "requires"
	verbEnsures      verb = "ensures"
	verbModelEnsures verb = "model-ensures"
	verbInvariant    verb = "invariant"
	verbAssert       verb = "assert"
	verbNoInherit    verb = "noinherit"
)

var errNotDirective = errors.New("not a contract directive")

// directive is one raw //contract: comment. Its expression is decoded lazily.
type directive struct {
	verb verb
	text string
	pos  token.Position
}

func parseDirective(c *ast.Comment, fset *token.FileSet) (directive, error) {
	if !strings.HasPrefix(c.Text, directivePrefix) {
		return directive{}, errNotDirective
	}
	name, text, _ := strings.Cut(c.Text[len(directivePrefix):], " ")
	text = strings.TrimSpace(text)
	d := directive{verb: verb(strings.TrimSpace(name)), text: text, pos: fset.Position(c.Slash)}

	switch d.verb {
	case verbNoInherit:
		if text != "" {
			return d, fmt.Errorf("%s takes no argument", d.verb)
		}
	case verbRequires, verbEnsures, verbModelEnsures, verbInvariant, verbAssert:
		if text == "" {
			return d, fmt.Errorf("%s: missing expression", d.verb)
		}
	default:
		return d, fmt.Errorf("unknown contract directive %q", d.verb)
	}
	return d, nil
}

// ParseClause decodes a contract expression written as Go source.
func ParseClause(text string, pos token.Position) (subroutine.Clause, error) {
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return subroutine.Clause{}, fmt.Errorf("contract %q: %w", text, err)
	}
	return subroutine.Clause{Expr: expr, Text: text, Pos: pos}, nil
}
