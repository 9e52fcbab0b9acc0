// Package analysis defines the contract between the checker and its
// analysis modules, and the sink diagnostics are written to.
package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/proof"
)

// Module is an analysis that can be run over a single function.
type Module interface {
	Name() string
	Analyze(fullName string, d *driver.Driver) (MethodResult, error)
}

// MethodResult is what a module learned about one function.
type MethodResult interface {
	// Query answers questions from the module's own facts.
	Query() facts.Query
	// ValidateImplicitAssertions checks the safety conditions the module
	// knows about against q and reports each one to sink.
	ValidateImplicitAssertions(q facts.Query, sink Sink) error
}

// Obligation is a condition that must hold at a program point.
type Obligation struct {
	Point      dataflow.Point
	Pos        token.Position
	Provenance string
	Cond       ast.Expr
	// Guards are the short-circuit conditions that must hold for the
	// obligation to arise at all.
	Guards []ast.Expr
}

// Condition renders the condition as Go source.
func (o Obligation) Condition() string { return types.ExprString(o.Cond) }

// Decided is the expression the oracle decides: Cond, or !(g) || Cond for
// each guard g, outermost first.
func (o Obligation) Decided() ast.Expr {
	e := o.Cond
	for i := len(o.Guards) - 1; i >= 0; i-- {
		e = &ast.BinaryExpr{X: driver.Not(o.Guards[i]), Op: token.LOR, Y: e}
	}
	return e
}

// Sink receives the outcome of every checked obligation.
type Sink interface {
	Report(o Obligation, outcome proof.Outcome)
}

// Validate checks every obligation against q.
func Validate(q facts.Query, sink Sink, obligations ...Obligation) {
	for _, o := range obligations {
		sink.Report(o, q.IsTrue(o.Point, o.Decided()))
	}
}

// Diagnostics collects the diagnostic lines of one function.
type Diagnostics struct {
	lines  []string
	counts map[proof.Outcome]int
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[proof.Outcome]int)}
}

// Report formats the outcome as "file:line:col: verdict: provenance (condition)".
func (d *Diagnostics) Report(o Obligation, outcome proof.Outcome) {
	d.counts[outcome]++
	d.lines = append(d.lines, fmt.Sprintf("%s: %s: %s (%s)", o.Pos, outcome.Verdict(), o.Provenance, o.Condition()))
}

// Lines returns the reported lines followed by the summary line.
func (d *Diagnostics) Lines() []string {
	out := make([]string, 0, len(d.lines)+1)
	out = append(out, d.lines...)
	return append(out, Summary(len(d.lines)))
}

// Len is the number of reported obligations.
func (d *Diagnostics) Len() int { return len(d.lines) }

// Count is the number of obligations that received outcome o.
func (d *Diagnostics) Count(o proof.Outcome) int { return d.counts[o] }

// Summary is the trailing line of every analyzed function.
func Summary(n int) string { return fmt.Sprintf("Checked %d assertions", n) }
