package nonnull_test

import (
	"go/ast"
	"go/parser"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/analysis"
	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/analysis/nonnull"
	"github.com/gnolang/tverify/internal/driver/drivertest"
	"github.com/gnolang/tverify/internal/proof"
)

const source = `package fix

type Node struct {
	next *Node
	val  int
}

func (n Node) Value() int { return n.val }

func (n *Node) Next() *Node { return n.next }

func Guarded(p *Node) int {
	if p != nil {
		return p.val
	}
	return 0
}

func Unguarded(p *Node) int {
	return p.val
}

func Nil() int {
	var p *Node
	return p.val
}

func Fresh() int {
	p := new(Node)
	q := &Node{}
	return p.val + q.val
}

func Twice(p *Node) int {
	a := p.val
	return a + p.val
}

//contract:requires p != nil
func Required(p *Node) int {
	return (*p).val
}

func Methods(p *Node) {
	p.Next()
	p.Value()
}

func Loop(p *Node) int {
	n := 0
	for p != nil {
		n += p.val
		p = p.next
	}
	return n
}

func AndGuard(p *Node) bool {
	return p != nil && p.val > 0
}

func OrGuard(p *Node) int {
	if p == nil || p.next == nil {
		return 0
	}
	return p.next.val
}

func AfterGuard(p *Node) int {
	if p != nil && p.val > 0 {
		return 1
	}
	return p.val
}
`

// verdicts runs the module over fullName and returns "verdict: provenance"
// for every dereference.
func verdicts(t *testing.T, pkg *drivertest.Package, fullName string) []string {
	t.Helper()
	d := pkg.Driver(t, fullName)
	res, err := nonnull.New().Analyze(fullName, d)
	require.NoError(t, err)
	q := facts.NewComposed(d.IsUnreachable, d.Constants(), res.Query())
	diags := analysis.NewDiagnostics()
	require.NoError(t, res.ValidateImplicitAssertions(q, diags))

	lines := diags.Lines()
	out := make([]string, 0, len(lines)-1)
	for _, l := range lines[:len(lines)-1] {
		// file:line:col: verdict: provenance (condition)
		parts := strings.SplitN(l, ": ", 2)
		require.Len(t, parts, 2)
		out = append(out, parts[1])
	}
	return out
}

func TestDereferences(t *testing.T) {
	t.Parallel()
	pkg := drivertest.Load(t, source)
	tests := []struct {
		fullName string
		want     []string
	}{
		{"fix.Guarded", []string{"valid: dereference of p (p != nil)"}},
		{"fix.Unguarded", []string{"unproven: dereference of p (p != nil)"}},
		{"fix.Nil", []string{"invalid: dereference of p (p != nil)"}},
		{"fix.Fresh", []string{
			"valid: dereference of p (p != nil)",
			"valid: dereference of q (q != nil)",
		}},
		{"fix.Twice", []string{
			"unproven: dereference of p (p != nil)",
			"valid: dereference of p (p != nil)",
		}},
		{"fix.Required", []string{"valid: dereference of p (p != nil)"}},
		// Only the value receiver reads through p.
		{"fix.Methods", []string{"unproven: dereference of p (p != nil)"}},
		{"fix.Loop", []string{
			"valid: dereference of p (p != nil)",
			"valid: dereference of p (p != nil)",
		}},
		// Receivers are assumed non-nil.
		{"(*fix.Node).Next", []string{"valid: dereference of n (n != nil)"}},
		{"(fix.Node).Value", []string{}},
		{"fix.AndGuard", []string{"valid: dereference of p (p != nil)"}},
		{"fix.OrGuard", []string{
			"valid: dereference of p (p != nil)",
			"valid: dereference of p (p != nil)",
		}},
		// A dereference skipped by && says nothing about p afterwards.
		{"fix.AfterGuard", []string{
			"valid: dereference of p (p != nil)",
			"unproven: dereference of p (p != nil)",
		}},
	}
	// The subtests share the method cache of pkg and run sequentially.
	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			assert.Equal(t, tt.want, verdicts(t, pkg, tt.fullName))
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()
	pkg := drivertest.Load(t, source)
	d := pkg.Driver(t, "fix.Guarded")
	res, err := nonnull.New().Analyze(d.FullName, d)
	require.NoError(t, err)

	ifStmt := d.Decl.Body.List[0].(*ast.IfStmt)
	inside := dataflow.Before(ifStmt.Body.List[0])
	q := res.Query()

	isTrue := func(p dataflow.Point, src string) proof.Outcome {
		e, err := parser.ParseExpr(src)
		require.NoError(t, err)
		return q.IsTrue(p, e)
	}
	assert.Equal(t, proof.True, isTrue(inside, "p != nil"))
	assert.Equal(t, proof.False, isTrue(inside, "nil == p"))
	assert.Equal(t, proof.Top, isTrue(dataflow.Before(ifStmt), "p != nil"))
	assert.Equal(t, proof.Top, isTrue(inside, "p.next != nil"))
	assert.Equal(t, proof.Top, isTrue(inside, "q != nil"))
	assert.Equal(t, "nonnull", nonnull.New().Name())
}
