package arithmetic_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/analysis"
	"github.com/gnolang/tverify/internal/analysis/arithmetic"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/driver/drivertest"
)

const source = `package fix

func Literal(n int) int {
	return n / 2
}

func Zero(n int) int {
	d := 0
	return n % d
}

func Param(n, d int) int {
	return n / d
}

func Guarded(n, d int) int {
	if d != 0 {
		return n / d
	}
	return 0
}

func Positive(n, d int) int {
	if d > 0 {
		return n / d
	}
	return 0
}

func Assign(n, d int) int {
	n /= d
	n %= d
	return n
}

func Float(x, y float64) float64 {
	return x / y
}

func Declared(n int) int {
	var d int
	d++
	return n / d
}

func Product(n, a int) int {
	b := a * 0
	return n / b
}

//contract:requires d != 0
func Required(n, d int) int {
	return n / d
}

func AndGuard(n, d int) bool {
	return d != 0 && n/d > 1
}

func OrGuard(n, d int) bool {
	return d == 0 || n%d == 0
}

func AfterGuard(n, d int) int {
	if d != 0 && n/d > 1 {
		return 1
	}
	return n / d
}
`

func verdicts(t *testing.T, pkg *drivertest.Package, fullName string) []string {
	t.Helper()
	d := pkg.Driver(t, fullName)
	res, err := arithmetic.New().Analyze(fullName, d)
	require.NoError(t, err)
	q := facts.NewComposed(d.IsUnreachable, d.Constants(), res.Query())
	diags := analysis.NewDiagnostics()
	require.NoError(t, res.ValidateImplicitAssertions(q, diags))

	lines := diags.Lines()
	out := []string{}
	for _, l := range lines[:len(lines)-1] {
		_, rest, found := strings.Cut(l, ": ")
		require.True(t, found)
		out = append(out, rest)
	}
	return out
}

func TestDivisions(t *testing.T) {
	t.Parallel()
	pkg := drivertest.Load(t, source)
	tests := []struct {
		fullName string
		want     []string
	}{
		{"fix.Literal", []string{"valid: division by 2 (2 != 0)"}},
		{"fix.Zero", []string{"invalid: remainder by d (d != 0)"}},
		{"fix.Param", []string{"unproven: division by d (d != 0)"}},
		{"fix.Guarded", []string{"valid: division by d (d != 0)"}},
		{"fix.Positive", []string{"valid: division by d (d != 0)"}},
		{"fix.Assign", []string{
			"unproven: division by d (d != 0)",
			"valid: remainder by d (d != 0)",
		}},
		{"fix.Float", []string{}},
		{"fix.Declared", []string{"valid: division by d (d != 0)"}},
		{"fix.Product", []string{"invalid: division by b (b != 0)"}},
		{"fix.Required", []string{"valid: division by d (d != 0)"}},
		{"fix.AndGuard", []string{"valid: division by d (d != 0)"}},
		{"fix.OrGuard", []string{"valid: remainder by d (d != 0)"}},
		// A division skipped by && says nothing about d afterwards.
		{"fix.AfterGuard", []string{
			"valid: division by d (d != 0)",
			"unproven: division by d (d != 0)",
		}},
	}
	// The subtests share the method cache of pkg and run sequentially.
	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			assert.Equal(t, tt.want, verdicts(t, pkg, tt.fullName))
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "arithmetic", arithmetic.New().Name())
}
