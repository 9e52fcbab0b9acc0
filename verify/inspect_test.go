package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractSource = `package fix

//contract:invariant self.n >= 0
type Counter struct {
	n int
}

//contract:requires k > 0
//contract:ensures c.n > 0
func (c *Counter) Add(k int) {
	c.n += k
}

func (c *Counter) Get() int {
	return c.n
}

func Dead() int {
	x := 0
	if x != 0 {
		return 1
	}
	return 2
}

type A struct{}

func (A) Get() int { return 0 }
`

func TestDescribeContracts(t *testing.T) {
	t.Parallel()
	pc, err := DescribeContracts(writePackage(t, contractSource), nil)
	require.NoError(t, err)

	require.Len(t, pc.Methods, 1)
	assert.Contains(t, pc.Methods[0].Name, "Counter).Add")
	assert.Equal(t, []string{"k > 0"}, pc.Methods[0].Requires)
	assert.Equal(t, []string{"c.n > 0"}, pc.Methods[0].Ensures)
	assert.Empty(t, pc.Methods[0].ModelEnsures)

	require.Len(t, pc.Types, 1)
	assert.Equal(t, TypeContracts{Name: "Counter", Invariant: []string{"self.n >= 0"}}, pc.Types[0])
}

func TestDescribeContractsCannotLoad(t *testing.T) {
	t.Parallel()
	_, err := DescribeContracts(t.TempDir(), nil)
	assert.ErrorContains(t, err, "cannot load")
}

func TestFunctionCFG(t *testing.T) {
	t.Parallel()
	dir := writePackage(t, contractSource)

	dot, err := FunctionCFG(dir, "Dead", nil)
	require.NoError(t, err)
	assert.Contains(t, dot, `"ENTRY" -> "assignment - line 19"`)
	assert.Contains(t, dot, `"if statement - line 20" -> "return statement - line 21 (unreachable)"`)
	assert.Contains(t, dot, `"return statement - line 23" -> "EXIT"`)

	_, err = FunctionCFG(dir, "Missing", nil)
	assert.EqualError(t, err, "function not found: Missing")

	_, err = FunctionCFG(dir, "Get", nil)
	assert.ErrorContains(t, err, "ambiguous function Get")
}
