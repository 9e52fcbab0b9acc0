package nolint

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, fset *token.FileSet, name, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	require.NoError(t, err)
	return f
}

func TestCategory(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"assertion":                  Assert,
		"precondition of fix.Div":    Requires,
		"postcondition":              Ensures,
		"model postcondition":        ModelEnsures,
		"invariant of Counter":       Invariant,
		"dereference of p":           NonNull,
		"division by d":              Arithmetic,
		"remainder by (a - b)":       Arithmetic,
		"something the tool emitted": "something the tool emitted",
	}
	for provenance, want := range tests {
		assert.Equal(t, want, Category(provenance), provenance)
	}
}

func TestIgnored(t *testing.T) {
	t.Parallel()
	src := `package main

func main() {
	//tverify:ignore
	println(1 / z)
	println(1 / z)
	println(1 / z) //tverify:ignore arithmetic
	//tverify:ignore nonnull, assert
	println(*p)
	x := 0 // tverify:ignore is not a directive
}

//tverify:ignore requires
func other() {
	f()
}
`
	fset := token.NewFileSet()
	m, errs := Parse(fset, parseFile(t, fset, "test.go", src))
	require.Empty(t, errs)
	assert.Equal(t, 4, m.Len())

	tests := []struct {
		line     int
		category string
		want     bool
	}{
		{5, Arithmetic, true},
		{5, NonNull, true},
		{6, Arithmetic, false},
		{7, Arithmetic, true},
		{7, NonNull, false},
		{9, NonNull, true},
		{9, Assert, true},
		{9, Arithmetic, false},
		{10, NonNull, false},
		{15, Requires, true},
		{15, Arithmetic, false},
	}
	for _, tt := range tests {
		pos := token.Position{Filename: "test.go", Line: tt.line, Column: 1}
		assert.Equal(t, tt.want, m.Ignored(pos, tt.category), "line %d %s", tt.line, tt.category)
	}

	other := token.Position{Filename: "other.go", Line: 5}
	assert.False(t, m.Ignored(other, Arithmetic))
}

func TestIgnoredWholeFile(t *testing.T) {
	t.Parallel()
	src := `//tverify:ignore arithmetic

package main

func main() {
	println(1 / z)
}
`
	fset := token.NewFileSet()
	m, errs := Parse(fset, parseFile(t, fset, "test.go", src))
	require.Empty(t, errs)
	assert.True(t, m.Ignored(token.Position{Filename: "test.go", Line: 6}, Arithmetic))
	assert.False(t, m.Ignored(token.Position{Filename: "test.go", Line: 6}, NonNull))
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()
	src := `package main

func main() {
	//tverify:ignore ,
	println()
	//tverify:ignoreall
	println()
}
`
	fset := token.NewFileSet()
	m, errs := Parse(fset, parseFile(t, fset, "test.go", src))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "test.go:4:2: empty category list")
	assert.Equal(t, 0, m.Len())
}

func TestNilManager(t *testing.T) {
	t.Parallel()
	var m *Manager
	assert.False(t, m.Ignored(token.Position{Filename: "a.go", Line: 1}, Assert))
}
