package metadata

import (
	"errors"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shapesSrc = `package shapes

type Shape interface {
	Area() int
}

type Named interface {
	Name() string
}

type Base struct{ id int }

func (b *Base) Name() string { return "base" }

func (b *Base) Area() int { return 0 }

type Square struct {
	*Base
	side int
}

func (s *Square) Area() int { return s.side * s.side }

type Deep struct {
	Square
}

func (d *Deep) Area() int { return 1 }

func Free(x int) int { return x }
`

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func loadShapes(t *testing.T) (*Decoder, *Assembly) {
	t.Helper()
	d := NewDecoder(zap.NewNop())
	asm, err := d.Load(writePackage(t, map[string]string{"shapes.go": shapesSrc}))
	require.NoError(t, err)
	return d, asm
}

func method(t *testing.T, asm *Assembly, name string) *types.Func {
	t.Helper()
	m, ok := asm.LookupMethod(name)
	require.True(t, ok, "method %s not found", name)
	return m
}

func typeName(t *testing.T, asm *Assembly, name string) *types.TypeName {
	t.Helper()
	tn, ok := asm.LookupType(name)
	require.True(t, ok, "type %s not found", name)
	return tn
}

func TestLoadEnumeratesMethods(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)

	var names []string
	for _, m := range d.Methods(asm) {
		names = append(names, d.FullName(m))
	}
	assert.Equal(t, []string{
		"(shapes.Shape).Area",
		"(shapes.Named).Name",
		"(*shapes.Base).Name",
		"(*shapes.Base).Area",
		"(*shapes.Square).Area",
		"(*shapes.Deep).Area",
		"shapes.Free",
	}, names)
	assert.Len(t, asm.Types(), 5)
}

func TestHasBody(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)

	assert.False(t, d.HasBody(method(t, asm, "(shapes.Shape).Area")))
	assert.True(t, d.HasBody(method(t, asm, "shapes.Free")))
	assert.NotNil(t, d.Body(method(t, asm, "shapes.Free")))
}

func TestIsVirtual(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)

	assert.True(t, d.IsVirtual(method(t, asm, "(shapes.Shape).Area")))
	assert.True(t, d.IsVirtual(method(t, asm, "(*shapes.Square).Area")))
	assert.True(t, d.IsVirtual(method(t, asm, "(*shapes.Base).Name")))
	assert.False(t, d.IsVirtual(method(t, asm, "shapes.Free")))
}

func TestBaseChain(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)

	assert.Equal(t, typeName(t, asm, "Base"), d.BaseClass(typeName(t, asm, "Square")))
	assert.Equal(t, typeName(t, asm, "Square"), d.BaseClass(typeName(t, asm, "Deep")))
	assert.False(t, d.HasBaseClass(typeName(t, asm, "Base")))
	assert.False(t, d.HasBaseClass(typeName(t, asm, "Shape")))
}

func TestRootAndOverridden(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)
	deep := method(t, asm, "(*shapes.Deep).Area")

	root, ok := d.TryGetRootMethod(deep)
	require.True(t, ok)
	assert.Equal(t, "(*shapes.Base).Area", d.FullName(root))

	overridden := d.OverriddenAndImplementedMethods(deep)
	require.NotEmpty(t, overridden)
	assert.Equal(t, "(*shapes.Square).Area", d.FullName(overridden[0]))

	_, ok = d.TryGetRootMethod(method(t, asm, "(*shapes.Base).Area"))
	assert.False(t, ok)
}

func TestImplementedMethods(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)

	impl := d.ImplementedMethods(method(t, asm, "(*shapes.Square).Area"))
	require.Len(t, impl, 1)
	assert.Equal(t, "(shapes.Shape).Area", d.FullName(impl[0]))

	assert.Empty(t, d.ImplementedMethods(method(t, asm, "shapes.Free")))
}

func TestUnspecialized(t *testing.T) {
	t.Parallel()
	d, asm := loadShapes(t)
	m := method(t, asm, "shapes.Free")
	assert.Same(t, m, d.UnspecializedMethod(m))
	tn := typeName(t, asm, "Square")
	assert.Same(t, tn, d.UnspecializedType(tn))
}

func TestLoadFailures(t *testing.T) {
	t.Parallel()
	d := NewDecoder(nil)

	_, err := d.Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = d.Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoGoFiles))

	_, err = d.Load(writePackage(t, map[string]string{"bad.go": "package bad\nfunc {"}))
	assert.Error(t, err)

	_, err = d.Load(writePackage(t, map[string]string{"typed.go": "package typed\nvar x int = \"s\"\n"}))
	assert.Error(t, err)
}

func TestLoadSkipsTestFiles(t *testing.T) {
	t.Parallel()
	d := NewDecoder(nil)
	asm, err := d.Load(writePackage(t, map[string]string{
		"a.go":      "package a\nfunc A() {}\n",
		"a_test.go": "package a\nfunc TestA() {}\n",
	}))
	require.NoError(t, err)
	assert.Len(t, asm.Methods(), 1)
}
