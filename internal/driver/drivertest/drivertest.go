// Package drivertest builds drivers over throwaway packages for tests.
package drivertest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/internal/contracts"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/methodcache"
	"github.com/gnolang/tverify/internal/timeout"
)

// Package is a loaded and indexed source package.
type Package struct {
	Assembly  *metadata.Assembly
	Meta      *metadata.Decoder
	Contracts *contracts.Decoder
	Cache     *methodcache.MethodCache
}

// Load writes src to a temporary directory as fix.go and loads it.
func Load(t *testing.T, src string) *Package {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fix.go"), []byte(src), 0o644))

	meta := metadata.NewDecoder(nil)
	asm, err := meta.Load(dir)
	require.NoError(t, err)
	dec := contracts.NewDecoder(nil)
	dec.Index(asm)
	return &Package{
		Assembly:  asm,
		Meta:      meta,
		Contracts: dec,
		Cache:     methodcache.New(nil, meta, dec),
	}
}

// Driver builds the driver of the function with the given full name.
func (p *Package) Driver(t *testing.T, fullName string) *driver.Driver {
	t.Helper()
	m, ok := p.Assembly.LookupMethod(fullName)
	require.True(t, ok, "no function %s", fullName)
	d, err := driver.New(driver.Config{
		Meta:      p.Meta,
		Contracts: p.Cache,
		Timeout:   timeout.New(0, true),
	}, p.Assembly, m)
	require.NoError(t, err)
	return d
}
