package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/tverify/verify"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const fixSource = `package fix

//contract:requires d != 0
func Div(n, d int) int {
	return n / d
}

func Bad(n int) int {
	z := 0
	return n / z
}
`

const halfSource = `package half

func Half(n int) int {
	return n / 2
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs the root command with args and fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, timeout, debug = "", 0, false
	filter, jsonOutput, outPath, metricsOut, watch, verbose, jobs, cacheDir = "", false, "", "", false, false, 0, ""
	funcName, output, contractsJSON = "", "", false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExpandPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "a.go"), "package a\n")
	writeFile(t, filepath.Join(root, "a", "b", "b.go"), "package b\n")
	writeFile(t, filepath.Join(root, "a", "z.go"), "package a\n")
	writeFile(t, filepath.Join(root, "a", "testdata", "t.go"), "package t\n")
	writeFile(t, filepath.Join(root, "a", "_skip", "s.go"), "package s\n")
	writeFile(t, filepath.Join(root, "a", "only", "o_test.go"), "package only\n")

	dirs, err := expandPaths([]string{filepath.Join(root, "a") + "/..."})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, dirs)

	dirs, err = expandPaths([]string{filepath.Join(root, "a", "a.go"), filepath.Join(root, "a")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a")}, dirs)

	_, err = expandPaths([]string{filepath.Join(root, "missing")})
	assert.ErrorContains(t, err, "error accessing")
}

func TestInitConfigurationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	got, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	conf, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, verify.DefaultConfig(), *conf)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	writeFile(t, path, "name: x\nunknown: 1\n")
	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "loading "+path)
}

func TestCheckCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fix")
	writeFile(t, filepath.Join(dir, "fix.go"), fixSource)

	out, err := execute(t, "check", dir)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "invalid: division by z")
	assert.NotContains(t, out, "valid: division by d")

	out, err = execute(t, "check", "-v", dir)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "valid: division by d")

	_, err = execute(t, "check", "--filter", "Div", dir)
	assert.NoError(t, err)
}

func TestCheckCommandJSONAndMetrics(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "half")
	writeFile(t, filepath.Join(dir, "half.go"), halfSource)
	report := filepath.Join(tmp, "report.json")
	prom := filepath.Join(tmp, "tverify.prom")

	_, err := execute(t, "check", "--json", "-o", report, "--metrics-out", prom, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "packages")
	assert.Contains(t, decoded, "summary")

	data, err = os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tverify_packages_total{status="ok"} 1`)
}

func TestCheckCommandCache(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "half")
	writeFile(t, filepath.Join(dir, "half.go"), halfSource)
	cache := filepath.Join(tmp, "cache")

	first, err := execute(t, "check", "-v", "--cache", cache, dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cache, "results.gob"))

	second, err := execute(t, "check", "-v", "--cache", cache, dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRootDelegatesToCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "half")
	writeFile(t, filepath.Join(dir, "half.go"), halfSource)

	_, err := execute(t, dir)
	assert.NoError(t, err)

	fix := filepath.Join(t.TempDir(), "fix")
	writeFile(t, filepath.Join(fix, "fix.go"), fixSource)

	out, err := execute(t, "-v", fix)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "valid: division by d")

	_, err = execute(t, "--filter", "Div", fix)
	assert.NoError(t, err)
}

func TestContractsCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fix")
	writeFile(t, filepath.Join(dir, "fix.go"), fixSource)

	out, err := execute(t, "contracts", dir)
	require.NoError(t, err)
	assert.Equal(t, "fix.Div\n  requires d != 0\n", out)

	out, err = execute(t, "contracts", "--json", dir)
	require.NoError(t, err)
	var pc verify.PackageContracts
	require.NoError(t, json.Unmarshal([]byte(out), &pc))
	require.Len(t, pc.Methods, 1)
	assert.Equal(t, []string{"d != 0"}, pc.Methods[0].Requires)
}

func TestWriteContractsEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeContracts(&buf, &verify.PackageContracts{Package: "p"})
	assert.Equal(t, "p: no contracts\n", buf.String())
}

func TestCFGCommand(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "fix")
	file := filepath.Join(dir, "fix.go")
	writeFile(t, file, fixSource)

	out, err := execute(t, "cfg", "--func", "Bad", file)
	require.NoError(t, err)
	assert.Contains(t, out, "CFG for function Bad in "+dir)
	assert.Contains(t, out, `"ENTRY" -> "assignment - line 9"`)

	dot := filepath.Join(tmp, "bad.dot")
	out, err = execute(t, "cfg", "--func", "Bad", "-o", dot, dir)
	require.NoError(t, err)
	assert.Equal(t, "GraphViz file created: "+dot+"\n", out)
	assert.FileExists(t, dot)

	_, err = execute(t, "cfg", "--func", "Nope", dir)
	assert.EqualError(t, err, "function not found: Nope")
}
