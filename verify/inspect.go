package verify

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/analysis/dataflow"
	"github.com/gnolang/tverify/internal/contracts"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/methodcache"
	"github.com/gnolang/tverify/internal/subroutine"
	"github.com/gnolang/tverify/internal/timeout"
)

// MethodContracts are the contracts of one function, inherited clauses
// included.
type MethodContracts struct {
	Name         string   `json:"name"`
	Requires     []string `json:"requires,omitempty"`
	Ensures      []string `json:"ensures,omitempty"`
	ModelEnsures []string `json:"model_ensures,omitempty"`
}

// TypeContracts is the invariant of one type, inherited clauses included.
type TypeContracts struct {
	Name      string   `json:"name"`
	Invariant []string `json:"invariant"`
}

// PackageContracts lists every function and type of a package that has
// a contract.
type PackageContracts struct {
	Package string            `json:"package"`
	Methods []MethodContracts `json:"methods"`
	Types   []TypeContracts   `json:"types"`
}

type loaded struct {
	asm   *metadata.Assembly
	meta  *metadata.Decoder
	cache *methodcache.MethodCache
}

func load(dir string, logger *zap.Logger) (*loaded, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta := metadata.NewDecoder(logger)
	asm, err := meta.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot load %s: %w", dir, err)
	}
	dec := contracts.NewDecoder(logger)
	dec.Index(asm)
	return &loaded{asm: asm, meta: meta, cache: methodcache.New(logger, meta, dec)}, nil
}

// DescribeContracts composes the contracts of the package in dir.
func DescribeContracts(dir string, logger *zap.Logger) (*PackageContracts, error) {
	l, err := load(dir, logger)
	if err != nil {
		return nil, err
	}
	out := &PackageContracts{Package: l.asm.Pkg.Path()}
	for _, m := range l.asm.Methods() {
		mc := MethodContracts{
			Name:         metadata.FullName(m),
			Requires:     clauseTexts(l.cache.Requires(m)),
			Ensures:      clauseTexts(l.cache.Ensures(m)),
			ModelEnsures: clauseTexts(l.cache.ModelEnsures(m)),
		}
		if len(mc.Requires)+len(mc.Ensures)+len(mc.ModelEnsures) > 0 {
			out.Methods = append(out.Methods, mc)
		}
	}
	for _, t := range l.asm.Types() {
		if inv := clauseTexts(l.cache.Invariant(t)); len(inv) > 0 {
			out.Types = append(out.Types, TypeContracts{Name: t.Name(), Invariant: inv})
		}
	}
	return out, nil
}

func clauseTexts(s *subroutine.Subroutine) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, c := range s.Clauses() {
		out = append(out, c.Text)
	}
	return out
}

// FunctionCFG returns the control flow graph of the function or method
// called name in the package in dir, in DOT format. Statements that
// constant propagation proves unreachable are marked.
func FunctionCFG(dir, name string, logger *zap.Logger) (string, error) {
	l, err := load(dir, logger)
	if err != nil {
		return "", err
	}
	m, err := findFunction(l.asm, name)
	if err != nil {
		return "", err
	}
	d, err := driver.New(driver.Config{
		Meta:      l.meta,
		Contracts: l.cache,
		Timeout:   timeout.New(0, true),
		Logger:    logger,
	}, l.asm, m)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	d.CFG.PrintDot(&buf, l.asm.Fset, func(n ast.Stmt) string {
		if n != d.CFG.Entry && n != d.CFG.Exit && d.IsUnreachable(dataflow.Before(n)) {
			return " (unreachable)"
		}
		return ""
	})
	return buf.String(), nil
}

// findFunction matches name against full names first, then against bare
// function or method names, which must be unambiguous.
func findFunction(asm *metadata.Assembly, name string) (*types.Func, error) {
	if m, ok := asm.LookupMethod(name); ok {
		return m, nil
	}
	var found []*types.Func
	for _, m := range asm.Methods() {
		if m.Name() == name && asm.Decl(m) != nil {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("function not found: %s", name)
	case 1:
		return found[0], nil
	default:
		names := make([]string, 0, len(found))
		for _, m := range found {
			names = append(names, metadata.FullName(m))
		}
		return nil, fmt.Errorf("ambiguous function %s: %s", name, strings.Join(names, ", "))
	}
}
