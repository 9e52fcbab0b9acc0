// Package checker runs every analysis over the functions of one package
// and gathers their diagnostics.
package checker

import (
	"errors"
	"fmt"
	"go/types"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/analysis"
	"github.com/gnolang/tverify/internal/analysis/arithmetic"
	"github.com/gnolang/tverify/internal/analysis/facts"
	"github.com/gnolang/tverify/internal/analysis/nonnull"
	"github.com/gnolang/tverify/internal/assertions"
	"github.com/gnolang/tverify/internal/contracts"
	"github.com/gnolang/tverify/internal/driver"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/methodcache"
	"github.com/gnolang/tverify/internal/metrics"
	"github.com/gnolang/tverify/internal/nolint"
	"github.com/gnolang/tverify/internal/proof"
	"github.com/gnolang/tverify/internal/timeout"
)

const (
	msgNoAssembly   = "No assembly given to check"
	msgCannotLoad   = "Cannot load assembly: "
	msgNoMethods    = "No methods found."
	exceptionPrefix = "Exception: "
)

// ErrAlreadyAnalyzed is returned by Analyze on a used checker.
var ErrAlreadyAnalyzed = errors.New("checker already analyzed its package")

// Loader loads the package in a directory.
type Loader func(dir string) (*metadata.Assembly, error)

// Option customizes a Checker.
type Option func(*Checker)

// WithModules replaces the default analysis modules.
func WithModules(modules ...analysis.Module) Option {
	return func(c *Checker) { c.modules = modules }
}

// WithMetrics records the run into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Checker) { c.metrics = r }
}

// WithLoader replaces the metadata decoder's loader.
func WithLoader(load Loader) Option {
	return func(c *Checker) { c.load = load }
}

// Checker analyzes one package. It is used once and is not safe for
// concurrent use.
type Checker struct {
	opts   Options
	logger *zap.Logger

	meta      *metadata.Decoder
	contracts *contracts.Decoder
	cache     *methodcache.MethodCache
	modules   []analysis.Module
	finder    *assertions.Finder
	metrics   *metrics.Recorder
	load      Loader
	ignores   map[*metadata.Assembly]*nolint.Manager

	analyzed bool
}

func New(opts Options, logger *zap.Logger, options ...Option) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{
		opts:      opts,
		logger:    logger,
		meta:      metadata.NewDecoder(logger),
		contracts: contracts.NewDecoder(logger),
		modules:   []analysis.Module{nonnull.New(), arithmetic.New()},
		ignores:   make(map[*metadata.Assembly]*nolint.Manager),
	}
	c.cache = methodcache.New(logger, c.meta, c.contracts)
	c.finder = assertions.NewFinder(c.contracts)
	c.load = c.meta.Load
	for _, o := range options {
		o(c)
	}
	return c
}

// Check analyzes the package named by opts with a fresh Checker.
func Check(opts Options, logger *zap.Logger, options ...Option) *Results {
	if opts.Assembly == "" {
		return ErrorResults(msgNoAssembly)
	}
	res, err := New(opts, logger, options...).Analyze()
	if err != nil {
		return ErrorResults(err.Error())
	}
	return res
}

// Analyze checks the package of the options. It may be called once.
func (c *Checker) Analyze() (*Results, error) {
	if c.analyzed {
		return nil, ErrAlreadyAnalyzed
	}
	c.analyzed = true
	if c.opts.Assembly == "" {
		return ErrorResults(msgNoAssembly), nil
	}
	return c.AnalyzeAssembly(c.opts.Assembly), nil
}

// AnalyzeAssembly loads the package in path and analyzes each of its
// functions that has a body and matches the method filter.
func (c *Checker) AnalyzeAssembly(path string) *Results {
	asm, err := c.load(path)
	if err != nil {
		c.logger.Debug("cannot load package", zap.String("dir", path), zap.Error(err))
		c.metrics.ObservePackage(false)
		return ErrorResults(msgCannotLoad + err.Error())
	}
	c.contracts.Index(asm)

	res := newResults(asm.Pkg.Path())
	res.Warnings = append(res.Warnings, c.applyOverlays(asm)...)
	for _, m := range asm.Methods() {
		if lines, ok := c.AnalyzeMethod(asm, m); ok {
			res.add(metadata.FullName(m), lines)
		}
	}
	if len(res.Results) == 0 {
		c.metrics.ObservePackage(false)
		return ErrorResults(msgNoMethods)
	}
	c.metrics.ObservePackage(true)
	c.logger.Debug("package analyzed",
		zap.String("package", res.Package),
		zap.Int("functions", len(res.Results)),
		zap.Int("exceptions", res.Exceptions()))
	return res
}

// AnalyzeMethod returns the diagnostics of m. ok is false when m is
// skipped. A failure of the analysis, panics included, becomes a single
// "Exception: <message>" line.
func (c *Checker) AnalyzeMethod(asm *metadata.Assembly, m *types.Func) (lines []string, ok bool) {
	decl := asm.Decl(m)
	if decl == nil || decl.Body == nil {
		return nil, false
	}
	fullName := metadata.FullName(m)
	if c.opts.MethodFilter != "" && !strings.Contains(fullName, c.opts.MethodFilter) {
		return nil, false
	}

	start := time.Now()
	lines, err := c.analyzeMethod(asm, m)
	c.metrics.ObserveMethod(err != nil, time.Since(start))
	if err != nil {
		c.logger.Debug("analysis failed", zap.String("method", fullName), zap.Error(err))
		return []string{exceptionPrefix + err.Error()}, true
	}
	return lines, true
}

func (c *Checker) analyzeMethod(asm *metadata.Assembly, m *types.Func) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, isErr := r.(error); isErr {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()

	tc := timeout.New(c.opts.Timeout, true)
	defer tc.Stop()

	d, err := driver.New(driver.Config{
		Meta:      c.meta,
		Contracts: c.cache,
		Timeout:   tc,
		Logger:    c.logger,
	}, asm, m)
	if err != nil {
		return nil, err
	}
	if c.opts.Debug {
		assumed := make([]string, 0, len(d.Assumptions()))
		for _, e := range d.Assumptions() {
			assumed = append(assumed, types.ExprString(e))
		}
		d.Logger.Info("analyzing", zap.Int("nodes", len(d.CFG.Blocks())), zap.Strings("assumptions", assumed))
	}

	providers := []facts.Query{d.Constants()}
	results := make([]analysis.MethodResult, 0, len(c.modules))
	for _, mod := range c.modules {
		r, err := mod.Analyze(d.FullName, d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mod.Name(), err)
		}
		results = append(results, r)
		providers = append(providers, r.Query())
	}
	q := facts.NewComposed(d.IsUnreachable, providers...)

	diags := analysis.NewDiagnostics()
	sink := &ignoringSink{next: diags, ignores: c.ignoresOf(asm)}
	for _, r := range results {
		if err := r.ValidateImplicitAssertions(q, sink); err != nil {
			return nil, err
		}
	}
	if err := c.finder.Validate(d, q, sink); err != nil {
		return nil, err
	}
	if sink.dropped > 0 {
		d.Logger.Debug("diagnostics ignored", zap.Int("count", sink.dropped))
	}

	for _, o := range []proof.Outcome{proof.True, proof.False, proof.Top, proof.Bottom} {
		c.metrics.ObserveAssertions(o.Verdict(), diags.Count(o))
	}
	lines = diags.Lines()
	if c.opts.Debug {
		for _, l := range lines {
			d.Logger.Info(l)
		}
	}
	return lines, nil
}

func (c *Checker) ignoresOf(asm *metadata.Assembly) *nolint.Manager {
	if m, ok := c.ignores[asm]; ok {
		return m
	}
	m, errs := nolint.Parse(asm.Fset, asm.Files...)
	for _, err := range errs {
		c.logger.Debug("malformed ignore comment", zap.Error(err))
	}
	c.ignores[asm] = m
	return m
}

// ignoringSink drops the outcomes silenced by //tverify:ignore comments.
type ignoringSink struct {
	next    analysis.Sink
	ignores *nolint.Manager
	dropped int
}

func (s *ignoringSink) Report(o analysis.Obligation, outcome proof.Outcome) {
	if s.ignores.Ignored(o.Pos, nolint.Category(o.Provenance)) {
		s.dropped++
		return
	}
	s.next.Report(o, outcome)
}
