// Package verify checks the contracts of Go packages: it proves or
// refutes their //contract: directives and the safety of their pointer
// dereferences and integer divisions.
package verify

import (
	"context"
	"io"
	"runtime"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/tverify/internal/checker"
	"github.com/gnolang/tverify/internal/metrics"
)

// Version is the version of the tool.
const Version = "0.3.0"

type (
	CheckOptions     = checker.Options
	CheckResults     = checker.Results
	ContractOverlay  = checker.ContractOverlay
	InvariantOverlay = checker.InvariantOverlay
)

// ErrorResults returns a result carrying msg as its only warning.
func ErrorResults(msg string) *CheckResults { return checker.ErrorResults(msg) }

// Check analyzes the package named by opts.
func Check(opts CheckOptions, logger *zap.Logger) *CheckResults {
	return (&Runner{Logger: logger}).Check(opts)
}

// Runner checks packages with shared logging, metrics and progress.
type Runner struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// Progress receives a progress bar in CheckAll when set.
	Progress io.Writer
	// Jobs bounds the packages checked at once. Zero means one per CPU.
	Jobs int
	// Cache, when set, skips packages unchanged since their last check.
	Cache *Cache
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Check analyzes the package named by opts on a fresh checker.
func (r *Runner) Check(opts CheckOptions) *CheckResults {
	return r.check(opts, uuid.NewString())
}

func (r *Runner) check(opts CheckOptions, runID string) *CheckResults {
	logger := r.logger().With(zap.String("run", runID), zap.String("dir", opts.Assembly))
	if r.Cache != nil {
		if cached, ok := r.Cache.Get(opts); ok {
			logger.Debug("using cached results")
			res := *cached
			res.RunID = runID
			return &res
		}
	}
	res := checker.Check(opts, logger, checker.WithMetrics(r.Metrics))
	res.RunID = runID
	if r.Cache != nil {
		if err := r.Cache.Set(opts, res); err != nil {
			logger.Warn("cannot cache results", zap.Error(err))
		}
	}
	return res
}

// CheckAll analyzes every directory of dirs with the options of base.
// Each package gets its own checker; results are in the order of dirs.
func (r *Runner) CheckAll(ctx context.Context, base CheckOptions, dirs []string) ([]*CheckResults, error) {
	runID := uuid.NewString()
	results := make([]*CheckResults, len(dirs))

	var bar *progressbar.ProgressBar
	if r.Progress != nil {
		bar = progressbar.NewOptions(len(dirs),
			progressbar.OptionSetWriter(r.Progress),
			progressbar.OptionSetDescription("checking"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts := base
			opts.Assembly = dir
			results[i] = r.check(opts, runID)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	r.logger().Debug("run finished", zap.String("run", runID), zap.Int("packages", len(dirs)))
	return results, nil
}
