package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/formatter"
	"github.com/gnolang/tverify/internal/metrics"
	"github.com/gnolang/tverify/verify"
)

var (
	filter     string
	jsonOutput bool
	outPath    string
	metricsOut string
	watch      bool
	verbose    bool
	jobs       int
	cacheDir   string
)

var checkCmd = &cobra.Command{
	Use:   "check [dirs...]",
	Short: "Check the contracts and assertions of Go packages",
	Long: `Checks every function of the packages in the given directories.
A path ending in /... selects every package below it.
Example) tverify check --filter Withdraw ./...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		dirs, err := expandPaths(args)
		if err != nil {
			return err
		}
		conf, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		base := checkOptions(cmd, conf)

		runner := &verify.Runner{Logger: logger, Jobs: jobs}
		if !jsonOutput {
			runner.Progress = cmd.ErrOrStderr()
		}
		if metricsOut != "" {
			runner.Metrics = metrics.NewRecorder()
		}
		if cacheDir != "" {
			cache, err := verify.OpenCache(cacheDir)
			if err != nil {
				return err
			}
			runner.Cache = cache
		}

		failed, err := runCheck(cmd.Context(), runner, base, dirs, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if watch {
			return runWatch(cmd.Context(), runner, base, dirs, cmd.OutOrStdout())
		}
		if failed {
			return ErrFailed
		}
		return nil
	},
}

func init() {
	addCheckFlags(checkCmd)
}

// addCheckFlags registers the check flags on c. The root command carries
// them too since it runs a check when given directories.
func addCheckFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&filter, "filter", "", "Only check functions whose full name contains this string")
	f.BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	f.StringVarP(&outPath, "output", "o", "", "Output path")
	f.StringVar(&metricsOut, "metrics-out", "", "Write run metrics in Prometheus text format to this file")
	f.BoolVar(&watch, "watch", false, "Check again whenever a Go file changes")
	f.BoolVarP(&verbose, "verbose", "v", false, "Also print valid and unreachable assertions")
	f.IntVarP(&jobs, "jobs", "j", 0, "Packages checked at once (default one per CPU)")
	f.StringVar(&cacheDir, "cache", "", "Reuse the results of unchanged packages stored in this directory")
}

// loadConfig reads path, or the default configuration file when path is
// empty. A missing default file yields the default configuration.
func loadConfig(path string) (*verify.Config, error) {
	if path == "" {
		if _, err := os.Stat(verify.DefaultConfigFile); errors.Is(err, fs.ErrNotExist) {
			conf := verify.DefaultConfig()
			return &conf, nil
		}
		path = verify.DefaultConfigFile
	}
	conf, err := verify.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return conf, nil
}

// checkOptions applies the flags set on the command line over conf.
func checkOptions(cmd *cobra.Command, conf *verify.Config) verify.CheckOptions {
	opts := conf.Options("")
	if cmd.Flags().Changed("filter") {
		opts.MethodFilter = filter
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = timeout
	}
	opts.Debug = opts.Debug || debug
	return opts
}

// expandPaths turns the arguments into package directories. A path
// ending in /... expands to every directory below it holding Go files;
// a Go file stands for its directory.
func expandPaths(args []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	for _, arg := range args {
		if root, ok := strings.CutSuffix(arg, "..."); ok {
			root = strings.TrimSuffix(root, "/")
			if root == "" {
				root = "."
			}
			found, err := packageDirs(root)
			if err != nil {
				return nil, err
			}
			for _, dir := range found {
				add(dir)
			}
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", arg, err)
		}
		if !info.IsDir() {
			arg = filepath.Dir(arg)
		}
		add(arg)
	}
	return dirs, nil
}

func packageDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "testdata" || name == "vendor" ||
				strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			dir := filepath.Dir(path)
			if len(dirs) == 0 || dirs[len(dirs)-1] != dir {
				dirs = append(dirs, dir)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, err)
	}
	return dirs, nil
}

// runCheck checks dirs, writes the report and the metrics, and reports
// whether the run failed.
func runCheck(ctx context.Context, runner *verify.Runner, base verify.CheckOptions, dirs []string, stdout io.Writer) (bool, error) {
	results, err := runner.CheckAll(ctx, base, dirs)
	if err != nil {
		return false, err
	}
	if err := writeReport(results, stdout); err != nil {
		return false, err
	}
	if metricsOut != "" {
		if err := runner.Metrics.WriteTextfile(metricsOut); err != nil {
			logger.Error("Error writing metrics", zap.String("path", metricsOut), zap.Error(err))
		}
	}
	return formatter.Summarize(results...).Failed(), nil
}

func writeReport(results []*verify.CheckResults, stdout io.Writer) error {
	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if jsonOutput {
		return formatter.WriteJSON(w, results...)
	}
	return formatter.NewText(formatter.TextOptions{Verbose: verbose}).Write(w, results...)
}

func runWatch(ctx context.Context, runner *verify.Runner, base verify.CheckOptions, dirs []string, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w, err := verify.NewWatcher(dirs, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "watching for changes, press Ctrl+C to stop")
	return w.Run(ctx, func(changed []string) {
		if _, err := runCheck(ctx, runner, base, changed, stdout); err != nil {
			logger.Error("Error checking changed packages", zap.Strings("dirs", changed), zap.Error(err))
		}
	})
}
