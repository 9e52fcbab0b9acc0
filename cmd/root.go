package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/verify"
)

// ErrFailed is returned when a check found invalid or unproven
// assertions, or a function could not be analyzed.
var ErrFailed = errors.New("verification failed")

var (
	cfgFile string
	timeout time.Duration
	debug   bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:              "tverify [dirs...]",
	Short:            "tverify - a static contract checker for Go packages",
	Version:          verify.Version,
	Args:             cobra.ArbitraryArgs,
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		// tverify [dir1 dir2 ...] behaves like the check subcommand
		return checkCmd.RunE(cmd, args)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file (default "+verify.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Analysis budget per function, overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log analysis details")
	addCheckFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(cfgCmd)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return conf.Build()
}
