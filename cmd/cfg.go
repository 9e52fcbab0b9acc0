package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnolang/tverify/internal/analysis/cfg"
	"github.com/gnolang/tverify/verify"
)

// variable for flags
var (
	funcName string
	output   string
)

var cfgCmd = &cobra.Command{
	Use:   "cfg --func NAME DIR|FILE",
	Short: "Print the control flow graph of a function",
	Long: `Outputs the Control Flow Graph (CFG) of the specified function, in DOT format
or rendered by GraphViz. Statements proven unreachable are marked.
Example) tverify cfg --func Withdraw ./bank -o withdraw.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCFGAnalysis(cmd, args[0], funcName, output)
	},
}

func init() {
	cfgCmd.Flags().StringVar(&funcName, "func", "", "Function name for CFG analysis")
	cfgCmd.Flags().StringVarP(&output, "output", "o", "", "Output path for rendered GraphViz file")
	_ = cfgCmd.MarkFlagRequired("func")
}

func runCFGAnalysis(cmd *cobra.Command, path, funcName, output string) error {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	dot, err := verify.FunctionCFG(dir, funcName, logger)
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "CFG for function %s in %s:\n%s\n", funcName, dir, dot)
		return nil
	}
	if err := cfg.RenderToGraphVizFile([]byte(dot), output); err != nil {
		return fmt.Errorf("failed to render CFG to GraphViz file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "GraphViz file created: %s\n", output)
	return nil
}
