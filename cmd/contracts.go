package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gnolang/tverify/verify"
)

var contractsJSON bool

var contractsCmd = &cobra.Command{
	Use:   "contracts DIR",
	Short: "Print the composed contracts of a package",
	Long: `Prints the preconditions, postconditions and invariants of every function
and type of the package in DIR, inherited clauses included.
Example) tverify contracts ./bank`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := verify.DescribeContracts(args[0], logger)
		if err != nil {
			return err
		}
		if contractsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pc)
		}
		writeContracts(cmd.OutOrStdout(), pc)
		return nil
	},
}

func init() {
	contractsCmd.Flags().BoolVar(&contractsJSON, "json", false, "Output contracts in JSON format")
}

var (
	nameStyle   = color.New(color.FgCyan, color.Bold)
	clauseStyle = color.New(color.FgYellow)
)

func writeContracts(w io.Writer, pc *verify.PackageContracts) {
	if len(pc.Methods) == 0 && len(pc.Types) == 0 {
		fmt.Fprintf(w, "%s: no contracts\n", pc.Package)
		return
	}
	clauses := func(kind string, texts []string) {
		for _, text := range texts {
			fmt.Fprintf(w, "  %s %s\n", clauseStyle.Sprint(kind), text)
		}
	}
	for _, m := range pc.Methods {
		fmt.Fprintln(w, nameStyle.Sprint(m.Name))
		clauses("requires", m.Requires)
		clauses("ensures", m.Ensures)
		clauses("model-ensures", m.ModelEnsures)
	}
	for _, t := range pc.Types {
		fmt.Fprintln(w, nameStyle.Sprint("type "+t.Name))
		clauses("invariant", t.Invariant)
	}
}
