package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/subproc/internal/process"
)

var outputDir string

var outputCmd = &cobra.Command{
	Use:   "output [flags] [--] command [args...]",
	Short: "Run a short metadata command and print its stdout",
	Long: `Output runs a quick command such as "rustc --version" to completion and
prints its standard output. Standard error passes through to the terminal.
A non-zero exit or output that is not UTF-8 is an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := process.CommandOutput(args, outputDir)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outputCmd)

	outputCmd.Flags().SetInterspersed(false)
	outputCmd.Flags().StringVar(&outputDir, "dir", "", "working directory for the command")
}
