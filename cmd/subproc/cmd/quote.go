package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/subproc/internal/process"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [args...]",
	Short: "Print arguments as one shell-style escaped line",
	Long: `Quote prints its arguments joined by spaces, with whitespace, backslashes
and quotes backslash-escaped. This is the form used for the first line of
every log file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), process.ShellQuote(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().SetInterspersed(false)
}
