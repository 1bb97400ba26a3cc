// Package cli implements the tracksync command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the tracksync version. It is a var (not a const) so build
// tooling can override it via `-ldflags "-X .../internal/cli.Version=1.2.3"`.
var Version = "0.3.0"

// Run executes the CLI with args (typically os.Args[1:]) and returns the
// process exit code.
func Run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tracksync",
		Short:         "Sync tracked changes across the columns of a bilingual Word table",
		Long:          "tracksync reads tracked insertions/deletions from one language column of a bilingual Word table and reproduces the corresponding edits, in the other language, as new tracked changes in the target column.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSyncCommand())
	root.AddCommand(newExtractCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tracksync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tracksync "+Version)
		},
	}
}

// defaultOutputPath derives the output path for an input document:
// contract.docx -> contract_synced.docx.
func defaultOutputPath(input string) string {
	ext := ""
	base := input
	if i := lastDot(input); i != -1 {
		base, ext = input[:i], input[i:]
	}
	return base + "_synced" + ext
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
		if s[i] == '/' || s[i] == os.PathSeparator {
			return -1
		}
	}
	return -1
}
