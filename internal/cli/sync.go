package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tracksync/tracksync/internal/docx"
	"github.com/tracksync/tracksync/internal/engine"
	"github.com/tracksync/tracksync/internal/mapper"
)

type syncOptions struct {
	output       string
	provider     string
	model        string
	apiKey       string
	strategy     string
	sourceColumn int
	targetColumn int
	sourceLang   string
	targetLang   string
	author       string
	preset       string
}

func newSyncCommand() *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync <document.docx>",
		Short: "Reproduce the source column's tracked changes in the target column",
		Example: `  tracksync sync contract.docx
  tracksync sync contract.docx --preset zh-en --provider deepseek
  tracksync sync contract.docx --source-column 1 --target-column 0 -o out.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output document path (default: <input>_synced.docx)")
	f.StringVar(&opts.provider, "provider", "anthropic", "LLM provider ("+joinProviderIDs()+")")
	f.StringVar(&opts.model, "model", "", "model name (provider default if unset)")
	f.StringVar(&opts.apiKey, "api-key", "", "API key (or use the provider's environment variable)")
	f.StringVar(&opts.strategy, "strategy", string(mapper.StrategyMaxTokens), "mapping strategy: max-tokens or batch")
	f.IntVar(&opts.sourceColumn, "source-column", 0, "source language column index")
	f.IntVar(&opts.targetColumn, "target-column", 1, "target language column index")
	f.StringVar(&opts.sourceLang, "source-lang", "Chinese", "source language name")
	f.StringVar(&opts.targetLang, "target-lang", "English", "target language name")
	f.StringVar(&opts.author, "author", "Claude", "tracked-changes author name")
	f.StringVar(&opts.preset, "preset", "", "language preset ("+joinPresetNames()+"); overrides column and language flags")

	return cmd
}

func runSync(cmd *cobra.Command, input string, opts syncOptions) error {
	if opts.preset != "" {
		p, err := lookupPreset(opts.preset)
		if err != nil {
			return err
		}
		opts.sourceColumn, opts.targetColumn = p.SourceColumn, p.TargetColumn
		opts.sourceLang, opts.targetLang = p.SourceLang, p.TargetLang
	}

	out := cmd.OutOrStdout()
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	pkg, err := docx.Open(input)
	if err != nil {
		return err
	}

	m, err := mapper.NewLLM(mapper.Options{
		Provider:   opts.provider,
		Model:      opts.model,
		APIKey:     opts.apiKey,
		Strategy:   mapper.Strategy(opts.strategy),
		SourceLang: opts.sourceLang,
		TargetLang: opts.targetLang,
	})
	if err != nil {
		return err
	}

	eng := engine.New(m, engine.Config{
		SourceColumn: opts.sourceColumn,
		TargetColumn: opts.targetColumn,
		Author:       opts.author,
	})

	if interactive {
		fmt.Fprintf(out, "Syncing %s -> %s (provider %s)\n", opts.sourceLang, opts.targetLang, opts.provider)
	}

	summary, err := eng.Sync(cmd.Context(), pkg)
	if err != nil {
		return err
	}

	for _, row := range summary.Rows {
		switch row.Status {
		case engine.StatusApplied:
			fmt.Fprintf(out, "row %d: applied %d changes\n", row.RowIndex, row.Changes)
		case engine.StatusSkipped:
			fmt.Fprintf(out, "row %d: no change needed\n", row.RowIndex)
		case engine.StatusFailed:
			fmt.Fprintf(out, "row %d: failed: %v\n", row.RowIndex, row.Err)
		}
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input)
	}
	if err := pkg.Save(output); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d applied, %d skipped, %d failed -> %s\n",
		summary.Applied, summary.Skipped, summary.Failed, output)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", summary.Failed, summary.Candidates())
	}
	return nil
}

func joinProviderIDs() string { return strings.Join(mapper.ProviderIDs(), ", ") }
func joinPresetNames() string { return strings.Join(presetNames(), ", ") }
