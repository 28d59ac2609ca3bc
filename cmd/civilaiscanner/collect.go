package main

import (
	"github.com/spf13/cobra"

	"CivilAIScanner/internal/config"
)

type collectFlags struct {
	target      int
	days        int
	minLength   int
	concurrency int
	dryRun      bool
	export      string
	fullText    string
	noFilter    bool
	sources     []string
}

func (c *cli) collectCmd() *cobra.Command {
	f := &collectFlags{}
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch, filter and store new articles",
		Long: `Fan out over every enabled source, keep candidates inside the lookback window
that mention both a civil-engineering and an AI keyword, and store them until
the target count is reached.

Examples:
  civilaiscanner collect
  civilaiscanner collect --source arxiv --source guardian --days 7
  civilaiscanner collect --full-text always --min-length 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg.Pipeline)

			application := newApplication(cfg)
			defer application.Close()

			result, err := application.Collect(cmd.Context())
			if err != nil {
				return err
			}
			return renderRun(cmd.OutOrStdout(), result)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.target, "target", 0, "stop after this many new articles")
	flags.IntVar(&f.days, "days", 0, "lookback window in days")
	flags.IntVar(&f.minLength, "min-length", 0, "minimum length of an extracted body")
	flags.IntVar(&f.concurrency, "concurrency", 0, "parallel network calls")
	flags.BoolVar(&f.dryRun, "dry-run", false, "do not write to the store")
	flags.StringVar(&f.export, "export", "", "write admitted articles to a .xlsx or .csv file")
	flags.StringVar(&f.fullText, "full-text", "", "full-text extraction: never|fallback|always")
	flags.BoolVar(&f.noFilter, "no-filter", false, "admit candidates without the keyword intersection")
	flags.StringArrayVar(&f.sources, "source", nil, "restrict the run to this source (repeatable)")
	return cmd
}

// apply copies the flags the user actually set over the configured pipeline.
func (f *collectFlags) apply(cmd *cobra.Command, p *config.PipelineConfig) {
	changed := cmd.Flags().Changed
	if changed("target") {
		p.TargetCount = f.target
	}
	if changed("days") {
		p.LookbackDays = f.days
	}
	if changed("min-length") {
		p.MinBodyLength = f.minLength
	}
	if changed("concurrency") {
		p.Concurrency = f.concurrency
	}
	if changed("full-text") {
		p.FullText = f.fullText
	}
	if changed("no-filter") {
		p.DisableTopicFilter = f.noFilter
	}
	p.DryRun = f.dryRun
	p.ExportPath = f.export
	p.OnlySources = f.sources
}
