package main

import (
	"github.com/spf13/cobra"

	"CivilAIScanner/internal/domain"
)

func (c *cli) reportCmd() *cobra.Command {
	var method, exportPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild the co-occurrence matrix and monthly trends",
		Long: `Aggregate the classifications of one method into a civil-engineering area by
AI technology matrix and a month by area trend, store both tables and print them.

Examples:
  civilaiscanner report
  civilaiscanner report --method llm --export out/report.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			application := newApplication(cfg)
			defer application.Close()

			report, err := application.Report(cmd.Context(), domain.ClassificationMethod(method), exportPath)
			if err != nil {
				return err
			}
			return renderReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&method, "method", string(domain.MethodKeyword), "classification method: keyword|llm")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the report to a .xlsx (matrix and trends) or .csv (matrix) file")
	return cmd
}
