package main

import (
	"github.com/spf13/cobra"

	"CivilAIScanner/internal/app"
	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/logging"
)

// cli carries the flags shared by every command.
type cli struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "civilaiscanner",
		Short: "Collect and classify news about AI in civil engineering",
		Long: `civilaiscanner gathers articles at the intersection of civil engineering and AI
from feeds, news APIs, sitemaps and arXiv, stores them, classifies them and
reports how AI technologies spread across civil-engineering areas.

Example usage:
  civilaiscanner collect --target 200 --days 30
  civilaiscanner collect --dry-run --export out/articles.xlsx
  civilaiscanner classify --method llm --limit 50
  civilaiscanner report --method keyword --export out/report.xlsx
  civilaiscanner schedule`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $CIVILAI_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	root.AddCommand(
		c.collectCmd(),
		c.classifyCmd(),
		c.abstractsCmd(),
		c.reportCmd(),
		c.scheduleCmd(),
	)
	return root
}

// loadConfig reads the config file and applies the global flag overrides.
func (c *cli) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	return cfg, nil
}

func newApplication(cfg config.Config) *app.Application {
	return app.New(cfg, logging.New(cfg.Logging.Level))
}
