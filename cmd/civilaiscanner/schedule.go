package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run collect on the configured cron expression and serve /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			application := newApplication(cfg)
			defer application.Close()

			return application.Schedule(cmd.Context())
		},
	}
}
