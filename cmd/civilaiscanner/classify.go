package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/usecase"
)

func (c *cli) classifyCmd() *cobra.Command {
	var (
		method string
		opts   usecase.ClassifyOptions
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Assign civil-engineering areas and AI technologies to stored articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			application := newApplication(cfg)
			defer application.Close()

			result, err := application.Classify(cmd.Context(), domain.ClassificationMethod(method), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "classify %s: selected=%d saved=%d empty=%d failed=%d\n",
				result.Method, result.Selected, result.Saved, result.Empty, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", string(domain.MethodKeyword), "classifier: keyword|llm")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "classify at most this many articles (0 = all)")
	cmd.Flags().BoolVar(&opts.Reclassify, "reclassify", false, "replace existing classifications of the method")
	return cmd
}

func (c *cli) abstractsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "abstracts",
		Short: "Generate short abstracts for stored articles that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			application := newApplication(cfg)
			defer application.Close()

			result, err := application.Abstracts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "abstracts: selected=%d saved=%d failed=%d\n",
				result.Selected, result.Saved, result.Failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many articles (0 = all)")
	return cmd
}
