package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/app"
	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/usecase"
)

func TestRootRegistersCommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"collect", "classify", "abstracts", "report", "schedule"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestCollectFlagsOverrideOnlyWhatIsSet(t *testing.T) {
	t.Parallel()

	c := &cli{}
	cmd := c.collectCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--target", "25",
		"--full-text", "always",
		"--source", "arxiv-robotics",
		"--source", "guardian",
		"--dry-run",
	}))

	p := config.PipelineConfig{TargetCount: 1000, LookbackDays: 30, Concurrency: 10, FullText: config.FullTextFallback}
	f := &collectFlags{}
	f.target, _ = cmd.Flags().GetInt("target")
	f.fullText, _ = cmd.Flags().GetString("full-text")
	f.sources, _ = cmd.Flags().GetStringArray("source")
	f.dryRun, _ = cmd.Flags().GetBool("dry-run")
	f.apply(cmd, &p)

	assert.Equal(t, 25, p.TargetCount)
	assert.Equal(t, 30, p.LookbackDays)
	assert.Equal(t, 10, p.Concurrency)
	assert.Equal(t, config.FullTextAlways, p.FullText)
	assert.True(t, p.DryRun)
	assert.Equal(t, []string{"arxiv-robotics", "guardian"}, p.OnlySources)
	assert.False(t, p.DisableTopicFilter)
}

func TestClassifyUnknownMethodFails(t *testing.T) {
	t.Setenv("CIVILAI_CONFIG", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"classify", "--method", "bayes", "--log-level", "error"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, app.ErrUnknownMethod))
}

func TestMissingConfigFileFails(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"report", "--config", t.TempDir() + "/missing.yaml"})

	require.Error(t, root.ExecuteContext(context.Background()))
}

func TestRenderReport(t *testing.T) {
	t.Parallel()

	matrix := make([][]int, len(domain.CEAreas))
	for i := range matrix {
		matrix[i] = make([]int, len(domain.AITechnologies))
	}
	matrix[0][0] = 42

	var out bytes.Buffer
	err := renderReport(&out, domain.Report{
		Method:   domain.MethodKeyword,
		Articles: 42,
		Matrix:   matrix,
		Trends:   []domain.TrendRow{{Period: "2025-03", Area: domain.AreaStructural, Count: 7}},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "report keyword: 42 classified articles")
	assert.Contains(t, text, domain.AreaEnvironmental)
	assert.Contains(t, text, "42")
	assert.Contains(t, text, "2025-03")
}

func TestRenderRun(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	err := renderRun(&out, usecase.RunResult{
		Stats: domain.RunStats{RunID: "r1", Fetched: 3, Persisted: 1, Failed: 1},
		Articles: []domain.Article{{
			Title:       "AI Robots Build Bridges",
			Source:      "rss",
			PublishedAt: &published,
		}},
		Failures: []domain.SourceFailure{{Source: "gdelt", Err: errors.New("status 503")}},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "run r1: fetched=3")
	assert.Contains(t, text, "source gdelt failed: status 503")
	assert.Contains(t, text, "AI Robots Build Bridges")
	assert.Contains(t, text, "2025-05-20")
}
