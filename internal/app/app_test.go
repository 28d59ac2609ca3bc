package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/usecase"
)

func testConfig() config.Config {
	return config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
		Pipeline: config.PipelineConfig{
			TargetCount:  10,
			LookbackDays: 7,
			Concurrency:  2,
			FullText:     config.FullTextNever,
		},
	}
}

func newTestApp(cfg config.Config) *Application {
	return New(cfg, slog.New(slog.DiscardHandler))
}

func TestClassifyRejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	a := newTestApp(testConfig())
	_, err := a.Classify(context.Background(), "bayes", usecase.ClassifyOptions{})
	require.ErrorIs(t, err, ErrUnknownMethod)

	_, err = a.Report(context.Background(), "bayes", "")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestLLMCommandsNeedKeyBeforeTouchingStore(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Database.Driver = "oracle"
	a := newTestApp(cfg)

	_, err := a.Classify(context.Background(), domain.MethodLLM, usecase.ClassifyOptions{})
	require.ErrorIs(t, err, config.ErrMissingCredential)

	_, err = a.Abstracts(context.Background(), 5)
	require.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Nil(t, a.db)
}

func TestCollectFailsOnMissingSourceKey(t *testing.T) {
	t.Parallel()

	yes := true
	cfg := testConfig()
	cfg.Pipeline.DryRun = true
	cfg.Sources = []config.SourceConfig{{Name: "newsapi", Scanner: "newsapi", Enabled: &yes}}

	_, err := newTestApp(cfg).Collect(context.Background())
	require.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestDryRunCollectWithoutSourcesFails(t *testing.T) {
	t.Parallel()

	no := false
	cfg := testConfig()
	cfg.Pipeline.DryRun = true
	cfg.Sources = []config.SourceConfig{{Name: "rss", Scanner: "rss", Enabled: &no}}

	_, err := newTestApp(cfg).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources enabled")
}

func TestUnsupportedExportFailsBeforeAnyWork(t *testing.T) {
	t.Parallel()

	yes := true
	cfg := testConfig()
	cfg.Database.Driver = "oracle"
	cfg.Pipeline.DryRun = true
	cfg.Pipeline.ExportPath = "out/articles.txt"
	cfg.Sources = []config.SourceConfig{{Name: "rss", Scanner: "rss", Enabled: &yes}}
	a := newTestApp(cfg)

	_, err := a.Collect(context.Background())
	require.ErrorIs(t, err, config.ErrExportFormat)

	_, err = a.Report(context.Background(), domain.MethodKeyword, "report.txt")
	require.ErrorIs(t, err, config.ErrExportFormat)
	assert.Nil(t, a.db)
}

func TestRateInterval(t *testing.T) {
	t.Parallel()

	sources := []config.SourceConfig{
		{Name: "rss", Scanner: "rss", RateInterval: time.Minute},
		{Name: "guardian-a", Scanner: "guardian"},
		{Name: "guardian-b", Scanner: "guardian", RateInterval: 3 * time.Second},
		{Name: "nyt", Scanner: "nytimes", RateInterval: 12 * time.Second},
	}

	assert.Equal(t, 12*time.Second, rateInterval(sources, "nytimes"))
	assert.Equal(t, 3*time.Second, rateInterval(sources, "guardian"))
	assert.Equal(t, defaultRateInterval, rateInterval(sources, "serpapi"))
}

func TestKeywordSetsOverrideDefaults(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Keywords.CE = []string{"dam"}
	sets := newTestApp(cfg).keywordSets()

	assert.Equal(t, []string{"dam"}, sets.CE)
	assert.Contains(t, sets.AI, "machine learning")
}

func TestKeywordClassifyAndReportOnSQLite(t *testing.T) {
	a := newTestApp(testConfig())
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	repo, err := a.store(ctx)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}

	published := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	inserted, err := repo.Upsert(ctx, domain.Article{
		URL:         "https://example.com/drones-inspect-bridges",
		Title:       "Drones with computer vision inspect bridge decks",
		PublishedAt: &published,
		Source:      "rss",
		Summary:     "Structural engineers use computer vision to find cracks in concrete.",
		RetrievedAt: published,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	result, err := a.Classify(ctx, domain.MethodKeyword, usecase.ClassifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Selected)
	assert.Equal(t, 1, result.Saved)

	report, err := a.Report(ctx, domain.MethodKeyword, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Articles)
	assert.Equal(t, 1, report.Cell(domain.AreaStructural, domain.TechComputerVision))
	require.NotEmpty(t, report.Trends)
	assert.Equal(t, "2025-03", report.Trends[0].Period)
}
