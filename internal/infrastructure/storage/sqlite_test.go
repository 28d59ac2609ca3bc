package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
)

func openSQLite(t *testing.T) *Repository {
	t.Helper()

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(db, config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	published := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	article := domain.Article{
		URL:             "https://x.com/robots",
		Title:           "AI Robots Build Bridges",
		PublishedAt:     &published,
		Source:          "rss",
		Summary:         "robotics and automation in bridge construction",
		AIKeywordsFound: []string{"robotics", "automation"},
		CEKeywordsFound: []string{"bridge", "construction"},
		RetrievedAt:     time.Date(2025, 4, 3, 8, 0, 0, 0, time.UTC),
	}

	inserted, err := repo.Upsert(ctx, article)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Upsert(ctx, article)
	require.NoError(t, err)
	assert.False(t, inserted)

	urls, titles, err := repo.LoadSeenKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{article.URL}, urls)
	assert.Equal(t, []string{article.Title}, titles)

	pending, err := repo.ArticlesForClassification(ctx, domain.MethodKeyword, 0, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	stored := pending[0]
	assert.Equal(t, article.AIKeywordsFound, stored.AIKeywordsFound)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, published.Equal(*stored.PublishedAt))

	first := domain.Classification{ArticleID: stored.ID, Method: domain.MethodKeyword,
		CEAreas: []string{domain.AreaStructural}, AITechnologies: []string{domain.TechRobotics}, Confidence: 1}
	second := domain.Classification{ArticleID: stored.ID, Method: domain.MethodKeyword,
		CEAreas: []string{domain.AreaTransportation}, AITechnologies: []string{}, Confidence: 0.5}
	require.NoError(t, repo.SaveClassification(ctx, first))
	require.NoError(t, repo.SaveClassification(ctx, second))

	var count int
	require.NoError(t, repo.db.QueryRow(
		"SELECT COUNT(*) FROM classifications WHERE article_id = ? AND method = ?", stored.ID, "keyword").Scan(&count))
	assert.Equal(t, 1, count)

	listed, err := repo.ListClassified(ctx, domain.MethodKeyword)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{domain.AreaTransportation}, listed[0].CEAreas)
	assert.Equal(t, []string{}, listed[0].AITechnologies)

	pending, err = repo.ArticlesForClassification(ctx, domain.MethodKeyword, 0, false)
	require.NoError(t, err)
	assert.Empty(t, pending)
	pending, err = repo.ArticlesForClassification(ctx, domain.MethodKeyword, 0, true)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	missing, err := repo.ArticlesWithoutAbstract(ctx, 5)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.NoError(t, repo.SaveAbstract(ctx, stored.ID, "Robots assemble bridge decks."))
	missing, err = repo.ArticlesWithoutAbstract(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.ErrorIs(t, repo.SaveAbstract(ctx, 999, "x"), ErrNotFound)

	report := domain.Report{Method: domain.MethodKeyword,
		Trends: []domain.TrendRow{{Period: "2025-04", Area: domain.AreaTransportation, Count: 1}}}
	require.NoError(t, repo.SaveReport(ctx, report))
	require.NoError(t, repo.SaveReport(ctx, report))

	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM cooccurrence_matrix").Scan(&count))
	assert.Equal(t, 25, count)
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM temporal_trends").Scan(&count))
	assert.Equal(t, 1, count)

	all, err := repo.ListArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Robots assemble bridge decks.", all[0].Abstract)
}
