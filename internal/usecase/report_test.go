package usecase

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/domain"
)

func TestBuildReportCountsPairs(t *testing.T) {
	t.Parallel()

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC)
	items := []domain.ClassifiedArticle{
		{
			ArticleID:      1,
			PublishedAt:    &march,
			CEAreas:        []string{domain.AreaStructural, domain.AreaGeotechnical},
			AITechnologies: []string{domain.TechML, domain.TechRobotics, domain.TechComputerVision},
		},
		{
			ArticleID:      2,
			RetrievedAt:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			CEAreas:        []string{domain.AreaStructural, domain.AreaStructural, "Aerospace"},
			AITechnologies: []string{domain.TechML},
		},
		{ArticleID: 3, PublishedAt: &march, RetrievedAt: march},
		{ArticleID: 4, PublishedAt: &april, CEAreas: []string{domain.AreaEnvironmental}},
	}

	r := BuildReport(domain.MethodKeyword, items, testNow)

	total := 0
	for _, row := range r.Matrix {
		for _, v := range row {
			total += v
		}
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, 2, r.Cell(domain.AreaStructural, domain.TechML))
	assert.Equal(t, 1, r.Cell(domain.AreaGeotechnical, domain.TechRobotics))
	assert.Equal(t, 4, r.Articles)

	// Article 2 has no publication date: it counts in the matrix but not in the trends.
	assert.Equal(t, []domain.TrendRow{
		{Period: "2025-03", Area: domain.AreaStructural, Count: 1},
		{Period: "2025-03", Area: domain.AreaGeotechnical, Count: 1},
		{Period: "2025-03", Area: domain.AreaTransportation, Count: 0},
		{Period: "2025-03", Area: domain.AreaConstruction, Count: 0},
		{Period: "2025-03", Area: domain.AreaEnvironmental, Count: 0},
		{Period: "2025-04", Area: domain.AreaStructural, Count: 0},
		{Period: "2025-04", Area: domain.AreaGeotechnical, Count: 0},
		{Period: "2025-04", Area: domain.AreaTransportation, Count: 0},
		{Period: "2025-04", Area: domain.AreaConstruction, Count: 0},
		{Period: "2025-04", Area: domain.AreaEnvironmental, Count: 1},
	}, r.Trends)
}

func TestBuildReportWithoutDatesHasNoTrends(t *testing.T) {
	t.Parallel()

	items := []domain.ClassifiedArticle{{
		ArticleID:      1,
		RetrievedAt:    testNow,
		CEAreas:        []string{domain.AreaConstruction},
		AITechnologies: []string{domain.TechRobotics},
	}}

	r := BuildReport(domain.MethodKeyword, items, testNow)
	assert.Equal(t, 1, r.Cell(domain.AreaConstruction, domain.TechRobotics))
	assert.Empty(t, r.Trends)
}

func TestBuildReportMatchesRecount(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	pick := func(list []string) []string {
		var out []string
		for _, v := range list {
			if rng.Intn(3) == 0 {
				out = append(out, v)
			}
		}
		return out
	}

	items := make([]domain.ClassifiedArticle, 200)
	for i := range items {
		items[i] = domain.ClassifiedArticle{
			ArticleID:      int64(i),
			RetrievedAt:    time.Date(2025, time.Month(1+rng.Intn(12)), 1, 0, 0, 0, 0, time.UTC),
			CEAreas:        pick(domain.CEAreas),
			AITechnologies: pick(domain.AITechnologies),
		}
	}

	r := BuildReport(domain.MethodLLM, items, testNow)
	for _, area := range domain.CEAreas {
		for _, tech := range domain.AITechnologies {
			want := 0
			for _, it := range items {
				if contains(it.CEAreas, area) && contains(it.AITechnologies, tech) {
					want++
				}
			}
			assert.Equal(t, want, r.Cell(area, tech), "%s x %s", area, tech)
		}
	}
}

func TestReportingRunStoresAndExports(t *testing.T) {
	t.Parallel()

	repo := seededRepo("Drone inspection of bridge concrete with deep learning")
	repo.classifications[classKey{1, domain.MethodKeyword}] = []domain.Classification{{
		ArticleID: 1, Method: domain.MethodKeyword,
		CEAreas: []string{domain.AreaStructural}, AITechnologies: []string{domain.TechML},
	}}
	exporter := &fakeExporter{}

	reporting := NewReporting(repo, repo, exporter, nil)
	reporting.now = func() time.Time { return testNow }

	r, err := reporting.Run(context.Background(), domain.MethodKeyword, "report.xlsx")
	require.NoError(t, err)
	_, err = reporting.Run(context.Background(), domain.MethodKeyword, "")
	require.NoError(t, err)

	assert.Equal(t, 1, r.Cell(domain.AreaStructural, domain.TechML))
	assert.Equal(t, testNow, r.ComputedAt)
	require.Len(t, repo.reports, 2)
	assert.Equal(t, repo.reports[0].Matrix, repo.reports[1].Matrix)
	require.NotNil(t, exporter.report)
	assert.Equal(t, "report.xlsx", exporter.path)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
