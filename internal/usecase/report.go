package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

const periodLayout = "2006-01"

// Reporting rebuilds the aggregate tables for one classification method.
type Reporting struct {
	source   ports.ClassificationRepository
	store    ports.ReportRepository
	exporter ports.Exporter
	log      *slog.Logger
	now      func() time.Time
}

// NewReporting wires the repositories. exporter may be nil.
func NewReporting(source ports.ClassificationRepository, store ports.ReportRepository, exporter ports.Exporter, logger *slog.Logger) *Reporting {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporting{source: source, store: store, exporter: exporter, log: logger, now: time.Now}
}

// Run recomputes the report, replaces the stored tables and optionally exports them.
func (r *Reporting) Run(ctx context.Context, method domain.ClassificationMethod, exportPath string) (domain.Report, error) {
	items, err := r.source.ListClassified(ctx, method)
	if err != nil {
		return domain.Report{}, fmt.Errorf("list classified: %w", err)
	}

	report := BuildReport(method, items, r.now().UTC())
	if err := r.store.SaveReport(ctx, report); err != nil {
		return report, fmt.Errorf("save report: %w", err)
	}
	r.log.Info("report stored", "method", method, "articles", report.Articles, "trend_rows", len(report.Trends))

	if exportPath != "" && r.exporter != nil {
		if err := r.exporter.ExportReport(exportPath, report); err != nil {
			return report, fmt.Errorf("export report: %w", err)
		}
		r.log.Info("report exported", "path", exportPath)
	}
	return report, nil
}

// BuildReport counts area/technology pairs and monthly area totals.
// An article with m areas and n technologies adds m*n matrix increments.
// Trends use the publication month only; undated articles are left out.
// Every area gets a row for every month present, zero counts included.
func BuildReport(method domain.ClassificationMethod, items []domain.ClassifiedArticle, computedAt time.Time) domain.Report {
	areaIndex := indexMap(domain.CEAreas)
	techIndex := indexMap(domain.AITechnologies)

	matrix := make([][]int, len(domain.CEAreas))
	for i := range matrix {
		matrix[i] = make([]int, len(domain.AITechnologies))
	}

	counts := map[string][]int{}
	for _, item := range items {
		areas := uniqueIndexes(item.CEAreas, areaIndex)
		techs := uniqueIndexes(item.AITechnologies, techIndex)

		for _, a := range areas {
			for _, t := range techs {
				matrix[a][t]++
			}
		}

		if item.PublishedAt == nil || item.PublishedAt.IsZero() {
			continue
		}
		period := item.PublishedAt.UTC().Format(periodLayout)
		row, ok := counts[period]
		if !ok {
			row = make([]int, len(domain.CEAreas))
			counts[period] = row
		}
		for _, a := range areas {
			row[a]++
		}
	}

	periods := make([]string, 0, len(counts))
	for p := range counts {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	rows := make([]domain.TrendRow, 0, len(periods)*len(domain.CEAreas))
	for _, p := range periods {
		for a, area := range domain.CEAreas {
			rows = append(rows, domain.TrendRow{Period: p, Area: area, Count: counts[p][a]})
		}
	}

	return domain.Report{
		Method:     method,
		Articles:   len(items),
		Matrix:     matrix,
		Trends:     rows,
		ComputedAt: computedAt,
	}
}

func indexMap(list []string) map[string]int {
	m := make(map[string]int, len(list))
	for i, v := range list {
		m[v] = i
	}
	return m
}

// uniqueIndexes maps known labels to taxonomy positions, ignoring unknown and repeated ones.
func uniqueIndexes(labels []string, index map[string]int) []int {
	seen := map[int]bool{}
	out := make([]int, 0, len(labels))
	for _, l := range labels {
		i, ok := index[l]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}
