// Package export writes collected articles and report tables to xlsx or csv files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

// ErrUnsupportedFormat is returned for paths that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	articlesSheet = "Articles"
	matrixSheet   = "Co-occurrence"
	trendsSheet   = "Trends"
)

var articleHeader = []string{
	"url", "title", "published_at", "source", "summary", "abstract",
	"language", "ai_keywords_found", "ce_keywords_found", "retrieved_at",
}

// FileExporter picks the format from the file extension.
type FileExporter struct{}

var _ ports.Exporter = FileExporter{}

// ExportArticles writes one row per article.
func (FileExporter) ExportArticles(path string, articles []domain.Article) error {
	rows := make([][]string, 0, len(articles)+1)
	rows = append(rows, articleHeader)
	for _, a := range articles {
		rows = append(rows, articleRow(a))
	}

	switch format(path) {
	case ".xlsx":
		return writeWorkbook(path, []sheet{{name: articlesSheet, rows: rows}})
	case ".csv":
		return writeCSV(path, rows)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ExportReport writes the matrix and, for xlsx, the trend table on a second sheet.
func (FileExporter) ExportReport(path string, report domain.Report) error {
	matrix := matrixRows(report)

	switch format(path) {
	case ".xlsx":
		return writeWorkbook(path, []sheet{
			{name: matrixSheet, rows: matrix},
			{name: trendsSheet, rows: trendRows(report)},
		})
	case ".csv":
		return writeCSV(path, matrix)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func format(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func articleRow(a domain.Article) []string {
	published := ""
	if a.PublishedAt != nil {
		published = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	retrieved := ""
	if !a.RetrievedAt.IsZero() {
		retrieved = a.RetrievedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		a.URL, a.Title, published, a.Source, a.Summary, a.Abstract, a.Language,
		strings.Join(a.AIKeywordsFound, "; "), strings.Join(a.CEKeywordsFound, "; "), retrieved,
	}
}

// matrixRows lays out CE areas as rows and AI technologies as columns.
func matrixRows(report domain.Report) [][]string {
	header := append([]string{"ce_area"}, domain.AITechnologies...)
	rows := [][]string{header}
	for _, area := range domain.CEAreas {
		row := []string{area}
		for _, tech := range domain.AITechnologies {
			row = append(row, strconv.Itoa(report.Cell(area, tech)))
		}
		rows = append(rows, row)
	}
	return rows
}

func trendRows(report domain.Report) [][]string {
	rows := [][]string{{"period", "ce_area", "article_count"}}
	for _, t := range report.Trends {
		rows = append(rows, []string{t.Period, t.Area, strconv.Itoa(t.Count)})
	}
	return rows
}

type sheet struct {
	name string
	rows [][]string
}

func writeWorkbook(path string, sheets []sheet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close workbook: %w", closeErr)
		}
	}()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("new sheet %s: %w", s.name, err)
		}

		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = cellValue(r, v)
			}
			if err := f.SetSheetRow(s.name, cell, &values); err != nil {
				return fmt.Errorf("write %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// cellValue stores counts as numbers so spreadsheets can sum them.
func cellValue(row int, v string) any {
	if row > 0 {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return v
}

func writeCSV(path string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return nil
}
