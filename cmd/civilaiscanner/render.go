package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/textutil"
	"CivilAIScanner/internal/usecase"
)

const titleWidth = 72

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := newTable(w)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// renderRun prints the run counters, failed sources and the admitted articles.
func renderRun(w io.Writer, result usecase.RunResult) error {
	fmt.Fprint(w, result.Stats.Summary())
	for _, f := range result.Failures {
		fmt.Fprintf(w, "  source %s failed: %v\n", f.Source, f.Err)
	}
	if len(result.Articles) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(result.Articles))
	for _, a := range result.Articles {
		published := "-"
		if a.PublishedAt != nil {
			published = a.PublishedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{a.Source, published, textutil.Truncate(a.Title, titleWidth)})
	}
	fmt.Fprintln(w)
	return renderTable(w, []string{"Source", "Published", "Title"}, rows)
}

// renderReport prints the area by technology matrix followed by the monthly trends.
func renderReport(w io.Writer, report domain.Report) error {
	fmt.Fprintf(w, "report %s: %d classified articles\n\n", report.Method, report.Articles)

	header := append([]string{"CE area"}, domain.AITechnologies...)
	rows := make([][]string, 0, len(domain.CEAreas))
	for _, area := range domain.CEAreas {
		row := []string{area}
		for _, tech := range domain.AITechnologies {
			row = append(row, strconv.Itoa(report.Cell(area, tech)))
		}
		rows = append(rows, row)
	}
	if err := renderTable(w, header, rows); err != nil {
		return err
	}

	if len(report.Trends) == 0 {
		return nil
	}
	trends := make([][]string, 0, len(report.Trends))
	for _, t := range report.Trends {
		trends = append(trends, []string{t.Period, t.Area, strconv.Itoa(t.Count)})
	}
	fmt.Fprintln(w)
	return renderTable(w, []string{"Month", "CE area", "Articles"}, trends)
}
