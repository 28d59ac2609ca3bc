package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls category listing pages and emits papers inside the lookback window.
type ArxivScanner struct {
	get      getter
	logger   *slog.Logger
	pageSize int
}

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, logger *slog.Logger) *ArxivScanner {
	return &ArxivScanner{get: newGetter(client), logger: orDiscard(logger), pageSize: 200}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks through each category URL, newest first, until entries fall before req.Since.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if len(req.Categories) == 0 {
		return fmt.Errorf("no categories provided for source %s", req.SourceName)
	}

	cutoff := req.Since.UTC().Truncate(24 * time.Hour)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return fmt.Errorf("category %s: %w", cat.Name, err)
			}

			candidates, shouldContinue := a.extractCandidates(doc, cutoff, req.SourceName, cat.Name)
			a.logger.Debug("arxiv page", "category", cat.Name, "skip", skip, "candidates", len(candidates))
			for _, c := range candidates {
				if _, ok := seen[c.URL]; ok {
					continue
				}
				seen[c.URL] = struct{}{}
				if !emit(c) {
					return nil
				}
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := a.get.do(ctx, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivScanner) extractCandidates(doc *goquery.Document, cutoff time.Time, sourceName, category string) ([]domain.Candidate, bool) {
	var (
		collected    []domain.Candidate
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		candidate, err := parseEntry(dt, dd, sourceName, category)
		if err != nil {
			return true
		}

		if candidate.PublishedAt == nil {
			collected = append(collected, candidate)
			return true
		}
		if candidate.PublishedAt.Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, candidate)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, sourceName, category string) (domain.Candidate, error) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return domain.Candidate{}, fmt.Errorf("entry without abstract link")
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimPrefix(title, "Title:")
	title = textutil.CollapseSpace(title)

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:")
	summary = textutil.CollapseSpace(summary)

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	candidate := domain.Candidate{
		Title:   title,
		URL:     href,
		Summary: summary,
		Source:  sourceName,
	}
	if category != "" {
		candidate.Source = fmt.Sprintf("%s/%s", sourceName, category)
	}

	if match := dateExpr.FindString(dateText); match != "" {
		candidate.PublishedRaw = match
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			candidate.PublishedAt = &parsed
		}
	}

	return candidate, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
