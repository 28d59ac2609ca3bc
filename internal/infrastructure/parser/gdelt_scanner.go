package parser

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

const (
	gdeltBaseURL    = "https://api.gdeltproject.org/api/v2/doc/doc"
	gdeltMaxRecords = 250
)

// GDELTScanner queries the GDELT DOC 2.0 article list.
type GDELTScanner struct {
	get    getter
	gate   *scanner.Gate
	logger *slog.Logger
}

// NewGDELTScanner wires the HTTP client and the provider gate.
func NewGDELTScanner(client *http.Client, gate *scanner.Gate, logger *slog.Logger) *GDELTScanner {
	return &GDELTScanner{get: newGetter(client), gate: gate, logger: orDiscard(logger)}
}

// BeginRun reopens the provider gate for a new collect run.
func (s *GDELTScanner) BeginRun() {
	s.gate.Reset()
}

// Name identifies the strategy inside the registry.
func (s *GDELTScanner) Name() string {
	return "gdelt"
}

type gdeltResponse struct {
	Articles []struct {
		URL      string `json:"url"`
		Title    string `json:"title"`
		SeenDate string `json:"seendate"`
		Domain   string `json:"domain"`
		Language string `json:"language"`
	} `json:"articles"`
}

// Scan issues one artlist request per query; GDELT needs no key.
func (s *GDELTScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	base := req.URL
	if base == "" {
		base = gdeltBaseURL
	}
	req.MaxPages = 1

	return searchPaged(ctx, s.gate, s.logger, req, 1, func(ctx context.Context, query string, _ int) (bool, error) {
		params := url.Values{}
		params.Set("query", query)
		params.Set("mode", "artlist")
		params.Set("maxrecords", strconv.Itoa(gdeltMaxRecords))
		params.Set("format", "json")
		params.Set("sort", "datedesc")
		params.Set("timespan", gdeltTimespan(req.Since, req.Until))

		var resp gdeltResponse
		if err := s.get.json(ctx, base+"?"+params.Encode(), nil, &resp); err != nil {
			return false, err
		}

		for _, a := range resp.Articles {
			if a.URL == "" {
				continue
			}
			source := req.SourceName
			if a.Domain != "" {
				source = "GDELT - " + a.Domain
			}
			if !emit(domain.Candidate{
				Title:        textutil.CollapseSpace(a.Title),
				URL:          a.URL,
				PublishedRaw: a.SeenDate,
				PublishedAt:  textutil.ParseDate(a.SeenDate),
				Source:       source,
			}) {
				return false, errStopped
			}
		}
		return false, nil
	})
}

// gdeltTimespan renders the lookback window in whole days, at least one.
func gdeltTimespan(since, until time.Time) string {
	if since.IsZero() {
		return "7d"
	}
	if until.IsZero() {
		until = time.Now()
	}
	days := int(math.Ceil(until.Sub(since).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return strconv.Itoa(days) + "d"
}
