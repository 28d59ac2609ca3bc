package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

const serpAPIBaseURL = "https://serpapi.com/search"

// SerpAPIScanner runs Google News searches through SerpAPI.
type SerpAPIScanner struct {
	get    getter
	gate   *scanner.Gate
	logger *slog.Logger
}

// NewSerpAPIScanner wires the HTTP client and the provider gate.
func NewSerpAPIScanner(client *http.Client, gate *scanner.Gate, logger *slog.Logger) *SerpAPIScanner {
	return &SerpAPIScanner{get: newGetter(client), gate: gate, logger: orDiscard(logger)}
}

// BeginRun reopens the provider gate for a new collect run.
func (s *SerpAPIScanner) BeginRun() {
	s.gate.Reset()
}

// Name identifies the strategy inside the registry.
func (s *SerpAPIScanner) Name() string {
	return "serpapi"
}

type serpNewsResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  struct {
		Name string `json:"name"`
	} `json:"source"`
	Stories []serpNewsResult `json:"stories"`
}

type serpAPIResponse struct {
	Error       string           `json:"error"`
	NewsResults []serpNewsResult `json:"news_results"`
}

// Scan issues one request per query; google_news results are not paged.
func (s *SerpAPIScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if req.APIKey == "" {
		return fmt.Errorf("source %s: serpapi key is empty", req.SourceName)
	}
	base := req.URL
	if base == "" {
		base = serpAPIBaseURL
	}
	req.MaxPages = 1

	return searchPaged(ctx, s.gate, s.logger, req, 1, func(ctx context.Context, query string, _ int) (bool, error) {
		params := url.Values{}
		params.Set("engine", "google_news")
		params.Set("q", query)
		params.Set("hl", req.Option("language", "en"))
		params.Set("api_key", req.APIKey)

		var resp serpAPIResponse
		if err := s.get.json(ctx, base+"?"+params.Encode(), nil, &resp); err != nil {
			return false, err
		}
		if resp.Error != "" {
			if strings.Contains(strings.ToLower(resp.Error), "run out of searches") {
				return false, fmt.Errorf("serpapi: %s: %w", resp.Error, scanner.ErrRateLimited)
			}
			if strings.Contains(resp.Error, "hasn't returned any results") {
				return false, nil
			}
			return false, fmt.Errorf("serpapi: %s", resp.Error)
		}

		for _, r := range flattenSerp(resp.NewsResults) {
			if r.Link == "" {
				continue
			}
			source := req.SourceName
			if r.Source.Name != "" {
				source = "Google News - " + r.Source.Name
			}
			if !emit(domain.Candidate{
				Title:        textutil.CleanHTML(r.Title),
				URL:          r.Link,
				Summary:      textutil.CleanHTML(r.Snippet),
				PublishedRaw: r.Date,
				PublishedAt:  textutil.ParseDate(r.Date),
				Source:       source,
			}) {
				return false, errStopped
			}
		}
		return false, nil
	})
}

// flattenSerp expands story clusters into their member articles.
func flattenSerp(results []serpNewsResult) []serpNewsResult {
	out := make([]serpNewsResult, 0, len(results))
	for _, r := range results {
		if r.Link != "" {
			out = append(out, r)
		}
		out = append(out, r.Stories...)
	}
	return out
}
