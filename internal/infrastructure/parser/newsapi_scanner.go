package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

const (
	newsAPIBaseURL  = "https://newsapi.org/v2/everything"
	newsAPIPageSize = 100
)

// NewsAPIScanner queries the NewsAPI "everything" endpoint.
type NewsAPIScanner struct {
	get    getter
	gate   *scanner.Gate
	logger *slog.Logger
}

// NewNewsAPIScanner wires the HTTP client and the provider gate.
func NewNewsAPIScanner(client *http.Client, gate *scanner.Gate, logger *slog.Logger) *NewsAPIScanner {
	return &NewsAPIScanner{get: newGetter(client), gate: gate, logger: orDiscard(logger)}
}

// BeginRun reopens the provider gate for a new collect run.
func (s *NewsAPIScanner) BeginRun() {
	s.gate.Reset()
}

// Name identifies the strategy inside the registry.
func (s *NewsAPIScanner) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Scan pages through every query until results run out or the quota is hit.
func (s *NewsAPIScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if req.APIKey == "" {
		return fmt.Errorf("source %s: newsapi key is empty", req.SourceName)
	}
	base := req.URL
	if base == "" {
		base = newsAPIBaseURL
	}
	header := http.Header{"X-Api-Key": []string{req.APIKey}}

	return searchPaged(ctx, s.gate, s.logger, req, 1, func(ctx context.Context, query string, page int) (bool, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("language", req.Option("language", "en"))
		params.Set("sortBy", "publishedAt")
		params.Set("pageSize", strconv.Itoa(newsAPIPageSize))
		params.Set("page", strconv.Itoa(page))
		if !req.Since.IsZero() {
			params.Set("from", req.Since.UTC().Format("2006-01-02"))
		}

		var resp newsAPIResponse
		if err := s.get.json(ctx, base+"?"+params.Encode(), header, &resp); err != nil {
			return false, err
		}
		if resp.Status != "ok" {
			if resp.Code == "rateLimited" || resp.Code == "apiKeyExhausted" {
				return false, fmt.Errorf("newsapi %s: %w", resp.Code, scanner.ErrRateLimited)
			}
			return false, fmt.Errorf("newsapi error %s: %s", resp.Code, resp.Message)
		}

		for _, a := range resp.Articles {
			if a.URL == "" || a.Title == "[Removed]" {
				continue
			}
			summary := a.Description
			if summary == "" {
				summary = a.Content
			}
			source := req.SourceName
			if a.Source.Name != "" {
				source = "NewsAPI - " + a.Source.Name
			}
			if !emit(domain.Candidate{
				Title:        textutil.CleanHTML(a.Title),
				URL:          a.URL,
				Summary:      textutil.CleanHTML(summary),
				PublishedRaw: a.PublishedAt,
				PublishedAt:  textutil.ParseDate(a.PublishedAt),
				Source:       source,
			}) {
				return false, errStopped
			}
		}
		return len(resp.Articles) >= newsAPIPageSize, nil
	})
}
