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
	guardianBaseURL  = "https://content.guardianapis.com/search"
	guardianPageSize = 50
)

// GuardianScanner queries the Guardian content API.
type GuardianScanner struct {
	get    getter
	gate   *scanner.Gate
	logger *slog.Logger
}

// NewGuardianScanner wires the HTTP client and the provider gate.
func NewGuardianScanner(client *http.Client, gate *scanner.Gate, logger *slog.Logger) *GuardianScanner {
	return &GuardianScanner{get: newGetter(client), gate: gate, logger: orDiscard(logger)}
}

// BeginRun reopens the provider gate for a new collect run.
func (s *GuardianScanner) BeginRun() {
	s.gate.Reset()
}

// Name identifies the strategy inside the registry.
func (s *GuardianScanner) Name() string {
	return "guardian"
}

type guardianResponse struct {
	Response struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		CurrentPage int    `json:"currentPage"`
		Pages       int    `json:"pages"`
		Results     []struct {
			WebTitle           string `json:"webTitle"`
			WebURL             string `json:"webUrl"`
			WebPublicationDate string `json:"webPublicationDate"`
			SectionName        string `json:"sectionName"`
			Fields             struct {
				Headline  string `json:"headline"`
				TrailText string `json:"trailText"`
				Body      string `json:"body"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Scan pages through every query. The API returns article bodies, so candidates carry them.
func (s *GuardianScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if req.APIKey == "" {
		return fmt.Errorf("source %s: guardian key is empty", req.SourceName)
	}
	base := req.URL
	if base == "" {
		base = guardianBaseURL
	}

	return searchPaged(ctx, s.gate, s.logger, req, 1, func(ctx context.Context, query string, page int) (bool, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("page", strconv.Itoa(page))
		params.Set("page-size", strconv.Itoa(guardianPageSize))
		params.Set("show-fields", "headline,trailText,body")
		params.Set("order-by", "newest")
		params.Set("api-key", req.APIKey)
		if !req.Since.IsZero() {
			params.Set("from-date", req.Since.UTC().Format("2006-01-02"))
		}
		if !req.Until.IsZero() {
			params.Set("to-date", req.Until.UTC().Format("2006-01-02"))
		}

		var resp guardianResponse
		if err := s.get.json(ctx, base+"?"+params.Encode(), nil, &resp); err != nil {
			return false, err
		}
		if resp.Response.Status != "ok" {
			return false, fmt.Errorf("guardian error: %s", resp.Response.Message)
		}

		for _, r := range resp.Response.Results {
			title := r.Fields.Headline
			if title == "" {
				title = r.WebTitle
			}
			source := "Guardian"
			if r.SectionName != "" {
				source = "Guardian - " + r.SectionName
			}
			if !emit(domain.Candidate{
				Title:        textutil.CleanHTML(title),
				URL:          r.WebURL,
				Summary:      textutil.CleanHTML(r.Fields.TrailText),
				Body:         textutil.CleanHTML(r.Fields.Body),
				PublishedRaw: r.WebPublicationDate,
				PublishedAt:  textutil.ParseDate(r.WebPublicationDate),
				Source:       source,
			}) {
				return false, errStopped
			}
		}
		return resp.Response.CurrentPage < resp.Response.Pages, nil
	})
}
