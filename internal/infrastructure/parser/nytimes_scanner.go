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
	nytimesBaseURL  = "https://api.nytimes.com/svc/search/v2/articlesearch.json"
	nytimesPageSize = 10
)

// NYTimesScanner queries the New York Times article search API.
type NYTimesScanner struct {
	get    getter
	gate   *scanner.Gate
	logger *slog.Logger
}

// NewNYTimesScanner wires the HTTP client and the provider gate.
func NewNYTimesScanner(client *http.Client, gate *scanner.Gate, logger *slog.Logger) *NYTimesScanner {
	return &NYTimesScanner{get: newGetter(client), gate: gate, logger: orDiscard(logger)}
}

// BeginRun reopens the provider gate for a new collect run.
func (s *NYTimesScanner) BeginRun() {
	s.gate.Reset()
}

// Name identifies the strategy inside the registry.
func (s *NYTimesScanner) Name() string {
	return "nytimes"
}

type nytimesResponse struct {
	Status string `json:"status"`
	Fault  *struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
	Response struct {
		Docs []struct {
			Headline struct {
				Main          string `json:"main"`
				PrintHeadline string `json:"print_headline"`
			} `json:"headline"`
			Abstract       string `json:"abstract"`
			LeadParagraph  string `json:"lead_paragraph"`
			Snippet        string `json:"snippet"`
			WebURL         string `json:"web_url"`
			PubDate        string `json:"pub_date"`
			SectionName    string `json:"section_name"`
			SubsectionName string `json:"subsection_name"`
		} `json:"docs"`
	} `json:"response"`
}

// Scan pages through every query; NYT pages are zero-based.
func (s *NYTimesScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if req.APIKey == "" {
		return fmt.Errorf("source %s: nytimes key is empty", req.SourceName)
	}
	base := req.URL
	if base == "" {
		base = nytimesBaseURL
	}

	return searchPaged(ctx, s.gate, s.logger, req, 0, func(ctx context.Context, query string, page int) (bool, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("page", strconv.Itoa(page))
		params.Set("sort", "newest")
		params.Set("api-key", req.APIKey)
		if !req.Since.IsZero() {
			params.Set("begin_date", req.Since.UTC().Format("20060102"))
		}
		if !req.Until.IsZero() {
			params.Set("end_date", req.Until.UTC().Format("20060102"))
		}

		var resp nytimesResponse
		if err := s.get.json(ctx, base+"?"+params.Encode(), nil, &resp); err != nil {
			return false, err
		}
		if resp.Fault != nil {
			return false, fmt.Errorf("nytimes fault %s: %w", resp.Fault.FaultString, scanner.ErrRateLimited)
		}

		for _, d := range resp.Response.Docs {
			title := d.Headline.Main
			if title == "" {
				title = d.Headline.PrintHeadline
			}
			summary := d.Abstract
			if summary == "" {
				summary = d.LeadParagraph
			}
			if summary == "" {
				summary = d.Snippet
			}
			if !emit(domain.Candidate{
				Title:        textutil.CleanHTML(title),
				URL:          d.WebURL,
				Summary:      textutil.CleanHTML(summary),
				PublishedRaw: d.PubDate,
				PublishedAt:  textutil.ParseDate(d.PubDate),
				Source:       nytimesSource(d.SectionName, d.SubsectionName),
			}) {
				return false, errStopped
			}
		}
		return len(resp.Response.Docs) >= nytimesPageSize, nil
	})
}

func nytimesSource(section, subsection string) string {
	switch {
	case section == "":
		return "NYTimes"
	case subsection == "":
		return "NYTimes - " + section
	default:
		return "NYTimes - " + section + "/" + subsection
	}
}
