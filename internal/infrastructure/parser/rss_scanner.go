package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

// RSSScanner reads RSS/Atom feeds listed as categories (or the request URL).
type RSSScanner struct {
	get    getter
	logger *slog.Logger
}

// NewRSSScanner wires an HTTP client; a nil client gets a 20s default.
func NewRSSScanner(client *http.Client, logger *slog.Logger) *RSSScanner {
	return &RSSScanner{get: newGetter(client), logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches every feed; a broken feed is logged and skipped.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	feeds := feedURLs(req)
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured for source %s", req.SourceName)
	}

	var errs []error
	for _, feedURL := range feeds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		items, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			s.logger.Warn("feed failed", "source", req.SourceName, "feed", feedURL, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("feed parsed", "source", req.SourceName, "feed", feedURL, "items", len(items))

		for _, item := range items {
			if !emit(candidateFromItem(item, req.SourceName)) {
				return nil
			}
		}
	}
	return errors.Join(errs...)
}

func (s *RSSScanner) fetchFeed(ctx context.Context, feedURL string) ([]*gofeed.Item, error) {
	body, err := s.get.bytes(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return feed.Items, nil
}

func candidateFromItem(item *gofeed.Item, source string) domain.Candidate {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	link := strings.TrimSpace(item.Link)
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = strings.TrimSpace(item.GUID)
	}

	c := domain.Candidate{
		Title:        textutil.CleanHTML(item.Title),
		URL:          link,
		Summary:      textutil.CleanHTML(summary),
		PublishedRaw: item.Published,
		Source:       source,
	}
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		c.PublishedAt = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		c.PublishedAt = &t
	default:
		c.PublishedAt = textutil.ParseDate(item.Published)
	}
	return c
}

func feedURLs(req scanner.Request) []string {
	var urls []string
	if req.URL != "" {
		urls = append(urls, req.URL)
	}
	for _, cat := range req.Categories {
		if cat.URL != "" {
			urls = append(urls, cat.URL)
		}
	}
	return urls
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
