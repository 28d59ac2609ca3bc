package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/textutil"
)

const (
	defaultSitemapURLs  = 200
	maxChildSitemaps    = 10
	sitemapAgentProduct = "CivilAIScanner"
)

// SitemapScanner discovers article URLs from the sitemaps of configured domains.
// Candidates carry no text and must have their body extracted.
type SitemapScanner struct {
	get    getter
	logger *slog.Logger
}

// NewSitemapScanner wires the HTTP client.
func NewSitemapScanner(client *http.Client, logger *slog.Logger) *SitemapScanner {
	return &SitemapScanner{get: newGetter(client), logger: orDiscard(logger)}
}

// Name identifies the strategy inside the registry.
func (s *SitemapScanner) Name() string {
	return "sitemap"
}

type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Scan walks each domain; a failing domain is logged and skipped.
func (s *SitemapScanner) Scan(ctx context.Context, req scanner.Request, emit scanner.Emit) error {
	if len(req.Domains) == 0 {
		return fmt.Errorf("no domains configured for source %s", req.SourceName)
	}
	limit := defaultSitemapURLs
	if v, err := strconv.Atoi(req.Option("maxUrls", "")); err == nil && v > 0 {
		limit = v
	}

	var errs []error
	for _, d := range req.Domains {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		base, err := domainBase(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries, robots, err := s.collect(ctx, base)
		if err != nil {
			s.logger.Warn("sitemap failed", "source", req.SourceName, "domain", d, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("sitemap entries", "source", req.SourceName, "domain", d, "urls", len(entries))

		emitted := 0
		for _, e := range entries {
			if emitted >= limit {
				break
			}
			raw := strings.TrimSpace(e.Loc)
			loc, err := url.Parse(raw)
			if err != nil || loc.Host == "" {
				continue
			}
			if robots != nil && !robots.TestAgent(loc.EscapedPath(), sitemapAgentProduct) {
				continue
			}
			c := domain.Candidate{
				URL:          raw,
				PublishedRaw: strings.TrimSpace(e.LastMod),
				PublishedAt:  textutil.ParseDate(e.LastMod),
				Source:       "Sitemap - " + base.Host,
				NeedsBody:    true,
			}
			if c.PublishedAt != nil && !req.Since.IsZero() && c.PublishedAt.Before(req.Since) {
				continue
			}
			emitted++
			if !emit(c) {
				return nil
			}
		}
	}
	return errors.Join(errs...)
}

// collect reads robots.txt for sitemap hints, falling back to well-known locations.
func (s *SitemapScanner) collect(ctx context.Context, base *url.URL) ([]sitemapEntry, *robotstxt.RobotsData, error) {
	var robots *robotstxt.RobotsData
	var candidates []string

	status, body, err := s.get.raw(ctx, base.JoinPath("robots.txt").String())
	if err == nil {
		if data, perr := robotstxt.FromStatusAndBytes(status, body); perr == nil {
			robots = data
			candidates = append(candidates, data.Sitemaps...)
		}
	}
	if len(candidates) == 0 {
		candidates = []string{
			base.JoinPath("sitemap.xml").String(),
			base.JoinPath("sitemap_index.xml").String(),
		}
	}

	var lastErr error
	for _, sm := range candidates {
		entries, err := s.readSitemap(ctx, sm, true)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) > 0 {
			return entries, robots, nil
		}
	}
	if lastErr != nil {
		return nil, robots, lastErr
	}
	return nil, robots, nil
}

// readSitemap parses a urlset, expanding one level of sitemap index when allowed.
func (s *SitemapScanner) readSitemap(ctx context.Context, sitemapURL string, expand bool) ([]sitemapEntry, error) {
	if strings.HasSuffix(sitemapURL, ".gz") {
		return nil, nil
	}
	body, err := s.get.bytes(ctx, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	switch doc.XMLName.Local {
	case "urlset":
		return doc.URLs, nil
	case "sitemapindex":
		if !expand {
			return nil, nil
		}
		children := newestFirst(doc.Sitemaps)
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}
		var out []sitemapEntry
		for _, child := range children {
			entries, err := s.readSitemap(ctx, strings.TrimSpace(child.Loc), false)
			if err != nil {
				s.logger.Debug("child sitemap failed", "sitemap", child.Loc, "error", err)
				continue
			}
			out = append(out, entries...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("sitemap %s: unexpected root <%s>", sitemapURL, doc.XMLName.Local)
	}
}

// newestFirst orders index children by lastmod, undated ones last.
func newestFirst(entries []sitemapEntry) []sitemapEntry {
	out := make([]sitemapEntry, len(entries))
	copy(out, entries)
	stamp := func(e sitemapEntry) time.Time {
		if t := textutil.ParseDate(e.LastMod); t != nil {
			return *t
		}
		return time.Time{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return stamp(out[i]).After(stamp(out[j]))
	})
	return out
}

// domainBase accepts "example.com" or a full base URL.
func domainBase(d string) (*url.URL, error) {
	d = strings.TrimSpace(d)
	if !strings.Contains(d, "://") {
		d = "https://" + d
	}
	u, err := url.Parse(d)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid sitemap domain %q", d)
	}
	u.Path = "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
