// Package extractor turns an article URL into its main readable text.
package extractor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/textutil"
)

const (
	maxPageBytes   = 5 << 20
	defaultTimeout = 25 * time.Second
)

// Readability extracts article bodies with go-readability.
type Readability struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

var _ ports.Extractor = (*Readability)(nil)

// New wires the HTTP client. A non-positive timeout falls back to 25s.
func New(client *http.Client, timeout time.Duration, userAgent string, logger *slog.Logger) *Readability {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Readability{client: client, timeout: timeout, userAgent: userAgent, logger: logger}
}

// Extract downloads the page once and returns its main text. It never returns an error:
// transport failures, non-2xx, non-HTML and empty extractions all yield ok=false.
func (r *Readability) Extract(ctx context.Context, rawURL string) (domain.Page, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Page{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := r.fetch(ctx, u.String())
	if err != nil {
		r.logger.Debug("extract fetch failed", "url", rawURL, "error", err)
		return domain.Page{}, false
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		r.logger.Debug("readability failed", "url", rawURL, "error", err)
		return domain.Page{}, false
	}

	text := textutil.CollapseSpace(article.TextContent)
	if text == "" {
		return domain.Page{}, false
	}

	title := textutil.CollapseSpace(article.Title)
	if title == "" {
		title = documentTitle(body)
	}
	return domain.Page{Title: title, Text: text}, true
}

func (r *Readability) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.Status}
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, &statusError{status: "unsupported content type " + resp.Header.Get("Content-Type")}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

type statusError struct{ status string }

func (e *statusError) Error() string { return e.status }

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func documentTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return textutil.CollapseSpace(doc.Find("title").First().Text())
}
