package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"CivilAIScanner/internal/scanner"
)

// DefaultUserAgent identifies the collector to publishers and APIs.
const DefaultUserAgent = "CivilAIScanner/1.0 (civil engineering and AI news research)"

const maxResponseBytes = 10 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

// NewLimitedClient returns a client whose requests share a counting semaphore:
// at most n responses are in flight at once. The slot is held until the body is closed.
// A non-empty userAgent replaces the User-Agent of every request.
func NewLimitedClient(n int64, timeout time.Duration, userAgent string) *http.Client {
	if n < 1 {
		n = 1
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &limitedTransport{
			base:      http.DefaultTransport,
			sem:       semaphore.NewWeighted(n),
			userAgent: userAgent,
		},
	}
}

type limitedTransport struct {
	base      http.RoundTripper
	sem       *semaphore.Weighted
	userAgent string
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") != t.userAgent {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: sync.OnceFunc(func() { t.sem.Release(1) })}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

// getter issues GET requests with the collector's user agent.
type getter struct {
	client    *http.Client
	userAgent string
}

func newGetter(client *http.Client) getter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return getter{client: client, userAgent: DefaultUserAgent}
}

// do returns the response when the status is 2xx. HTTP 429 maps to scanner.ErrRateLimited.
func (g getter) do(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", redact(rawURL), err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", redact(rawURL), scanner.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: redact(rawURL)}
	}
	return resp, nil
}

func (g getter) bytes(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	resp, err := g.do(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", redact(rawURL), err)
	}
	return body, nil
}

// raw returns status and body without treating non-2xx as an error.
func (g getter) raw(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", redact(rawURL), err)
	}
	return resp.StatusCode, body, nil
}

func (g getter) json(ctx context.Context, rawURL string, header http.Header, v any) error {
	body, err := g.bytes(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", redact(rawURL), err)
	}
	return nil
}

// redact hides credentials passed as query parameters.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
