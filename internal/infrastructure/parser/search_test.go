package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/keywords"
	"CivilAIScanner/internal/scanner"
)

func TestSearchPagedStopsQueryOnError(t *testing.T) {
	t.Parallel()

	var calls []string
	err := searchPaged(context.Background(), nil, orDiscard(nil),
		scanner.Request{Queries: []string{"a", "b"}, MaxPages: 3}, 1,
		func(_ context.Context, q string, page int) (bool, error) {
			calls = append(calls, fmt.Sprintf("%s%d", q, page))
			if q == "a" && page == 2 {
				return false, errors.New("boom")
			}
			return true, nil
		})

	require.Error(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1", "b2", "b3"}, calls)
}

func TestSearchPagedRateLimitClosesGate(t *testing.T) {
	t.Parallel()

	gate := scanner.NewGate(0)
	calls := 0
	err := searchPaged(context.Background(), gate, orDiscard(nil),
		scanner.Request{Queries: []string{"a", "b"}, MaxPages: 2}, 1,
		func(context.Context, string, int) (bool, error) {
			calls++
			return false, fmt.Errorf("quota: %w", scanner.ErrRateLimited)
		})

	assert.ErrorIs(t, err, scanner.ErrRateLimited)
	assert.Equal(t, 1, calls)
	assert.True(t, gate.Exhausted())
}

func TestSearchPagedDefaultQueries(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	err := searchPaged(context.Background(), nil, orDiscard(nil), scanner.Request{}, 1,
		func(_ context.Context, q string, _ int) (bool, error) {
			seen[q] = true
			return false, nil
		})

	require.NoError(t, err)
	assert.Len(t, seen, len(keywords.SearchQueries(keywords.Defaults())))
	assert.True(t, seen[`bridge AND "computer vision"`])
}

func TestSearchPagedStopRequest(t *testing.T) {
	t.Parallel()

	calls := 0
	err := searchPaged(context.Background(), nil, orDiscard(nil),
		scanner.Request{Queries: []string{"a", "b"}, MaxPages: 5}, 1,
		func(context.Context, string, int) (bool, error) {
			calls++
			return true, errStopped
		})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestLimitedClientBoundsInFlightRequests(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewLimitedClient(2, 5*time.Second, "")
	g := newGetter(client)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := g.bytes(context.Background(), server.URL, nil)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGetterMapsTooManyRequests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newGetter(server.Client()).bytes(context.Background(), server.URL+"?apiKey=secret", nil)
	assert.ErrorIs(t, err, scanner.ErrRateLimited)
	assert.NotContains(t, err.Error(), "secret")
}

func TestLimitedClientOverridesUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := newGetter(NewLimitedClient(1, 5*time.Second, "research-bot/2.0")).bytes(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "research-bot/2.0", <-agents)
}

func emitInto(out *[]domain.Candidate) scanner.Emit {
	return func(c domain.Candidate) bool {
		*out = append(*out, c)
		return true
	}
}
