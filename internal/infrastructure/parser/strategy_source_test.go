package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/scanner"
)

type fakeScanner struct {
	name  string
	urls  []string
	err   error
	mu    sync.Mutex
	calls []scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request, emit scanner.Emit) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	for _, u := range f.urls {
		if !emit(domain.Candidate{URL: u, Title: u}) {
			return nil
		}
	}
	return f.err
}

func TestStrategySourceCollect(t *testing.T) {
	t.Parallel()

	rss := &fakeScanner{name: "rss", urls: []string{"https://a/1", "https://a/2"}}
	news := &fakeScanner{name: "newsapi", urls: []string{"https://n/1"}, err: errors.New("page 2 failed")}

	reg := scanner.NewRegistry()
	reg.Register(rss)
	reg.Register(news)

	sites := []config.SourceConfig{
		{Name: "feeds", Scanner: "rss"},
		{Name: "news", Scanner: "newsapi", MaxPages: 3},
		{Name: "ghost", Scanner: "missing"},
	}
	keys := func(kind string) (string, bool) {
		if kind == "newsapi" {
			return "secret", true
		}
		return "", false
	}
	src := NewStrategySource(reg, sites, keys, []string{"bridge AND robotics"}, nil)

	var (
		mu  sync.Mutex
		got []domain.Sourced
	)
	failures := src.Collect(context.Background(), domain.Window{}, func(s domain.Sourced) bool {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
		return true
	})

	require.Len(t, got, 3)
	perSource := map[string]int{}
	for _, s := range got {
		perSource[s.Source]++
		assert.NotEmpty(t, s.Candidate.Source)
	}
	assert.Equal(t, map[string]int{"feeds": 2, "news": 1}, perSource)

	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Source)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ghost", "news"}, names)

	require.Len(t, news.calls, 1)
	assert.Equal(t, "secret", news.calls[0].APIKey)
	assert.Equal(t, 3, news.calls[0].MaxPages)
	assert.Equal(t, []string{"bridge AND robotics"}, news.calls[0].Queries)
	assert.Empty(t, rss.calls[0].APIKey)
}

func TestStrategySourceStops(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "rss", urls: []string{"1", "2", "3", "4"}})

	src := NewStrategySource(reg, []config.SourceConfig{{Name: "feeds", Scanner: "rss"}}, nil, nil, nil)
	count := 0
	failures := src.Collect(context.Background(), domain.Window{}, func(domain.Sourced) bool {
		count++
		return count < 2
	})

	assert.Empty(t, failures)
	assert.Equal(t, 2, count)
}

func TestStrategySourceReopensQuotaGateEachRun(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer server.Close()

	reg := scanner.NewRegistry()
	reg.Register(NewNewsAPIScanner(server.Client(), scanner.NewGate(0), nil))
	sites := []config.SourceConfig{{Name: "news", Scanner: "newsapi", URL: server.URL, MaxPages: 1}}
	keys := func(string) (string, bool) { return "k", true }
	src := NewStrategySource(reg, sites, keys, []string{"bridge AND robotics"}, nil)
	emit := func(domain.Sourced) bool { return true }

	first := src.Collect(context.Background(), domain.Window{}, emit)
	require.Len(t, first, 1)
	assert.ErrorIs(t, first[0].Err, scanner.ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())

	second := src.Collect(context.Background(), domain.Window{}, emit)
	assert.Empty(t, second)
	assert.Equal(t, int32(2), calls.Load())
}
