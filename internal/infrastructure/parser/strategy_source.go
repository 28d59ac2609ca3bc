package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/scanner"
)

// StrategySource implements CandidateSource via registered scanner strategies,
// running every configured source concurrently.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SourceConfig
	keys     func(scanner string) (string, bool)
	queries  []string
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
// keys resolves API credentials per scanner kind; queries is the default search set.
func NewStrategySource(reg *scanner.Registry, sites []config.SourceConfig, keys func(string) (string, bool), queries []string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		keys:     keys,
		queries:  queries,
		logger:   orDiscard(log),
	}
}

// Collect runs one goroutine per source. emit is serialized by the caller's channel,
// so it may be called from several goroutines at once.
func (s *StrategySource) Collect(ctx context.Context, window domain.Window, emit func(domain.Sourced) bool) []domain.SourceFailure {
	if s.registry == nil {
		return []domain.SourceFailure{{Source: "*", Err: fmt.Errorf("scanner registry is not configured")}}
	}

	s.registry.BeginRun()
	s.logger.Debug("collect", "sources", len(s.sites), "since", window.Since.Format("2006-01-02"))

	var (
		mu       sync.Mutex
		failures []domain.SourceFailure
		g        errgroup.Group
	)
	fail := func(name string, err error) {
		mu.Lock()
		failures = append(failures, domain.SourceFailure{Source: name, Err: err})
		mu.Unlock()
	}

	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			fail(site.Name, err)
			continue
		}

		req := s.request(site, window)
		g.Go(func() error {
			s.logger.Debug("process source", "source", site.Name, "scanner", site.Scanner)
			emitted := 0
			err := strategy.Scan(ctx, req, func(c domain.Candidate) bool {
				if c.Source == "" {
					c.Source = site.Name
				}
				emitted++
				return emit(domain.Sourced{Source: site.Name, Candidate: c})
			})
			if err != nil && ctx.Err() == nil {
				s.logger.Warn("source failed", "source", site.Name, "emitted", emitted, "error", err)
				fail(site.Name, err)
				return nil
			}
			s.logger.Info("source done", "source", site.Name, "emitted", emitted)
			return nil
		})
	}

	_ = g.Wait()
	return failures
}

func (s *StrategySource) request(site config.SourceConfig, window domain.Window) scanner.Request {
	req := scanner.Request{
		SourceName: site.Name,
		URL:        site.URL,
		Queries:    site.Queries,
		Domains:    site.Domains,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
		Since:      window.Since,
		Until:      window.Until,
		MaxPages:   site.MaxPages,
	}
	if len(req.Queries) == 0 {
		req.Queries = s.queries
	}
	if s.keys != nil {
		req.APIKey, _ = s.keys(site.Scanner)
	}
	return req
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}
