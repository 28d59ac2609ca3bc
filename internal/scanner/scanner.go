package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"CivilAIScanner/internal/domain"
)

// ErrRateLimited reports that a provider refused further requests for this run.
var ErrRateLimited = errors.New("provider rate limit reached")

// Category describes a concrete section endpoint provided by config.
type Category struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute a scan.
type Request struct {
	SourceName string
	URL        string
	APIKey     string
	Queries    []string
	Domains    []string
	Categories []Category
	Options    map[string]string
	// Since is the lookback cutoff; Until is the run start.
	Since    time.Time
	Until    time.Time
	MaxPages int
	MaxItems int
}

// Option returns a request option or the fallback.
func (r Request) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Emit hands one candidate to the pipeline. A false return asks the scanner to stop.
type Emit func(domain.Candidate) bool

// Scanner captures a single source adapter (RSS, NewsAPI, sitemap, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request, emit Emit) error
}

// RunScoped is implemented by scanners that keep state for one collect run,
// such as a provider gate closed by a quota signal.
type RunScoped interface {
	BeginRun()
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// BeginRun resets the per-run state of every registered scanner.
func (r *Registry) BeginRun() {
	for _, s := range r.scanners {
		if scoped, ok := s.(RunScoped); ok {
			scoped.BeginRun()
		}
	}
}

// Names lists registered scanners in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
