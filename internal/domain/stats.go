package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SourceStats counts outcomes for a single source.
type SourceStats struct {
	Fetched   int
	Persisted int
	Errors    int
}

// RunStats is the outcome of one collection run.
type RunStats struct {
	RunID      string
	Fetched    int
	Stale      int
	Language   int
	Filtered   int
	Duplicates int
	Persisted  int
	Failed     int
	// DryRun runs count admitted articles as persisted without writing them.
	DryRun    bool
	PerSource map[string]SourceStats
}

// Summary renders a short human readable report.
func (s RunStats) Summary() string {
	var b strings.Builder
	mode := ""
	if s.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(&b, "run %s%s: fetched=%d stale=%d language=%d filtered=%d duplicates=%d persisted=%d failed=%d\n",
		s.RunID, mode, s.Fetched, s.Stale, s.Language, s.Filtered, s.Duplicates, s.Persisted, s.Failed)

	names := make([]string, 0, len(s.PerSource))
	for name := range s.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := s.PerSource[name]
		fmt.Fprintf(&b, "  %-28s fetched=%-5d persisted=%-5d errors=%d\n", name, st.Fetched, st.Persisted, st.Errors)
	}
	return b.String()
}

// Outcome names a counter bucket.
type Outcome int

const (
	OutcomeFetched Outcome = iota
	OutcomeStale
	OutcomeLanguage
	OutcomeFiltered
	OutcomeDuplicate
	OutcomePersisted
	OutcomeFailed
)

// String returns the metric label of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeStale:
		return "stale"
	case OutcomeLanguage:
		return "language"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomePersisted:
		return "persisted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatsCollector accumulates RunStats from concurrent workers.
type StatsCollector struct {
	mu    sync.Mutex
	stats RunStats
}

// NewStatsCollector prepares an empty counter set for the given run.
func NewStatsCollector(runID string) *StatsCollector {
	return &StatsCollector{stats: RunStats{RunID: runID, PerSource: map[string]SourceStats{}}}
}

// Add increments the bucket for a source.
func (c *StatsCollector) Add(source string, outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	per := c.stats.PerSource[source]
	switch outcome {
	case OutcomeFetched:
		c.stats.Fetched++
		per.Fetched++
	case OutcomeStale:
		c.stats.Stale++
	case OutcomeLanguage:
		c.stats.Language++
	case OutcomeFiltered:
		c.stats.Filtered++
	case OutcomeDuplicate:
		c.stats.Duplicates++
	case OutcomePersisted:
		c.stats.Persisted++
		per.Persisted++
	case OutcomeFailed:
		c.stats.Failed++
		per.Errors++
	}
	c.stats.PerSource[source] = per
}

// Snapshot returns a copy of the counters.
func (c *StatsCollector) Snapshot() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.PerSource = make(map[string]SourceStats, len(c.stats.PerSource))
	for name, st := range c.stats.PerSource {
		out.PerSource[name] = st
	}
	return out
}
