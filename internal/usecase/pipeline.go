package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/dedup"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/keywords"
	"CivilAIScanner/internal/metrics"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/textutil"
)

// PipelineDeps wires all driven adapters into the collect pipeline.
// Repository may be nil for a dry run without a store.
type PipelineDeps struct {
	Source     ports.CandidateSource
	Extractor  ports.Extractor
	Repository ports.ArticleRepository
	Filter     *keywords.Filter
	Metrics    ports.MetricsRecorder
	Notifier   ports.Notifier
	Exporter   ports.Exporter
	Logger     *slog.Logger
}

// Pipeline implements the collect workflow: fan out over sources, screen
// candidates concurrently and admit them through a single writer.
type Pipeline struct {
	source     ports.CandidateSource
	extractor  ports.Extractor
	repository ports.ArticleRepository
	filter     *keywords.Filter
	metrics    ports.MetricsRecorder
	notifier   ports.Notifier
	exporter   ports.Exporter
	log        *slog.Logger
	settings   config.PipelineConfig
	language   textutil.LanguageGate

	now   func() time.Time
	runID func() string
}

// RunResult is the outcome of one collect run.
type RunResult struct {
	Stats    domain.RunStats
	Articles []domain.Article
	Failures []domain.SourceFailure
	Elapsed  time.Duration
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, settings config.PipelineConfig) *Pipeline {
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	filter := deps.Filter
	if filter == nil {
		filter = keywords.NewFilter(keywords.Defaults())
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Pipeline{
		source:     deps.Source,
		extractor:  deps.Extractor,
		repository: deps.Repository,
		filter:     filter,
		metrics:    recorder,
		notifier:   deps.Notifier,
		exporter:   deps.Exporter,
		log:        logger,
		settings:   settings,
		language:   textutil.NewLanguageGate(settings.Language),
		now:        time.Now,
		runID:      uuid.NewString,
	}
}

// screened is a candidate that passed every per-item check and awaits admission.
type screened struct {
	source  string
	article domain.Article
}

// Run executes one collection. Source failures are reported in the result;
// only an unreadable store or a cancelled context fails the run.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	if p.source == nil {
		return RunResult{}, errors.New("pipeline has no candidate source")
	}
	if p.repository == nil && !p.settings.DryRun {
		return RunResult{}, errors.New("pipeline has no repository and is not a dry run")
	}

	started := p.now()
	runID := p.runID()
	stats := domain.NewStatsCollector(runID)
	log := p.log.With("run_id", runID)

	seen := dedup.New()
	if p.repository != nil {
		urls, titles, err := p.repository.LoadSeenKeys(ctx)
		if err != nil {
			return RunResult{}, fmt.Errorf("load seen keys: %w", err)
		}
		seen.Seed(urls, titles)
		log.Info("deduplicator seeded", "urls", len(urls))
	}

	window := domain.Window{
		Since: started.AddDate(0, 0, -p.settings.LookbackDays),
		Until: started,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	candidates := make(chan domain.Sourced, p.settings.Concurrency*4)
	accepted := make(chan screened, p.settings.Concurrency)

	var failures []domain.SourceFailure
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		defer close(candidates)
		failures = p.source.Collect(runCtx, window, func(s domain.Sourced) bool {
			p.count(stats, s.Source, domain.OutcomeFetched)
			select {
			case candidates <- s:
				return true
			case <-runCtx.Done():
				return false
			}
		})
	}()

	var workers errgroup.Group
	for i := 0; i < p.settings.Concurrency; i++ {
		workers.Go(func() error {
			for s := range candidates {
				article, outcome := p.screen(runCtx, s, window, seen)
				if outcome != domain.OutcomePersisted {
					p.count(stats, s.Source, outcome)
					continue
				}
				select {
				case accepted <- screened{source: s.Source, article: article}:
				case <-runCtx.Done():
				}
			}
			return nil
		})
	}
	go func() {
		_ = workers.Wait()
		close(accepted)
	}()

	admitted := p.write(runCtx, stop, accepted, seen, stats, log)

	<-producerDone
	for _, f := range failures {
		p.count(stats, f.Source, domain.OutcomeFailed)
		log.Warn("source failed", "source", f.Source, "error", f.Err)
	}

	result := RunResult{
		Stats:    stats.Snapshot(),
		Articles: admitted,
		Failures: failures,
		Elapsed:  p.now().Sub(started),
	}
	result.Stats.DryRun = p.settings.DryRun
	p.metrics.RunFinished(result.Stats, result.Elapsed)

	log.Info("collect finished",
		"persisted", result.Stats.Persisted,
		"fetched", result.Stats.Fetched,
		"elapsed", result.Elapsed.Round(time.Millisecond))

	p.finish(ctx, result, log)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// write is the single owner of admission: it is the only caller of Admit and Upsert.
func (p *Pipeline) write(ctx context.Context, stop context.CancelFunc, in <-chan screened,
	seen *dedup.Deduplicator, stats *domain.StatsCollector, log *slog.Logger) []domain.Article {
	var admitted []domain.Article
	target := p.settings.TargetCount
	done := false

	for item := range in {
		if done {
			continue
		}
		a := item.article
		if !seen.Admit(a.URL, a.Title) {
			p.count(stats, item.source, domain.OutcomeDuplicate)
			continue
		}

		if !p.settings.DryRun {
			inserted, err := p.repository.Upsert(ctx, a)
			if err != nil {
				p.count(stats, item.source, domain.OutcomeFailed)
				log.Error("persist article", "url", a.URL, "error", err)
				continue
			}
			if !inserted {
				p.count(stats, item.source, domain.OutcomeDuplicate)
				continue
			}
		}

		p.count(stats, item.source, domain.OutcomePersisted)
		admitted = append(admitted, a)
		log.Debug("article admitted", "source", item.source, "url", a.URL)

		if target > 0 && len(admitted) >= target {
			log.Info("target reached", "target", target)
			done = true
			stop()
		}
	}
	return admitted
}

// screen normalizes one candidate and decides whether it may be admitted.
// It returns OutcomePersisted for candidates that should reach the writer.
func (p *Pipeline) screen(ctx context.Context, s domain.Sourced, window domain.Window, seen *dedup.Deduplicator) (domain.Article, domain.Outcome) {
	c := s.Candidate
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return domain.Article{}, domain.OutcomeFiltered
	}

	title := textutil.CleanHTML(c.Title)
	summary := textutil.CleanHTML(c.Summary)
	body := textutil.CollapseSpace(c.Body)

	published := c.PublishedAt
	if published == nil && c.PublishedRaw != "" {
		published = textutil.ParseDate(c.PublishedRaw)
	}
	if published != nil && published.Before(window.Since) {
		return domain.Article{}, domain.OutcomeStale
	}

	if seen.Seen(url, title) {
		return domain.Article{}, domain.OutcomeDuplicate
	}

	if body == "" && p.wantsBody(c, title, summary) {
		page, ok := p.extract(ctx, url)
		if ok {
			body = page.Text
			if title == "" {
				title = textutil.CollapseSpace(page.Title)
			}
		}
	}
	if c.NeedsBody && body == "" {
		return domain.Article{}, domain.OutcomeFiltered
	}
	if title == "" {
		return domain.Article{}, domain.OutcomeFiltered
	}

	text := joinText(title, summary, body)
	lang, ok := p.language.Admit(text)
	if !ok {
		return domain.Article{}, domain.OutcomeLanguage
	}

	match := p.filter.Admits(text)
	if !match.Admitted && !p.settings.DisableTopicFilter {
		return domain.Article{}, domain.OutcomeFiltered
	}

	source := c.Source
	if source == "" {
		source = s.Source
	}
	return domain.Article{
		URL:             url,
		Title:           title,
		PublishedAt:     published,
		Source:          source,
		Summary:         summary,
		BodyText:        body,
		Language:        lang,
		AIKeywordsFound: match.AI,
		CEKeywordsFound: match.CE,
		RetrievedAt:     p.now().UTC(),
	}, domain.OutcomePersisted
}

// wantsBody applies the full-text policy to a candidate without a body.
func (p *Pipeline) wantsBody(c domain.Candidate, title, summary string) bool {
	if p.extractor == nil {
		return false
	}
	switch p.settings.FullText {
	case config.FullTextAlways:
		return true
	case config.FullTextNever:
		return false
	default:
		if c.NeedsBody || (title == "" && summary == "") {
			return true
		}
		if p.settings.DisableTopicFilter {
			return false
		}
		return !p.filter.Admits(joinText(title, summary, "")).Admitted
	}
}

// extract fetches the page text, discarding bodies shorter than minBodyLength.
func (p *Pipeline) extract(ctx context.Context, url string) (domain.Page, bool) {
	if ctx.Err() != nil {
		return domain.Page{}, false
	}
	page, ok := p.extractor.Extract(ctx, url)
	if !ok {
		return domain.Page{}, false
	}
	if utf8.RuneCountInString(page.Text) < p.settings.MinBodyLength {
		page.Text = ""
	}
	return page, page.Text != "" || page.Title != ""
}

// finish writes the export and the notification. Both are best effort.
func (p *Pipeline) finish(ctx context.Context, result RunResult, log *slog.Logger) {
	if p.exporter != nil && p.settings.ExportPath != "" {
		if err := p.exporter.ExportArticles(p.settings.ExportPath, result.Articles); err != nil {
			log.Error("export articles", "path", p.settings.ExportPath, "error", err)
		} else {
			log.Info("articles exported", "path", p.settings.ExportPath, "count", len(result.Articles))
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(result)); err != nil {
			log.Warn("publish summary", "error", err)
		}
	}
}

func (p *Pipeline) count(stats *domain.StatsCollector, source string, outcome domain.Outcome) {
	stats.Add(source, outcome)
	p.metrics.Record(source, outcome)
}

func joinText(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// buildDigestMessage renders the run summary and the newest titles for chat delivery.
func buildDigestMessage(result RunResult) string {
	var b strings.Builder
	b.WriteString("CivilAIScanner collect run\n")
	b.WriteString(result.Stats.Summary())

	const maxTitles = 10
	if len(result.Articles) > 0 {
		b.WriteString("\nNew articles:\n")
	}
	for i, a := range result.Articles {
		if i == maxTitles {
			fmt.Fprintf(&b, "... and %d more\n", len(result.Articles)-maxTitles)
			break
		}
		fmt.Fprintf(&b, "- %s\n  %s\n", a.Title, a.URL)
	}
	return b.String()
}
