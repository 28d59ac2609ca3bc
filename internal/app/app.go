// Package app wires configuration to adapters and use cases.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"CivilAIScanner/internal/classifier"
	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/infrastructure/export"
	"CivilAIScanner/internal/infrastructure/extractor"
	"CivilAIScanner/internal/infrastructure/llm"
	"CivilAIScanner/internal/infrastructure/parser"
	"CivilAIScanner/internal/infrastructure/scheduler"
	"CivilAIScanner/internal/infrastructure/storage"
	"CivilAIScanner/internal/infrastructure/telegram"
	"CivilAIScanner/internal/keywords"
	"CivilAIScanner/internal/logging"
	"CivilAIScanner/internal/metrics"
	"CivilAIScanner/internal/ports"
	"CivilAIScanner/internal/scanner"
	"CivilAIScanner/internal/usecase"
)

const (
	shutdownTimeout     = 30 * time.Second
	defaultRateInterval = time.Second
)

// ErrUnknownMethod is returned for a classification method other than keyword or llm.
var ErrUnknownMethod = errors.New("unknown classification method")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	recorder *metrics.Recorder

	db   *sql.DB
	repo *storage.Repository
}

// New builds an application. Adapters are created lazily per command so a
// dry run never touches the store and keyword classification never needs an LLM key.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, log: baseLogger, recorder: metrics.NewRecorder()}
}

// Config exposes the effective configuration.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Close releases the store connection, if one was opened.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.repo = nil, nil
	return err
}

// Collect runs the collect pipeline once.
func (a *Application) Collect(ctx context.Context) (usecase.RunResult, error) {
	pipeline, err := a.pipeline(ctx)
	if err != nil {
		return usecase.RunResult{}, err
	}
	return pipeline.Run(ctx)
}

// Classify classifies stored articles with the keyword or the LLM classifier.
func (a *Application) Classify(ctx context.Context, method domain.ClassificationMethod, opts usecase.ClassifyOptions) (usecase.ClassifyResult, error) {
	var needs config.Needs
	switch method {
	case domain.MethodKeyword:
		needs = config.Needs{Store: true}
	case domain.MethodLLM:
		needs = config.Needs{Store: true, LLM: true}
	default:
		return usecase.ClassifyResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err := a.cfg.Validate(needs); err != nil {
		return usecase.ClassifyResult{}, err
	}

	repo, err := a.store(ctx)
	if err != nil {
		return usecase.ClassifyResult{}, err
	}

	var c ports.Classifier
	if method == domain.MethodLLM {
		c = classifier.NewLLMClassifier(llm.NewChatGPTClient(a.cfg.ChatGPT), classifier.LLMOptions{
			MaxContentChars: a.cfg.Classifier.MaxContentChars,
			Timeout:         a.cfg.CallTimeout(),
		}, a.component("classifier.llm"))
	} else {
		c = classifier.NewKeywordClassifier()
	}

	return usecase.NewClassification(repo, c, a.component("classify")).Run(ctx, opts)
}

// Abstracts generates missing abstracts with the LLM.
func (a *Application) Abstracts(ctx context.Context, limit int) (usecase.AbstractResult, error) {
	if err := a.cfg.Validate(config.Needs{Store: true, LLM: true}); err != nil {
		return usecase.AbstractResult{}, err
	}
	repo, err := a.store(ctx)
	if err != nil {
		return usecase.AbstractResult{}, err
	}

	writer := classifier.NewAbstractor(llm.NewChatGPTClient(a.cfg.ChatGPT), a.cfg.Classifier.AbstractContentChars, a.cfg.CallTimeout())
	return usecase.NewAbstracts(repo, writer, a.component("abstracts")).Run(ctx, limit)
}

// Report rebuilds the aggregate tables for a method and optionally exports them.
func (a *Application) Report(ctx context.Context, method domain.ClassificationMethod, exportPath string) (domain.Report, error) {
	if method != domain.MethodKeyword && method != domain.MethodLLM {
		return domain.Report{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err := errors.Join(a.cfg.Validate(config.Needs{Store: true}), config.ValidateExportPath(exportPath)); err != nil {
		return domain.Report{}, err
	}
	repo, err := a.store(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	var exporter ports.Exporter
	if exportPath != "" {
		exporter = export.FileExporter{}
	}
	return usecase.NewReporting(repo, repo, exporter, a.component("report")).Run(ctx, method, exportPath)
}

// Schedule runs collect on the configured cron expression and serves /metrics
// until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	pipeline, err := a.pipeline(ctx)
	if err != nil {
		return err
	}

	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.component("cron"))
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, pipeline, a.component("scheduler"))

	server := a.metricsServer()
	serveErr := make(chan error, 1)
	if server != nil {
		go func() {
			a.log.Info("metrics endpoint listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.log.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(), "next", driver.Next(time.Now()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		a.log.Error("metrics endpoint failed", "error", runErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.log.Warn("scheduler stop", "error", err)
	}
	if server != nil {
		if err := server.Shutdown(stopCtx); err != nil {
			a.log.Warn("metrics endpoint shutdown", "error", err)
		}
	}
	a.log.Info("scheduler stopped")
	return runErr
}

func (a *Application) metricsServer() *http.Server {
	if a.cfg.Scheduler.MetricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.recorder.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              a.cfg.Scheduler.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// pipeline validates the collect settings and builds the pipeline with every adapter.
func (a *Application) pipeline(ctx context.Context) (*usecase.Pipeline, error) {
	settings := a.cfg.Pipeline
	if err := a.cfg.Validate(config.Needs{Sources: true, Store: !settings.DryRun}); err != nil {
		return nil, err
	}

	var repo ports.ArticleRepository
	if !settings.DryRun {
		r, err := a.store(ctx)
		if err != nil {
			return nil, err
		}
		repo = r
	}

	userAgent := settings.UserAgent
	if userAgent == "" {
		userAgent = parser.DefaultUserAgent
	}
	sets := a.keywordSets()
	client := parser.NewLimitedClient(int64(settings.Concurrency), settings.RequestTimeout, userAgent)
	source := parser.NewStrategySource(a.registry(client), a.cfg.ActiveSources(), a.cfg.APIKey,
		keywords.SearchQueries(sets), a.component("source"))

	deps := usecase.PipelineDeps{
		Source:     source,
		Extractor:  extractor.New(client, settings.ExtractTimeout, userAgent, a.component("extractor")),
		Repository: repo,
		Filter:     keywords.NewFilter(sets),
		Metrics:    a.recorder,
		Logger:     a.component("pipeline"),
	}
	if settings.ExportPath != "" {
		deps.Exporter = export.FileExporter{}
	}
	if tg := a.cfg.Notifications.Telegram; tg.Enabled() {
		deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}
	return usecase.NewPipeline(deps, settings), nil
}

// registry registers every scanner kind; search providers share one gate per kind.
func (a *Application) registry(client *http.Client) *scanner.Registry {
	gate := func(kind string) *scanner.Gate {
		return scanner.NewGate(rateInterval(a.cfg.ActiveSources(), kind))
	}

	reg := scanner.NewRegistry()
	reg.Register(parser.NewRSSScanner(client, a.component("scanner.rss")))
	reg.Register(parser.NewSitemapScanner(client, a.component("scanner.sitemap")))
	reg.Register(parser.NewArxivScanner(client, a.component("scanner.arxiv")))
	reg.Register(parser.NewNewsAPIScanner(client, gate("newsapi"), a.component("scanner.newsapi")))
	reg.Register(parser.NewGuardianScanner(client, gate("guardian"), a.component("scanner.guardian")))
	reg.Register(parser.NewNYTimesScanner(client, gate("nytimes"), a.component("scanner.nytimes")))
	reg.Register(parser.NewSerpAPIScanner(client, gate("serpapi"), a.component("scanner.serpapi")))
	reg.Register(parser.NewGDELTScanner(client, gate("gdelt"), a.component("scanner.gdelt")))
	return reg
}

// rateInterval takes the interval of the first active source of a kind,
// one second when it sets none.
func rateInterval(sources []config.SourceConfig, kind string) time.Duration {
	for _, src := range sources {
		if src.Scanner == kind && src.RateInterval > 0 {
			return src.RateInterval
		}
	}
	return defaultRateInterval
}

func (a *Application) keywordSets() keywords.Sets {
	sets := keywords.Defaults()
	if len(a.cfg.Keywords.AI) > 0 {
		sets.AI = a.cfg.Keywords.AI
	}
	if len(a.cfg.Keywords.CE) > 0 {
		sets.CE = a.cfg.Keywords.CE
	}
	return sets
}

// store opens the database once and creates the schema.
func (a *Application) store(ctx context.Context) (*storage.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}

	db, err := storage.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewRepository(db, a.cfg.Database.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.db, a.repo = db, repo
	return repo, nil
}

func (a *Application) component(name string) *slog.Logger {
	return logging.Component(a.log, name)
}
