package ports

import (
	"context"
	"time"

	"CivilAIScanner/internal/domain"
)

// CandidateSource fans out over the configured sources and streams their candidates.
// emit returning false stops every source. Failed sources are reported, never fatal.
type CandidateSource interface {
	Collect(ctx context.Context, window domain.Window, emit func(domain.Sourced) bool) []domain.SourceFailure
}

// Extractor fetches an article page and returns its main text. ok=false on any failure.
type Extractor interface {
	Extract(ctx context.Context, url string) (page domain.Page, ok bool)
}

// ArticleRepository persists admitted articles and exposes the keys already stored.
type ArticleRepository interface {
	LoadSeenKeys(ctx context.Context) (urls, titles []string, err error)
	Upsert(ctx context.Context, article domain.Article) (inserted bool, err error)
}

// ClassificationRepository stores the per-method classification of articles.
type ClassificationRepository interface {
	ArticlesForClassification(ctx context.Context, method domain.ClassificationMethod, limit int, reclassify bool) ([]domain.Article, error)
	SaveClassification(ctx context.Context, c domain.Classification) error
	ListClassified(ctx context.Context, method domain.ClassificationMethod) ([]domain.ClassifiedArticle, error)
}

// AbstractRepository stores generated abstracts.
type AbstractRepository interface {
	ArticlesWithoutAbstract(ctx context.Context, limit int) ([]domain.Article, error)
	SaveAbstract(ctx context.Context, articleID int64, abstract string) error
}

// ReportRepository replaces the stored aggregate tables.
type ReportRepository interface {
	SaveReport(ctx context.Context, report domain.Report) error
}

// Classifier assigns taxonomy categories to an article. It never fails;
// problems yield an empty zero-confidence classification.
type Classifier interface {
	Method() domain.ClassificationMethod
	Classify(ctx context.Context, article domain.Article) domain.Classification
}

// ChatClient sends a system+user prompt to an OpenAI-compatible chat API.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Exporter writes result sets to files.
type Exporter interface {
	ExportArticles(path string, articles []domain.Article) error
	ExportReport(path string, report domain.Report) error
}

// MetricsRecorder observes run progress.
type MetricsRecorder interface {
	Record(source string, outcome domain.Outcome)
	RunFinished(stats domain.RunStats, elapsed time.Duration)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
