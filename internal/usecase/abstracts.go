package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

// AbstractWriter produces a short abstract for an article.
type AbstractWriter interface {
	Abstract(ctx context.Context, article domain.Article) (string, error)
}

// AbstractResult counts what an abstract run did.
type AbstractResult struct {
	Selected int
	Saved    int
	Failed   int
}

// Abstracts fills empty article abstracts.
type Abstracts struct {
	repo   ports.AbstractRepository
	writer AbstractWriter
	log    *slog.Logger
}

// NewAbstracts wires the repository with an abstract writer.
func NewAbstracts(repo ports.AbstractRepository, writer AbstractWriter, logger *slog.Logger) *Abstracts {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Abstracts{repo: repo, writer: writer, log: logger}
}

// Run generates abstracts for up to limit articles. Failures are logged and skipped.
func (a *Abstracts) Run(ctx context.Context, limit int) (AbstractResult, error) {
	var result AbstractResult

	articles, err := a.repo.ArticlesWithoutAbstract(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("select articles: %w", err)
	}
	result.Selected = len(articles)

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		text, err := a.writer.Abstract(ctx, article)
		if err != nil {
			result.Failed++
			a.log.Warn("generate abstract", "article_id", article.ID, "error", err)
			continue
		}
		if err := a.repo.SaveAbstract(ctx, article.ID, text); err != nil {
			result.Failed++
			a.log.Error("save abstract", "article_id", article.ID, "error", err)
			continue
		}
		result.Saved++
		a.log.Debug("abstract saved", "article_id", article.ID, "title", article.Title)
	}

	a.log.Info("abstracts finished", "saved", result.Saved, "failed", result.Failed)
	return result, nil
}
