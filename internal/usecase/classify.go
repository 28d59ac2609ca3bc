package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

// ClassifyOptions narrows a classification run.
type ClassifyOptions struct {
	Limit      int
	Reclassify bool
}

// ClassifyResult counts what a classification run did.
type ClassifyResult struct {
	Method   domain.ClassificationMethod
	Selected int
	Saved    int
	Empty    int
	Failed   int
}

// Classification runs one classifier over stored articles.
type Classification struct {
	repo       ports.ClassificationRepository
	classifier ports.Classifier
	log        *slog.Logger
}

// NewClassification wires a repository with a classifier.
func NewClassification(repo ports.ClassificationRepository, classifier ports.Classifier, logger *slog.Logger) *Classification {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classification{repo: repo, classifier: classifier, log: logger}
}

// Run classifies articles without a classification for the method, or all of
// them with Reclassify. A failed save is logged and the run moves on.
func (c *Classification) Run(ctx context.Context, opts ClassifyOptions) (ClassifyResult, error) {
	method := c.classifier.Method()
	result := ClassifyResult{Method: method}

	articles, err := c.repo.ArticlesForClassification(ctx, method, opts.Limit, opts.Reclassify)
	if err != nil {
		return result, fmt.Errorf("select articles: %w", err)
	}
	result.Selected = len(articles)
	c.log.Info("classification started", "method", method, "articles", len(articles), "reclassify", opts.Reclassify)

	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cls := c.classifier.Classify(ctx, article)
		cls.ArticleID = article.ID
		cls.Method = method

		if err := c.repo.SaveClassification(ctx, cls); err != nil {
			result.Failed++
			c.log.Error("save classification", "article_id", article.ID, "error", err)
			continue
		}
		result.Saved++
		if cls.Empty() {
			result.Empty++
		}

		if (i+1)%50 == 0 {
			c.log.Info("classification progress", "done", i+1, "total", len(articles))
		}
	}

	c.log.Info("classification finished", "method", method, "saved", result.Saved, "empty", result.Empty, "failed", result.Failed)
	return result, nil
}
