package parser

import (
	"context"
	"errors"
	"log/slog"

	"CivilAIScanner/internal/keywords"
	"CivilAIScanner/internal/scanner"
)

// errStopped is returned by a page func when the pipeline asked to stop.
var errStopped = errors.New("scan stopped by consumer")

// pageFunc fetches and emits one result page; more=false ends the query.
type pageFunc func(ctx context.Context, query string, page int) (more bool, err error)

// searchPaged runs fn over every query and page. Pages are numbered from first.
// A rate-limit signal closes the gate and ends the whole scan; other errors only end the current query.
func searchPaged(ctx context.Context, gate *scanner.Gate, logger *slog.Logger, req scanner.Request, first int, fn pageFunc) error {
	queries := req.Queries
	if len(queries) == 0 {
		queries = keywords.SearchQueries(keywords.Defaults())
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var errs []error
	for _, q := range queries {
		for page := first; page < first+maxPages; page++ {
			if err := gate.Wait(ctx); err != nil {
				if errors.Is(err, scanner.ErrRateLimited) {
					return err
				}
				return errors.Join(append(errs, err)...)
			}

			more, err := fn(ctx, q, page)
			if errors.Is(err, errStopped) {
				return nil
			}
			if errors.Is(err, scanner.ErrRateLimited) {
				gate.Exhaust()
				logger.Warn("provider quota exhausted", "source", req.SourceName, "query", q, "page", page)
				return err
			}
			if err != nil {
				logger.Warn("search page failed", "source", req.SourceName, "query", q, "page", page, "error", err)
				errs = append(errs, err)
				break
			}
			if !more {
				break
			}
		}
	}
	return errors.Join(errs...)
}
