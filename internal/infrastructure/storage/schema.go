package storage

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		published_at TIMESTAMPTZ,
		source TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		body_text TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		ai_keywords_found TEXT[] NOT NULL DEFAULT '{}',
		ce_keywords_found TEXT[] NOT NULL DEFAULT '{}',
		retrieved_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS classifications (
		id BIGSERIAL PRIMARY KEY,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		method TEXT NOT NULL,
		ce_areas TEXT[] NOT NULL DEFAULT '{}',
		ai_technologies TEXT[] NOT NULL DEFAULT '{}',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		reasoning TEXT NOT NULL DEFAULT '',
		raw_response TEXT NOT NULL DEFAULT '',
		classified_at TIMESTAMPTZ NOT NULL,
		UNIQUE (article_id, method)
	)`,
	`CREATE TABLE IF NOT EXISTS cooccurrence_matrix (
		method TEXT NOT NULL,
		ce_area TEXT NOT NULL,
		ai_technology TEXT NOT NULL,
		count INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS temporal_trends (
		method TEXT NOT NULL,
		period TEXT NOT NULL,
		ce_area TEXT NOT NULL,
		article_count INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_method ON classifications (method)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		published_at TIMESTAMP,
		source TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		body_text TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		ai_keywords_found TEXT NOT NULL DEFAULT '[]',
		ce_keywords_found TEXT NOT NULL DEFAULT '[]',
		retrieved_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS classifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		method TEXT NOT NULL,
		ce_areas TEXT NOT NULL DEFAULT '[]',
		ai_technologies TEXT NOT NULL DEFAULT '[]',
		confidence REAL NOT NULL DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		reasoning TEXT NOT NULL DEFAULT '',
		raw_response TEXT NOT NULL DEFAULT '',
		classified_at TIMESTAMP NOT NULL,
		UNIQUE (article_id, method)
	)`,
	`CREATE TABLE IF NOT EXISTS cooccurrence_matrix (
		method TEXT NOT NULL,
		ce_area TEXT NOT NULL,
		ai_technology TEXT NOT NULL,
		count INTEGER NOT NULL,
		computed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS temporal_trends (
		method TEXT NOT NULL,
		period TEXT NOT NULL,
		ce_area TEXT NOT NULL,
		article_count INTEGER NOT NULL,
		computed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_method ON classifications (method)`,
}

// Migrate creates every table and index if missing. Safe to run on each start.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if r.dialect == dialectSQLite {
		statements = sqliteSchema
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
