// Package storage persists articles, classifications and report tables in
// Postgres or SQLite through one squirrel-built query layer.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"CivilAIScanner/internal/config"
	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/ports"
)

// ErrNotFound is returned when an update targets a missing article.
var ErrNotFound = errors.New("article not found")

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// Repository implements every storage port on top of database/sql.
type Repository struct {
	db      *sql.DB
	dialect dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.ArticleRepository        = (*Repository)(nil)
	_ ports.ClassificationRepository = (*Repository)(nil)
	_ ports.AbstractRepository       = (*Repository)(nil)
	_ ports.ReportRepository         = (*Repository)(nil)
)

// NewRepository wires a sql.DB opened with the given driver name.
func NewRepository(db *sql.DB, driver string) (*Repository, error) {
	switch driver {
	case config.DriverPostgres:
		return &Repository{db: db, dialect: dialectPostgres, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar), now: time.Now}, nil
	case config.DriverSQLite:
		return &Repository{db: db, dialect: dialectSQLite, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question), now: time.Now}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == config.DriverSQLite {
		// A single writer avoids "database is locked" under concurrent use.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

var articleColumns = []string{
	"a.id", "a.url", "a.title", "a.published_at", "a.source", "a.summary", "a.body_text",
	"a.abstract", "a.language", "a.ai_keywords_found", "a.ce_keywords_found", "a.retrieved_at",
}

// LoadSeenKeys returns every stored URL and title for seeding the deduplicator.
func (r *Repository) LoadSeenKeys(ctx context.Context) ([]string, []string, error) {
	query, args, err := r.sb.Select("url", "title").From("articles").ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build seen keys query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query seen keys: %w", err)
	}

	var urls, titles []string
	for rows.Next() {
		var u, t string
		if err := rows.Scan(&u, &t); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("scan seen key: %w", err)
		}
		urls = append(urls, u)
		titles = append(titles, t)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return urls, titles, nil
}

// Upsert inserts the article unless its URL is already stored.
func (r *Repository) Upsert(ctx context.Context, a domain.Article) (bool, error) {
	retrieved := a.RetrievedAt
	if retrieved.IsZero() {
		retrieved = r.now()
	}

	query, args, err := r.sb.Insert("articles").
		Columns("url", "title", "published_at", "source", "summary", "body_text", "abstract",
			"language", "ai_keywords_found", "ce_keywords_found", "retrieved_at").
		Values(a.URL, a.Title, nullTime(a.PublishedAt), a.Source, a.Summary, a.BodyText, a.Abstract,
			a.Language, r.list(a.AIKeywordsFound), r.list(a.CEKeywordsFound), retrieved.UTC()).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ArticlesForClassification returns articles lacking a classification for the method,
// or every article when reclassify is set. limit <= 0 means no limit.
func (r *Repository) ArticlesForClassification(ctx context.Context, method domain.ClassificationMethod, limit int, reclassify bool) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles a").OrderBy("a.id")
	if !reclassify {
		b = b.Where("NOT EXISTS (SELECT 1 FROM classifications c WHERE c.article_id = a.id AND c.method = ?)", string(method))
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.queryArticles(ctx, b)
}

// ArticlesWithoutAbstract returns articles whose abstract is still empty.
func (r *Repository) ArticlesWithoutAbstract(ctx context.Context, limit int) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles a").
		Where(sq.Or{sq.Eq{"a.abstract": nil}, sq.Eq{"a.abstract": ""}}).
		OrderBy("a.id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.queryArticles(ctx, b)
}

// ListArticles returns stored articles, newest first.
func (r *Repository) ListArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles a").OrderBy("a.id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.queryArticles(ctx, b)
}

func (r *Repository) queryArticles(ctx context.Context, b sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	var out []domain.Article
	for rows.Next() {
		var (
			a         domain.Article
			published sql.NullTime
			ai, ce    stringList
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &published, &a.Source, &a.Summary, &a.BodyText,
			&a.Abstract, &a.Language, &ai, &ce, &a.RetrievedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if published.Valid {
			t := published.Time.UTC()
			a.PublishedAt = &t
		}
		a.AIKeywordsFound, a.CEKeywordsFound = ai, ce
		out = append(out, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return out, nil
}

// SaveClassification replaces the article's classification for the method.
func (r *Repository) SaveClassification(ctx context.Context, c domain.Classification) error {
	if !c.Method.Valid() {
		return fmt.Errorf("unknown classification method %q", c.Method)
	}
	classified := c.ClassifiedAt
	if classified.IsZero() {
		classified = r.now()
	}

	del, delArgs, err := r.sb.Delete("classifications").
		Where(sq.Eq{"article_id": c.ArticleID, "method": string(c.Method)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	ins, insArgs, err := r.sb.Insert("classifications").
		Columns("article_id", "method", "ce_areas", "ai_technologies", "confidence",
			"model", "reasoning", "raw_response", "classified_at").
		Values(c.ArticleID, string(c.Method), r.list(c.CEAreas), r.list(c.AITechnologies), c.Confidence,
			c.Model, c.Reasoning, c.RawResponse, classified.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete classification: %w", err)
		}
		if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
			return fmt.Errorf("insert classification: %w", err)
		}
		return nil
	})
}

// ListClassified returns every classification of the method with the article dates.
func (r *Repository) ListClassified(ctx context.Context, method domain.ClassificationMethod) ([]domain.ClassifiedArticle, error) {
	query, args, err := r.sb.Select("c.article_id", "a.published_at", "a.retrieved_at", "c.ce_areas", "c.ai_technologies").
		From("classifications c").
		Join("articles a ON a.id = c.article_id").
		Where(sq.Eq{"c.method": string(method)}).
		OrderBy("c.article_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build classified query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query classified: %w", err)
	}

	var out []domain.ClassifiedArticle
	for rows.Next() {
		var (
			item      domain.ClassifiedArticle
			published sql.NullTime
			ce, ai    stringList
		)
		if err := rows.Scan(&item.ArticleID, &published, &item.RetrievedAt, &ce, &ai); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan classified: %w", err)
		}
		if published.Valid {
			t := published.Time.UTC()
			item.PublishedAt = &t
		}
		item.CEAreas, item.AITechnologies = ce, ai
		out = append(out, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return out, nil
}

// SaveAbstract stores a generated abstract.
func (r *Repository) SaveAbstract(ctx context.Context, articleID int64, abstract string) error {
	query, args, err := r.sb.Update("articles").
		Set("abstract", abstract).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update abstract: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", articleID, ErrNotFound)
	}
	return nil
}

// SaveReport clears the method's matrix and trend rows and writes the new ones.
func (r *Repository) SaveReport(ctx context.Context, report domain.Report) error {
	computed := report.ComputedAt
	if computed.IsZero() {
		computed = r.now()
	}
	computed = computed.UTC()
	method := string(report.Method)

	type stmt struct {
		sql  string
		args []any
	}
	var stmts []stmt
	add := func(b sq.Sqlizer) error {
		s, args, err := b.ToSql()
		if err != nil {
			return err
		}
		stmts = append(stmts, stmt{s, args})
		return nil
	}

	if err := add(r.sb.Delete("cooccurrence_matrix").Where(sq.Eq{"method": method})); err != nil {
		return fmt.Errorf("build matrix delete: %w", err)
	}
	matrix := r.sb.Insert("cooccurrence_matrix").Columns("method", "ce_area", "ai_technology", "count", "computed_at")
	for i, area := range domain.CEAreas {
		for j, tech := range domain.AITechnologies {
			count := 0
			if i < len(report.Matrix) && j < len(report.Matrix[i]) {
				count = report.Matrix[i][j]
			}
			matrix = matrix.Values(method, area, tech, count, computed)
		}
	}
	if err := add(matrix); err != nil {
		return fmt.Errorf("build matrix insert: %w", err)
	}

	if err := add(r.sb.Delete("temporal_trends").Where(sq.Eq{"method": method})); err != nil {
		return fmt.Errorf("build trends delete: %w", err)
	}
	if len(report.Trends) > 0 {
		trends := r.sb.Insert("temporal_trends").Columns("method", "period", "ce_area", "article_count", "computed_at")
		for _, row := range report.Trends {
			trends = trends.Values(method, row.Period, row.Area, row.Count, computed)
		}
		if err := add(trends); err != nil {
			return fmt.Errorf("build trends insert: %w", err)
		}
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.sql, s.args...); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// list encodes a string list for the dialect: TEXT[] on Postgres, JSON text on SQLite.
func (r *Repository) list(v []string) any {
	if v == nil {
		v = []string{}
	}
	if r.dialect == dialectPostgres {
		return pq.Array(v)
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// stringList scans either a Postgres array literal or a JSON array.
type stringList []string

func (l *stringList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = []string{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into string list", src)
	}

	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		*l = []string{}
	case strings.HasPrefix(raw, "{"):
		var arr pq.StringArray
		if err := arr.Scan(raw); err != nil {
			return err
		}
		*l = append([]string{}, arr...)
	default:
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
		if out == nil {
			out = []string{}
		}
		*l = out
	}
	return nil
}
