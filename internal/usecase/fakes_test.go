package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"CivilAIScanner/internal/domain"
)

type fakeSource struct {
	items    []domain.Sourced
	failures []domain.SourceFailure

	mu      sync.Mutex
	stopped bool
	emitted int
}

func (f *fakeSource) Collect(ctx context.Context, _ domain.Window, emit func(domain.Sourced) bool) []domain.SourceFailure {
	for _, item := range f.items {
		if ctx.Err() != nil {
			break
		}
		if !emit(item) {
			f.mu.Lock()
			f.stopped = true
			f.mu.Unlock()
			break
		}
		f.mu.Lock()
		f.emitted++
		f.mu.Unlock()
	}
	return f.failures
}

type fakeExtractor struct {
	pages map[string]domain.Page

	mu    sync.Mutex
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (domain.Page, bool) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	page, ok := f.pages[url]
	return page, ok
}

func (f *fakeExtractor) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

type classKey struct {
	id     int64
	method domain.ClassificationMethod
}

// memRepo is an in-memory store satisfying every repository port.
type memRepo struct {
	mu              sync.Mutex
	articles        []domain.Article
	classifications map[classKey][]domain.Classification
	reports         []domain.Report

	seedURLs, seedTitles []string
	loadErr              error
	upsertErr            map[string]error
	conflicts            map[string]bool
	saveErr              map[int64]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		classifications: map[classKey][]domain.Classification{},
		upsertErr:       map[string]error{},
		conflicts:       map[string]bool{},
		saveErr:         map[int64]error{},
	}
}

func (m *memRepo) LoadSeenKeys(context.Context) ([]string, []string, error) {
	return m.seedURLs, m.seedTitles, m.loadErr
}

func (m *memRepo) Upsert(_ context.Context, a domain.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[a.URL]; err != nil {
		return false, err
	}
	if m.conflicts[a.URL] {
		return false, nil
	}
	a.ID = int64(len(m.articles) + 1)
	m.articles = append(m.articles, a)
	return true, nil
}

func (m *memRepo) ArticlesForClassification(_ context.Context, method domain.ClassificationMethod, limit int, reclassify bool) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if !reclassify && len(m.classifications[classKey{a.ID, method}]) > 0 {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) SaveClassification(_ context.Context, c domain.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[c.ArticleID]; err != nil {
		return err
	}
	m.classifications[classKey{c.ArticleID, c.Method}] = []domain.Classification{c}
	return nil
}

func (m *memRepo) ListClassified(_ context.Context, method domain.ClassificationMethod) ([]domain.ClassifiedArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ClassifiedArticle
	for _, a := range m.articles {
		for _, c := range m.classifications[classKey{a.ID, method}] {
			out = append(out, domain.ClassifiedArticle{
				ArticleID: a.ID, PublishedAt: a.PublishedAt, RetrievedAt: a.RetrievedAt,
				CEAreas: c.CEAreas, AITechnologies: c.AITechnologies,
			})
		}
	}
	return out, nil
}

func (m *memRepo) ArticlesWithoutAbstract(_ context.Context, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if a.Abstract == "" {
			out = append(out, a)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) SaveAbstract(_ context.Context, id int64, abstract string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.articles {
		if m.articles[i].ID == id {
			m.articles[i].Abstract = abstract
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memRepo) SaveReport(_ context.Context, r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, digest)
	return nil
}

type fakeExporter struct {
	path     string
	articles []domain.Article
	report   *domain.Report
}

func (f *fakeExporter) ExportArticles(path string, articles []domain.Article) error {
	f.path, f.articles = path, articles
	return nil
}

func (f *fakeExporter) ExportReport(path string, report domain.Report) error {
	f.path, f.report = path, &report
	return nil
}
