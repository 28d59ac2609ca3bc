// Package dedup decides whether a candidate article has already been seen,
// either earlier in the run or in a previous run recorded by the store.
package dedup

import (
	"strings"
	"sync"
)

// weakURLLength is the length under which a normalized URL does not
// distinguish two articles on its own; a title collision then decides.
const weakURLLength = 10

var titleQuotes = strings.NewReplacer(
	`"`, "",
	`'`, "",
	"`", "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
)

// NormalizeURL drops fragment and query, trailing slashes and case.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}

// NormalizeTitle lowercases, strips quote characters and collapses whitespace.
func NormalizeTitle(raw string) string {
	t := titleQuotes.Replace(strings.ToLower(raw))
	return strings.Join(strings.Fields(t), " ")
}

// Keys is the identity of one article.
type Keys struct {
	URL   string
	Title string
}

// KeysOf normalizes a raw url/title pair.
func KeysOf(rawURL, rawTitle string) Keys {
	return Keys{URL: NormalizeURL(rawURL), Title: NormalizeTitle(rawTitle)}
}

// Deduplicator owns the seen-set of normalized keys. Safe for concurrent use.
type Deduplicator struct {
	mu     sync.Mutex
	urls   map[string]struct{}
	titles map[string]struct{}
}

// New builds an empty deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		urls:   map[string]struct{}{},
		titles: map[string]struct{}{},
	}
}

// Seed marks keys already present in storage.
func (d *Deduplicator) Seed(urls, titles []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range urls {
		if n := NormalizeURL(u); n != "" {
			d.urls[n] = struct{}{}
		}
	}
	for _, t := range titles {
		if n := NormalizeTitle(t); n != "" {
			d.titles[n] = struct{}{}
		}
	}
}

// Seen reports whether the article would be rejected as a duplicate, without recording it.
func (d *Deduplicator) Seen(rawURL, rawTitle string) bool {
	keys := KeysOf(rawURL, rawTitle)

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duplicateLocked(keys)
}

// Admit records the article and returns true, or returns false when it is a duplicate.
// Check and insert happen under one lock, so concurrent callers never both admit the same key.
func (d *Deduplicator) Admit(rawURL, rawTitle string) bool {
	keys := KeysOf(rawURL, rawTitle)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.duplicateLocked(keys) {
		return false
	}
	if keys.URL != "" {
		d.urls[keys.URL] = struct{}{}
	}
	if keys.Title != "" {
		d.titles[keys.Title] = struct{}{}
	}
	return true
}

// Len returns the number of distinct URLs recorded.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *Deduplicator) duplicateLocked(keys Keys) bool {
	if keys.URL != "" {
		if _, ok := d.urls[keys.URL]; ok {
			return true
		}
	}
	if keys.Title == "" {
		return false
	}
	if _, ok := d.titles[keys.Title]; !ok {
		return false
	}
	return len(keys.URL) < weakURLLength
}
