package domain

import "time"

// Candidate is a raw record produced by a source adapter before any filtering.
type Candidate struct {
	Title        string
	URL          string
	Summary      string
	Body         string
	PublishedRaw string
	PublishedAt  *time.Time
	Source       string
	// NeedsBody marks candidates that carry no usable title/summary (sitemap, bare search links).
	NeedsBody bool
}

// Article is an admitted candidate, ready for persistence.
type Article struct {
	ID              int64
	URL             string
	Title           string
	PublishedAt     *time.Time
	Source          string
	Summary         string
	BodyText        string
	Abstract        string
	Language        string
	AIKeywordsFound []string
	CEKeywordsFound []string
	RetrievedAt     time.Time
}

// HasBody reports whether the full text was extracted.
func (a Article) HasBody() bool {
	return a.BodyText != ""
}

// Text joins every textual field currently known for the article.
func (a Article) Text() string {
	text := a.Title
	for _, part := range []string{a.Summary, a.BodyText} {
		if part != "" {
			text += " " + part
		}
	}
	return text
}
