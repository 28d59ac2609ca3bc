package classifier

import (
	"context"
	"time"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/keywords"
	"CivilAIScanner/internal/ports"
)

type compiledCategory struct {
	name    string
	matcher *keywords.Matcher
}

// KeywordClassifier assigns a category when any of its keywords occurs as a whole word.
type KeywordClassifier struct {
	ce  []compiledCategory
	ai  []compiledCategory
	now func() time.Time
}

var _ ports.Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier compiles the built-in taxonomies.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		ce:  compile(CECategories),
		ai:  compile(AICategories),
		now: time.Now,
	}
}

func compile(categories []Category) []compiledCategory {
	out := make([]compiledCategory, 0, len(categories))
	for _, c := range categories {
		normalized := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			normalized = append(normalized, normalizeForMatching(kw))
		}
		out = append(out, compiledCategory{name: c.Name, matcher: keywords.NewMatcher(normalized)})
	}
	return out
}

// Method implements ports.Classifier.
func (k *KeywordClassifier) Method() domain.ClassificationMethod {
	return domain.MethodKeyword
}

// Classify matches title, summary and body against both taxonomies.
func (k *KeywordClassifier) Classify(_ context.Context, article domain.Article) domain.Classification {
	text := normalizeForMatching(article.Text())

	ce := match(k.ce, text)
	ai := match(k.ai, text)

	return domain.Classification{
		ArticleID:      article.ID,
		Method:         domain.MethodKeyword,
		CEAreas:        ce,
		AITechnologies: ai,
		Confidence:     keywordConfidence(len(ce), len(ai)),
		ClassifiedAt:   k.now().UTC(),
	}
}

func match(categories []compiledCategory, text string) []string {
	out := []string{}
	if text == "" {
		return out
	}
	for _, c := range categories {
		if len(c.matcher.Find(text)) > 0 {
			out = append(out, c.name)
		}
	}
	return out
}

// keywordConfidence is 1 with evidence on both axes, 0.5 with one, 0 with none.
func keywordConfidence(ce, ai int) float64 {
	switch {
	case ce > 0 && ai > 0:
		return 1
	case ce > 0 || ai > 0:
		return 0.5
	default:
		return 0
	}
}
