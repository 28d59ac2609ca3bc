package keywords

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Matcher finds boundary-delimited occurrences of a fixed keyword list.
type Matcher struct {
	keywords []string
	needles  []string

	// ahocorasick.Matcher mutates internal counters while matching.
	mu sync.Mutex
	ac *ahocorasick.Matcher
}

// NewMatcher compiles the keyword list. Blank keywords are ignored.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	seen := map[string]struct{}{}
	for _, kw := range keywords {
		needle := NormalizeText(kw)
		if needle == "" {
			continue
		}
		if _, dup := seen[needle]; dup {
			continue
		}
		seen[needle] = struct{}{}
		m.keywords = append(m.keywords, strings.TrimSpace(kw))
		m.needles = append(m.needles, needle)
	}
	if len(m.needles) > 0 {
		m.ac = ahocorasick.NewStringMatcher(m.needles)
	}
	return m
}

// Find returns the keywords present in text, each once, ordered by first occurrence.
func (m *Matcher) Find(text string) []string {
	if m.ac == nil {
		return nil
	}
	norm := NormalizeText(text)
	if norm == "" {
		return nil
	}

	m.mu.Lock()
	hits := m.ac.Match([]byte(norm))
	m.mu.Unlock()

	type hit struct {
		pos   int
		index int
	}
	found := make([]hit, 0, len(hits))
	reported := map[int]struct{}{}
	for _, idx := range hits {
		if idx < 0 || idx >= len(m.needles) {
			continue
		}
		if _, ok := reported[idx]; ok {
			continue
		}
		reported[idx] = struct{}{}
		if pos := boundaryIndex(norm, m.needles[idx]); pos >= 0 {
			found = append(found, hit{pos: pos, index: idx})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].pos != found[j].pos {
			return found[i].pos < found[j].pos
		}
		return found[i].index < found[j].index
	})

	out := make([]string, 0, len(found))
	for _, h := range found {
		out = append(out, m.keywords[h.index])
	}
	return out
}

// Match is the outcome of the intersection filter.
type Match struct {
	Admitted bool
	AI       []string
	CE       []string
}

// Filter applies the AI ∧ CE rule with precompiled matchers.
type Filter struct {
	ai *Matcher
	ce *Matcher
}

// NewFilter compiles both keyword sets.
func NewFilter(sets Sets) *Filter {
	return &Filter{ai: NewMatcher(sets.AI), ce: NewMatcher(sets.CE)}
}

// Admits checks text against both sets. A single occurrence of one keyword from each set is enough.
func (f *Filter) Admits(text string) Match {
	ai := f.ai.Find(text)
	ce := f.ce.Find(text)
	return Match{
		Admitted: len(ai) >= 1 && len(ce) >= 1,
		AI:       ai,
		CE:       ce,
	}
}

// Admits is the one-shot form of Filter.Admits for ad-hoc keyword lists.
func Admits(text string, ai, ce []string) (bool, []string, []string) {
	m := NewFilter(Sets{AI: ai, CE: ce}).Admits(text)
	return m.Admitted, m.AI, m.CE
}

// NormalizeText lowercases and collapses whitespace runs to single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// boundaryIndex returns the first position of needle in text that is not glued
// to a neighbouring letter or digit, or -1.
func boundaryIndex(text, needle string) int {
	first, _ := utf8.DecodeRuneInString(needle)
	last, _ := utf8.DecodeLastRuneInString(needle)
	checkStart := isWordRune(first)
	checkEnd := isWordRune(last)

	offset := 0
	for offset <= len(text)-len(needle) {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			return -1
		}
		pos := offset + i
		end := pos + len(needle)

		ok := true
		if checkStart && pos > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:pos])
			ok = !isWordRune(prev)
		}
		if ok && checkEnd && end < len(text) {
			next, _ := utf8.DecodeRuneInString(text[end:])
			ok = !isWordRune(next)
		}
		if ok {
			return pos
		}

		_, size := utf8.DecodeRuneInString(text[pos:])
		offset = pos + size
	}
	return -1
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
