package textutil

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters below which detection is not attempted.
const minLetters = 20

var candidateLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Arabic,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidateLanguages...).
			Build()
	})
	return detector
}

// DetectISO6391 returns the lowercase two-letter code of the text language,
// or "" when the text is too short or ambiguous.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return ""
	}

	language, ok := getDetector().DetectLanguageOf(sample)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// LanguageGate admits text written in the target language.
// An empty target disables the gate.
type LanguageGate struct {
	target string
}

// NewLanguageGate builds a gate for an ISO 639-1 code such as "en".
func NewLanguageGate(target string) LanguageGate {
	return LanguageGate{target: strings.ToLower(strings.TrimSpace(target))}
}

// Admit returns the detected code and whether the text passes.
// Undetectable text passes so short headlines are not lost.
func (g LanguageGate) Admit(text string) (string, bool) {
	if g.target == "" {
		return "", true
	}
	code := DetectISO6391(text)
	if code == "" {
		return "", true
	}
	return code, code == g.target
}
