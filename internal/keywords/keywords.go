// Package keywords holds the civil-engineering and AI keyword sets and the
// intersection filter that admits an article only when both sets match.
package keywords

// DefaultCE is the civil-engineering keyword set used by the search collectors.
var DefaultCE = []string{
	"construction",
	"structural",
	"geotechnical",
	"transportation",
	"infrastructure",
	"concrete",
	"bridge",
	"tunnel",
}

// DefaultAI is the AI keyword set used by the search collectors.
var DefaultAI = []string{
	"artificial intelligence",
	"machine learning",
	"computer vision",
	"generative AI",
	"neural networks",
	"robotics",
	"automation",
}

// Sets is the pair of keyword lists loaded at process start; immutable for the run.
type Sets struct {
	AI []string
	CE []string
}

// Defaults returns copies of the built-in keyword sets.
func Defaults() Sets {
	return Sets{
		AI: append([]string(nil), DefaultAI...),
		CE: append([]string(nil), DefaultCE...),
	}
}
