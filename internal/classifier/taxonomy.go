// Package classifier assigns articles to the civil-engineering and AI taxonomies,
// either by keyword rules or by asking a language model.
package classifier

import (
	"strings"
	"unicode"

	"CivilAIScanner/internal/domain"
	"CivilAIScanner/internal/keywords"
)

// Category is a taxonomy label with the keywords that evidence it.
type Category struct {
	Name     string
	Keywords []string
}

// CECategories follows the order of domain.CEAreas.
var CECategories = []Category{
	{Name: domain.AreaStructural, Keywords: []string{
		"structural", "structure", "building", "construction", "design", "analysis",
		"health monitoring", "materials", "steel", "concrete", "beam", "column",
		"foundation", "load", "stress", "strain", "reinforcement", "bridge",
		"skyscraper", "building code", "structural engineering",
	}},
	{Name: domain.AreaGeotechnical, Keywords: []string{
		"geotechnical", "soil", "foundation", "tunnel", "excavation", "slope",
		"retaining wall", "earthquake", "seismic", "ground", "subsoil", "rock",
		"geology", "settlement", "bearing capacity", "pile", "deep foundation",
		"underground", "mining", "landslide",
	}},
	{Name: domain.AreaTransportation, Keywords: []string{
		"transportation", "traffic", "road", "highway", "autonomous vehicle",
		"logistics", "infrastructure", "urban planning", "smart city", "mobility",
		"public transport", "railway", "airport", "port", "transit", "commute",
		"traffic management", "parking", "pedestrian", "cycling",
	}},
	{Name: domain.AreaConstruction, Keywords: []string{
		"construction management", "scheduling", "safety", "cost estimation",
		"site monitoring", "project management", "bim", "building information modeling",
		"procurement", "quality control", "risk assessment", "contractor",
		"construction site", "workflow", "productivity",
	}},
	{Name: domain.AreaEnvironmental, Keywords: []string{
		"environmental", "sustainability", "waste management", "green building",
		"recycling", "water treatment", "air quality", "climate", "carbon",
		"renewable energy", "solar", "wind", "energy efficiency", "leed",
		"sustainable design", "pollution", "environmental impact",
	}},
}

// AICategories follows the order of domain.AITechnologies.
var AICategories = []Category{
	{Name: domain.TechComputerVision, Keywords: []string{
		"computer vision", "image recognition", "drone inspection", "safety monitoring",
		"visual inspection", "image processing", "object detection", "camera",
		"surveillance", "monitoring system", "visual", "photogrammetry", "lidar",
	}},
	{Name: domain.TechPredictive, Keywords: []string{
		"predictive analytics", "risk assessment", "maintenance prediction",
		"forecasting", "prediction", "predictive model", "early warning",
		"failure prediction", "condition monitoring", "prognostics",
	}},
	{Name: domain.TechGenerative, Keywords: []string{
		"generative design", "optimization", "parametric modeling", "algorithmic design",
		"design optimization", "topology optimization", "automated design", "cad",
		"3d modeling", "parametric", "optimization algorithm",
	}},
	{Name: domain.TechRobotics, Keywords: []string{
		"robotics", "automation", "robot", "automated", "brick laying robot",
		"autonomous machinery", "drone", "uav", "robotic", "automated construction",
		"3d printing", "additive manufacturing", "automated system",
	}},
	{Name: domain.TechML, Keywords: []string{
		"machine learning", "neural network", "deep learning", "ai model",
		"artificial intelligence", "ml", "algorithm", "training data", "model",
		"supervised learning", "unsupervised learning", "reinforcement learning",
	}},
}

// normalizeForMatching lowercases and turns every non-alphanumeric rune into a space.
func normalizeForMatching(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return keywords.NormalizeText(mapped)
}

// canonicalLabel maps a label to its taxonomy spelling, case-insensitively.
func canonicalLabel(label string, taxonomy []string) (string, bool) {
	label = strings.TrimSpace(label)
	for _, name := range taxonomy {
		if strings.EqualFold(name, label) {
			return name, true
		}
	}
	return "", false
}

// filterLabels keeps known labels once each, in taxonomy order.
func filterLabels(labels []string, taxonomy []string) []string {
	present := map[string]bool{}
	for _, l := range labels {
		if name, ok := canonicalLabel(l, taxonomy); ok {
			present[name] = true
		}
	}
	out := make([]string, 0, len(present))
	for _, name := range taxonomy {
		if present[name] {
			out = append(out, name)
		}
	}
	return out
}
