package keywords

import (
	"fmt"
	"strings"
)

// broadQueries widen coverage beyond the keyword pairs.
var broadQueries = []string{
	`("civil engineering" OR construction OR infrastructure OR structural OR geotechnical) AND ("artificial intelligence" OR "machine learning" OR "computer vision" OR AI OR "neural networks")`,
	`(construction OR "construction industry" OR "construction site" OR "construction project") AND ("artificial intelligence" OR "machine learning" OR AI OR automation OR robotics)`,
	`(infrastructure OR "public works" OR "urban planning") AND ("artificial intelligence" OR "machine learning" OR "smart systems" OR AI)`,
}

// SearchQueries pairs every CE keyword with every AI keyword, quoting phrases,
// and appends the broad OR queries.
func SearchQueries(sets Sets) []string {
	queries := make([]string, 0, len(sets.CE)*len(sets.AI)+len(broadQueries))
	for _, ce := range sets.CE {
		for _, ai := range sets.AI {
			queries = append(queries, fmt.Sprintf("%s AND %s", quote(ce), quote(ai)))
		}
	}
	return append(queries, broadQueries...)
}

func quote(term string) string {
	term = strings.TrimSpace(term)
	if strings.ContainsAny(term, " \t") {
		return `"` + term + `"`
	}
	return term
}
