package domain

import "time"

// TrendRow counts articles in one civil-engineering area for one month.
type TrendRow struct {
	Period string
	Area   string
	Count  int
}

// Report is the aggregate view over all classifications of one method.
type Report struct {
	Method     ClassificationMethod
	Articles   int
	Matrix     [][]int
	Trends     []TrendRow
	ComputedAt time.Time
}

// Cell returns the co-occurrence count of an area and a technology.
func (r Report) Cell(area, tech string) int {
	i, j := indexOf(CEAreas, area), indexOf(AITechnologies, tech)
	if i < 0 || j < 0 || i >= len(r.Matrix) || j >= len(r.Matrix[i]) {
		return 0
	}
	return r.Matrix[i][j]
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
