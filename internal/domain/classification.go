package domain

import "time"

// ClassificationMethod names the decision procedure behind a classification.
type ClassificationMethod string

const (
	MethodKeyword ClassificationMethod = "keyword"
	MethodLLM     ClassificationMethod = "llm"
)

// Valid reports whether the method is one of the known procedures.
func (m ClassificationMethod) Valid() bool {
	return m == MethodKeyword || m == MethodLLM
}

// Civil-engineering areas, in report order.
const (
	AreaStructural     = "Structural"
	AreaGeotechnical   = "Geotechnical"
	AreaTransportation = "Transportation"
	AreaConstruction   = "Construction Management"
	AreaEnvironmental  = "Environmental Engineering"
)

// AI technologies, in report order.
const (
	TechComputerVision = "Computer Vision"
	TechPredictive     = "Predictive Analytics"
	TechGenerative     = "Generative Design"
	TechRobotics       = "Robotics/Automation"
	TechML             = "Machine Learning"
)

// CEAreas is the fixed civil-engineering taxonomy.
var CEAreas = []string{AreaStructural, AreaGeotechnical, AreaTransportation, AreaConstruction, AreaEnvironmental}

// AITechnologies is the fixed AI taxonomy.
var AITechnologies = []string{TechComputerVision, TechPredictive, TechGenerative, TechRobotics, TechML}

// Classification is the current category assignment of an article for one method.
type Classification struct {
	ArticleID      int64
	Method         ClassificationMethod
	CEAreas        []string
	AITechnologies []string
	Confidence     float64
	Model          string
	Reasoning      string
	RawResponse    string
	ClassifiedAt   time.Time
}

// Empty reports whether no category was assigned in either taxonomy.
func (c Classification) Empty() bool {
	return len(c.CEAreas) == 0 && len(c.AITechnologies) == 0
}

// ClassifiedArticle pairs a classification with the article fields reporting needs.
type ClassifiedArticle struct {
	ArticleID      int64
	PublishedAt    *time.Time
	RetrievedAt    time.Time
	CEAreas        []string
	AITechnologies []string
}
