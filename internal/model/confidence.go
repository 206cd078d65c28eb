package model

import "time"

// FactorType identifies one weighted input to the confidence score.
type FactorType string

const (
	FactorLinguisticQuality    FactorType = "linguistic_quality"
	FactorMedicalAccuracy      FactorType = "medical_accuracy"
	FactorSemanticSimilarity   FactorType = "semantic_similarity"
	FactorTerminologyPrecision FactorType = "terminology_precision"
	FactorContext              FactorType = "context"
	FactorHistory              FactorType = "history"
	FactorValidatorAgreement   FactorType = "validator_agreement"
	FactorComplexity           FactorType = "complexity"
	FactorCriticalContent      FactorType = "critical_content"
	FactorUncertainty          FactorType = "uncertainty"
)

// Factor is one independently computed contributor to the overall
// confidence score. A negative weight makes the factor a penalty.
type Factor struct {
	Type        FactorType     `json:"type"`
	Score       float64        `json:"score"`
	Weight      float64        `json:"weight"`
	Explanation string         `json:"explanation"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Category buckets an overall confidence score.
type Category string

const (
	CategoryHigh    Category = "high"
	CategoryMedium  Category = "medium"
	CategoryLow     Category = "low"
	CategoryVeryLow Category = "very_low"
)

// ConfidenceScore aggregates all confidence factors into a calibrated
// overall value plus per-dimension sub-scores and review routing flags.
type ConfidenceScore struct {
	Overall             float64   `json:"overall"`
	Linguistic          float64   `json:"linguistic"`
	Medical             float64   `json:"medical"`
	Contextual          float64   `json:"contextual"`
	Category            Category  `json:"category"`
	RequiresHumanReview bool      `json:"requires_human_review"`
	HighRiskFactors     []string  `json:"high_risk_factors,omitempty"`
	Suggestions         []string  `json:"suggestions,omitempty"`
	Factors             []Factor  `json:"factors"`
	CalculatedAt        time.Time `json:"calculated_at"`
}
