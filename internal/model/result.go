package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Metrics holds the aggregate measurements computed for one validation
// run. Metrics are derived data and never persisted apart from their
// Result.
type Metrics struct {
	TotalValidations int     `json:"total_validations"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	Warnings         int     `json:"warnings"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ValidationTimeMS int64   `json:"validation_time_ms"`

	// Optional similarity sub-scores, populated when the similarity
	// scorer ran.
	SemanticSimilarity  *float64 `json:"semantic_similarity,omitempty"`
	TerminologyAccuracy *float64 `json:"terminology_accuracy,omitempty"`
	FormatPreservation  *float64 `json:"format_preservation,omitempty"`
	FluencyScore        *float64 `json:"fluency_score,omitempty"`
}

// Result is the outcome of validating one (source, translation) pair.
// It is mutated only while the pipeline executes and must be treated as
// immutable once returned.
type Result struct {
	ID             string         `json:"id"`
	SourceText     string         `json:"source_text"`
	TranslatedText string         `json:"translated_text"`
	SourceLang     string         `json:"source_lang"`
	TargetLang     string         `json:"target_lang"`
	Issues         []Issue        `json:"issues"`
	Status         Status         `json:"status"`
	Metrics        Metrics        `json:"metrics"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ErrorCount returns the number of failed-severity issues.
func (r *Result) ErrorCount() int {
	return CountBySeverity(r.Issues)[SeverityFailed]
}

// WarningCount returns the number of warning-severity issues.
func (r *Result) WarningCount() int {
	return CountBySeverity(r.Issues)[SeverityWarning]
}

// LangPair returns the "src->dst" language pair key.
func (r *Result) LangPair() string {
	return r.SourceLang + "->" + r.TargetLang
}

// ContentKey builds the cache key for a validation request. The key is a
// content hash of the language pair and both text payloads, so identical
// text reuses prior results regardless of request origin. It is only
// stable within a single process run.
func ContentKey(sourceLang, targetLang, sourceText, translatedText string) string {
	src := sha256.Sum256([]byte(sourceText))
	dst := sha256.Sum256([]byte(translatedText))
	return fmt.Sprintf("%s|%s|%s|%s",
		sourceLang, targetLang,
		hex.EncodeToString(src[:8]), hex.EncodeToString(dst[:8]))
}
