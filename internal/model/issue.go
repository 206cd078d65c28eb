package model

// Span marks a character range in the source or translated text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Issue is a single finding reported by one validator. Issues are
// immutable once created.
type Issue struct {
	Validator  string         `json:"validator"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Confidence float64        `json:"confidence"`
	Span       *Span          `json:"span,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CountBySeverity tallies issues per severity.
func CountBySeverity(issues []Issue) map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, is := range issues {
		counts[is.Severity]++
	}
	return counts
}
