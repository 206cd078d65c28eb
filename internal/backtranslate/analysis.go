package backtranslate

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/medlingo/transqa/internal/medical"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/textsim"
)

// confidenceWeights blends the similarity metrics into the round-trip
// confidence.
var confidenceWeights = map[textsim.Metric]float64{
	textsim.MetricMedical:     0.4,
	textsim.MetricLevenshtein: 0.2,
	textsim.MetricCosine:      0.2,
	textsim.MetricJaccard:     0.1,
	textsim.MetricBLEU:        0.1,
}

const warningPenalty = 0.05

// criticalPhrasePatterns are phrase classes whose disappearance in the
// round trip is a hard failure.
var criticalPhrasePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"negation", regexp.MustCompile(`(?i)\b(not|no|never|don't|cannot|can't|won't)\b`)},
	{"safety warning", regexp.MustCompile(`(?i)\b(warning|danger|caution|emergency|fatal|urgent)\b`)},
	{"allergy", regexp.MustCompile(`(?i)allerg`)},
	{"contraindication", regexp.MustCompile(`(?i)contraindicat`)},
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// analyze compares the original source with the back-translated text
// and reports round-trip degradation.
func (c *Checker) analyze(source, back string) []model.Issue {
	var issues []model.Issue

	if is, bad := c.lengthIssue(source, back); bad {
		issues = append(issues, is)
	}
	issues = append(issues, medTermIssues(source, back)...)
	if is, bad := numericIssue(source, back); bad {
		issues = append(issues, is)
	}
	issues = append(issues, criticalPhraseIssues(source, back)...)
	return issues
}

func (c *Checker) lengthIssue(source, back string) (model.Issue, bool) {
	srcLen := len(strings.Fields(source))
	if srcLen == 0 {
		return model.Issue{}, false
	}
	ratio := float64(len(strings.Fields(back))) / float64(srcLen)
	if math.Abs(ratio-1.0) <= c.cfg.LengthTolerance {
		return model.Issue{}, false
	}
	return model.Issue{
		Validator:  "back_translation",
		Severity:   model.SeverityWarning,
		Message:    fmt.Sprintf("back-translated length ratio %.2f outside tolerance %.2f", ratio, c.cfg.LengthTolerance),
		Confidence: 0.7,
		Metadata:   map[string]any{"length_ratio": ratio},
	}, true
}

// medTermIssues flags medical entities lost in the round trip.
// Critical entities fail; others warn.
func medTermIssues(source, back string) []model.Issue {
	match := medical.Match(medical.Extract(source), medical.Extract(back))
	var issues []model.Issue
	for _, missing := range match.Missing {
		severity := model.SeverityWarning
		confidence := 0.7
		if missing.Critical() {
			severity = model.SeverityFailed
			confidence = 0.9
		}
		issues = append(issues, model.Issue{
			Validator:  "back_translation",
			Severity:   severity,
			Message:    fmt.Sprintf("%s %q lost in round trip", missing.Type, missing.Text),
			Confidence: confidence,
		})
	}
	return issues
}

func numericIssue(source, back string) (model.Issue, bool) {
	srcNums := numberSet(source)
	backNums := numberSet(back)

	var missing []string
	for n := range srcNums {
		if _, ok := backNums[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return model.Issue{}, false
	}
	return model.Issue{
		Validator:  "back_translation",
		Severity:   model.SeverityWarning,
		Message:    fmt.Sprintf("%d numeric value(s) from source absent after round trip", len(missing)),
		Confidence: 0.8,
		Metadata:   map[string]any{"missing_numbers": missing},
	}, true
}

func numberSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range numberRe.FindAllString(text, -1) {
		out[strings.ReplaceAll(m, ",", ".")] = struct{}{}
	}
	return out
}

func criticalPhraseIssues(source, back string) []model.Issue {
	var issues []model.Issue
	for _, p := range criticalPhrasePatterns {
		if p.re.MatchString(source) && !p.re.MatchString(back) {
			issues = append(issues, model.Issue{
				Validator:  "back_translation",
				Severity:   model.SeverityFailed,
				Message:    fmt.Sprintf("%s phrase present in source missing after round trip", p.name),
				Confidence: 0.9,
			})
		}
	}
	return issues
}

// confidence blends the similarity metrics, subtracts a flat penalty
// per warning, and halves the result when any hard failure is present.
func (c *Checker) confidence(res *Result) float64 {
	conf := textsim.Composite(res.Similarity, confidenceWeights)
	conf -= warningPenalty * float64(countSeverity(res.Issues, model.SeverityWarning))
	if countSeverity(res.Issues, model.SeverityFailed) > 0 {
		conf /= 2
	}
	return math.Max(0, math.Min(1, conf))
}
