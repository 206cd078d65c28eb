package textsim

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into word tokens, dropping
// punctuation but keeping digits and decimal numbers intact.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != ','
	})
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[strings.Trim(tok, ".,")] = struct{}{}
	}
	delete(set, "")
	return set
}

// tokenCounts returns per-token frequencies.
func tokenCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		tok = strings.Trim(tok, ".,")
		if tok != "" {
			counts[tok]++
		}
	}
	return counts
}
