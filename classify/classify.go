// Package classify picks a category for extracted document text by keyword matching.
package classify

import (
	"math"
	"strings"

	"compliancedesk-backend/models"
)

// DefaultThreshold is the share of a category's keywords that must appear in the text
const DefaultThreshold = 0.3

// RequiredMatches returns ceil(threshold * keywordCount), the number of keyword hits a
// category with keywordCount keywords needs.
func RequiredMatches(keywordCount int, threshold float64) int {
	return int(math.Ceil(threshold * float64(keywordCount)))
}

// Classify returns the name of the first category, in the order given, for which at least
// RequiredMatches of its keywords occur in text. Matching is a case-insensitive substring
// test, so "tax" also matches inside "syntax".
func Classify(text string, categories []models.Category, threshold float64) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)

	for _, category := range categories {
		if len(category.Keywords) == 0 {
			continue
		}
		required := RequiredMatches(len(category.Keywords), threshold)
		if required < 1 {
			required = 1
		}

		matches := 0
		for _, keyword := range category.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(keyword)) {
				matches++
			}
		}
		if matches >= required {
			return category.Name, true
		}
	}

	return "", false
}
