package service

import (
	"strings"
	"unicode"

	"github.com/noah-isme/grievance-api/internal/models"
)

var priorityKeywords = map[string]int{
	"urgent":     2,
	"immediate":  2,
	"safety":     3,
	"threat":     3,
	"emergency":  3,
	"illegal":    2,
	"corruption": 3,
	"bribe":      3,
	"harassment": 3,
	"fraud":      2,
	"delay":      1,
	"complaint":  1,
}

const (
	highPriorityScore   = 5
	mediumPriorityScore = 2
)

// SuggestPriority scores the text by weighted keywords. Each keyword counts once
// however often it appears.
func SuggestPriority(text string) models.Priority {
	if strings.TrimSpace(text) == "" {
		return models.PriorityLow
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	score := 0
	for _, w := range words {
		weight, ok := priorityKeywords[w]
		if !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		score += weight
	}

	switch {
	case score >= highPriorityScore:
		return models.PriorityHigh
	case score >= mediumPriorityScore:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
