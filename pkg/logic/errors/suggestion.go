package errors

import (
	"fmt"
	"strings"
)

// maxSuggestDistance is the largest edit distance still offered as a
// "did you mean" suggestion.
const maxSuggestDistance = 4

// SuggestName returns a "did you mean" hint for a misspelled name, or a
// list of valid names when none is close.
func SuggestName(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	best, bestDist := "", -1
	lower := strings.ToLower(unknown)
	for _, name := range valid {
		d := levenshtein(lower, strings.ToLower(name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}

	if bestDist <= maxSuggestDistance {
		return fmt.Sprintf("Did you mean '%s'?", best)
	}
	if len(valid) > 6 {
		return fmt.Sprintf("Valid values include: %s, ...", strings.Join(valid[:6], ", "))
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(valid, ", "))
}

// SuggestOperator lists the operators a condition type accepts.
func SuggestOperator(presence bool) string {
	if presence {
		return "Valid operators: <, <=, ==, >=, >, !=, is nil, is not nil"
	}
	return "Valid operators: <, <=, ==, >=, >, !="
}

// SuggestMissingField suggests adding a required field.
func SuggestMissingField(field, example string) string {
	if example != "" {
		return fmt.Sprintf("Add '%s: %s' to the condition", field, example)
	}
	return fmt.Sprintf("Add '%s' to the condition", field)
}

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
