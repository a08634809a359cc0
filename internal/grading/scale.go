// Package grading holds the pure academic arithmetic of the conversion
// workflow: the institutional grade scale, GPA summarisation, and the
// credit-sufficiency rule for course mappings.
package grading

import "strings"

type scaleEntry struct {
	Letter string
	Number float64
}

// gradeScale is the fixed institutional letter-to-number mapping, ordered
// from best to worst.
var gradeScale = []scaleEntry{
	{"A", 4.0},
	{"AB", 3.5},
	{"B", 3.0},
	{"BC", 2.5},
	{"C", 2.0},
	{"CD", 1.5},
	{"D", 1.0},
	{"E", 0.0},
}

// NumericFor maps a letter grade to its numeric value. The lookup is
// case-insensitive; unrecognised letters (T, K, ...) count as 0.0 by
// institutional policy rather than being an error.
func NumericFor(letter string) float64 {
	normalized := strings.ToUpper(strings.TrimSpace(letter))
	for _, entry := range gradeScale {
		if entry.Letter == normalized {
			return entry.Number
		}
	}
	return 0.0
}

// IsKnownLetter reports whether the letter is part of the fixed scale.
// Grade overrides must come from this set.
func IsKnownLetter(letter string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(letter))
	for _, entry := range gradeScale {
		if entry.Letter == normalized {
			return true
		}
	}
	return false
}

// Letters returns the scale letters in order, best first.
func Letters() []string {
	letters := make([]string, len(gradeScale))
	for i, entry := range gradeScale {
		letters[i] = entry.Letter
	}
	return letters
}
