package grading

import (
	"math"

	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

// CourseGrade is one (credit-hours, numeric grade) input to the GPA sum.
type CourseGrade struct {
	SKS         int
	GradeNumber float64
}

// Summary aggregates a course list into weighted totals and a GPA.
type Summary struct {
	TotalSKS    int     `json:"total_sks"`
	TotalWeight float64 `json:"total_weight"`
	GPA         float64 `json:"gpa"`
}

// Summarize computes total credit hours, the weighted grade sum and the
// cumulative GPA rounded half-up to two decimals. A zero credit-hour total
// is reported as an error instead of silently producing a 0.0 GPA.
// The computation is pure: the same input always yields the same summary.
func Summarize(courses []CourseGrade) (Summary, error) {
	var summary Summary
	for _, course := range courses {
		summary.TotalSKS += course.SKS
		summary.TotalWeight += float64(course.SKS) * course.GradeNumber
	}
	if summary.TotalSKS == 0 {
		return Summary{}, appErrors.Clone(appErrors.ErrZeroCreditHours, "")
	}
	summary.GPA = RoundGPA(summary.TotalWeight / float64(summary.TotalSKS))
	return summary, nil
}

// RoundGPA rounds half-up to two decimal places. GPA values are always
// non-negative so the floor form is exact.
func RoundGPA(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
