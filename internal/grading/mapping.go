package grading

import (
	"time"

	"github.com/noah-isme/konversi-api/internal/models"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

// NoteInsufficientCredits is the standard reason recorded on a detail when
// the origin course carries fewer credit hours than the target requires.
const NoteInsufficientCredits = "SKS asal kurang dari SKS tujuan"

// Convertible applies the one-directional credit-sufficiency rule: a course
// cannot transfer more credit than it originally carried. Equal credits pass.
func Convertible(originSKS, targetSKS int) bool {
	return originSKS >= targetSKS
}

// ApplyMapping maps a detail onto a target curriculum course, re-running the
// convertibility rule and overwriting any prior mapping result. On a
// convertible mapping the origin grade is carried over unchanged; otherwise
// the converted grade fields are cleared and the standard reason recorded.
func ApplyMapping(detail *models.ConversionDetail, course models.CurriculumCourse) {
	now := time.Now().UTC()
	detail.TargetCourseID = &course.ID
	detail.TargetCourseName = &course.CourseName
	targetSKS := course.SKS
	detail.TargetSKS = &targetSKS
	detail.UpdatedAt = &now

	if Convertible(detail.OriginSKS, course.SKS) {
		letter := detail.OriginGradeLetter
		number := detail.OriginGradeNumber
		detail.ConvertedGradeLetter = &letter
		detail.ConvertedGradeNumber = &number
		detail.IsConvertible = true
		detail.Notes = nil
		return
	}

	detail.ConvertedGradeLetter = nil
	detail.ConvertedGradeNumber = nil
	detail.IsConvertible = false
	note := NoteInsufficientCredits
	detail.Notes = &note
}

// OverrideConvertedGrade replaces the converted grade on a mapped,
// convertible detail. The letter must come from the fixed grade scale.
func OverrideConvertedGrade(detail *models.ConversionDetail, letter string) error {
	if !detail.Mapped() || !detail.IsConvertible {
		return appErrors.Clone(appErrors.ErrValidation, "detail is not convertible, grade cannot be overridden")
	}
	if !IsKnownLetter(letter) {
		return appErrors.Clone(appErrors.ErrValidation, "converted grade must come from the fixed grade scale")
	}
	now := time.Now().UTC()
	number := NumericFor(letter)
	detail.ConvertedGradeLetter = &letter
	detail.ConvertedGradeNumber = &number
	detail.UpdatedAt = &now
	return nil
}

// TotalConvertedSKS sums target credit hours over convertible, mapped details.
func TotalConvertedSKS(details []models.ConversionDetail) int {
	total := 0
	for _, detail := range details {
		if detail.IsConvertible && detail.Mapped() && detail.TargetSKS != nil {
			total += *detail.TargetSKS
		}
	}
	return total
}
