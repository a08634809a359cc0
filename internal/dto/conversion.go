package dto

// CreateConversionRequest payload for opening a new draft request.
type CreateConversionRequest struct {
	StudentName      string `json:"studentName" validate:"required"`
	OriginUniversity string `json:"originUniversity" validate:"required"`
	OriginProgram    string `json:"originProgram" validate:"required"`
	TargetProgramID  string `json:"targetProgramId" validate:"required"`
}

// ExtractedCourse is one transcript line as produced by extraction or as
// corrected by the student before submission.
type ExtractedCourse struct {
	CourseName  string `json:"courseName" validate:"required"`
	SKS         int    `json:"sks" validate:"required,min=1"`
	GradeLetter string `json:"gradeLetter" validate:"required"`
}

// AttachCoursesRequest replaces the course lines of a draft.
type AttachCoursesRequest struct {
	Courses []ExtractedCourse `json:"courses" validate:"required,min=1,dive"`
}

// CourseMapping assigns one origin line to a target curriculum course.
type CourseMapping struct {
	DetailID       string `json:"detailId" validate:"required"`
	TargetCourseID string `json:"targetCourseId" validate:"required"`
}

// GradeEdit overrides the converted grade of a mapped line.
type GradeEdit struct {
	DetailID    string `json:"detailId" validate:"required"`
	GradeLetter string `json:"gradeLetter" validate:"required"`
}

// KaprodiReviewRequest carries the kaprodi decision with the mappings worked
// out during review.
type KaprodiReviewRequest struct {
	Approve  bool            `json:"approve"`
	Mappings []CourseMapping `json:"mappings" validate:"omitempty,dive"`
	Notes    string          `json:"notes" validate:"omitempty,max=1000"`
}

// DeanReviewRequest carries the dean decision with optional grade overrides.
type DeanReviewRequest struct {
	Approve    bool        `json:"approve"`
	GradeEdits []GradeEdit `json:"gradeEdits" validate:"omitempty,dive"`
	Notes      string      `json:"notes" validate:"omitempty,max=1000"`
}

// DecisionRequest carries a plain approve or reject with optional notes. Used
// by the BAA step; the student confirmation step accepts notes only.
type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"omitempty,max=1000"`
}

// ConfirmRequest carries the student's confirmation notes.
type ConfirmRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}
