package models

import "time"

// Stage is a named position in the conversion approval workflow.
type Stage string

const (
	StagePendingStudent             Stage = "pending_student"
	StagePendingKaprodi             Stage = "pending_kaprodi"
	StagePendingStudentConfirmation Stage = "pending_student_confirmation"
	StagePendingDean                Stage = "pending_dean"
	StagePendingBAA                 Stage = "pending_baa"
	StageApproved                   Stage = "approved"
	StageRejected                   Stage = "rejected"
)

// Terminal reports whether no transition may leave the stage.
func (s Stage) Terminal() bool {
	return s == StageApproved || s == StageRejected
}

// FinalStatus is the coarse lifecycle summary, distinct from stage.
type FinalStatus string

const (
	FinalStatusDraft     FinalStatus = "draft"
	FinalStatusSubmitted FinalStatus = "submitted"
	FinalStatusApproved  FinalStatus = "approved"
	FinalStatusRejected  FinalStatus = "rejected"
)

// ConversionRequest is one transfer application moving through the workflow.
// Stage fields are written exclusively through workflow transitions; the
// record is never physically deleted.
type ConversionRequest struct {
	ID                string      `db:"id" json:"id"`
	RequestNumber     string      `db:"request_number" json:"request_number"`
	StudentID         string      `db:"student_id" json:"student_id"`
	StudentName       string      `db:"student_name" json:"student_name"`
	OriginUniversity  string      `db:"origin_university" json:"origin_university"`
	OriginProgram     string      `db:"origin_program" json:"origin_program"`
	TargetProgramID   string      `db:"target_program_id" json:"target_program_id"`
	TotalSKS          int         `db:"total_sks" json:"total_sks"`
	TotalConvertedSKS int         `db:"total_converted_sks" json:"total_converted_sks"`
	IPK               float64     `db:"ipk" json:"ipk"`
	CurrentStage      Stage       `db:"current_stage" json:"current_stage"`
	FinalStatus       FinalStatus `db:"final_status" json:"final_status"`
	TranscriptPath    *string     `db:"transcript_path" json:"transcript_path,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
	SubmittedAt       *time.Time  `db:"submitted_at" json:"submitted_at,omitempty"`
}

// ConversionDetail is one origin-course-to-target-course mapping line.
// Converted grade fields stay unset until a target course is mapped.
type ConversionDetail struct {
	ID                   string     `db:"id" json:"id"`
	RequestID            string     `db:"request_id" json:"request_id"`
	OriginCourseName     string     `db:"origin_course_name" json:"origin_course_name"`
	OriginSKS            int        `db:"origin_sks" json:"origin_sks"`
	OriginGradeLetter    string     `db:"origin_grade_letter" json:"origin_grade_letter"`
	OriginGradeNumber    float64    `db:"origin_grade_number" json:"origin_grade_number"`
	TargetCourseID       *string    `db:"target_course_id" json:"target_course_id,omitempty"`
	TargetCourseName     *string    `db:"target_course_name" json:"target_course_name,omitempty"`
	TargetSKS            *int       `db:"target_sks" json:"target_sks,omitempty"`
	ConvertedGradeLetter *string    `db:"converted_grade_letter" json:"converted_grade_letter,omitempty"`
	ConvertedGradeNumber *float64   `db:"converted_grade_number" json:"converted_grade_number,omitempty"`
	IsConvertible        bool       `db:"is_convertible" json:"is_convertible"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Mapped reports whether a target curriculum course has been assigned.
func (d *ConversionDetail) Mapped() bool {
	return d.TargetCourseID != nil && *d.TargetCourseID != ""
}

// RequestFilter constrains conversion request listings.
type RequestFilter struct {
	StudentID       string
	TargetProgramID string
	Stage           Stage
	FinalizedOnly   bool
}
