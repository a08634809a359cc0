package models

import "time"

// StudyProgram is a target program students convert credits into.
type StudyProgram struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Faculty   string    `db:"faculty" json:"faculty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CurriculumCourse is one course in a study program's active curriculum.
type CurriculumCourse struct {
	ID             string    `db:"id" json:"id"`
	StudyProgramID string    `db:"study_program_id" json:"study_program_id"`
	CourseCode     string    `db:"course_code" json:"course_code"`
	CourseName     string    `db:"course_name" json:"course_name"`
	SKS            int       `db:"sks" json:"sks"`
	Semester       int       `db:"semester" json:"semester"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
