package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/konversi-api/internal/models"
)

// CurriculumRepository reads the study program and curriculum course catalog.
// The catalog is reference data maintained outside this service.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs the repository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// ListPrograms returns all study programs.
func (r *CurriculumRepository) ListPrograms(ctx context.Context) ([]models.StudyProgram, error) {
	programs := []models.StudyProgram{}
	query := `SELECT id, code, name, faculty, created_at FROM study_programs ORDER BY name ASC`
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &programs, query); err != nil {
		return nil, fmt.Errorf("list study programs: %w", err)
	}
	return programs, nil
}

// FindProgram returns one study program. sql.ErrNoRows is passed through.
func (r *CurriculumRepository) FindProgram(ctx context.Context, id string) (*models.StudyProgram, error) {
	var program models.StudyProgram
	query := `SELECT id, code, name, faculty, created_at FROM study_programs WHERE id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// ListActiveCourses returns the active curriculum of a program ordered the
// way the kaprodi mapping screen presents it.
func (r *CurriculumRepository) ListActiveCourses(ctx context.Context, programID string) ([]models.CurriculumCourse, error) {
	courses := []models.CurriculumCourse{}
	query := `
		SELECT id, study_program_id, course_code, course_name, sks, semester, is_active, created_at
		FROM curriculum_courses
		WHERE study_program_id = $1 AND is_active = true
		ORDER BY semester ASC, course_name ASC`
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &courses, query, programID); err != nil {
		return nil, fmt.Errorf("list curriculum courses: %w", err)
	}
	return courses, nil
}

// FindCourse returns one curriculum course. sql.ErrNoRows is passed through.
func (r *CurriculumRepository) FindCourse(ctx context.Context, id string) (*models.CurriculumCourse, error) {
	var course models.CurriculumCourse
	query := `
		SELECT id, study_program_id, course_code, course_name, sks, semester, is_active, created_at
		FROM curriculum_courses
		WHERE id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}
