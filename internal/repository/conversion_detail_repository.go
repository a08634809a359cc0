package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/konversi-api/internal/models"
)

const detailColumns = `
	SELECT id, request_id, origin_course_name, origin_sks, origin_grade_letter,
	       origin_grade_number, target_course_id, target_course_name, target_sks,
	       converted_grade_letter, converted_grade_number, is_convertible, notes,
	       created_at, updated_at
	FROM conversion_details`

// ConversionDetailRepository persists per-course conversion lines.
type ConversionDetailRepository struct {
	db *sqlx.DB
}

// NewConversionDetailRepository constructs the repository.
func NewConversionDetailRepository(db *sqlx.DB) *ConversionDetailRepository {
	return &ConversionDetailRepository{db: db}
}

// BulkCreate inserts the extracted course lines for a request.
func (r *ConversionDetailRepository) BulkCreate(ctx context.Context, details []models.ConversionDetail) error {
	query := `
		INSERT INTO conversion_details (
			id, request_id, origin_course_name, origin_sks, origin_grade_letter,
			origin_grade_number, target_course_id, target_course_name, target_sks,
			converted_grade_letter, converted_grade_number, is_convertible, notes,
			created_at, updated_at
		) VALUES (
			:id, :request_id, :origin_course_name, :origin_sks, :origin_grade_letter,
			:origin_grade_number, :target_course_id, :target_course_name, :target_sks,
			:converted_grade_letter, :converted_grade_number, :is_convertible, :notes,
			:created_at, :updated_at
		)`
	for i := range details {
		if _, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, &details[i]); err != nil {
			return fmt.Errorf("insert conversion detail: %w", err)
		}
	}
	return nil
}

// DeleteByRequest removes all lines for a request. Used when a draft is
// re-extracted from a fresh transcript upload.
func (r *ConversionDetailRepository) DeleteByRequest(ctx context.Context, requestID string) error {
	query := `DELETE FROM conversion_details WHERE request_id = $1`
	if _, err := ext(ctx, r.db).ExecContext(ctx, query, requestID); err != nil {
		return fmt.Errorf("delete conversion details: %w", err)
	}
	return nil
}

// ListByRequest returns all lines for a request in a stable order.
func (r *ConversionDetailRepository) ListByRequest(ctx context.Context, requestID string) ([]models.ConversionDetail, error) {
	details := []models.ConversionDetail{}
	query := detailColumns + ` WHERE request_id = $1 ORDER BY origin_course_name ASC`
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &details, query, requestID); err != nil {
		return nil, fmt.Errorf("list conversion details: %w", err)
	}
	return details, nil
}

// FindByID returns a single line. sql.ErrNoRows is passed through.
func (r *ConversionDetailRepository) FindByID(ctx context.Context, id string) (*models.ConversionDetail, error) {
	var detail models.ConversionDetail
	query := detailColumns + ` WHERE id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update writes the mapping and converted grade fields of a line.
func (r *ConversionDetailRepository) Update(ctx context.Context, detail *models.ConversionDetail) error {
	query := `
		UPDATE conversion_details
		SET target_course_id = :target_course_id,
		    target_course_name = :target_course_name,
		    target_sks = :target_sks,
		    converted_grade_letter = :converted_grade_letter,
		    converted_grade_number = :converted_grade_number,
		    is_convertible = :is_convertible,
		    notes = :notes,
		    updated_at = :updated_at
		WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, detail); err != nil {
		return fmt.Errorf("update conversion detail: %w", err)
	}
	return nil
}
