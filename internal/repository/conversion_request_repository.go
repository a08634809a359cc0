package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/konversi-api/internal/models"
)

const requestColumns = `
	SELECT id, request_number, student_id, student_name, origin_university,
	       origin_program, target_program_id, total_sks, total_converted_sks,
	       ipk, current_stage, final_status, transcript_path, created_at,
	       updated_at, submitted_at
	FROM conversion_requests`

// ConversionRequestRepository persists conversion requests.
type ConversionRequestRepository struct {
	db *sqlx.DB
}

// NewConversionRequestRepository constructs the repository.
func NewConversionRequestRepository(db *sqlx.DB) *ConversionRequestRepository {
	return &ConversionRequestRepository{db: db}
}

// Create inserts a new request row.
func (r *ConversionRequestRepository) Create(ctx context.Context, req *models.ConversionRequest) error {
	query := `
		INSERT INTO conversion_requests (
			id, request_number, student_id, student_name, origin_university,
			origin_program, target_program_id, total_sks, total_converted_sks,
			ipk, current_stage, final_status, transcript_path, created_at, updated_at
		) VALUES (
			:id, :request_number, :student_id, :student_name, :origin_university,
			:origin_program, :target_program_id, :total_sks, :total_converted_sks,
			:ipk, :current_stage, :final_status, :transcript_path, :created_at, :updated_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, req); err != nil {
		return fmt.Errorf("insert conversion request: %w", err)
	}
	return nil
}

// FindByID returns a single request. sql.ErrNoRows is passed through for the
// caller to translate.
func (r *ConversionRequestRepository) FindByID(ctx context.Context, id string) (*models.ConversionRequest, error) {
	var req models.ConversionRequest
	query := requestColumns + ` WHERE id = $1`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter with a total count for paging.
// Queue listings order by submission time so older submissions surface first.
func (r *ConversionRequestRepository) List(ctx context.Context, filter models.RequestFilter, p models.Pagination) ([]models.ConversionRequest, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", idx))
		args = append(args, filter.StudentID)
		idx++
	}
	if filter.Stage != "" {
		conditions = append(conditions, fmt.Sprintf("current_stage = $%d", idx))
		args = append(args, filter.Stage)
		idx++
	}
	if filter.TargetProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("target_program_id = $%d", idx))
		args = append(args, filter.TargetProgramID)
		idx++
	}
	if filter.FinalizedOnly {
		conditions = append(conditions, "final_status IN ('approved', 'rejected')")
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM conversion_requests WHERE " + where
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conversion requests: %w", err)
	}

	order := "created_at DESC"
	if filter.Stage != "" {
		order = "submitted_at ASC NULLS LAST"
	}
	query := fmt.Sprintf(
		"%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		requestColumns, where, order, idx, idx+1,
	)
	args = append(args, p.Limit(), p.Offset())

	requests := []models.ConversionRequest{}
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conversion requests: %w", err)
	}
	return requests, total, nil
}

// UpdateStage flips the workflow stage with an optimistic guard on the stage
// the caller observed. Returns sql.ErrNoRows when another actor moved the
// request first.
func (r *ConversionRequestRepository) UpdateStage(ctx context.Context, req *models.ConversionRequest, expected models.Stage) error {
	query := `
		UPDATE conversion_requests
		SET current_stage = $1, final_status = $2, submitted_at = $3, updated_at = $4
		WHERE id = $5 AND current_stage = $6`
	res, err := ext(ctx, r.db).ExecContext(ctx, query,
		req.CurrentStage, req.FinalStatus, req.SubmittedAt, req.UpdatedAt, req.ID, expected)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stage rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateAcademicSummary stores the extraction-derived totals and the path of
// the uploaded transcript.
func (r *ConversionRequestRepository) UpdateAcademicSummary(ctx context.Context, id string, totalSKS int, ipk float64, transcriptPath *string) error {
	query := `
		UPDATE conversion_requests
		SET total_sks = $1, ipk = $2, transcript_path = $3, updated_at = $4
		WHERE id = $5`
	if _, err := ext(ctx, r.db).ExecContext(ctx, query, totalSKS, ipk, transcriptPath, time.Now(), id); err != nil {
		return fmt.Errorf("update academic summary: %w", err)
	}
	return nil
}

// UpdateConvertedTotal stores the recognized credit total for the request.
func (r *ConversionRequestRepository) UpdateConvertedTotal(ctx context.Context, id string, totalConvertedSKS int) error {
	query := `UPDATE conversion_requests SET total_converted_sks = $1, updated_at = $2 WHERE id = $3`
	if _, err := ext(ctx, r.db).ExecContext(ctx, query, totalConvertedSKS, time.Now(), id); err != nil {
		return fmt.Errorf("update converted total: %w", err)
	}
	return nil
}
