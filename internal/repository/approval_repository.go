package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/konversi-api/internal/models"
)

// ApprovalRepository persists the append-only workflow ledger. Entries are
// never updated or deleted.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Append writes one ledger entry.
func (r *ApprovalRepository) Append(ctx context.Context, approval *models.WorkflowApproval) error {
	query := `
		INSERT INTO workflow_approvals (
			id, request_id, stage, approver_id, action, notes, created_at
		) VALUES (
			:id, :request_id, :stage, :approver_id, :action, :notes, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, approval); err != nil {
		return fmt.Errorf("insert workflow approval: %w", err)
	}
	return nil
}

// ListByRequest returns the ledger for a request in chronological order.
func (r *ApprovalRepository) ListByRequest(ctx context.Context, requestID string) ([]models.WorkflowApproval, error) {
	approvals := []models.WorkflowApproval{}
	query := `
		SELECT id, request_id, stage, approver_id, action, notes, created_at
		FROM workflow_approvals
		WHERE request_id = $1
		ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &approvals, query, requestID); err != nil {
		return nil, fmt.Errorf("list workflow approvals: %w", err)
	}
	return approvals, nil
}
