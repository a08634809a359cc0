package models

import "time"

// ApprovalStage names the workflow step a decision was made at.
type ApprovalStage string

const (
	ApprovalStageKaprodi             ApprovalStage = "kaprodi"
	ApprovalStageStudentConfirmation ApprovalStage = "student_confirmation"
	ApprovalStageDean                ApprovalStage = "dean"
	ApprovalStageBAA                 ApprovalStage = "baa"
)

// ApprovalAction is the decision recorded in the ledger.
type ApprovalAction string

const (
	ApprovalActionApproved ApprovalAction = "approved"
	ApprovalActionRejected ApprovalAction = "rejected"
	ApprovalActionEdited   ApprovalAction = "edited"
)

// WorkflowApproval is one immutable ledger entry. Entries are appended in
// the same unit of work as the stage transition they record and are never
// updated or deleted afterwards.
type WorkflowApproval struct {
	ID         string         `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	Stage      ApprovalStage  `db:"stage" json:"stage"`
	ApproverID string         `db:"approver_id" json:"approver_id"`
	Action     ApprovalAction `db:"action" json:"action"`
	Notes      *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
