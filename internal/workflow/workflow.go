// Package workflow implements the conversion request state machine. The
// Transition function is the sole writer of the stage fields on a
// ConversionRequest: every legal move, the role allowed to make it, and the
// ledger entry it produces are declared in one static table.
package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/konversi-api/internal/models"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

// Event is a workflow action requested by an actor.
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventConfirm Event = "confirm"
	EventReject  Event = "reject"
)

// Actor is the already-resolved identity acting on a request.
type Actor struct {
	ID        string
	Role      models.UserRole
	ProgramID *string
}

type edge struct {
	next          models.Stage
	role          models.UserRole
	approvalStage models.ApprovalStage
	action        models.ApprovalAction
}

// transitions is the full edge table. Stages absent from the map (approved,
// rejected) are terminal. The submit edge carries no approval stage: the
// ledger records reviewer decisions, not the initial submission.
var transitions = map[models.Stage]map[Event]edge{
	models.StagePendingStudent: {
		EventSubmit: {next: models.StagePendingKaprodi, role: models.RoleStudent},
	},
	models.StagePendingKaprodi: {
		EventApprove: {next: models.StagePendingStudentConfirmation, role: models.RoleKaprodi, approvalStage: models.ApprovalStageKaprodi, action: models.ApprovalActionApproved},
		EventReject:  {next: models.StageRejected, role: models.RoleKaprodi, approvalStage: models.ApprovalStageKaprodi, action: models.ApprovalActionRejected},
	},
	models.StagePendingStudentConfirmation: {
		EventConfirm: {next: models.StagePendingDean, role: models.RoleStudent, approvalStage: models.ApprovalStageStudentConfirmation, action: models.ApprovalActionApproved},
	},
	models.StagePendingDean: {
		EventApprove: {next: models.StagePendingBAA, role: models.RoleDekan, approvalStage: models.ApprovalStageDean, action: models.ApprovalActionApproved},
		EventReject:  {next: models.StageRejected, role: models.RoleDekan, approvalStage: models.ApprovalStageDean, action: models.ApprovalActionRejected},
	},
	models.StagePendingBAA: {
		EventApprove: {next: models.StageApproved, role: models.RoleBAA, approvalStage: models.ApprovalStageBAA, action: models.ApprovalActionApproved},
		EventReject:  {next: models.StageRejected, role: models.RoleBAA, approvalStage: models.ApprovalStageBAA, action: models.ApprovalActionRejected},
	},
}

// Result describes one applied transition. Approval is nil only for the
// initial submission, which the ledger does not record.
type Result struct {
	From     models.Stage
	To       models.Stage
	Event    Event
	Approval *models.WorkflowApproval
}

// Transition validates the (stage, event, actor) triple and applies it to
// the request in memory. On success the request's stage fields are mutated
// and the produced ledger entry (if any) is returned; the caller is
// responsible for committing both in one unit of work.
func Transition(req *models.ConversionRequest, event Event, actor Actor, notes string) (*Result, error) {
	edges, ok := transitions[req.CurrentStage]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "request is already finalized")
	}
	e, ok := edges[event]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "")
	}
	if err := authorize(req, e, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &Result{From: req.CurrentStage, To: e.next, Event: event}

	req.CurrentStage = e.next
	req.UpdatedAt = now
	switch e.next {
	case models.StageApproved:
		req.FinalStatus = models.FinalStatusApproved
	case models.StageRejected:
		req.FinalStatus = models.FinalStatusRejected
	default:
		if event == EventSubmit {
			req.FinalStatus = models.FinalStatusSubmitted
			if req.SubmittedAt == nil {
				submittedAt := now
				req.SubmittedAt = &submittedAt
			}
		}
	}

	if e.approvalStage != "" {
		approval := &models.WorkflowApproval{
			ID:         uuid.NewString(),
			RequestID:  req.ID,
			Stage:      e.approvalStage,
			ApproverID: actor.ID,
			Action:     e.action,
			CreatedAt:  now,
		}
		if trimmed := strings.TrimSpace(notes); trimmed != "" {
			approval.Notes = &trimmed
		}
		result.Approval = approval
	}

	return result, nil
}

func authorize(req *models.ConversionRequest, e edge, actor Actor) error {
	if actor.Role != e.role {
		return appErrors.Clone(appErrors.ErrUnauthorizedActor, "")
	}
	switch e.role {
	case models.RoleStudent:
		// submission and confirmation belong to the owning student only
		if actor.ID != req.StudentID {
			return appErrors.Clone(appErrors.ErrUnauthorizedActor, "request belongs to another student")
		}
	case models.RoleKaprodi:
		// the program chair step is scoped to the request's target program
		if actor.ProgramID == nil || *actor.ProgramID != req.TargetProgramID {
			return appErrors.Clone(appErrors.ErrUnauthorizedActor, "request targets another study program")
		}
	}
	return nil
}

// CanAct reports whether the actor's role has any edge at the given stage.
// Handlers use it to shape queues; authorization is still re-checked inside
// Transition.
func CanAct(stage models.Stage, role models.UserRole) bool {
	for _, e := range transitions[stage] {
		if e.role == role {
			return true
		}
	}
	return false
}
