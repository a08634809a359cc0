package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/konversi-api/internal/dto"
	"github.com/noah-isme/konversi-api/internal/grading"
	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/internal/workflow"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

type conversionRequestStore interface {
	Create(ctx context.Context, req *models.ConversionRequest) error
	FindByID(ctx context.Context, id string) (*models.ConversionRequest, error)
	List(ctx context.Context, filter models.RequestFilter, p models.Pagination) ([]models.ConversionRequest, int, error)
	UpdateStage(ctx context.Context, req *models.ConversionRequest, expected models.Stage) error
	UpdateAcademicSummary(ctx context.Context, id string, totalSKS int, ipk float64, transcriptPath *string) error
	UpdateConvertedTotal(ctx context.Context, id string, totalConvertedSKS int) error
}

type conversionDetailStore interface {
	BulkCreate(ctx context.Context, details []models.ConversionDetail) error
	DeleteByRequest(ctx context.Context, requestID string) error
	ListByRequest(ctx context.Context, requestID string) ([]models.ConversionDetail, error)
	FindByID(ctx context.Context, id string) (*models.ConversionDetail, error)
	Update(ctx context.Context, detail *models.ConversionDetail) error
}

type approvalStore interface {
	Append(ctx context.Context, approval *models.WorkflowApproval) error
	ListByRequest(ctx context.Context, requestID string) ([]models.WorkflowApproval, error)
}

type curriculumStore interface {
	FindProgram(ctx context.Context, id string) (*models.StudyProgram, error)
	FindCourse(ctx context.Context, id string) (*models.CurriculumCourse, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transitionRecorder interface {
	RecordWorkflowTransition(from, to, event string)
}

// ConversionService orchestrates the conversion request lifecycle: draft
// creation, course attachment, and the sequential approval workflow. All
// stage movements funnel through the workflow transition table and persist
// stage plus ledger in one transaction.
type ConversionService struct {
	requests   conversionRequestStore
	details    conversionDetailStore
	approvals  approvalStore
	curriculum curriculumStore
	tx         txRunner
	metrics    transitionRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewConversionService constructs the service with defaults.
func NewConversionService(
	requests conversionRequestStore,
	details conversionDetailStore,
	approvals approvalStore,
	curriculum curriculumStore,
	tx txRunner,
	metrics transitionRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *ConversionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionService{
		requests:   requests,
		details:    details,
		approvals:  approvals,
		curriculum: curriculum,
		tx:         tx,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// newRequestNumber produces a human-readable reference like REQ-83921647.
func newRequestNumber() string {
	return fmt.Sprintf("REQ-%08d", time.Now().UnixMilli()%100000000)
}

// CreateDraft opens a new request in the draft stage for the acting student.
func (s *ConversionService) CreateDraft(ctx context.Context, actor workflow.Actor, input dto.CreateConversionRequest) (*models.ConversionRequest, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.ErrUnauthorizedActor
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.curriculum.FindProgram(ctx, input.TargetProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study program not found")
		}
		return nil, fmt.Errorf("resolve target program: %w", err)
	}

	now := time.Now()
	req := &models.ConversionRequest{
		ID:               uuid.NewString(),
		RequestNumber:    newRequestNumber(),
		StudentID:        actor.ID,
		StudentName:      input.StudentName,
		OriginUniversity: input.OriginUniversity,
		OriginProgram:    input.OriginProgram,
		TargetProgramID:  input.TargetProgramID,
		CurrentStage:     models.StagePendingStudent,
		FinalStatus:      models.FinalStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("conversion request created",
		zap.String("request_id", req.ID),
		zap.String("request_number", req.RequestNumber),
		zap.String("student_id", actor.ID))
	return req, nil
}

// AttachCourses replaces the course lines of a draft with extracted or
// student-corrected transcript lines and recomputes the origin totals.
// Allowed only while the owning student still holds the request.
func (s *ConversionService) AttachCourses(ctx context.Context, actor workflow.Actor, requestID string, input dto.AttachCoursesRequest) ([]models.ConversionDetail, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent || actor.ID != req.StudentID {
		return nil, appErrors.ErrUnauthorizedActor
	}
	if req.CurrentStage != models.StagePendingStudent {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "course lines can only be changed while the request is a draft")
	}

	now := time.Now()
	details := make([]models.ConversionDetail, 0, len(input.Courses))
	grades := make([]grading.CourseGrade, 0, len(input.Courses))
	for _, course := range input.Courses {
		number := grading.NumericFor(course.GradeLetter)
		details = append(details, models.ConversionDetail{
			ID:                uuid.NewString(),
			RequestID:         req.ID,
			OriginCourseName:  course.CourseName,
			OriginSKS:         course.SKS,
			OriginGradeLetter: course.GradeLetter,
			OriginGradeNumber: number,
			CreatedAt:         now,
		})
		grades = append(grades, grading.CourseGrade{SKS: course.SKS, GradeNumber: number})
	}
	summary, err := grading.Summarize(grades)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.details.DeleteByRequest(txCtx, req.ID); err != nil {
			return err
		}
		if err := s.details.BulkCreate(txCtx, details); err != nil {
			return err
		}
		return s.requests.UpdateAcademicSummary(txCtx, req.ID, summary.TotalSKS, summary.GPA, req.TranscriptPath)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course lines attached",
		zap.String("request_id", req.ID),
		zap.Int("courses", len(details)),
		zap.Float64("ipk", summary.GPA))
	return details, nil
}

// SetTranscriptPath records the stored transcript file for a draft.
func (s *ConversionService) SetTranscriptPath(ctx context.Context, actor workflow.Actor, requestID, path string) error {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleStudent || actor.ID != req.StudentID {
		return appErrors.ErrUnauthorizedActor
	}
	if req.CurrentStage != models.StagePendingStudent {
		return appErrors.Clone(appErrors.ErrIllegalTransition, "transcript can only be uploaded while the request is a draft")
	}
	return s.requests.UpdateAcademicSummary(ctx, req.ID, req.TotalSKS, req.IPK, &path)
}

// Submit hands the draft to the kaprodi. Requires at least one course line.
func (s *ConversionService) Submit(ctx context.Context, actor workflow.Actor, requestID string) (*models.ConversionRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	details, err := s.details.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot submit a request without course lines")
	}
	if err := s.applyTransition(ctx, req, workflow.EventSubmit, actor, "", nil); err != nil {
		return nil, err
	}
	return req, nil
}

// ReviewKaprodi applies the kaprodi decision. An approval carries the course
// mappings worked out during review and requires at least one convertible
// line; the recognized credit total is fixed before the stage moves.
func (s *ConversionService) ReviewKaprodi(ctx context.Context, actor workflow.Actor, requestID string, input dto.KaprodiReviewRequest) (*models.ConversionRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	event := workflow.EventApprove
	if !input.Approve {
		event = workflow.EventReject
	}

	if !input.Approve {
		if err := s.applyTransition(ctx, req, event, actor, input.Notes, nil); err != nil {
			return nil, err
		}
		return req, nil
	}

	err = s.applyTransition(ctx, req, event, actor, input.Notes, func(txCtx context.Context) error {
		for _, mapping := range input.Mappings {
			if err := s.applyMapping(txCtx, req, mapping); err != nil {
				return err
			}
		}
		details, err := s.details.ListByRequest(txCtx, req.ID)
		if err != nil {
			return err
		}
		total := grading.TotalConvertedSKS(details)
		if total == 0 {
			return appErrors.ErrNoConvertibleCourses
		}
		req.TotalConvertedSKS = total
		return s.requests.UpdateConvertedTotal(txCtx, req.ID, total)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Confirm records the student's acknowledgement of the kaprodi mapping and
// moves the request to the dean. Confirmation has no reject path.
func (s *ConversionService) Confirm(ctx context.Context, actor workflow.Actor, requestID string, input dto.ConfirmRequest) (*models.ConversionRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.applyTransition(ctx, req, workflow.EventConfirm, actor, input.Notes, nil); err != nil {
		return nil, err
	}
	return req, nil
}

// ReviewDean applies the dean decision. Grade overrides stay within the fixed
// letter scale and never change the recognized credit total.
func (s *ConversionService) ReviewDean(ctx context.Context, actor workflow.Actor, requestID string, input dto.DeanReviewRequest) (*models.ConversionRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	event := workflow.EventApprove
	if !input.Approve {
		event = workflow.EventReject
	}

	var pre func(txCtx context.Context) error
	if input.Approve && len(input.GradeEdits) > 0 {
		pre = func(txCtx context.Context) error {
			for _, edit := range input.GradeEdits {
				if err := s.applyGradeEdit(txCtx, req, edit); err != nil {
					return err
				}
			}
			return nil
		}
	}
	if err := s.applyTransition(ctx, req, event, actor, input.Notes, pre); err != nil {
		return nil, err
	}
	return req, nil
}

// ReviewBAA applies the final administrative decision.
func (s *ConversionService) ReviewBAA(ctx context.Context, actor workflow.Actor, requestID string, input dto.DecisionRequest) (*models.ConversionRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	event := workflow.EventApprove
	if !input.Approve {
		event = workflow.EventReject
	}
	if err := s.applyTransition(ctx, req, event, actor, input.Notes, nil); err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns a request with its course lines, scoped to what the actor may
// see.
func (s *ConversionService) Get(ctx context.Context, actor workflow.Actor, requestID string) (*models.ConversionRequest, []models.ConversionDetail, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorizeRead(actor, req); err != nil {
		return nil, nil, err
	}
	details, err := s.details.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	return req, details, nil
}

// ListMine returns the acting student's own requests.
func (s *ConversionService) ListMine(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error) {
	return s.requests.List(ctx, models.RequestFilter{StudentID: actor.ID}, p)
}

// PendingQueue returns the requests waiting on the actor's role, oldest
// submission first. Kaprodi queues are scoped to the kaprodi's program.
func (s *ConversionService) PendingQueue(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error) {
	filter := models.RequestFilter{}
	switch actor.Role {
	case models.RoleKaprodi:
		if actor.ProgramID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrUnauthorizedActor, "kaprodi account has no study program")
		}
		filter.Stage = models.StagePendingKaprodi
		filter.TargetProgramID = *actor.ProgramID
	case models.RoleDekan:
		filter.Stage = models.StagePendingDean
	case models.RoleBAA:
		filter.Stage = models.StagePendingBAA
	case models.RoleStudent:
		filter.Stage = models.StagePendingStudentConfirmation
		filter.StudentID = actor.ID
	default:
		return nil, 0, appErrors.ErrForbidden
	}
	return s.requests.List(ctx, filter, p)
}

// Archive returns finalized requests for administrative reporting.
func (s *ConversionService) Archive(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleBAA, models.RoleDekan:
	default:
		return nil, 0, appErrors.ErrForbidden
	}
	return s.requests.List(ctx, models.RequestFilter{FinalizedOnly: true}, p)
}

// History returns the approval ledger of a request in chronological order.
func (s *ConversionService) History(ctx context.Context, actor workflow.Actor, requestID string) ([]models.WorkflowApproval, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(actor, req); err != nil {
		return nil, err
	}
	return s.approvals.ListByRequest(ctx, requestID)
}

// applyTransition validates and executes one workflow step. The optional pre
// hook runs inside the same transaction before the stage flips, so mapping
// and grade writes commit or roll back with the stage and the ledger entry.
func (s *ConversionService) applyTransition(ctx context.Context, req *models.ConversionRequest, event workflow.Event, actor workflow.Actor, notes string, pre func(txCtx context.Context) error) error {
	result, err := workflow.Transition(req, event, actor, notes)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if pre != nil {
			if err := pre(txCtx); err != nil {
				return err
			}
		}
		if err := s.requests.UpdateStage(txCtx, req, result.From); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrConcurrentModification
			}
			return err
		}
		if result.Approval != nil {
			if err := s.approvals.Append(txCtx, result.Approval); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordWorkflowTransition(string(result.From), string(result.To), string(result.Event))
	}
	s.logger.Info("workflow transition applied",
		zap.String("request_id", req.ID),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
		zap.String("event", string(result.Event)),
		zap.String("actor_id", actor.ID))
	return nil
}

// applyMapping assigns one origin line to a target curriculum course.
func (s *ConversionService) applyMapping(ctx context.Context, req *models.ConversionRequest, mapping dto.CourseMapping) error {
	detail, err := s.details.FindByID(ctx, mapping.DetailID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "conversion detail not found")
		}
		return err
	}
	if detail.RequestID != req.ID {
		return appErrors.Clone(appErrors.ErrValidation, "detail does not belong to this request")
	}
	course, err := s.curriculum.FindCourse(ctx, mapping.TargetCourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "curriculum course not found")
		}
		return err
	}
	if course.StudyProgramID != req.TargetProgramID {
		return appErrors.Clone(appErrors.ErrValidation, "course belongs to a different study program")
	}
	grading.ApplyMapping(detail, *course)
	now := time.Now()
	detail.UpdatedAt = &now
	return s.details.Update(ctx, detail)
}

// applyGradeEdit overrides the converted grade of a mapped, convertible line.
func (s *ConversionService) applyGradeEdit(ctx context.Context, req *models.ConversionRequest, edit dto.GradeEdit) error {
	detail, err := s.details.FindByID(ctx, edit.DetailID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "conversion detail not found")
		}
		return err
	}
	if detail.RequestID != req.ID {
		return appErrors.Clone(appErrors.ErrValidation, "detail does not belong to this request")
	}
	if err := grading.OverrideConvertedGrade(detail, edit.GradeLetter); err != nil {
		return err
	}
	now := time.Now()
	detail.UpdatedAt = &now
	return s.details.Update(ctx, detail)
}

func (s *ConversionService) loadRequest(ctx context.Context, requestID string) (*models.ConversionRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversion request not found")
		}
		return nil, err
	}
	return req, nil
}

func (s *ConversionService) authorizeRead(actor workflow.Actor, req *models.ConversionRequest) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleDekan, models.RoleBAA:
		return nil
	case models.RoleKaprodi:
		if actor.ProgramID != nil && *actor.ProgramID == req.TargetProgramID {
			return nil
		}
	case models.RoleStudent:
		if actor.ID == req.StudentID {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
