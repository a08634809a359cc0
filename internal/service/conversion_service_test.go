package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konversi-api/internal/dto"
	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/internal/workflow"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

type stubRequestStore struct {
	requests map[string]*models.ConversionRequest
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{requests: map[string]*models.ConversionRequest{}}
}

func (s *stubRequestStore) Create(_ context.Context, req *models.ConversionRequest) error {
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *stubRequestStore) FindByID(_ context.Context, id string) (*models.ConversionRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (s *stubRequestStore) List(_ context.Context, filter models.RequestFilter, _ models.Pagination) ([]models.ConversionRequest, int, error) {
	out := []models.ConversionRequest{}
	for _, req := range s.requests {
		if filter.StudentID != "" && req.StudentID != filter.StudentID {
			continue
		}
		if filter.Stage != "" && req.CurrentStage != filter.Stage {
			continue
		}
		if filter.TargetProgramID != "" && req.TargetProgramID != filter.TargetProgramID {
			continue
		}
		if filter.FinalizedOnly && req.FinalStatus != models.FinalStatusApproved && req.FinalStatus != models.FinalStatusRejected {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (s *stubRequestStore) UpdateStage(_ context.Context, req *models.ConversionRequest, expected models.Stage) error {
	stored, ok := s.requests[req.ID]
	if !ok || stored.CurrentStage != expected {
		return sql.ErrNoRows
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *stubRequestStore) UpdateAcademicSummary(_ context.Context, id string, totalSKS int, ipk float64, transcriptPath *string) error {
	stored := s.requests[id]
	stored.TotalSKS = totalSKS
	stored.IPK = ipk
	stored.TranscriptPath = transcriptPath
	return nil
}

func (s *stubRequestStore) UpdateConvertedTotal(_ context.Context, id string, total int) error {
	s.requests[id].TotalConvertedSKS = total
	return nil
}

type stubDetailStore struct {
	details map[string]*models.ConversionDetail
}

func newStubDetailStore() *stubDetailStore {
	return &stubDetailStore{details: map[string]*models.ConversionDetail{}}
}

func (s *stubDetailStore) BulkCreate(_ context.Context, details []models.ConversionDetail) error {
	for i := range details {
		clone := details[i]
		s.details[clone.ID] = &clone
	}
	return nil
}

func (s *stubDetailStore) DeleteByRequest(_ context.Context, requestID string) error {
	for id, detail := range s.details {
		if detail.RequestID == requestID {
			delete(s.details, id)
		}
	}
	return nil
}

func (s *stubDetailStore) ListByRequest(_ context.Context, requestID string) ([]models.ConversionDetail, error) {
	out := []models.ConversionDetail{}
	for _, detail := range s.details {
		if detail.RequestID == requestID {
			out = append(out, *detail)
		}
	}
	return out, nil
}

func (s *stubDetailStore) FindByID(_ context.Context, id string) (*models.ConversionDetail, error) {
	detail, ok := s.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *detail
	return &clone, nil
}

func (s *stubDetailStore) Update(_ context.Context, detail *models.ConversionDetail) error {
	clone := *detail
	s.details[detail.ID] = &clone
	return nil
}

type stubApprovalStore struct {
	entries []models.WorkflowApproval
}

func (s *stubApprovalStore) Append(_ context.Context, approval *models.WorkflowApproval) error {
	s.entries = append(s.entries, *approval)
	return nil
}

func (s *stubApprovalStore) ListByRequest(_ context.Context, requestID string) ([]models.WorkflowApproval, error) {
	out := []models.WorkflowApproval{}
	for _, entry := range s.entries {
		if entry.RequestID == requestID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubCurriculumStore struct {
	programs map[string]*models.StudyProgram
	courses  map[string]*models.CurriculumCourse
}

func newStubCurriculumStore() *stubCurriculumStore {
	return &stubCurriculumStore{
		programs: map[string]*models.StudyProgram{},
		courses:  map[string]*models.CurriculumCourse{},
	}
}

func (s *stubCurriculumStore) FindProgram(_ context.Context, id string) (*models.StudyProgram, error) {
	program, ok := s.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return program, nil
}

func (s *stubCurriculumStore) FindCourse(_ context.Context, id string) (*models.CurriculumCourse, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubTx struct{}

func (stubTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubMetrics struct {
	transitions []string
}

func (s *stubMetrics) RecordWorkflowTransition(from, to, event string) {
	s.transitions = append(s.transitions, from+">"+to+":"+event)
}

type conversionFixture struct {
	svc        *ConversionService
	requests   *stubRequestStore
	details    *stubDetailStore
	approvals  *stubApprovalStore
	curriculum *stubCurriculumStore
	metrics    *stubMetrics
}

func newConversionFixture() *conversionFixture {
	f := &conversionFixture{
		requests:   newStubRequestStore(),
		details:    newStubDetailStore(),
		approvals:  &stubApprovalStore{},
		curriculum: newStubCurriculumStore(),
		metrics:    &stubMetrics{},
	}
	f.curriculum.programs["prog-1"] = &models.StudyProgram{ID: "prog-1", Code: "IF", Name: "Informatika"}
	f.curriculum.courses["course-3"] = &models.CurriculumCourse{ID: "course-3", StudyProgramID: "prog-1", CourseName: "Kalkulus", SKS: 3}
	f.curriculum.courses["course-4"] = &models.CurriculumCourse{ID: "course-4", StudyProgramID: "prog-1", CourseName: "Fisika", SKS: 4}
	f.curriculum.courses["course-other"] = &models.CurriculumCourse{ID: "course-other", StudyProgramID: "prog-2", CourseName: "Akuntansi", SKS: 3}
	f.svc = NewConversionService(f.requests, f.details, f.approvals, f.curriculum, stubTx{}, f.metrics, nil, nil)
	return f
}

func studentActor(id string) workflow.Actor {
	return workflow.Actor{ID: id, Role: models.RoleStudent}
}

func kaprodiActor(programID string) workflow.Actor {
	return workflow.Actor{ID: "kaprodi-1", Role: models.RoleKaprodi, ProgramID: &programID}
}

func (f *conversionFixture) createDraft(t *testing.T, studentID string) *models.ConversionRequest {
	t.Helper()
	req, err := f.svc.CreateDraft(context.Background(), studentActor(studentID), dto.CreateConversionRequest{
		StudentName:      "Budi Santoso",
		OriginUniversity: "Universitas Asal",
		OriginProgram:    "Teknik Informatika",
		TargetProgramID:  "prog-1",
	})
	require.NoError(t, err)
	return req
}

func (f *conversionFixture) attachDefaultCourses(t *testing.T, studentID, requestID string) []models.ConversionDetail {
	t.Helper()
	details, err := f.svc.AttachCourses(context.Background(), studentActor(studentID), requestID, dto.AttachCoursesRequest{
		Courses: []dto.ExtractedCourse{
			{CourseName: "Kalkulus I", SKS: 3, GradeLetter: "A"},
			{CourseName: "Algoritma", SKS: 3, GradeLetter: "AB"},
			{CourseName: "Fisika Dasar", SKS: 4, GradeLetter: "B"},
		},
	})
	require.NoError(t, err)
	return details
}

func TestConversionServiceCreateDraft(t *testing.T) {
	f := newConversionFixture()

	req := f.createDraft(t, "student-1")
	require.Equal(t, models.StagePendingStudent, req.CurrentStage)
	require.Equal(t, models.FinalStatusDraft, req.FinalStatus)
	require.Regexp(t, `^REQ-\d{8}$`, req.RequestNumber)
	require.Nil(t, req.SubmittedAt)
}

func TestConversionServiceCreateDraftRejectsNonStudent(t *testing.T) {
	f := newConversionFixture()

	_, err := f.svc.CreateDraft(context.Background(), kaprodiActor("prog-1"), dto.CreateConversionRequest{
		StudentName:      "X",
		OriginUniversity: "Y",
		OriginProgram:    "Z",
		TargetProgramID:  "prog-1",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedActor))
}

func TestConversionServiceCreateDraftUnknownProgram(t *testing.T) {
	f := newConversionFixture()

	_, err := f.svc.CreateDraft(context.Background(), studentActor("student-1"), dto.CreateConversionRequest{
		StudentName:      "X",
		OriginUniversity: "Y",
		OriginProgram:    "Z",
		TargetProgramID:  "missing",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestConversionServiceAttachCoursesComputesTotals(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")

	details := f.attachDefaultCourses(t, "student-1", req.ID)
	require.Len(t, details, 3)

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, 10, stored.TotalSKS)
	require.InDelta(t, 3.45, stored.IPK, 1e-9)
}

func TestConversionServiceAttachCoursesReplacesPreviousLines(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	f.attachDefaultCourses(t, "student-1", req.ID)

	_, err := f.svc.AttachCourses(context.Background(), studentActor("student-1"), req.ID, dto.AttachCoursesRequest{
		Courses: []dto.ExtractedCourse{{CourseName: "Statistika", SKS: 2, GradeLetter: "B"}},
	})
	require.NoError(t, err)

	lines, err := f.details.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.TotalSKS)
	require.InDelta(t, 3.0, stored.IPK, 1e-9)
}

func TestConversionServiceSubmitRequiresCourses(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")

	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConversionServiceSubmitMovesToKaprodi(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	f.attachDefaultCourses(t, "student-1", req.ID)

	submitted, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StagePendingKaprodi, submitted.CurrentStage)
	require.Equal(t, models.FinalStatusSubmitted, submitted.FinalStatus)
	require.NotNil(t, submitted.SubmittedAt)

	// Submission moves the stage but writes no ledger entry.
	history, err := f.svc.History(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)
	require.Empty(t, history)
	require.Equal(t, []string{"pending_student>pending_kaprodi:submit"}, f.metrics.transitions)
}

func TestConversionServiceKaprodiApproveWithMappings(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	details := f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)

	var kalkulus, fisika string
	for _, d := range details {
		switch d.OriginCourseName {
		case "Kalkulus I":
			kalkulus = d.ID
		case "Fisika Dasar":
			fisika = d.ID
		}
	}

	reviewed, err := f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{
		Approve: true,
		Mappings: []dto.CourseMapping{
			{DetailID: kalkulus, TargetCourseID: "course-3"},
			{DetailID: fisika, TargetCourseID: "course-4"},
		},
		Notes: "mapping selesai",
	})
	require.NoError(t, err)
	require.Equal(t, models.StagePendingStudentConfirmation, reviewed.CurrentStage)
	require.Equal(t, 7, reviewed.TotalConvertedSKS)

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, 7, stored.TotalConvertedSKS)

	history, err := f.svc.History(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.ApprovalStageKaprodi, history[0].Stage)
	require.Equal(t, models.ApprovalActionApproved, history[0].Action)
}

func TestConversionServiceKaprodiApproveWithoutConvertibleLines(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)

	_, err = f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{Approve: true})
	require.True(t, appErrors.Is(err, appErrors.ErrNoConvertibleCourses))

	// Stage stays put when approval is blocked.
	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StagePendingKaprodi, stored.CurrentStage)
}

func TestConversionServiceKaprodiWrongProgram(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)

	_, err = f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-2"), req.ID, dto.KaprodiReviewRequest{Approve: true})
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedActor))
}

func TestConversionServiceMappingRejectsForeignCourse(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	details := f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)

	_, err = f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{
		Approve:  true,
		Mappings: []dto.CourseMapping{{DetailID: details[0].ID, TargetCourseID: "course-other"}},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConversionServiceConcurrentModification(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")
	f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)

	// Another kaprodi session rejects while this decision is in flight.
	f.requests.requests[req.ID].CurrentStage = models.StageRejected
	f.requests.requests[req.ID].FinalStatus = models.FinalStatusRejected

	stale, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	stale.CurrentStage = models.StagePendingKaprodi
	_, err = workflow.Transition(stale, workflow.EventReject, kaprodiActor("prog-1"), "")
	require.NoError(t, err)
	err = f.requests.UpdateStage(context.Background(), stale, models.StagePendingKaprodi)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

// walkToStage drives a fresh request to the requested stage.
func (f *conversionFixture) walkToStage(t *testing.T, target models.Stage) *models.ConversionRequest {
	t.Helper()
	req := f.createDraft(t, "student-1")
	details := f.attachDefaultCourses(t, "student-1", req.ID)
	_, err := f.svc.Submit(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)
	if target == models.StagePendingKaprodi {
		return req
	}
	_, err = f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{
		Approve:  true,
		Mappings: []dto.CourseMapping{{DetailID: details[0].ID, TargetCourseID: "course-3"}},
	})
	require.NoError(t, err)
	if target == models.StagePendingStudentConfirmation {
		return req
	}
	_, err = f.svc.Confirm(context.Background(), studentActor("student-1"), req.ID, dto.ConfirmRequest{})
	require.NoError(t, err)
	if target == models.StagePendingDean {
		return req
	}
	_, err = f.svc.ReviewDean(context.Background(), workflow.Actor{ID: "dean-1", Role: models.RoleDekan}, req.ID, dto.DeanReviewRequest{Approve: true})
	require.NoError(t, err)
	return req
}

func TestConversionServiceFullApprovalFlow(t *testing.T) {
	f := newConversionFixture()
	req := f.walkToStage(t, models.StagePendingBAA)

	final, err := f.svc.ReviewBAA(context.Background(), workflow.Actor{ID: "baa-1", Role: models.RoleBAA}, req.ID, dto.DecisionRequest{Approve: true})
	require.NoError(t, err)
	require.Equal(t, models.StageApproved, final.CurrentStage)
	require.Equal(t, models.FinalStatusApproved, final.FinalStatus)

	history, err := f.svc.History(context.Background(), studentActor("student-1"), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Equal(t, models.ApprovalStageKaprodi, history[0].Stage)
	require.Equal(t, models.ApprovalStageStudentConfirmation, history[1].Stage)
	require.Equal(t, models.ApprovalStageDean, history[2].Stage)
	require.Equal(t, models.ApprovalStageBAA, history[3].Stage)
}

func TestConversionServiceDeanGradeEditKeepsConvertedTotal(t *testing.T) {
	f := newConversionFixture()
	req := f.walkToStage(t, models.StagePendingDean)

	var mapped string
	lines, err := f.details.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	for _, line := range lines {
		if line.Mapped() {
			mapped = line.ID
		}
	}
	require.NotEmpty(t, mapped)
	before, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)

	reviewed, err := f.svc.ReviewDean(context.Background(), workflow.Actor{ID: "dean-1", Role: models.RoleDekan}, req.ID, dto.DeanReviewRequest{
		Approve:    true,
		GradeEdits: []dto.GradeEdit{{DetailID: mapped, GradeLetter: "B"}},
	})
	require.NoError(t, err)
	require.Equal(t, models.StagePendingBAA, reviewed.CurrentStage)
	require.Equal(t, before.TotalConvertedSKS, reviewed.TotalConvertedSKS)

	edited, err := f.details.FindByID(context.Background(), mapped)
	require.NoError(t, err)
	require.Equal(t, "B", *edited.ConvertedGradeLetter)
	require.InDelta(t, 3.0, *edited.ConvertedGradeNumber, 1e-9)
}

func TestConversionServiceDeanGradeEditOutsideScale(t *testing.T) {
	f := newConversionFixture()
	req := f.walkToStage(t, models.StagePendingDean)

	lines, err := f.details.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	var mapped string
	for _, line := range lines {
		if line.Mapped() {
			mapped = line.ID
		}
	}

	_, err = f.svc.ReviewDean(context.Background(), workflow.Actor{ID: "dean-1", Role: models.RoleDekan}, req.ID, dto.DeanReviewRequest{
		Approve:    true,
		GradeEdits: []dto.GradeEdit{{DetailID: mapped, GradeLetter: "Z"}},
	})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConversionServiceRejectFinalizes(t *testing.T) {
	f := newConversionFixture()
	req := f.walkToStage(t, models.StagePendingKaprodi)

	rejected, err := f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{
		Approve: false,
		Notes:   "transkrip tidak terbaca",
	})
	require.NoError(t, err)
	require.Equal(t, models.StageRejected, rejected.CurrentStage)
	require.Equal(t, models.FinalStatusRejected, rejected.FinalStatus)

	// Terminal requests accept no further decisions.
	_, err = f.svc.ReviewKaprodi(context.Background(), kaprodiActor("prog-1"), req.ID, dto.KaprodiReviewRequest{Approve: true})
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestConversionServicePendingQueueScoping(t *testing.T) {
	f := newConversionFixture()
	f.walkToStage(t, models.StagePendingKaprodi)

	list, total, err := f.svc.PendingQueue(context.Background(), kaprodiActor("prog-1"), models.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)

	list, total, err = f.svc.PendingQueue(context.Background(), kaprodiActor("prog-2"), models.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 0, total)
	require.Empty(t, list)

	_, _, err = f.svc.PendingQueue(context.Background(), workflow.Actor{ID: "k", Role: models.RoleKaprodi}, models.Pagination{})
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedActor))
}

func TestConversionServiceReadScoping(t *testing.T) {
	f := newConversionFixture()
	req := f.createDraft(t, "student-1")

	_, _, err := f.svc.Get(context.Background(), studentActor("student-2"), req.ID)
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, _, err = f.svc.Get(context.Background(), workflow.Actor{ID: "baa-1", Role: models.RoleBAA}, req.ID)
	require.NoError(t, err)
}
