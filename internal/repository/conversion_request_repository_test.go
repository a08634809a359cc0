package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konversi-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestRows(req models.ConversionRequest) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "request_number", "student_id", "student_name", "origin_university",
		"origin_program", "target_program_id", "total_sks", "total_converted_sks",
		"ipk", "current_stage", "final_status", "transcript_path", "created_at",
		"updated_at", "submitted_at",
	}).AddRow(
		req.ID, req.RequestNumber, req.StudentID, req.StudentName, req.OriginUniversity,
		req.OriginProgram, req.TargetProgramID, req.TotalSKS, req.TotalConvertedSKS,
		req.IPK, req.CurrentStage, req.FinalStatus, req.TranscriptPath, req.CreatedAt,
		req.UpdatedAt, req.SubmittedAt,
	)
}

func TestConversionRequestRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewConversionRequestRepository(db)
	now := time.Now()
	req := &models.ConversionRequest{
		ID:               "req-1",
		RequestNumber:    "REQ-12345678",
		StudentID:        "student-1",
		StudentName:      "Budi Santoso",
		OriginUniversity: "Universitas Asal",
		OriginProgram:    "Teknik Informatika",
		TargetProgramID:  "prog-1",
		CurrentStage:     models.StagePendingStudent,
		FinalStatus:      models.FinalStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversion_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), req))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_number, student_id")).
		WithArgs("req-1").
		WillReturnRows(requestRows(*req))

	found, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, "REQ-12345678", found.RequestNumber)
	require.Equal(t, models.StagePendingStudent, found.CurrentStage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRequestRepositoryListByStage(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewConversionRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conversion_requests")).
		WithArgs(models.StagePendingKaprodi, "prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	submitted := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at ASC NULLS LAST")).
		WithArgs(models.StagePendingKaprodi, "prog-1", 10, 0).
		WillReturnRows(requestRows(models.ConversionRequest{
			ID:              "req-1",
			RequestNumber:   "REQ-12345678",
			StudentID:       "student-1",
			TargetProgramID: "prog-1",
			CurrentStage:    models.StagePendingKaprodi,
			FinalStatus:     models.FinalStatusSubmitted,
			SubmittedAt:     &submitted,
		}))

	list, total, err := repo.List(context.Background(), models.RequestFilter{
		Stage:           models.StagePendingKaprodi,
		TargetProgramID: "prog-1",
	}, models.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, models.StagePendingKaprodi, list[0].CurrentStage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRequestRepositoryUpdateStageGuard(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewConversionRequestRepository(db)
	req := &models.ConversionRequest{
		ID:           "req-1",
		CurrentStage: models.StagePendingStudentConfirmation,
		FinalStatus:  models.FinalStatusSubmitted,
		UpdatedAt:    time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversion_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStage(context.Background(), req, models.StagePendingKaprodi))

	// Another actor moved the request first, the guarded update hits no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversion_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStage(context.Background(), req, models.StagePendingKaprodi)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRequestRepositoryUpdateStageInTx(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewConversionRequestRepository(db)
	manager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversion_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := manager.RunInTx(context.Background(), func(txCtx context.Context) error {
		return repo.UpdateStage(txCtx, &models.ConversionRequest{
			ID:           "req-1",
			CurrentStage: models.StagePendingDean,
			FinalStatus:  models.FinalStatusSubmitted,
			UpdatedAt:    time.Now(),
		}, models.StagePendingStudentConfirmation)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRequestRepositoryTxRollbackOnError(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewConversionRequestRepository(db)
	manager := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversion_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := manager.RunInTx(context.Background(), func(txCtx context.Context) error {
		return repo.UpdateStage(txCtx, &models.ConversionRequest{
			ID:           "req-1",
			CurrentStage: models.StagePendingDean,
			UpdatedAt:    time.Now(),
		}, models.StagePendingStudentConfirmation)
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
