package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konversi-api/internal/models"
)

func newDetailRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConversionDetailRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newDetailRepoMock(t)
	defer cleanup()

	repo := NewConversionDetailRepository(db)
	now := time.Now()
	details := []models.ConversionDetail{
		{ID: "det-1", RequestID: "req-1", OriginCourseName: "Kalkulus I", OriginSKS: 3, OriginGradeLetter: "A", OriginGradeNumber: 4.0, CreatedAt: now},
		{ID: "det-2", RequestID: "req-1", OriginCourseName: "Fisika Dasar", OriginSKS: 4, OriginGradeLetter: "B", OriginGradeNumber: 3.0, CreatedAt: now},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversion_details")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversion_details")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.BulkCreate(context.Background(), details))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionDetailRepositoryListByRequest(t *testing.T) {
	db, mock, cleanup := newDetailRepoMock(t)
	defer cleanup()

	repo := NewConversionDetailRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "request_id", "origin_course_name", "origin_sks", "origin_grade_letter",
		"origin_grade_number", "target_course_id", "target_course_name", "target_sks",
		"converted_grade_letter", "converted_grade_number", "is_convertible", "notes",
		"created_at", "updated_at",
	}).AddRow(
		"det-1", "req-1", "Kalkulus I", 3, "A", 4.0,
		nil, nil, nil, nil, nil, false, nil, time.Now(), nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_id, origin_course_name")).
		WithArgs("req-1").
		WillReturnRows(rows)

	details, err := repo.ListByRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, "Kalkulus I", details[0].OriginCourseName)
	require.False(t, details[0].Mapped())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionDetailRepositoryUpdateMapping(t *testing.T) {
	db, mock, cleanup := newDetailRepoMock(t)
	defer cleanup()

	repo := NewConversionDetailRepository(db)
	targetID := "course-1"
	targetName := "Kalkulus"
	targetSKS := 3
	letter := "A"
	number := 4.0
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE conversion_details")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.ConversionDetail{
		ID:                   "det-1",
		RequestID:            "req-1",
		TargetCourseID:       &targetID,
		TargetCourseName:     &targetName,
		TargetSKS:            &targetSKS,
		ConvertedGradeLetter: &letter,
		ConvertedGradeNumber: &number,
		IsConvertible:        true,
		UpdatedAt:            &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
