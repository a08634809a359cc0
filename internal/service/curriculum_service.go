package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/konversi-api/internal/models"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
)

type curriculumCatalog interface {
	ListPrograms(ctx context.Context) ([]models.StudyProgram, error)
	FindProgram(ctx context.Context, id string) (*models.StudyProgram, error)
	ListActiveCourses(ctx context.Context, programID string) ([]models.CurriculumCourse, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CurriculumService serves the study program and course catalog used by the
// kaprodi mapping screen. Reads go through a short-lived cache since the
// catalog changes rarely.
type CurriculumService struct {
	repo   curriculumCatalog
	cache  catalogCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCurriculumService constructs the service with defaults.
func NewCurriculumService(repo curriculumCatalog, cache catalogCache, ttl time.Duration, logger *zap.Logger) *CurriculumService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// ListPrograms returns all study programs.
func (s *CurriculumService) ListPrograms(ctx context.Context) ([]models.StudyProgram, error) {
	const key = "curriculum:programs"
	if s.cache != nil {
		var cached []models.StudyProgram
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}
	programs, err := s.repo.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, programs, s.ttl); err != nil {
			s.logger.Warn("failed to cache study programs", zap.Error(err))
		}
	}
	return programs, nil
}

// GetProgram returns one study program.
func (s *CurriculumService) GetProgram(ctx context.Context, id string) (*models.StudyProgram, error) {
	program, err := s.repo.FindProgram(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study program not found")
		}
		return nil, err
	}
	return program, nil
}

// ListCourses returns the active curriculum of a program ordered by semester.
func (s *CurriculumService) ListCourses(ctx context.Context, programID string) ([]models.CurriculumCourse, error) {
	if _, err := s.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("curriculum:courses:%s", programID)
	if s.cache != nil {
		var cached []models.CurriculumCourse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}
	courses, err := s.repo.ListActiveCourses(ctx, programID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courses, s.ttl); err != nil {
			s.logger.Warn("failed to cache curriculum courses", zap.Error(err))
		}
	}
	return courses, nil
}
