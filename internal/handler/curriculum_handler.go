package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/pkg/response"
)

type curriculumService interface {
	ListPrograms(ctx context.Context) ([]models.StudyProgram, error)
	GetProgram(ctx context.Context, id string) (*models.StudyProgram, error)
	ListCourses(ctx context.Context, programID string) ([]models.CurriculumCourse, error)
}

// CurriculumHandler exposes the study program and course catalog.
type CurriculumHandler struct {
	service curriculumService
}

// NewCurriculumHandler constructs the handler.
func NewCurriculumHandler(service curriculumService) *CurriculumHandler {
	return &CurriculumHandler{service: service}
}

// ListPrograms godoc
// @Summary List study programs
// @Tags Curriculum
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *CurriculumHandler) ListPrograms(c *gin.Context) {
	programs, err := h.service.ListPrograms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// GetProgram godoc
// @Summary Fetch one study program
// @Tags Curriculum
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *CurriculumHandler) GetProgram(c *gin.Context) {
	program, err := h.service.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// ListCourses godoc
// @Summary List the active curriculum of a program
// @Tags Curriculum
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/courses [get]
func (h *CurriculumHandler) ListCourses(c *gin.Context) {
	courses, err := h.service.ListCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
