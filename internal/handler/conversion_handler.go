package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/konversi-api/internal/dto"
	"github.com/noah-isme/konversi-api/internal/grading"
	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/internal/workflow"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
	"github.com/noah-isme/konversi-api/pkg/response"
	"github.com/noah-isme/konversi-api/pkg/storage"
)

type conversionService interface {
	CreateDraft(ctx context.Context, actor workflow.Actor, input dto.CreateConversionRequest) (*models.ConversionRequest, error)
	AttachCourses(ctx context.Context, actor workflow.Actor, requestID string, input dto.AttachCoursesRequest) ([]models.ConversionDetail, error)
	SetTranscriptPath(ctx context.Context, actor workflow.Actor, requestID, path string) error
	Submit(ctx context.Context, actor workflow.Actor, requestID string) (*models.ConversionRequest, error)
	ReviewKaprodi(ctx context.Context, actor workflow.Actor, requestID string, input dto.KaprodiReviewRequest) (*models.ConversionRequest, error)
	Confirm(ctx context.Context, actor workflow.Actor, requestID string, input dto.ConfirmRequest) (*models.ConversionRequest, error)
	ReviewDean(ctx context.Context, actor workflow.Actor, requestID string, input dto.DeanReviewRequest) (*models.ConversionRequest, error)
	ReviewBAA(ctx context.Context, actor workflow.Actor, requestID string, input dto.DecisionRequest) (*models.ConversionRequest, error)
	Get(ctx context.Context, actor workflow.Actor, requestID string) (*models.ConversionRequest, []models.ConversionDetail, error)
	ListMine(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error)
	PendingQueue(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error)
	Archive(ctx context.Context, actor workflow.Actor, p models.Pagination) ([]models.ConversionRequest, int, error)
	History(ctx context.Context, actor workflow.Actor, requestID string) ([]models.WorkflowApproval, error)
}

type extractionService interface {
	ValidateUpload(size int64, mimeType string) error
	StoreTranscript(requestID, originalName string, data []byte) (string, error)
	Extract(ctx context.Context, data []byte, mimeType string) ([]dto.ExtractedCourse, error)
}

// ConversionHandler exposes REST endpoints for the conversion workflow.
type ConversionHandler struct {
	service    conversionService
	extraction extractionService
	files      *storage.LocalStorage
	signer     *storage.SignedURLSigner
}

// NewConversionHandler constructs the handler.
func NewConversionHandler(service conversionService, extraction extractionService, files *storage.LocalStorage, signer *storage.SignedURLSigner) *ConversionHandler {
	return &ConversionHandler{service: service, extraction: extraction, files: files, signer: signer}
}

type requestDetailResponse struct {
	Request *models.ConversionRequest `json:"request"`
	Details []models.ConversionDetail `json:"details"`
}

// Create godoc
// @Summary Open a new conversion request draft
// @Tags Conversions
// @Accept json
// @Produce json
// @Param payload body dto.CreateConversionRequest true "Draft payload"
// @Success 201 {object} response.Envelope
// @Router /conversions [post]
func (h *ConversionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	created, err := h.service.CreateDraft(c.Request.Context(), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UploadTranscript godoc
// @Summary Upload a transcript document and extract its course rows
// @Tags Conversions
// @Accept mpfd
// @Produce json
// @Param id path string true "Request ID"
// @Param file formData file true "Transcript document"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/transcript [post]
func (h *ConversionHandler) UploadTranscript(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requestID := c.Param("id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "transcript file is required"))
		return
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if err := h.extraction.ValidateUpload(fileHeader.Size, mimeType); err != nil {
		response.Error(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	path, err := h.extraction.StoreTranscript(requestID, fileHeader.Filename, data)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store transcript"))
		return
	}
	if err := h.service.SetTranscriptPath(c.Request.Context(), actorFromClaims(claims), requestID, path); err != nil {
		response.Error(c, err)
		return
	}

	courses, err := h.extraction.Extract(c.Request.Context(), data, mimeType)
	if err != nil {
		// The upload itself is kept; the student can retry extraction or
		// enter the rows manually.
		response.Error(c, err)
		return
	}

	result := dto.ExtractionResult{Courses: courses, TranscriptPath: path}
	inputs := make([]grading.CourseGrade, len(courses))
	for i, course := range courses {
		inputs[i] = grading.CourseGrade{SKS: course.SKS, GradeNumber: grading.NumericFor(course.GradeLetter)}
	}
	if summary, err := grading.Summarize(inputs); err == nil {
		result.TotalSKS = summary.TotalSKS
		result.IPK = summary.GPA
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AttachCourses godoc
// @Summary Replace the course lines of a draft
// @Tags Conversions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AttachCoursesRequest true "Course lines"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/courses [put]
func (h *ConversionHandler) AttachCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AttachCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course payload"))
		return
	}
	details, err := h.service.AttachCourses(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Submit godoc
// @Summary Submit a draft to the kaprodi
// @Tags Conversions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/submit [post]
func (h *ConversionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := h.service.Submit(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// ReviewKaprodi godoc
// @Summary Record the kaprodi decision with course mappings
// @Tags Conversions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.KaprodiReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/kaprodi-review [post]
func (h *ConversionHandler) ReviewKaprodi(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.KaprodiReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	result, err := h.service.ReviewKaprodi(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Confirm godoc
// @Summary Student confirmation of the kaprodi mapping
// @Tags Conversions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ConfirmRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/confirm [post]
func (h *ConversionHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid confirmation payload"))
		return
	}
	result, err := h.service.Confirm(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReviewDean godoc
// @Summary Record the dean decision with optional grade overrides
// @Tags Conversions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DeanReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/dean-review [post]
func (h *ConversionHandler) ReviewDean(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DeanReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	result, err := h.service.ReviewDean(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReviewBAA godoc
// @Summary Record the final BAA decision
// @Tags Conversions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/baa-review [post]
func (h *ConversionHandler) ReviewBAA(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	result, err := h.service.ReviewBAA(c.Request.Context(), actorFromClaims(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Fetch one conversion request with its course lines
// @Tags Conversions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id} [get]
func (h *ConversionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, details, err := h.service.Get(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requestDetailResponse{Request: req, Details: details}, nil)
}

// ListMine godoc
// @Summary List the acting student's own requests
// @Tags Conversions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conversions/mine [get]
func (h *ConversionHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	p := paginationFromQuery(c)
	list, total, err := h.service.ListMine(c.Request.Context(), actorFromClaims(claims), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	p.TotalCount = total
	response.JSON(c, http.StatusOK, list, &p)
}

// Queue godoc
// @Summary List requests waiting on the acting role
// @Tags Conversions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conversions/queue [get]
func (h *ConversionHandler) Queue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	p := paginationFromQuery(c)
	list, total, err := h.service.PendingQueue(c.Request.Context(), actorFromClaims(claims), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	p.TotalCount = total
	response.JSON(c, http.StatusOK, list, &p)
}

// Archive godoc
// @Summary List finalized requests
// @Tags Conversions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conversions/archive [get]
func (h *ConversionHandler) Archive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	p := paginationFromQuery(c)
	list, total, err := h.service.Archive(c.Request.Context(), actorFromClaims(claims), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	p.TotalCount = total
	response.JSON(c, http.StatusOK, list, &p)
}

// History godoc
// @Summary List the approval ledger of a request
// @Tags Conversions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/history [get]
func (h *ConversionHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	history, err := h.service.History(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// TranscriptURL godoc
// @Summary Issue a short-lived download token for the stored transcript
// @Tags Conversions
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id}/transcript-url [get]
func (h *ConversionHandler) TranscriptURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, _, err := h.service.Get(c.Request.Context(), actorFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.TranscriptPath == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no transcript uploaded for this request"))
		return
	}
	token, expiresAt, err := h.signer.Generate(req.ID, *req.TranscriptPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/api/v1/files/transcript?token=" + token,
		"expires_at": expiresAt,
	}, nil)
}

// DownloadTranscript godoc
// @Summary Stream a transcript referenced by a signed token
// @Tags Conversions
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /files/transcript [get]
func (h *ConversionHandler) DownloadTranscript(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	c.File(h.files.Path(relPath))
}
