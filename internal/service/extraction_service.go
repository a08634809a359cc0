package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/konversi-api/internal/dto"
	"github.com/noah-isme/konversi-api/pkg/config"
	appErrors "github.com/noah-isme/konversi-api/pkg/errors"
	"github.com/noah-isme/konversi-api/pkg/storage"
)

const extractionPrompt = `Extract every course row from this academic transcript. ` +
	`For each row return the course name, the credit hours (SKS) as an integer, ` +
	`and the letter grade exactly as printed (one of A, AB, B, BC, C, D, E). ` +
	`Return only the rows, no commentary.`

type extractionObserver interface {
	ObserveExtraction(duration time.Duration, failed bool)
}

// ExtractionService sends an uploaded transcript to a vision model and parses
// the structured course rows out of the response. The provider is treated as
// a black box; callers only see the parsed rows or an extraction failure.
type ExtractionService struct {
	cfg     config.ExtractionConfig
	uploads config.UploadsConfig
	store   *storage.LocalStorage
	client  *http.Client
	metrics extractionObserver
	logger  *zap.Logger
}

// NewExtractionService constructs the service.
func NewExtractionService(cfg config.ExtractionConfig, uploads config.UploadsConfig, store *storage.LocalStorage, metrics extractionObserver, logger *zap.Logger) *ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExtractionService{
		cfg:     cfg,
		uploads: uploads,
		store:   store,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
		logger:  logger,
	}
}

type generatePart struct {
	Text       string              `json:"text,omitempty"`
	InlineData *generateInlineData `json:"inline_data,omitempty"`
}

type generateInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string          `json:"response_mime_type"`
		ResponseSchema   json.RawMessage `json:"response_schema"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

var courseRowsSchema = json.RawMessage(`{
	"type": "ARRAY",
	"items": {
		"type": "OBJECT",
		"properties": {
			"courseName": {"type": "STRING"},
			"sks": {"type": "INTEGER"},
			"gradeLetter": {"type": "STRING"}
		},
		"required": ["courseName", "sks", "gradeLetter"]
	}
}`)

// ValidateUpload checks size and MIME type against the configured limits.
func (s *ExtractionService) ValidateUpload(size int64, mimeType string) error {
	if s.uploads.MaxFileSizeBytes > 0 && size > s.uploads.MaxFileSizeBytes {
		return appErrors.Clone(appErrors.ErrValidation, "transcript file exceeds the maximum allowed size")
	}
	if len(s.uploads.AllowedMIMEs) == 0 {
		return nil
	}
	for _, allowed := range s.uploads.AllowedMIMEs {
		if strings.EqualFold(allowed, mimeType) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, "unsupported transcript file type")
}

// StoreTranscript persists the uploaded document and returns its storage path.
func (s *ExtractionService) StoreTranscript(requestID, originalName string, data []byte) (string, error) {
	ext := filepath.Ext(originalName)
	filename := filepath.Join("transcripts", requestID, uuid.NewString()+ext)
	return s.store.Save(filename, data)
}

// Extract runs the vision extraction over the uploaded transcript bytes.
// Returns ErrExtractionFailed when the provider is unreachable, refuses the
// document, or answers with something that does not parse as course rows.
func (s *ExtractionService) Extract(ctx context.Context, data []byte, mimeType string) (courses []dto.ExtractedCourse, err error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrExtractionFailed, "transcript extraction is disabled")
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveExtraction(time.Since(start), err != nil)
		}
	}()

	payload := generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{
				{InlineData: &generateInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: extractionPrompt},
			},
		}},
	}
	payload.GenerationConfig.ResponseMimeType = "application/json"
	payload.GenerationConfig.ResponseSchema = courseRowsSchema

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.Warn("extraction provider unreachable", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrExtractionFailed.Code, appErrors.ErrExtractionFailed.Status, appErrors.ErrExtractionFailed.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("extraction provider rejected request", zap.Int("status", resp.StatusCode))
		return nil, appErrors.Clone(appErrors.ErrExtractionFailed, fmt.Sprintf("extraction provider returned status %d", resp.StatusCode))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExtractionFailed.Code, appErrors.ErrExtractionFailed.Status, appErrors.ErrExtractionFailed.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrExtractionFailed, "extraction provider returned no candidates")
	}

	raw := parsed.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(raw), &courses); err != nil {
		s.logger.Warn("extraction output did not parse", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrExtractionFailed.Code, appErrors.ErrExtractionFailed.Status, appErrors.ErrExtractionFailed.Message)
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrExtractionFailed, "no course rows recognized in the transcript")
	}

	s.logger.Info("transcript extracted", zap.Int("courses", len(courses)))
	return courses, nil
}
