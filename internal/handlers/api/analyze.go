package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"jobtracker/internal/analyzer"
	"jobtracker/internal/db"
	"jobtracker/internal/ingest"
	"jobtracker/internal/metrics"
	"jobtracker/internal/models"
	"jobtracker/internal/storage"
	"jobtracker/internal/validation"
)

const maxAnalysesLimit = 200

// AnalysisStore is the persistence used by the analysis endpoints.
type AnalysisStore interface {
	GetApplication(ctx context.Context, userID, id uuid.UUID) (*models.Application, error)
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	ListAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]models.Analysis, error)
	GetAnalysis(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error)
	DeleteAnalysis(ctx context.Context, userID, id uuid.UUID) error
}

// JobFetcher retrieves a job description from a posting URL.
type JobFetcher interface {
	FetchJobDescription(ctx context.Context, url string) (string, error)
}

// AnalyzeHandler compares resumes against job descriptions and keeps the
// history of saved reports.
type AnalyzeHandler struct {
	store     AnalysisStore
	fetcher   JobFetcher
	resumes   storage.ResumeStore
	recorder  *metrics.Recorder
	validate  *validator.Validate
	maxUpload int64
	now       func() time.Time
}

// NewAnalyzeHandler creates an analyze handler. resumes and recorder may be nil.
func NewAnalyzeHandler(store AnalysisStore, fetcher JobFetcher, resumes storage.ResumeStore, recorder *metrics.Recorder, maxUpload int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		store:     store,
		fetcher:   fetcher,
		resumes:   resumes,
		recorder:  recorder,
		validate:  validation.New(),
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

type analyzeRequest struct {
	ResumeText        string `json:"resume_text" validate:"max=200000"`
	JobDescription    string `json:"job_description" validate:"max=200000"`
	JobDescriptionURL string `json:"job_description_url" validate:"omitempty,http_url"`
	Save              bool   `json:"save"`
	ApplicationID     string `json:"application_id" validate:"omitempty,uuid"`
}

// uploadedResume is a resume file received as a multipart part.
type uploadedResume struct {
	filename    string
	contentType string
	data        []byte
}

type analyzeResponse struct {
	analyzer.Report
	Band     analyzer.Band    `json:"band"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
}

// requestError is an input problem with its HTTP status.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(status int, message string) error {
	return &requestError{status: status, message: message}
}

// parseAnalyzeRequest reads a JSON body or a multipart form whose "resume"
// part is a text, PDF or DOCX file.
func (h *AnalyzeHandler) parseAnalyzeRequest(c fiber.Ctx) (analyzeRequest, *uploadedResume, error) {
	var req analyzeRequest

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return req, nil, badRequest(fiber.StatusBadRequest, "invalid request body")
		}
		return req, nil, nil
	}

	req.ResumeText = c.FormValue("resume_text")
	req.JobDescription = c.FormValue("job_description")
	req.JobDescriptionURL = c.FormValue("job_description_url")
	req.ApplicationID = c.FormValue("application_id")
	if v := c.FormValue("save"); v != "" {
		save, err := strconv.ParseBool(v)
		if err != nil {
			return req, nil, badRequest(fiber.StatusBadRequest, "save must be a boolean")
		}
		req.Save = save
	}

	fh, err := c.FormFile("resume")
	if err != nil {
		// No file part: resume_text must carry the resume.
		return req, nil, nil
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return req, nil, badRequest(fiber.StatusRequestEntityTooLarge, "resume file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return req, nil, badRequest(fiber.StatusBadRequest, "failed to read resume file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return req, nil, badRequest(fiber.StatusBadRequest, "failed to read resume file")
	}

	return req, &uploadedResume{
		filename:    fh.Filename,
		contentType: fh.Header.Get(fiber.HeaderContentType),
		data:        data,
	}, nil
}

// resolveInputs returns the resume and job description texts.
func (h *AnalyzeHandler) resolveInputs(ctx context.Context, req analyzeRequest, upload *uploadedResume) (string, string, error) {
	resume := req.ResumeText
	if upload != nil {
		text, err := ingest.ExtractText(upload.filename, upload.contentType, upload.data)
		if err != nil {
			if errors.Is(err, ingest.ErrUnsupportedFormat) {
				return "", "", badRequest(fiber.StatusUnsupportedMediaType, err.Error())
			}
			return "", "", badRequest(fiber.StatusUnprocessableEntity, "could not read resume file: "+err.Error())
		}
		resume = text
	}

	jd := req.JobDescription
	if strings.TrimSpace(jd) == "" && req.JobDescriptionURL != "" {
		if h.fetcher == nil {
			return "", "", badRequest(fiber.StatusBadRequest, "fetching job descriptions is disabled")
		}
		text, err := h.fetcher.FetchJobDescription(ctx, req.JobDescriptionURL)
		if err != nil {
			var ferr *ingest.FetchError
			if errors.As(err, &ferr) {
				return "", "", badRequest(fiber.StatusBadGateway, "failed to fetch job description: "+ferr.Message)
			}
			return "", "", badRequest(fiber.StatusBadGateway, "failed to fetch job description")
		}
		jd = text
	}

	if strings.TrimSpace(resume) == "" {
		return "", "", badRequest(fiber.StatusBadRequest, "resume is required")
	}
	if strings.TrimSpace(jd) == "" {
		return "", "", badRequest(fiber.StatusBadRequest, "job description is required")
	}
	return resume, jd, nil
}

// Analyze compares a resume against a job description and optionally saves
// the report to the user's history.
func (h *AnalyzeHandler) Analyze(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	req, upload, err := h.parseAnalyzeRequest(c)
	if err != nil {
		return h.writeRequestError(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, validation.Describe(err))
	}

	var applicationID *uuid.UUID
	if req.ApplicationID != "" {
		id, err := uuid.Parse(req.ApplicationID)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "application_id must be a valid id")
		}
		if _, err := h.store.GetApplication(c.Context(), user.ID, id); err != nil {
			if errors.Is(err, db.ErrApplicationNotFound) {
				return jsonError(c, fiber.StatusNotFound, "application not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "failed to fetch application")
		}
		applicationID = &id
	}

	resume, jd, err := h.resolveInputs(c.Context(), req, upload)
	if err != nil {
		return h.writeRequestError(c, err)
	}

	report := analyzer.Analyze(resume, jd)
	h.recorder.RecordAnalysis(report)

	resp := analyzeResponse{Report: report, Band: report.Band()}
	if !req.Save {
		return jsonSuccess(c, resp)
	}

	analysis := &models.Analysis{
		UserID:          user.ID,
		ApplicationID:   applicationID,
		MatchPercentage: report.MatchPercentage,
		Band:            string(report.Band()),
		MatchedKeywords: report.MatchedKeywords,
		MissingKeywords: report.MissingKeywords,
		Suggestions:     report.Suggestions,
	}

	if upload != nil && h.resumes != nil {
		key := storage.ResumeKey(user.ID, upload.filename, h.now())
		if err := h.resumes.PutResume(c.Context(), key, upload.contentType, upload.data); err != nil {
			slog.Warn("failed to archive resume", "user_id", user.ID, "key", key, "error", err)
		} else {
			analysis.ResumeObjectKey = key
		}
	}

	if err := h.store.CreateAnalysis(c.Context(), analysis); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to save analysis")
	}
	resp.Analysis = analysis

	return jsonCreated(c, resp)
}

func (h *AnalyzeHandler) writeRequestError(c fiber.Ctx, err error) error {
	var rerr *requestError
	if errors.As(err, &rerr) {
		return jsonError(c, rerr.status, rerr.message)
	}
	return jsonError(c, fiber.StatusInternalServerError, "failed to process request")
}

// ListAnalyses returns the user's saved reports, newest first.
func (h *AnalyzeHandler) ListAnalyses(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	limit := db.DefaultAnalysisLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return jsonError(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxAnalysesLimit)
	}

	analyses, err := h.store.ListAnalyses(c.Context(), user.ID, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch analyses")
	}
	if analyses == nil {
		analyses = []models.Analysis{}
	}

	return jsonSuccess(c, analyses)
}

// GetAnalysis returns a single saved report.
func (h *AnalyzeHandler) GetAnalysis(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	id, ok := paramID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	analysis, err := h.store.GetAnalysis(c.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrAnalysisNotFound) {
			return jsonError(c, fiber.StatusNotFound, "analysis not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch analysis")
	}

	return jsonSuccess(c, analysis)
}

// DeleteAnalysis removes a saved report.
func (h *AnalyzeHandler) DeleteAnalysis(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	id, ok := paramID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid analysis id")
	}

	if err := h.store.DeleteAnalysis(c.Context(), user.ID, id); err != nil {
		if errors.Is(err, db.ErrAnalysisNotFound) {
			return jsonError(c, fiber.StatusNotFound, "analysis not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete analysis")
	}

	return jsonSuccess(c, fiber.Map{"deleted": 1})
}
