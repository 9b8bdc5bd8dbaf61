package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/analyzer"
	"jobtracker/internal/ingest"
	"jobtracker/internal/models"
)

const (
	scenarioResume = "Experienced React engineer, 5 years AWS, worked in Agile teams."
	scenarioJD     = "We need a React developer with AWS and Agile experience. Machine Learning is a plus."
)

type fakeFetcher struct {
	text string
	err  error
	urls []string
}

func (f *fakeFetcher) FetchJobDescription(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

type fakeResumeStore struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
	err  error
}

func (s *fakeResumeStore) PutResume(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.keys = append(s.keys, key)
	s.data[key] = data
	return nil
}

type analyzeFixture struct {
	app     *fiber.App
	store   *memStore
	fetcher *fakeFetcher
	resumes *fakeResumeStore
	user    *models.User
}

func newAnalyzeFixture(user *models.User) *analyzeFixture {
	f := &analyzeFixture{
		store:   newMemStore(),
		fetcher: &fakeFetcher{},
		resumes: &fakeResumeStore{},
		user:    user,
	}
	h := NewAnalyzeHandler(f.store, f.fetcher, f.resumes, nil, 1024)
	h.now = func() time.Time { return testNow }

	f.app = fiber.New()
	api := f.app.Group("/api", withUser(user))
	api.Post("/analyze", h.Analyze)
	api.Get("/analyses", h.ListAnalyses)
	api.Get("/analyses/:id", h.GetAnalysis)
	api.Delete("/analyses/:id", h.DeleteAnalysis)
	return f
}

type analyzeResult struct {
	MatchPercentage int              `json:"match_percentage"`
	MatchedKeywords []string         `json:"matched_keywords"`
	MissingKeywords []string         `json:"missing_keywords"`
	Suggestions     []string         `json:"suggestions"`
	Band            string           `json:"band"`
	Analysis        *models.Analysis `json:"analysis"`
}

func TestAnalyze_JSON(t *testing.T) {
	f := newAnalyzeFixture(testUser())

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", map[string]any{
		"resume_text":     scenarioResume,
		"job_description": scenarioJD,
	}))

	require.Equal(t, 200, resp.StatusCode)
	got := decode[analyzeResult](t, env.Data)
	want := analyzer.Analyze(scenarioResume, scenarioJD)
	assert.Equal(t, 50, got.MatchPercentage)
	assert.Equal(t, "good", got.Band)
	assert.Equal(t, []string{"react", "aws", "agile"}, got.MatchedKeywords)
	assert.Equal(t, want.MissingKeywords, got.MissingKeywords)
	assert.Equal(t, want.Suggestions, got.Suggestions)
	assert.Nil(t, got.Analysis)
	assert.Empty(t, f.store.analyses)
}

func TestAnalyze_Save(t *testing.T) {
	f := newAnalyzeFixture(testUser())
	app := f.store.add(models.Application{UserID: f.user.ID, Company: "Acme", Role: "Dev", Status: models.StatusApplied})

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", map[string]any{
		"resume_text":     scenarioResume,
		"job_description": scenarioJD,
		"save":            true,
		"application_id":  app.ID.String(),
	}))

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	got := decode[analyzeResult](t, env.Data)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, 50, got.Analysis.MatchPercentage)
	assert.Equal(t, "good", got.Analysis.Band)
	require.NotNil(t, got.Analysis.ApplicationID)
	assert.Equal(t, app.ID, *got.Analysis.ApplicationID)
	assert.Empty(t, got.Analysis.ResumeObjectKey)
	assert.Len(t, f.store.analyses, 1)
}

func TestAnalyze_InputErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantErr    string
	}{
		{"malformed", `{"resume_text":`, 400, "invalid request body"},
		{"missing resume", map[string]any{"job_description": scenarioJD}, 400, "resume is required"},
		{"blank job description", map[string]any{"resume_text": scenarioResume, "job_description": "  "}, 400, "job description is required"},
		{"bad url", map[string]any{"resume_text": scenarioResume, "job_description_url": "ftp://x"}, 400, "job_description_url must be a valid URL"},
		{"bad application id", map[string]any{"resume_text": scenarioResume, "job_description": scenarioJD, "application_id": "x"}, 400, "application_id must be a valid id"},
		{"unknown application", map[string]any{"resume_text": scenarioResume, "job_description": scenarioJD, "application_id": uuid.NewString()}, 404, "application not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalyzeFixture(testUser())

			resp, env := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", tt.body))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestAnalyze_FetchesJobDescriptionURL(t *testing.T) {
	f := newAnalyzeFixture(testUser())
	f.fetcher.text = scenarioJD

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", map[string]any{
		"resume_text":         scenarioResume,
		"job_description_url": "https://jobs.example.com/123",
	}))

	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"https://jobs.example.com/123"}, f.fetcher.urls)
	assert.Equal(t, 50, decode[analyzeResult](t, env.Data).MatchPercentage)
}

func TestAnalyze_TextWinsOverURL(t *testing.T) {
	f := newAnalyzeFixture(testUser())

	resp, _ := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", map[string]any{
		"resume_text":         scenarioResume,
		"job_description":     scenarioJD,
		"job_description_url": "https://jobs.example.com/123",
	}))

	require.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, f.fetcher.urls)
}

func TestAnalyze_FetchError(t *testing.T) {
	f := newAnalyzeFixture(testUser())
	f.fetcher.err = &ingest.FetchError{URL: "https://jobs.example.com/123", Message: "unexpected status 404"}

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodPost, "/api/analyze", map[string]any{
		"resume_text":         scenarioResume,
		"job_description_url": "https://jobs.example.com/123",
	}))

	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "failed to fetch job description: unexpected status 404", env.Error)
}

func TestAnalyze_MultipartResumeFile(t *testing.T) {
	f := newAnalyzeFixture(testUser())

	req := multipartRequest(t, "/api/analyze", map[string]string{
		"job_description": scenarioJD,
		"save":            "true",
	}, formFile{field: "resume", filename: "cv.txt", contentType: "text/plain", data: []byte(scenarioResume)})
	resp, env := doRequest(t, f.app, req)

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	got := decode[analyzeResult](t, env.Data)
	assert.Equal(t, 50, got.MatchPercentage)
	require.NotNil(t, got.Analysis)
	require.Len(t, f.resumes.keys, 1)
	assert.Equal(t, f.resumes.keys[0], got.Analysis.ResumeObjectKey)
	assert.Contains(t, got.Analysis.ResumeObjectKey, "resumes/"+f.user.ID.String()+"/")
	assert.Equal(t, []byte(scenarioResume), f.resumes.data[got.Analysis.ResumeObjectKey])
}

func TestAnalyze_ArchiveFailureStillSaves(t *testing.T) {
	f := newAnalyzeFixture(testUser())
	f.resumes.err = errors.New("bucket missing")

	req := multipartRequest(t, "/api/analyze", map[string]string{
		"job_description": scenarioJD,
		"save":            "1",
	}, formFile{field: "resume", filename: "cv.txt", contentType: "text/plain", data: []byte(scenarioResume)})
	resp, env := doRequest(t, f.app, req)

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	got := decode[analyzeResult](t, env.Data)
	require.NotNil(t, got.Analysis)
	assert.Empty(t, got.Analysis.ResumeObjectKey)
}

func TestAnalyze_MultipartErrors(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		file       formFile
		wantStatus int
	}{
		{
			name:       "unsupported format",
			fields:     map[string]string{"job_description": scenarioJD},
			file:       formFile{field: "resume", filename: "cv.png", contentType: "image/png", data: []byte{0x89, 'P', 'N', 'G'}},
			wantStatus: fiber.StatusUnsupportedMediaType,
		},
		{
			name:       "too large",
			fields:     map[string]string{"job_description": scenarioJD},
			file:       formFile{field: "resume", filename: "cv.txt", contentType: "text/plain", data: make([]byte, 2048)},
			wantStatus: fiber.StatusRequestEntityTooLarge,
		},
		{
			name:       "bad save flag",
			fields:     map[string]string{"job_description": scenarioJD, "save": "maybe"},
			file:       formFile{field: "resume", filename: "cv.txt", contentType: "text/plain", data: []byte(scenarioResume)},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "broken pdf",
			fields:     map[string]string{"job_description": scenarioJD},
			file:       formFile{field: "resume", filename: "cv.pdf", contentType: "application/pdf", data: []byte("not a pdf")},
			wantStatus: fiber.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalyzeFixture(testUser())

			resp, env := doRequest(t, f.app, multipartRequest(t, "/api/analyze", tt.fields, tt.file))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
			assert.Empty(t, f.resumes.keys)
		})
	}
}

func TestAnalyses_History(t *testing.T) {
	f := newAnalyzeFixture(testUser())
	mine := models.Analysis{UserID: f.user.ID, MatchPercentage: 50, Band: "good"}
	require.NoError(t, f.store.CreateAnalysis(t.Context(), &mine))
	theirs := models.Analysis{UserID: uuid.New(), MatchPercentage: 10, Band: "poor"}
	require.NoError(t, f.store.CreateAnalysis(t.Context(), &theirs))

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodGet, "/api/analyses", nil))
	require.Equal(t, 200, resp.StatusCode)
	list := decode[[]models.Analysis](t, env.Data)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	resp, _ = doRequest(t, f.app, jsonRequest(http.MethodGet, "/api/analyses?limit=0", nil))
	assert.Equal(t, 400, resp.StatusCode)

	resp, env = doRequest(t, f.app, jsonRequest(http.MethodGet, "/api/analyses/"+mine.ID.String(), nil))
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 50, decode[models.Analysis](t, env.Data).MatchPercentage)

	resp, _ = doRequest(t, f.app, jsonRequest(http.MethodGet, "/api/analyses/"+theirs.ID.String(), nil))
	assert.Equal(t, 404, resp.StatusCode)

	resp, _ = doRequest(t, f.app, jsonRequest(http.MethodDelete, "/api/analyses/"+mine.ID.String(), nil))
	require.Equal(t, 200, resp.StatusCode)
	resp, _ = doRequest(t, f.app, jsonRequest(http.MethodDelete, "/api/analyses/"+mine.ID.String(), nil))
	assert.Equal(t, 404, resp.StatusCode)
}

func TestAnalyses_EmptyHistoryIsArray(t *testing.T) {
	f := newAnalyzeFixture(testUser())

	resp, env := doRequest(t, f.app, jsonRequest(http.MethodGet, "/api/analyses", nil))

	require.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(env.Data))
}
