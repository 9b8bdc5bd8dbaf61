package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/db"
	"jobtracker/internal/events"
	"jobtracker/internal/models"
)

var testNow = time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

// memStore is an in-memory ApplicationStore and AnalysisStore.
type memStore struct {
	mu       sync.Mutex
	apps     map[uuid.UUID]models.Application
	analyses map[uuid.UUID]models.Analysis
	failList bool
}

func newMemStore() *memStore {
	return &memStore{
		apps:     make(map[uuid.UUID]models.Application),
		analyses: make(map[uuid.UUID]models.Analysis),
	}
}

func (s *memStore) add(app models.Application) models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	s.apps[app.ID] = app
	return app
}

func (s *memStore) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.ID = uuid.New()
	app.CreatedAt = testNow
	app.UpdatedAt = testNow
	s.apps[app.ID] = *app
	return nil
}

func (s *memStore) GetApplication(_ context.Context, userID, id uuid.UUID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.UserID != userID {
		return nil, db.ErrApplicationNotFound
	}
	return &app, nil
}

func (s *memStore) ListApplications(_ context.Context, userID uuid.UUID, filter models.ApplicationFilter) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errors.New("db down")
	}
	q := strings.ToLower(filter.Query)
	var out []models.Application
	for _, app := range s.apps {
		if app.UserID != userID || (filter.Status != "" && app.Status != filter.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(app.Company), q) && !strings.Contains(strings.ToLower(app.Role), q) {
			continue
		}
		out = append(out, app)
	}
	models.SortApplications(out, filter.Sort)
	return out, nil
}

func (s *memStore) UpdateApplication(_ context.Context, userID, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.UserID != userID {
		return nil, db.ErrApplicationNotFound
	}
	if update.Company != nil {
		app.Company = *update.Company
	}
	if update.Role != nil {
		app.Role = *update.Role
	}
	if update.Status != nil {
		app.Status = *update.Status
	}
	if update.AppliedDate != nil {
		app.AppliedDate = *update.AppliedDate
	}
	if update.Notes != nil {
		app.Notes = *update.Notes
	}
	s.apps[id] = app
	return &app, nil
}

func (s *memStore) DeleteApplication(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok || app.UserID != userID {
		return db.ErrApplicationNotFound
	}
	delete(s.apps, id)
	return nil
}

func (s *memStore) DeleteApplications(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if app, ok := s.apps[id]; ok && app.UserID == userID {
			delete(s.apps, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertApplications(_ context.Context, userID uuid.UUID, apps []models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range apps {
		apps[i].ID = uuid.New()
		apps[i].UserID = userID
		s.apps[apps[i].ID] = apps[i]
	}
	return nil
}

func (s *memStore) CreateAnalysis(_ context.Context, a *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = testNow
	s.analyses[a.ID] = *a
	return nil
}

func (s *memStore) ListAnalyses(_ context.Context, userID uuid.UUID, limit int) ([]models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Analysis
	for _, a := range s.analyses {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) GetAnalysis(_ context.Context, userID, id uuid.UUID) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok || a.UserID != userID {
		return nil, db.ErrAnalysisNotFound
	}
	return &a, nil
}

func (s *memStore) DeleteAnalysis(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok || a.UserID != userID {
		return db.ErrAnalysisNotFound
	}
	delete(s.analyses, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// withUser authenticates every request as user; nil leaves it anonymous.
func withUser(user *models.User) fiber.Handler {
	return func(c fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	}
	return resp, env
}

func jsonRequest(method, path string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, _ := json.Marshal(b)
			r = bytes.NewBuffer(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.filename + `"`}
		h["Content-Type"] = []string{f.contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
