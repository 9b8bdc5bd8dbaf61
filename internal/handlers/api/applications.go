package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"jobtracker/internal/db"
	"jobtracker/internal/events"
	"jobtracker/internal/models"
	"jobtracker/internal/validation"
)

// ApplicationStore is the persistence used by the application endpoints.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, userID, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, userID uuid.UUID, filter models.ApplicationFilter) ([]models.Application, error)
	UpdateApplication(ctx context.Context, userID, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error)
	DeleteApplication(ctx context.Context, userID, id uuid.UUID) error
	DeleteApplications(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	InsertApplications(ctx context.Context, userID uuid.UUID, apps []models.Application) error
}

// ApplicationHandler handles application CRUD via JSON API.
type ApplicationHandler struct {
	store    ApplicationStore
	events   events.Publisher
	validate *validator.Validate
	now      func() time.Time
}

// NewApplicationHandler creates a new application handler. publisher may be nil.
func NewApplicationHandler(store ApplicationStore, publisher events.Publisher) *ApplicationHandler {
	return &ApplicationHandler{
		store:    store,
		events:   publisher,
		validate: validation.New(),
		now:      time.Now,
	}
}

func (h *ApplicationHandler) publish(ctx context.Context, e events.Event) {
	if h.events != nil {
		h.events.Publish(ctx, e)
	}
}

type createApplicationRequest struct {
	Company     string `json:"company" validate:"required,max=200"`
	Role        string `json:"role" validate:"required,max=200"`
	Status      string `json:"status" validate:"omitempty,app_status"`
	AppliedDate string `json:"applied_date" validate:"omitempty,app_date"`
	Notes       string `json:"notes" validate:"max=5000"`
}

func (r *createApplicationRequest) trim() {
	r.Company = strings.TrimSpace(r.Company)
	r.Role = strings.TrimSpace(r.Role)
	r.Status = strings.TrimSpace(r.Status)
	r.AppliedDate = strings.TrimSpace(r.AppliedDate)
}

type updateApplicationRequest struct {
	Company     *string `json:"company" validate:"omitnil,min=1,max=200"`
	Role        *string `json:"role" validate:"omitnil,min=1,max=200"`
	Status      *string `json:"status" validate:"omitnil,app_status"`
	AppliedDate *string `json:"applied_date" validate:"omitnil,app_date"`
	Notes       *string `json:"notes" validate:"omitnil,max=5000"`
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (r *updateApplicationRequest) toUpdate() models.ApplicationUpdate {
	update := models.ApplicationUpdate{
		Company: r.Company,
		Role:    r.Role,
		Notes:   r.Notes,
	}
	if r.Status != nil {
		status, _ := models.NormalizeStatus(*r.Status)
		update.Status = &status
	}
	if r.AppliedDate != nil {
		date, _ := models.ParseAppliedDate(*r.AppliedDate)
		update.AppliedDate = &date
	}
	return update
}

// List returns the user's applications, filtered by ?q=, ?status= and
// ordered by ?sort=.
func (h *ApplicationHandler) List(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	filter := models.ApplicationFilter{
		Query:  c.Query("q"),
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
	}
	if err := filter.Normalize(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	apps, err := h.store.ListApplications(c.Context(), user.ID, filter)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch applications")
	}
	if apps == nil {
		apps = []models.Application{}
	}

	return jsonSuccess(c, apps)
}

// Get returns a single application by ID.
func (h *ApplicationHandler) Get(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	id, ok := paramID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid application id")
	}

	app, err := h.store.GetApplication(c.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, db.ErrApplicationNotFound) {
			return jsonError(c, fiber.StatusNotFound, "application not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch application")
	}

	return jsonSuccess(c, app)
}

// Create creates a new application.
func (h *ApplicationHandler) Create(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	var body createApplicationRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	body.trim()
	if err := h.validate.Struct(body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, validation.Describe(err))
	}

	app := &models.Application{
		UserID:  user.ID,
		Company: body.Company,
		Role:    body.Role,
		Status:  models.StatusApplied,
		Notes:   body.Notes,
	}
	if body.Status != "" {
		app.Status, _ = models.NormalizeStatus(body.Status)
	}
	if body.AppliedDate != "" {
		app.AppliedDate, _ = models.ParseAppliedDate(body.AppliedDate)
	} else {
		now := h.now().UTC()
		app.AppliedDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	if err := h.store.CreateApplication(c.Context(), app); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to create application")
	}

	h.publish(c.Context(), events.Event{
		Type:          events.ApplicationCreated,
		UserID:        user.ID,
		ApplicationID: &app.ID,
		Application:   app,
	})

	return jsonCreated(c, app)
}

// Update applies a partial update to an application.
func (h *ApplicationHandler) Update(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	id, ok := paramID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid application id")
	}

	var body updateApplicationRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	for _, s := range []*string{body.Company, body.Role, body.Status, body.AppliedDate} {
		trimPtr(s)
	}
	if err := h.validate.Struct(body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, validation.Describe(err))
	}

	update := body.toUpdate()
	if update.IsEmpty() {
		return jsonError(c, fiber.StatusBadRequest, "no fields to update")
	}

	app, err := h.store.UpdateApplication(c.Context(), user.ID, id, update)
	if err != nil {
		if errors.Is(err, db.ErrApplicationNotFound) {
			return jsonError(c, fiber.StatusNotFound, "application not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to update application")
	}

	h.publish(c.Context(), events.Event{
		Type:          events.ApplicationUpdated,
		UserID:        user.ID,
		ApplicationID: &app.ID,
		Application:   app,
	})

	return jsonSuccess(c, app)
}

// Delete removes an application.
func (h *ApplicationHandler) Delete(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	id, ok := paramID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid application id")
	}

	if err := h.store.DeleteApplication(c.Context(), user.ID, id); err != nil {
		if errors.Is(err, db.ErrApplicationNotFound) {
			return jsonError(c, fiber.StatusNotFound, "application not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete application")
	}

	h.publish(c.Context(), events.Event{
		Type:          events.ApplicationDeleted,
		UserID:        user.ID,
		ApplicationID: &id,
		Count:         1,
	})

	return jsonSuccess(c, fiber.Map{"deleted": 1})
}

type batchDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

// BatchDelete removes several applications at once. Unknown ids are ignored.
func (h *ApplicationHandler) BatchDelete(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	var body batchDeleteRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, validation.Describe(err))
	}

	deleted, err := h.store.DeleteApplications(c.Context(), user.ID, body.IDs)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete applications")
	}

	if deleted > 0 {
		h.publish(c.Context(), events.Event{
			Type:   events.ApplicationDeleted,
			UserID: user.ID,
			Count:  int(deleted),
		})
	}

	return jsonSuccess(c, fiber.Map{"deleted": deleted})
}
