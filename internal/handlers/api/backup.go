package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"

	"jobtracker/internal/backup"
	"jobtracker/internal/events"
	"jobtracker/internal/models"
	"jobtracker/internal/stats"
)

// Stats returns dashboard statistics for the user's applications.
func (h *ApplicationHandler) Stats(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	apps, err := h.store.ListApplications(c.Context(), user.ID, models.ApplicationFilter{Sort: models.SortByDate})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch applications")
	}

	return jsonSuccess(c, stats.Compute(apps, h.now()))
}

// Export downloads every application as a JSON backup document.
func (h *ApplicationHandler) Export(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	apps, err := h.store.ListApplications(c.Context(), user.ID, models.ApplicationFilter{Sort: models.SortByDate})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch applications")
	}

	now := h.now()
	data, err := backup.Export(user.ID, apps, now)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to build export")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="job-applications-%s.json"`, now.UTC().Format(models.DateLayout)))
	return c.Send(data)
}

// importBody returns the backup document from a multipart "file" part or the
// raw request body.
func importBody(c fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return c.Body(), nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New("missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Import adds the applications from a JSON backup document. Existing
// applications are kept; imported ones get fresh ids.
func (h *ApplicationHandler) Import(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	data, err := importBody(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	apps, err := backup.Parse(data)
	if err != nil {
		var verr *backup.ValidationError
		if errors.As(err, &verr) {
			return jsonErrorDetails(c, fiber.StatusUnprocessableEntity, "invalid backup file", verr.Errors)
		}
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	if len(apps) > 0 {
		if err := h.store.InsertApplications(c.Context(), user.ID, apps); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "failed to import applications")
		}
		h.publish(c.Context(), events.Event{
			Type:   events.ApplicationImported,
			UserID: user.ID,
			Count:  len(apps),
		})
	}

	return jsonSuccess(c, fiber.Map{"imported": len(apps)})
}
