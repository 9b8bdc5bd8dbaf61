package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"jobtracker/internal/events"
	"jobtracker/internal/models"
)

const (
	eventBuffer       = 32
	keepaliveInterval = 25 * time.Second
)

// Subscriber opens a per-user event subscription.
type Subscriber interface {
	Channel(userID uuid.UUID, buffer int) (<-chan events.Event, func())
}

// EventsHandler streams application changes to the browser as Server-Sent
// Events.
type EventsHandler struct {
	store     ApplicationStore
	broker    Subscriber
	keepalive time.Duration
	done      <-chan struct{}
}

// NewEventsHandler creates an events handler. Open streams end when done is
// closed.
func NewEventsHandler(store ApplicationStore, broker Subscriber, done <-chan struct{}) *EventsHandler {
	return &EventsHandler{
		store:     store,
		broker:    broker,
		keepalive: keepaliveInterval,
		done:      done,
	}
}

// Stream sends a "snapshot" event with the user's current applications
// followed by one event per change.
func (h *EventsHandler) Stream(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}

	// Subscribe before reading the snapshot so no change falls between them.
	ch, unsubscribe := h.broker.Channel(user.ID, eventBuffer)

	snapshot, err := h.store.ListApplications(c.Context(), user.ID, models.ApplicationFilter{Sort: models.SortByDate})
	if err != nil {
		unsubscribe()
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch applications")
	}
	if snapshot == nil {
		snapshot = []models.Application{}
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	userID := user.ID
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		if err := streamEvents(w, snapshot, ch, h.keepalive, h.done); err != nil {
			slog.Debug("event stream closed", "user_id", userID, "error", err)
		}
	})
}

// streamEvents writes the snapshot and then relays events until done is
// closed or a write fails.
func streamEvents(w *bufio.Writer, snapshot []models.Application, ch <-chan events.Event, keepalive time.Duration, done <-chan struct{}) error {
	if err := writeEvent(w, "snapshot", snapshot); err != nil {
		return err
	}

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return context.Canceled
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeEvent(w, string(e.Type), e); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return w.Flush()
}
