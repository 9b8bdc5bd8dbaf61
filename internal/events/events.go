// Package events fans application changes out to live subscribers and to
// optional external sinks.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobtracker/internal/models"
)

// Type names a change event.
type Type string

// Event types
const (
	ApplicationCreated  Type = "application.created"
	ApplicationUpdated  Type = "application.updated"
	ApplicationDeleted  Type = "application.deleted"
	ApplicationImported Type = "application.imported"
)

// Event describes a change to a user's applications.
type Event struct {
	Type          Type                `json:"type"`
	UserID        uuid.UUID           `json:"user_id"`
	ApplicationID *uuid.UUID          `json:"application_id,omitempty"`
	Application   *models.Application `json:"application,omitempty"`
	Count         int                 `json:"count,omitempty"`
	At            time.Time           `json:"at"`
}

// Sink receives every published event, after local subscribers.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Publisher is the write side of a Broker.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Broker delivers events to the subscribers of the event's owner.
// Subscriber callbacks run on the publishing goroutine and must not block.
type Broker struct {
	mu    sync.RWMutex
	next  int
	subs  map[uuid.UUID]map[int]func(Event)
	sinks []Sink
}

// NewBroker creates a broker forwarding to the given sinks.
func NewBroker(sinks ...Sink) *Broker {
	return &Broker{
		subs:  make(map[uuid.UUID]map[int]func(Event)),
		sinks: sinks,
	}
}

// Subscribe registers fn for events owned by userID. The returned function
// removes the subscription and is safe to call more than once.
func (b *Broker) Subscribe(userID uuid.UUID, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]func(Event))
	}
	b.subs[userID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
}

// Channel subscribes with a buffered channel. Events arriving while the
// buffer is full are dropped.
func (b *Broker) Channel(userID uuid.UUID, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	unsubscribe := b.Subscribe(userID, func(e Event) {
		select {
		case ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "type", e.Type, "user_id", e.UserID)
		}
	})
	return ch, unsubscribe
}

// SubscriberCount returns the number of live subscriptions for userID.
func (b *Broker) SubscriberCount(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Publish delivers e to the owner's subscribers and then to every sink.
// Sink failures are logged and do not affect delivery.
func (b *Broker) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[e.UserID]))
	for _, fn := range b.subs[e.UserID] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(e)
	}

	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, e); err != nil {
			slog.Error("event sink publish failed", "type", e.Type, "error", err)
		}
	}
}
