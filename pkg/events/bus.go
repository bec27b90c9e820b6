// Package events is the typed pub/sub channel between the sync core and its
// consumers (dashboard relay, projector). The event set is fixed; payloads are
// plain data so subscribers can serialize them as-is.
package events

import (
	"sync"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

type Type string

const (
	TaskAdded         Type = "taskAdded"
	TaskDeleted       Type = "taskDeleted"
	TaskStatusChanged Type = "taskStatusChanged"
	SyncCompleted     Type = "syncCompleted"
	DataUpdate        Type = "data-update"
	Error             Type = "error"
)

// Event carries one notification. Only the fields relevant to its Type are
// set; the rest stay zero.
type Event struct {
	Type Type `json:"type"`

	// TaskAdded / TaskDeleted / TaskStatusChanged
	TaskID    string       `json:"taskId,omitempty"`
	OldStatus model.Status `json:"oldStatus,omitempty"`
	NewStatus model.Status `json:"newStatus,omitempty"`
	Task      *model.Task  `json:"task,omitempty"`

	// SyncCompleted / DataUpdate
	TasksByCategory model.Collection        `json:"tasksByCategory,omitempty"`
	TasksByDate     map[string][]model.Task `json:"tasksByDate,omitempty"`

	// Error
	Message string `json:"message,omitempty"`

	At time.Time `json:"at"`
}

type Handler func(Event)

// Bus fans events out to subscribers synchronously, in subscription order.
// Handlers must not block; slow consumers buffer on their own side.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every event. There is no unsubscribe:
// subscribers live for the process, matching how the core is wired at startup.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// PublishError is shorthand for the failure notifications background
// processes emit instead of letting errors escape.
func (b *Bus) PublishError(msg string) {
	b.Publish(Event{Type: Error, Message: msg})
}
