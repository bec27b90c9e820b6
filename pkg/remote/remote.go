// Package remote talks to the authoritative task store. The store is an
// optional collaborator: it is resolved once at startup and may be absent
// entirely, in which case the core runs against the local cache alone.
package remote

import (
	"context"
	"errors"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

var (
	// ErrUnavailable covers network failures, timeouts and non-2xx service
	// responses. Callers fall back to local persistence; never fatal.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrNotAuthenticated blocks all remote operations until login.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound means the row is absent on update/delete. Treated as a
	// no-op by callers, not a halt.
	ErrNotFound = errors.New("task not found")
)

// Backend is the remote CRUD contract over the user-scoped tasks table.
type Backend interface {
	// ListTasks fetches the full snapshot for the owning user, newest first.
	ListTasks(ctx context.Context) ([]model.Task, error)
	// CreateTask inserts the task and returns the stored copy (the store may
	// assign its own id).
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	// UpdateTask applies a partial update to the row with the given id.
	UpdateTask(ctx context.Context, id string, p model.Patch) error
	// DeleteTask removes the row with the given id.
	DeleteTask(ctx context.Context, id string) error
}

// TokenProvider supplies the bearer credential for each call. Implemented by
// the auth session; kept as an interface so backends stay testable.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	UserID() string
}
