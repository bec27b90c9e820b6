// Package persist records task state across two tiers: the authoritative
// remote store and the local cache. The local write always happens regardless
// of remote outcome; it is the availability fallback the UI reads when the
// remote is unreachable.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/cache"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/remote"
)

type Adapter struct {
	backend remote.Backend // nil when no remote store is configured
	local   *cache.Store
}

func NewAdapter(backend remote.Backend, local *cache.Store) *Adapter {
	return &Adapter{backend: backend, local: local}
}

// HasRemote reports whether a remote backend was configured at startup.
func (a *Adapter) HasRemote() bool {
	return a.backend != nil
}

// CreateRemote writes a new task to the remote store. Callers fall back to
// local-only persistence on error and must not block the UI on it.
func (a *Adapter) CreateRemote(ctx context.Context, t model.Task) (model.Task, error) {
	if a.backend == nil {
		return model.Task{}, remote.ErrUnavailable
	}
	return a.backend.CreateTask(ctx, t)
}

// UpdateRemote applies a partial update to the remote row.
func (a *Adapter) UpdateRemote(ctx context.Context, id string, p model.Patch) error {
	if a.backend == nil {
		return remote.ErrUnavailable
	}
	return a.backend.UpdateTask(ctx, id, p)
}

// DeleteRemote removes the remote row.
func (a *Adapter) DeleteRemote(ctx context.Context, id string) error {
	if a.backend == nil {
		return remote.ErrUnavailable
	}
	return a.backend.DeleteTask(ctx, id)
}

// FetchRemote pulls the full remote snapshot for the current user.
func (a *Adapter) FetchRemote(ctx context.Context) ([]model.Task, error) {
	if a.backend == nil {
		return nil, remote.ErrUnavailable
	}
	return a.backend.ListTasks(ctx)
}

// WriteLocal serializes the full collection to the durable local store.
func (a *Adapter) WriteLocal(c model.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize task collection: %w", err)
	}
	return a.local.Put(cache.KeyTasks, string(data))
}

// ReadLocal loads the last written collection. A never-written store yields
// an empty collection, not an error.
func (a *Adapter) ReadLocal() (model.Collection, error) {
	raw, ok, err := a.local.Get(cache.KeyTasks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.NewCollection(), nil
	}
	var c model.Collection
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("failed to decode cached task collection: %w", err)
	}
	for _, cat := range model.Categories {
		if _, present := c[cat]; !present {
			c[cat] = nil
		}
	}
	return c, nil
}

// WriteDayIndex persists the derived date → tasks cache for calendar
// consumers. It is rebuilt from scratch by the syncer, never patched.
func (a *Adapter) WriteDayIndex(idx map[string][]model.Task) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to serialize day index: %w", err)
	}
	return a.local.Put(cache.KeyTasksByDate, string(data))
}

// ReadDayIndex loads the cached day buckets.
func (a *Adapter) ReadDayIndex() (map[string][]model.Task, error) {
	raw, ok, err := a.local.Get(cache.KeyTasksByDate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string][]model.Task{}, nil
	}
	var idx map[string][]model.Task
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		return nil, fmt.Errorf("failed to decode cached day index: %w", err)
	}
	return idx, nil
}
