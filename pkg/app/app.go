// Package app wires the user-initiated operations: every add, edit, delete
// and status change flows store → persistence → notifications from here.
// Remote failures downgrade to local-only persistence so the UI always
// reflects the user's intent.
package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/aggregate"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/persist"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/reconcile"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/remote"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/store"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/syncer"
)

// ErrNotFound is returned when an operation names a task id the store does
// not hold. Callers log it and move on; it never halts other processing.
var ErrNotFound = errors.New("task not found")

type App struct {
	Store      *store.TaskStore
	Adapter    *persist.Adapter
	Bus        *events.Bus
	Reconciler *reconcile.Reconciler
	Syncer     *syncer.Coordinator
	Projector  *aggregate.Projector
}

func New(s *store.TaskStore, a *persist.Adapter, bus *events.Bus, r *reconcile.Reconciler, c *syncer.Coordinator, p *aggregate.Projector) *App {
	return &App{Store: s, Adapter: a, Bus: bus, Reconciler: r, Syncer: c, Projector: p}
}

// LoadLocal seeds the store from the last locally persisted snapshot. Called
// at startup and harmless when nothing was ever written.
func (a *App) LoadLocal() error {
	collection, err := a.Adapter.ReadLocal()
	if err != nil {
		return err
	}
	a.Store.ReplaceAll(collection)
	return nil
}

// TaskInput is what the dashboard submits for a create or edit.
type TaskInput struct {
	Text      string
	Category  model.Category
	StartDate time.Time
	EndDate   time.Time
	Pinned    bool
}

// AddTask validates and creates a task. The remote store may assign its own
// id; offline creation keeps the locally minted one until the next push.
func (a *App) AddTask(ctx context.Context, in TaskInput) (model.Task, error) {
	now := time.Now().UTC()
	t := model.Task{
		ID:        model.NewLocalID(now),
		Text:      in.Text,
		Category:  in.Category,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    model.StatusPending,
		Pinned:    in.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	if a.Adapter.HasRemote() {
		created, err := a.Adapter.CreateRemote(ctx, t)
		if err != nil {
			a.warnLocalOnly("create", err)
		} else {
			t = created
		}
	}

	a.Store.Upsert(t)
	a.persistLocal()
	task := t
	a.Bus.Publish(events.Event{Type: events.TaskAdded, TaskID: t.ID, Task: &task})
	a.notifyDataUpdate()
	a.Reconciler.Kick()
	return t, nil
}

// UpdateTask edits the mutable fields of an existing task. A changed
// category moves the task between buckets; the store guarantees it never
// lives in two.
func (a *App) UpdateTask(ctx context.Context, id string, in TaskInput) (model.Task, error) {
	t, _, ok := a.Store.FindByID(id)
	if !ok {
		log.Printf("Update of unknown task %s ignored", id)
		return model.Task{}, ErrNotFound
	}

	t.Text = in.Text
	t.Category = in.Category
	t.StartDate = in.StartDate
	t.EndDate = in.EndDate
	t.Pinned = in.Pinned
	t.UpdatedAt = time.Now().UTC()
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	if a.Adapter.HasRemote() {
		if err := a.Adapter.UpdateRemote(ctx, id, model.EditPatch(t)); err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				log.Printf("Task %s not on remote yet; next sync will push it", id)
			} else {
				a.warnLocalOnly("update", err)
			}
		}
	}

	a.Store.Upsert(t)
	a.persistLocal()
	a.notifyDataUpdate()
	a.Reconciler.Kick()
	return t, nil
}

// SetStatus applies a user-driven status change. These are accepted
// unconditionally, including away from finished. Completing stamps
// CompletedAt once; repeated completes do not reset the clock, and leaving
// finished does not erase FinishedAt.
func (a *App) SetStatus(ctx context.Context, id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, model.ErrInvalidTask
	}
	t, _, ok := a.Store.FindByID(id)
	if !ok {
		log.Printf("Status change for unknown task %s ignored", id)
		return model.Task{}, ErrNotFound
	}

	now := time.Now().UTC()
	old := t.Status
	t.Status = status
	t.UpdatedAt = now
	if status == model.StatusCompleted && t.CompletedAt == nil {
		stamp := now
		t.CompletedAt = &stamp
	}
	if status == model.StatusFinished && t.FinishedAt == nil {
		stamp := now
		t.FinishedAt = &stamp
	}

	if a.Adapter.HasRemote() {
		if err := a.Adapter.UpdateRemote(ctx, id, model.StatusPatch(t)); err != nil {
			a.warnLocalOnly("status change", err)
		}
	}

	a.Store.Upsert(t)
	a.persistLocal()
	task := t
	a.Bus.Publish(events.Event{
		Type:      events.TaskStatusChanged,
		TaskID:    id,
		OldStatus: old,
		NewStatus: status,
		Task:      &task,
	})
	a.notifyDataUpdate()
	a.Reconciler.Kick()
	return t, nil
}

// DeleteTask removes the task locally and remotely. An id already gone on
// either side is a no-op, not a failure.
func (a *App) DeleteTask(ctx context.Context, id string) error {
	t, _, ok := a.Store.FindByID(id)
	if !ok {
		log.Printf("Delete of unknown task %s ignored", id)
		return ErrNotFound
	}

	if a.Adapter.HasRemote() {
		if err := a.Adapter.DeleteRemote(ctx, id); err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				log.Printf("Task %s already absent on remote", id)
			} else {
				a.warnLocalOnly("delete", err)
			}
		}
	}

	a.Store.Remove(id)
	a.persistLocal()
	task := t
	a.Bus.Publish(events.Event{Type: events.TaskDeleted, TaskID: id, Task: &task})
	a.notifyDataUpdate()
	return nil
}

// KPIs returns the current card counts, recomputed when force is set.
func (a *App) KPIs(force bool) aggregate.KPIs {
	return a.Projector.ComputeKPIs(a.Store.All(), force)
}

// DailySeries returns the trailing chart series, always consistent with the
// KPI counts for the same snapshot.
func (a *App) DailySeries() aggregate.DailySeries {
	return a.Projector.ComputeDailySeries(a.Store.All(), time.Now().UTC())
}

func (a *App) persistLocal() {
	if err := a.Adapter.WriteLocal(a.Store.ByCategory()); err != nil {
		log.Printf("Warning: could not persist collection locally: %v", err)
	}
}

func (a *App) notifyDataUpdate() {
	a.Bus.Publish(events.Event{
		Type:            events.DataUpdate,
		TasksByCategory: a.Store.ByCategory(),
	})
}

func (a *App) warnLocalOnly(op string, err error) {
	log.Printf("Warning: remote %s failed, keeping change locally: %v", op, err)
	a.Bus.PublishError("saved locally; server " + op + " failed: " + err.Error())
}
