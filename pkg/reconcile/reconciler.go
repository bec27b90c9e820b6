// Package reconcile keeps every task's status consistent with wall-clock time
// independent of user action: pending tasks past their end date turn late,
// late tasks whose dates were edited back into range return to pending, and
// completed tasks finish for good after a grace window.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/persist"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/store"
)

// FinishAfter is how long a completed task rests before it is sealed as
// finished. No automatic transition ever leaves finished again.
const FinishAfter = 2 * time.Hour

// Delta records one automatic status transition.
type Delta struct {
	TaskID    string
	OldStatus model.Status
	NewStatus model.Status
	Task      model.Task
}

type Reconciler struct {
	store    *store.TaskStore
	adapter  *persist.Adapter
	bus      *events.Bus
	interval time.Duration

	// Sweeps never overlap: a trigger arriving mid-sweep latches rerun and
	// the current sweep runs once more on completion.
	inFlight atomic.Bool
	rerun    atomic.Bool
}

func New(s *store.TaskStore, a *persist.Adapter, bus *events.Bus, interval time.Duration) *Reconciler {
	return &Reconciler{store: s, adapter: a, bus: bus, interval: interval}
}

// Pass applies every automatic transition that fires at the given time and
// returns the deltas. It only touches the store; persistence and
// notification are Sweep's concern, which keeps this testable against a
// supplied clock.
func (r *Reconciler) Pass(now time.Time) []Delta {
	var deltas []Delta
	for _, t := range r.store.All() {
		next, ok := nextStatus(t, now)
		if !ok {
			continue
		}
		old := t.Status
		t.Status = next
		t.UpdatedAt = now
		if next == model.StatusFinished && t.FinishedAt == nil {
			stamp := now
			t.FinishedAt = &stamp
		}
		r.store.Upsert(t)
		deltas = append(deltas, Delta{TaskID: t.ID, OldStatus: old, NewStatus: next, Task: t})
	}
	return deltas
}

// nextStatus computes the automatic transition for one task, if any fires.
func nextStatus(t model.Task, now time.Time) (model.Status, bool) {
	switch t.Status {
	case model.StatusFinished:
		// Terminal for the reconciler; only a user action moves it.
	case model.StatusCompleted:
		if t.CompletedAt != nil && now.Sub(*t.CompletedAt) >= FinishAfter {
			return model.StatusFinished, true
		}
	case model.StatusPending:
		if now.After(t.EndDate) {
			return model.StatusLate, true
		}
	case model.StatusLate:
		if !now.Before(t.StartDate) && !now.After(t.EndDate) {
			return model.StatusPending, true
		}
	}
	return "", false
}

// Sweep runs one full reconciliation: transition, persist, notify, push.
// Push failures are batched into a single warning and never roll back the
// local transitions; the next sync settles the remote side.
func (r *Reconciler) Sweep(ctx context.Context, now time.Time) []Delta {
	deltas := r.Pass(now)
	if len(deltas) == 0 {
		return nil
	}

	if err := r.adapter.WriteLocal(r.store.ByCategory()); err != nil {
		log.Printf("Warning: could not persist collection after status sweep: %v", err)
	}

	for _, d := range deltas {
		task := d.Task
		r.bus.Publish(events.Event{
			Type:      events.TaskStatusChanged,
			TaskID:    d.TaskID,
			OldStatus: d.OldStatus,
			NewStatus: d.NewStatus,
			Task:      &task,
		})
	}

	// Local-only mode has no server to fall behind; pushing and the warning
	// only apply when a remote is configured.
	if r.adapter.HasRemote() {
		var failed int
		for _, d := range deltas {
			if err := r.adapter.UpdateRemote(ctx, d.TaskID, model.StatusPatch(d.Task)); err != nil {
				failed++
				log.Printf("Warning: could not push status of %s to remote: %v", d.TaskID, err)
			}
		}
		if failed > 0 {
			r.bus.PublishError(fmt.Sprintf("%d status change(s) not yet synced to the server", failed))
		}
	}
	return deltas
}

// Kick requests a sweep outside the timer, typically after a data mutation.
// If a sweep is already in flight the request collapses into one follow-up
// run instead of piling up.
func (r *Reconciler) Kick() {
	go r.trySweep(context.Background())
}

func (r *Reconciler) trySweep(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.rerun.Store(true)
		return
	}
	defer r.inFlight.Store(false)

	r.Sweep(ctx, time.Now().UTC())
	for r.rerun.Swap(false) {
		r.Sweep(ctx, time.Now().UTC())
	}
}

// Run sweeps on the configured cadence until the context ends. Failures
// never escape this loop; they surface as bus error events and log lines.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.trySweep(ctx)
		}
	}
}
