package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/aggregate"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/cache"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/persist"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/reconcile"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/store"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/syncer"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	local, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("Could not open cache: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	s := store.New()
	bus := events.NewBus()
	adapter := persist.NewAdapter(nil, local)
	reconciler := reconcile.New(s, adapter, bus, time.Minute)
	coordinator := syncer.New(s, adapter, bus, time.Second, time.Second, time.Minute)
	projector := aggregate.NewProjector(0)
	return New(s, adapter, bus, reconciler, coordinator, projector)
}

func validInput() TaskInput {
	return TaskInput{
		Text:      "Prepare slides",
		Category:  model.CategoryDay,
		StartDate: time.Now().UTC().Add(time.Hour),
		EndDate:   time.Now().UTC().Add(2 * time.Hour),
	}
}

func TestAddTaskLocalFallback(t *testing.T) {
	a := newTestApp(t)

	var added []events.Event
	a.Bus.Subscribe(func(e events.Event) {
		if e.Type == events.TaskAdded {
			added = append(added, e)
		}
	})

	task, err := a.AddTask(context.Background(), validInput())
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if task.Status != model.StatusPending {
		t.Errorf("New tasks start pending, got %s", task.Status)
	}
	if _, _, ok := a.Store.FindByID(task.ID); !ok {
		t.Error("Task missing from store after add")
	}
	if len(added) != 1 {
		t.Errorf("Expected 1 taskAdded event, got %d", len(added))
	}

	// The local tier must hold the task even with no remote configured.
	loaded, err := a.Adapter.ReadLocal()
	if err != nil {
		t.Fatalf("ReadLocal failed: %v", err)
	}
	if len(loaded[model.CategoryDay]) != 1 {
		t.Errorf("Expected task persisted locally, got %d", len(loaded[model.CategoryDay]))
	}
}

func TestAddTaskRejectsInvalidInput(t *testing.T) {
	a := newTestApp(t)

	in := validInput()
	in.EndDate = in.StartDate.Add(-time.Minute)
	if _, err := a.AddTask(context.Background(), in); !errors.Is(err, model.ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask, got %v", err)
	}
	if a.Store.Len() != 0 {
		t.Error("Invalid task must never reach the store")
	}
}

func TestSetStatusStampsCompletedAtOnce(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, validInput())
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	first, err := a.SetStatus(ctx, task.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if first.CompletedAt == nil {
		t.Fatal("Expected CompletedAt stamped on completion")
	}

	// Completing again must not reset the clock.
	again, err := a.SetStatus(ctx, task.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("Second SetStatus failed: %v", err)
	}
	if !again.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("Repeated completion reset CompletedAt: %v vs %v", again.CompletedAt, first.CompletedAt)
	}
}

func TestUserCanLeaveFinished(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, validInput())
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	finished, err := a.SetStatus(ctx, task.ID, model.StatusFinished)
	if err != nil {
		t.Fatalf("SetStatus to finished failed: %v", err)
	}
	if finished.FinishedAt == nil {
		t.Fatal("Expected FinishedAt stamped")
	}

	reopened, err := a.SetStatus(ctx, task.ID, model.StatusPending)
	if err != nil {
		t.Fatalf("Reopening finished task failed: %v", err)
	}
	if reopened.Status != model.StatusPending {
		t.Errorf("User transitions are unconditional, got %s", reopened.Status)
	}
	if reopened.FinishedAt == nil {
		t.Error("Leaving finished must not clear FinishedAt")
	}
}

func TestSetStatusUnknownTask(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.SetStatus(context.Background(), "ghost", model.StatusLate); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskMovesCategory(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, validInput())
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	in := validInput()
	in.Category = model.CategoryMonth
	if _, err := a.UpdateTask(ctx, task.ID, in); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	_, cat, ok := a.Store.FindByID(task.ID)
	if !ok {
		t.Fatal("Task lost after category move")
	}
	if cat != model.CategoryMonth {
		t.Errorf("Expected month category, got %s", cat)
	}
	if got := len(a.Store.ByCategory()[model.CategoryDay]); got != 0 {
		t.Errorf("Expected old bucket emptied, got %d tasks", got)
	}
}

func TestDeleteTask(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	task, err := a.AddTask(ctx, validInput())
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	var deleted []events.Event
	a.Bus.Subscribe(func(e events.Event) {
		if e.Type == events.TaskDeleted {
			deleted = append(deleted, e)
		}
	})

	if err := a.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if a.Store.Len() != 0 {
		t.Error("Task still in store after delete")
	}
	if len(deleted) != 1 {
		t.Errorf("Expected 1 taskDeleted event, got %d", len(deleted))
	}
	if err := a.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestLoadLocalSeedsStore(t *testing.T) {
	a := newTestApp(t)

	c := model.NewCollection()
	c[model.CategoryYear] = []model.Task{{
		ID:        "seed",
		Text:      "Annual review",
		Category:  model.CategoryYear,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    model.StatusPending,
	}}
	if err := a.Adapter.WriteLocal(c); err != nil {
		t.Fatalf("WriteLocal failed: %v", err)
	}

	if err := a.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal failed: %v", err)
	}
	if _, _, ok := a.Store.FindByID("seed"); !ok {
		t.Error("Expected persisted task loaded at startup")
	}
}
