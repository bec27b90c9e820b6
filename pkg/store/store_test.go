package store

import (
	"testing"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

func task(id string, cat model.Category) model.Task {
	return model.Task{
		ID:        id,
		Text:      "task " + id,
		Category:  cat,
		StartDate: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:    model.StatusPending,
	}
}

func assertNoDuplicateIDs(t *testing.T, s *TaskStore) {
	t.Helper()
	seen := map[string]bool{}
	for _, tk := range s.All() {
		if seen[tk.ID] {
			t.Fatalf("Duplicate id %s in store", tk.ID)
		}
		seen[tk.ID] = true
	}
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))

	edited := task("t1", model.CategoryDay)
	edited.Text = "edited"
	s.Upsert(edited)

	if got := s.Len(); got != 1 {
		t.Fatalf("Expected 1 task, got %d", got)
	}
	found, cat, ok := s.FindByID("t1")
	if !ok {
		t.Fatal("Task t1 not found")
	}
	if found.Text != "edited" {
		t.Errorf("Expected edited text, got %q", found.Text)
	}
	if cat != model.CategoryDay {
		t.Errorf("Expected day category, got %s", cat)
	}
	assertNoDuplicateIDs(t, s)
}

func TestUpsertMovesCategory(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))
	s.Upsert(task("t1", model.CategoryWeek))

	_, cat, ok := s.FindByID("t1")
	if !ok {
		t.Fatal("Task t1 not found after category move")
	}
	if cat != model.CategoryWeek {
		t.Errorf("Expected week category, got %s", cat)
	}
	byCat := s.ByCategory()
	if len(byCat[model.CategoryDay]) != 0 {
		t.Errorf("Task still present in old category bucket")
	}
	assertNoDuplicateIDs(t, s)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))
	s.Remove("nope")
	if got := s.Len(); got != 1 {
		t.Errorf("Expected 1 task after removing absent id, got %d", got)
	}
	s.Remove("t1")
	if got := s.Len(); got != 0 {
		t.Errorf("Expected empty store, got %d tasks", got)
	}
}

func TestNoDuplicateIDsUnderMixedOperations(t *testing.T) {
	s := New()
	categories := []model.Category{
		model.CategoryDay, model.CategoryWeek, model.CategoryMonth,
		model.CategoryYear, model.CategoryDay, model.CategoryWeek,
	}
	for _, cat := range categories {
		s.Upsert(task("t1", cat))
		s.Upsert(task("t2", cat))
		assertNoDuplicateIDs(t, s)
	}
	s.Remove("t1")
	s.Upsert(task("t1", model.CategoryYear))
	assertNoDuplicateIDs(t, s)
	if got := s.Len(); got != 2 {
		t.Errorf("Expected 2 tasks, got %d", got)
	}
}

func TestAllReturnsCopies(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))

	all := s.All()
	all[0].Text = "mutated"

	found, _, _ := s.FindByID("t1")
	if found.Text == "mutated" {
		t.Error("Mutating All() result leaked into the store")
	}
}

func TestReplaceAllAndVersion(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))
	v := s.Version()

	c := model.NewCollection()
	c[model.CategoryWeek] = []model.Task{task("t2", model.CategoryWeek)}
	s.ReplaceAll(c)

	if s.Version() <= v {
		t.Error("Expected version to advance on ReplaceAll")
	}
	if _, _, ok := s.FindByID("t1"); ok {
		t.Error("Expected t1 to be gone after ReplaceAll")
	}
	if _, _, ok := s.FindByID("t2"); !ok {
		t.Error("Expected t2 present after ReplaceAll")
	}
}

func TestReplaceAllIfVersionRefusesStaleSwap(t *testing.T) {
	s := New()
	s.Upsert(task("t1", model.CategoryDay))
	snapshot := s.Version()

	// A mutation lands after the snapshot was taken; a swap computed from
	// that snapshot would not contain it.
	s.Upsert(task("late-arrival", model.CategoryWeek))

	replacement := model.NewCollection()
	replacement[model.CategoryDay] = []model.Task{task("t1", model.CategoryDay)}
	if s.ReplaceAllIfVersion(replacement, snapshot) {
		t.Fatal("Expected stale swap to be refused")
	}
	if _, _, ok := s.FindByID("late-arrival"); !ok {
		t.Fatal("Refused swap must leave the store untouched")
	}

	if !s.ReplaceAllIfVersion(replacement, s.Version()) {
		t.Fatal("Expected swap at the current version to go through")
	}
	if _, _, ok := s.FindByID("late-arrival"); ok {
		t.Error("Expected late-arrival gone after the accepted swap")
	}
	if _, _, ok := s.FindByID("t1"); !ok {
		t.Error("Expected t1 present after the accepted swap")
	}
}
