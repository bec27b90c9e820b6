package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/cache"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/remote"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	local, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("Could not open cache: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return NewAdapter(nil, local)
}

func TestLocalRoundtrip(t *testing.T) {
	a := testAdapter(t)

	c := model.NewCollection()
	c[model.CategoryWeek] = []model.Task{mergeTask("t1", "persisted", time.Now().UTC())}
	if err := a.WriteLocal(c); err != nil {
		t.Fatalf("WriteLocal failed: %v", err)
	}

	loaded, err := a.ReadLocal()
	if err != nil {
		t.Fatalf("ReadLocal failed: %v", err)
	}
	if len(loaded[model.CategoryWeek]) != 1 {
		t.Fatalf("Expected 1 week task, got %d", len(loaded[model.CategoryWeek]))
	}
	if loaded[model.CategoryWeek][0].Text != "persisted" {
		t.Errorf("Expected task text to survive roundtrip, got %q", loaded[model.CategoryWeek][0].Text)
	}
}

func TestReadLocalEmptyStore(t *testing.T) {
	a := testAdapter(t)

	c, err := a.ReadLocal()
	if err != nil {
		t.Fatalf("ReadLocal on empty store failed: %v", err)
	}
	for _, cat := range model.Categories {
		if _, ok := c[cat]; !ok {
			t.Errorf("Expected bucket %s present in empty collection", cat)
		}
	}
	if len(c.Flatten()) != 0 {
		t.Error("Expected empty collection from never-written store")
	}
}

func TestDayIndexRoundtrip(t *testing.T) {
	a := testAdapter(t)

	idx := map[string][]model.Task{
		"2024-01-01": {mergeTask("t1", "new year", time.Now().UTC())},
	}
	if err := a.WriteDayIndex(idx); err != nil {
		t.Fatalf("WriteDayIndex failed: %v", err)
	}
	loaded, err := a.ReadDayIndex()
	if err != nil {
		t.Fatalf("ReadDayIndex failed: %v", err)
	}
	if len(loaded["2024-01-01"]) != 1 {
		t.Errorf("Expected 1 task on 2024-01-01, got %d", len(loaded["2024-01-01"]))
	}
}

func TestRemoteOpsWithoutBackend(t *testing.T) {
	a := testAdapter(t)
	ctx := context.Background()

	if a.HasRemote() {
		t.Fatal("Expected no remote backend")
	}
	if _, err := a.CreateRemote(ctx, model.Task{}); !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from CreateRemote, got %v", err)
	}
	if err := a.UpdateRemote(ctx, "t1", model.Patch{}); !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from UpdateRemote, got %v", err)
	}
	if err := a.DeleteRemote(ctx, "t1"); !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from DeleteRemote, got %v", err)
	}
	if _, err := a.FetchRemote(ctx); !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from FetchRemote, got %v", err)
	}
}
