package aggregate

import (
	"testing"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

func aggTask(id string, status model.Status) model.Task {
	return model.Task{
		ID:        id,
		Text:      "task " + id,
		Category:  model.CategoryDay,
		StartDate: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:    status,
		CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestComputeKPIs(t *testing.T) {
	p := NewProjector(0) // no memo window, every call recomputes

	completedAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	done := aggTask("t2", model.StatusCompleted)
	done.CompletedAt = &completedAt
	finished := aggTask("t3", model.StatusFinished)
	finished.CompletedAt = &completedAt

	tasks := []model.Task{
		aggTask("t1", model.StatusLate),
		done,
		finished,
	}

	k := p.ComputeKPIs(tasks, false)
	want := KPIs{Completed: 2, Pending: 0, Late: 1, Total: 3}
	if k != want {
		t.Errorf("Expected %+v, got %+v", want, k)
	}
}

func TestKPIMemoCoalescesAndForceInvalidates(t *testing.T) {
	p := NewProjector(time.Minute)

	first := p.ComputeKPIs([]model.Task{aggTask("t1", model.StatusPending)}, false)
	if first.Total != 1 {
		t.Fatalf("Expected total 1, got %d", first.Total)
	}

	// Within the memo window the stale count is served on purpose.
	memoized := p.ComputeKPIs([]model.Task{}, false)
	if memoized.Total != 1 {
		t.Errorf("Expected memoized total 1, got %d", memoized.Total)
	}

	forced := p.ComputeKPIs([]model.Task{}, true)
	if forced.Total != 0 {
		t.Errorf("Expected forced recomputation to see 0 tasks, got %d", forced.Total)
	}
}

func TestSeriesAgreesWithKPIs(t *testing.T) {
	p := NewProjector(0)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	inWindow := now.AddDate(0, 0, -2)
	outOfWindow := now.AddDate(0, 0, -30)

	recentDone := aggTask("t1", model.StatusCompleted)
	recentDone.CompletedAt = &inWindow
	oldDone := aggTask("t2", model.StatusCompleted)
	oldDone.CompletedAt = &outOfWindow

	latestart := aggTask("t3", model.StatusLate)
	latestart.EndDate = now.AddDate(0, 0, -1)
	oldLate := aggTask("t4", model.StatusLate)
	oldLate.EndDate = outOfWindow

	pending := aggTask("t5", model.StatusPending)
	pending.StartDate = now

	tasks := []model.Task{recentDone, oldDone, latestart, oldLate, pending}
	series := p.ComputeDailySeries(tasks, now)
	kpis := p.ComputeKPIs(tasks, true)

	if got := sum(series.Completed); got != kpis.Completed {
		t.Errorf("Completed series sums to %d, KPI says %d", got, kpis.Completed)
	}
	if got := sum(series.Pending); got != kpis.Pending {
		t.Errorf("Pending series sums to %d, KPI says %d", got, kpis.Pending)
	}
	if got := sum(series.Late); got != kpis.Late {
		t.Errorf("Late series sums to %d, KPI says %d", got, kpis.Late)
	}
}

func TestSeriesReallocatesOntoMostRecentNonzeroDay(t *testing.T) {
	p := NewProjector(0)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	inWindow := now.AddDate(0, 0, -3)
	outOfWindow := now.AddDate(0, 0, -30)

	visible := aggTask("t1", model.StatusCompleted)
	visible.CompletedAt = &inWindow
	hidden := aggTask("t2", model.StatusCompleted)
	hidden.CompletedAt = &outOfWindow

	series := p.ComputeDailySeries([]model.Task{visible, hidden}, now)

	// The out-of-window completion lands on the day that already has one,
	// not on today.
	wantDay := inWindow.Format("2006-01-02")
	for i, day := range series.Days {
		want := 0
		if day == wantDay {
			want = 2
		}
		if series.Completed[i] != want {
			t.Errorf("Day %s: expected %d completed, got %d", day, want, series.Completed[i])
		}
	}
}

func TestEmptySeriesPlacesKPIOnToday(t *testing.T) {
	p := NewProjector(0)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	outOfWindow := now.AddDate(0, 0, -30)

	hidden := aggTask("t1", model.StatusCompleted)
	hidden.CompletedAt = &outOfWindow

	series := p.ComputeDailySeries([]model.Task{hidden}, now)

	last := len(series.Completed) - 1
	if series.Completed[last] != 1 {
		t.Errorf("Expected the whole KPI on today's bucket, got %v", series.Completed)
	}
	if sum(series.Completed[:last]) != 0 {
		t.Errorf("Expected earlier days empty, got %v", series.Completed)
	}
}

func TestSeriesDeduplicatesByID(t *testing.T) {
	p := NewProjector(0)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	inWindow := now.AddDate(0, 0, -1)

	task := aggTask("dup", model.StatusCompleted)
	task.CompletedAt = &inWindow

	// Same id twice in the input: the series buckets it once and the
	// consistency pass closes the gap against the 2-row KPI count without
	// spreading it over extra days.
	series := p.ComputeDailySeries([]model.Task{task, task}, now)
	if got := sum(series.Completed); got != 2 {
		t.Errorf("Expected series sum to match the KPI count 2, got %d", got)
	}

	counted := 0
	for _, v := range series.Completed {
		if v > 0 {
			counted++
		}
	}
	if counted != 1 {
		t.Errorf("Expected the duplicate id on a single day, got %v", series.Completed)
	}
}

func TestSeriesRefreshesKPIMemo(t *testing.T) {
	p := NewProjector(time.Minute)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	completedAt := now.AddDate(0, 0, -1)

	first := aggTask("t1", model.StatusCompleted)
	first.CompletedAt = &completedAt
	if card := p.ComputeKPIs([]model.Task{first}, false); card.Completed != 1 {
		t.Fatalf("Expected 1 completed on the card, got %d", card.Completed)
	}

	// A second completion arrives inside the memo window. The chart counts
	// it, and a card read right after must agree rather than serve the memo
	// from before the chart.
	second := aggTask("t2", model.StatusCompleted)
	second.CompletedAt = &completedAt
	tasks := []model.Task{first, second}

	series := p.ComputeDailySeries(tasks, now)
	if got := sum(series.Completed); got != 2 {
		t.Fatalf("Expected 2 completed in the series, got %d", got)
	}
	if card := p.ComputeKPIs(tasks, false); card.Completed != 2 {
		t.Errorf("Card disagrees with the chart: %d vs 2", card.Completed)
	}
}

func TestSeriesBucketsNonUTCTimestampsByUTCDay(t *testing.T) {
	p := NewProjector(0)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	// 2024-01-08T02:00+05:00 is 2024-01-07T21:00Z; the bucket must be the
	// UTC day, not the timestamp's own calendar day.
	offset := time.FixedZone("UTC+5", 5*60*60)
	completedAt := time.Date(2024, 1, 8, 2, 0, 0, 0, offset)
	task := aggTask("t1", model.StatusCompleted)
	task.CompletedAt = &completedAt

	series := p.ComputeDailySeries([]model.Task{task}, now)
	for i, day := range series.Days {
		want := 0
		if day == "2024-01-07" {
			want = 1
		}
		if series.Completed[i] != want {
			t.Errorf("Day %s: expected %d completed, got %d", day, want, series.Completed[i])
		}
	}
}

// The worked scenario from the dashboard: one late task and one finished
// task yield {late:1, completed:1, pending:0, total:2}.
func TestScenarioKPIs(t *testing.T) {
	p := NewProjector(0)

	completedAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := aggTask("t2", model.StatusFinished)
	t2.CompletedAt = &completedAt

	k := p.ComputeKPIs([]model.Task{aggTask("t1", model.StatusLate), t2}, true)
	want := KPIs{Completed: 1, Pending: 0, Late: 1, Total: 2}
	if k != want {
		t.Errorf("Expected %+v, got %+v", want, k)
	}
}
