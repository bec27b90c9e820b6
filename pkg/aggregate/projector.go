// Package aggregate derives the dashboard numbers (KPI cards and chart
// series) from the task collection. Both views are pure functions of the
// current tasks; an internal consistency pass guarantees the two never
// disagree on screen.
package aggregate

import (
	"sync"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

// SeriesDays is the trailing calendar window of the trend charts, today
// included.
const SeriesDays = 7

const dayKey = "2006-01-02"

// KPIs are the card counts. Completed folds in finished tasks: the dashboard
// shows them as one number.
type KPIs struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Late      int `json:"late"`
	Total     int `json:"total"`
}

// DailySeries holds per-day counts for the trailing window, oldest day first.
type DailySeries struct {
	Days      []string `json:"days"`
	Completed []int    `json:"completed"`
	Pending   []int    `json:"pending"`
	Late      []int    `json:"late"`
}

// Projector computes aggregates with a short KPI memo that coalesces bursts
// of updates.
type Projector struct {
	mu      sync.Mutex
	memo    *KPIs
	memoAt  time.Time
	memoTTL time.Duration
}

func NewProjector(memoTTL time.Duration) *Projector {
	return &Projector{memoTTL: memoTTL}
}

// ComputeKPIs classifies every task by status. Within the memo window the
// previous result is reused unless force is set, which always recomputes and
// replaces the memo.
func (p *Projector) ComputeKPIs(tasks []model.Task, force bool) KPIs {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !force && p.memo != nil && time.Since(p.memoAt) < p.memoTTL {
		return *p.memo
	}
	k := countKPIs(tasks)
	p.memo = &k
	p.memoAt = time.Now()
	return k
}

func countKPIs(tasks []model.Task) KPIs {
	var k KPIs
	for _, t := range tasks {
		switch {
		case t.Status.Done():
			k.Completed++
		case t.Status == model.StatusLate:
			k.Late++
		default:
			k.Pending++
		}
		k.Total++
	}
	return k
}

// ComputeDailySeries buckets tasks into the trailing window by the most
// relevant date for their status, each task counted at most once per series,
// then reconciles the sums against a fresh KPI count so callers can never
// show chart and card numbers that disagree.
func (p *Projector) ComputeDailySeries(tasks []model.Task, now time.Time) DailySeries {
	s := DailySeries{
		Days:      make([]string, SeriesDays),
		Completed: make([]int, SeriesDays),
		Pending:   make([]int, SeriesDays),
		Late:      make([]int, SeriesDays),
	}
	today := now.UTC().Truncate(24 * time.Hour)
	dayIndex := make(map[string]int, SeriesDays)
	for i := 0; i < SeriesDays; i++ {
		day := today.AddDate(0, 0, i-SeriesDays+1)
		s.Days[i] = day.Format(dayKey)
		dayIndex[s.Days[i]] = i
	}

	seen := map[model.Status]map[string]bool{
		model.StatusCompleted: {},
		model.StatusPending:   {},
		model.StatusLate:      {},
	}
	for _, t := range tasks {
		status := seriesStatus(t.Status)
		when, ok := relevantDate(t)
		if !ok {
			continue
		}
		// Stored timestamps may carry any offset; day buckets are UTC.
		i, inWindow := dayIndex[when.UTC().Format(dayKey)]
		if !inWindow || seen[status][t.ID] {
			continue
		}
		seen[status][t.ID] = true
		switch status {
		case model.StatusCompleted:
			s.Completed[i]++
		case model.StatusLate:
			s.Late[i]++
		default:
			s.Pending[i]++
		}
	}

	// The series reconciles against a fresh count and installs it as the
	// memo, so a card read inside the memo window shows the same numbers as
	// the chart just computed.
	kpis := p.refreshKPIs(tasks)
	reconcileSeries(s.Completed, kpis.Completed)
	reconcileSeries(s.Pending, kpis.Pending)
	reconcileSeries(s.Late, kpis.Late)
	return s
}

func (p *Projector) refreshKPIs(tasks []model.Task) KPIs {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := countKPIs(tasks)
	p.memo = &k
	p.memoAt = time.Now()
	return k
}

// seriesStatus folds finished into the completed series.
func seriesStatus(s model.Status) model.Status {
	if s.Done() {
		return model.StatusCompleted
	}
	if s == model.StatusLate {
		return model.StatusLate
	}
	return model.StatusPending
}

// relevantDate picks the first usable date from the per-status preference
// list: completion time for done tasks, start/creation for pending, due date
// for late.
func relevantDate(t model.Task) (time.Time, bool) {
	var candidates []time.Time
	switch {
	case t.Status.Done():
		if t.CompletedAt != nil {
			candidates = append(candidates, *t.CompletedAt)
		}
		if t.FinishedAt != nil {
			candidates = append(candidates, *t.FinishedAt)
		}
		candidates = append(candidates, t.UpdatedAt)
	case t.Status == model.StatusLate:
		candidates = append(candidates, t.EndDate, t.StartDate)
	default:
		candidates = append(candidates, t.StartDate, t.CreatedAt)
	}
	for _, c := range candidates {
		if !c.IsZero() {
			return c, true
		}
	}
	return time.Time{}, false
}

// reconcileSeries reallocates any difference between the series sum and the
// KPI count onto the most recent nonzero day, or today's bucket when the
// series is empty. Tasks dated outside the window land here, so the summed
// series always equals the card.
func reconcileSeries(series []int, kpi int) {
	sum := 0
	for _, v := range series {
		sum += v
	}
	diff := kpi - sum
	if diff == 0 {
		return
	}
	target := len(series) - 1
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] > 0 {
			target = i
			break
		}
	}
	series[target] += diff
	if series[target] < 0 {
		series[target] = 0
	}
}
