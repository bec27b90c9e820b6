package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the time-horizon bucket a task is filed under.
type Category string

const (
	CategoryDay   Category = "day"
	CategoryWeek  Category = "week"
	CategoryMonth Category = "month"
	CategoryYear  Category = "year"
)

// Categories lists every bucket in display order.
var Categories = []Category{CategoryDay, CategoryWeek, CategoryMonth, CategoryYear}

func (c Category) Valid() bool {
	switch c {
	case CategoryDay, CategoryWeek, CategoryMonth, CategoryYear:
		return true
	}
	return false
}

// Status is the task lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFinished  Status = "finished"
	StatusLate      Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFinished, StatusLate:
		return true
	}
	return false
}

// Done reports whether the task reached completed or finished. Done tasks are
// never flipped to late by the reconciler.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFinished
}

// Task is the central entity. UpdatedAt is the sole authority for conflict
// resolution between local and remote copies.
type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Category    Category   `json:"category"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Status      Status     `json:"status"`
	Pinned      bool       `json:"pinned"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ErrInvalidTask marks task data rejected at the input boundary.
var ErrInvalidTask = errors.New("invalid task data")

// Validate checks the creation/edit invariants. Invalid tasks never reach the
// store.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidTask)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTask, t.Category)
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidTask)
	}
	if !t.EndDate.After(t.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidTask)
	}
	return nil
}

// Clone returns a deep copy; pointer timestamps are duplicated so callers
// cannot reach back into store-owned memory.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		c.FinishedAt = &v
	}
	return c
}

// NewLocalID mints an id for a task created before the remote store has seen
// it. The remote store may assign its own ids online; the client treats both
// forms as equivalent opaque strings.
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("task_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Collection maps each category to its tasks. Insertion order is irrelevant;
// display order is recomputed per render.
type Collection map[Category][]Task

// NewCollection returns a collection with every category bucket present.
func NewCollection() Collection {
	c := make(Collection, len(Categories))
	for _, cat := range Categories {
		c[cat] = nil
	}
	return c
}

// CollectionFrom buckets a flat task list by category. Tasks carrying an
// unknown category are dropped rather than invented a bucket.
func CollectionFrom(tasks []Task) Collection {
	c := NewCollection()
	for _, t := range tasks {
		if !t.Category.Valid() {
			continue
		}
		c[t.Category] = append(c[t.Category], t.Clone())
	}
	return c
}

// Flatten returns every task across all categories as one slice of copies.
func (c Collection) Flatten() []Task {
	var out []Task
	for _, cat := range Categories {
		for _, t := range c[cat] {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Clone deep-copies the collection.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for cat, tasks := range c {
		copied := make([]Task, 0, len(tasks))
		for _, t := range tasks {
			copied = append(copied, t.Clone())
		}
		out[cat] = copied
	}
	return out
}

// SortForDisplay orders a category bucket pinned-first, then by ascending end
// date, in place. Buckets are small; a stable insertion sort is enough.
func SortForDisplay(tasks []Task) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && displayLess(tasks[j], tasks[j-1]); j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

func displayLess(a, b Task) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	return a.EndDate.Before(b.EndDate)
}
