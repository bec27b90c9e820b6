package model

import "time"

// Record is the row shape the remote store speaks: snake_case columns on a
// `tasks` table scoped by user_id. The client model stays camelCase; this
// codec is the only place the two meet.
type Record struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Text        string     `json:"text"`
	Category    string     `json:"category"`
	StartDate   time.Time  `json:"startdate"`
	EndDate     time.Time  `json:"enddate"`
	Status      string     `json:"status"`
	Pinned      bool       `json:"pinned"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// ToRecord converts a task to its remote row, stamped with the owning user.
func ToRecord(t Task, userID string) Record {
	return Record{
		ID:          t.ID,
		UserID:      userID,
		Text:        t.Text,
		Category:    string(t.Category),
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Status:      string(t.Status),
		Pinned:      t.Pinned,
		CompletedAt: t.CompletedAt,
		FinishedAt:  t.FinishedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Task converts a remote row back to the client model.
func (r Record) Task() Task {
	return Task{
		ID:          r.ID,
		Text:        r.Text,
		Category:    Category(r.Category),
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Status:      Status(r.Status),
		Pinned:      r.Pinned,
		CompletedAt: r.CompletedAt,
		FinishedAt:  r.FinishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Patch is a partial remote update keyed by snake_case column name. It feeds
// both the REST PATCH body and the SQL SET clause unchanged.
type Patch map[string]any

// StatusPatch builds the partial update pushed after a status transition.
func StatusPatch(t Task) Patch {
	p := Patch{
		"status":     string(t.Status),
		"updated_at": t.UpdatedAt,
	}
	if t.CompletedAt != nil {
		p["completed_at"] = *t.CompletedAt
	}
	if t.FinishedAt != nil {
		p["finished_at"] = *t.FinishedAt
	}
	return p
}

// EditPatch builds the partial update for a user edit of the mutable fields.
func EditPatch(t Task) Patch {
	p := Patch{
		"text":       t.Text,
		"category":   string(t.Category),
		"startdate":  t.StartDate,
		"enddate":    t.EndDate,
		"status":     string(t.Status),
		"pinned":     t.Pinned,
		"updated_at": t.UpdatedAt,
	}
	if t.CompletedAt != nil {
		p["completed_at"] = *t.CompletedAt
	}
	if t.FinishedAt != nil {
		p["finished_at"] = *t.FinishedAt
	}
	return p
}
