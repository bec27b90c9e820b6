// Package store holds the single in-process owner of the task collection.
// Every read and write elsewhere in the core goes through it.
package store

import (
	"sync"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

// TaskStore keeps tasks bucketed by category and guarantees a task id occurs
// in at most one bucket at a time. All methods are safe for concurrent use;
// each mutation is atomic with respect to any reader.
type TaskStore struct {
	mu      sync.RWMutex
	byCat   model.Collection
	catOf   map[string]model.Category
	version uint64
}

func New() *TaskStore {
	return &TaskStore{
		byCat: model.NewCollection(),
		catOf: make(map[string]model.Category),
	}
}

// Upsert inserts the task if its id is unseen, otherwise replaces it in
// place. If the category changed, the task is removed from the old bucket
// first so it never appears twice.
func (s *TaskStore) Upsert(t model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(t)
	s.version++
}

func (s *TaskStore) upsertLocked(t model.Task) {
	if old, ok := s.catOf[t.ID]; ok {
		if old == t.Category {
			bucket := s.byCat[old]
			for i := range bucket {
				if bucket[i].ID == t.ID {
					bucket[i] = t.Clone()
					return
				}
			}
		}
		s.removeFromBucketLocked(t.ID, old)
	}
	s.byCat[t.Category] = append(s.byCat[t.Category], t.Clone())
	s.catOf[t.ID] = t.Category
}

// Remove deletes the task with the given id from whichever category holds
// it. Absent ids are a no-op.
func (s *TaskStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.catOf[id]
	if !ok {
		return
	}
	s.removeFromBucketLocked(id, cat)
	s.version++
}

func (s *TaskStore) removeFromBucketLocked(id string, cat model.Category) {
	bucket := s.byCat[cat]
	for i := range bucket {
		if bucket[i].ID == id {
			s.byCat[cat] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(s.catOf, id)
}

// All returns a fresh copy of every task across categories. Mutating the
// result never touches the store.
func (s *TaskStore) All() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byCat.Flatten()
}

// ByCategory returns a deep copy of the full collection.
func (s *TaskStore) ByCategory() model.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byCat.Clone()
}

// FindByID returns a copy of the task and its category, or ok=false.
func (s *TaskStore) FindByID(id string) (model.Task, model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.catOf[id]
	if !ok {
		return model.Task{}, "", false
	}
	for _, t := range s.byCat[cat] {
		if t.ID == id {
			return t.Clone(), cat, true
		}
	}
	return model.Task{}, "", false
}

// ReplaceAll swaps the entire collection for the given one. The input is
// copied.
func (s *TaskStore) ReplaceAll(c model.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(c)
}

// ReplaceAllIfVersion swaps the collection only if the store still sits at
// the given version, and reports whether the swap happened. The sync
// coordinator uses this to install a merge result: a mutation that landed
// after the merge's input snapshot moves the version, the swap is refused
// and the merge must be recomputed instead of erasing the mutation.
func (s *TaskStore) ReplaceAllIfVersion(c model.Collection, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return false
	}
	s.replaceLocked(c)
	return true
}

func (s *TaskStore) replaceLocked(c model.Collection) {
	s.byCat = model.NewCollection()
	s.catOf = make(map[string]model.Category)
	for _, tasks := range c {
		for _, t := range tasks {
			s.upsertLocked(t)
		}
	}
	s.version++
}

// Len reports the total number of tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catOf)
}

// Version is a monotonic counter bumped on every mutation. The syncer records
// it before fetching a remote snapshot and discards the snapshot as stale if
// the store moved while the fetch was in flight.
func (s *TaskStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
