// Package syncer periodically reconciles the local task store against the
// remote store without losing unsynced local edits. All remote failures are
// non-fatal: the application keeps serving the last good local snapshot.
package syncer

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/persist"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/store"
)

// DayKey is the bucket key format of the derived calendar index.
const DayKey = "2006-01-02"

type Coordinator struct {
	store   *store.TaskStore
	adapter *persist.Adapter
	bus     *events.Bus

	minInterval    time.Duration // non-forced syncs closer than this are no-ops
	activeInterval time.Duration // cadence while a relevant view is visible
	idleInterval   time.Duration // cadence in the background

	mu       sync.Mutex
	lastSync time.Time

	// Exactly one merge runs at a time; triggers landing mid-merge latch a
	// single follow-up attempt instead of queueing.
	inFlight atomic.Bool
	retry    atomic.Bool
	active   atomic.Bool

	wake chan struct{}
}

func New(s *store.TaskStore, a *persist.Adapter, bus *events.Bus, minInterval, activeInterval, idleInterval time.Duration) *Coordinator {
	return &Coordinator{
		store:          s,
		adapter:        a,
		bus:            bus,
		minInterval:    minInterval,
		activeInterval: activeInterval,
		idleInterval:   idleInterval,
		wake:           make(chan struct{}, 1),
	}
}

// SetActive records whether a task view is currently visible. Becoming
// visible triggers an immediate sync attempt and tightens the cadence.
func (c *Coordinator) SetActive(visible bool) {
	was := c.active.Swap(visible)
	if visible && !was {
		c.poke()
	}
}

// NotifyOnline is called when network connectivity returns; it forces a sync
// regardless of the interval gate.
func (c *Coordinator) NotifyOnline(ctx context.Context) {
	go c.SyncNow(ctx, true)
}

func (c *Coordinator) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SyncNow fetches the remote snapshot and merges it into the local store.
// Without force, calls inside the minimum interval are no-ops. A failed
// fetch leaves local state untouched and is reported on the bus.
func (c *Coordinator) SyncNow(ctx context.Context, force bool) error {
	if !force && !c.due() {
		return nil
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		c.retry.Store(true)
		return nil
	}
	defer c.inFlight.Store(false)

	err := c.syncOnce(ctx)
	for c.retry.Swap(false) {
		err = c.syncOnce(ctx)
	}
	return err
}

func (c *Coordinator) due() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSync) >= c.minInterval
}

func (c *Coordinator) syncOnce(ctx context.Context) error {
	// The store version is the staleness token for the whole fetch-merge-swap
	// cycle; the swap below re-checks it atomically.
	version := c.store.Version()

	remoteTasks, err := c.adapter.FetchRemote(ctx)
	if err != nil {
		c.bus.PublishError("sync failed: " + err.Error())
		return err
	}

	merged, toPush := persist.Merge(c.store.All(), remoteTasks)
	collection := model.CollectionFrom(merged)

	// The merge result is only installed if the store still matches the
	// snapshot it was computed from. A mutation landing anywhere between the
	// token read and this point refuses the swap; the latch reruns the merge
	// with fresh input instead of erasing that mutation.
	if !c.store.ReplaceAllIfVersion(collection, version) {
		log.Printf("Sync: local state moved during merge, discarding stale snapshot")
		c.retry.Store(true)
		return nil
	}

	if err := c.adapter.WriteLocal(collection); err != nil {
		log.Printf("Warning: could not persist merged collection: %v", err)
	}

	// The calendar index is rebuilt wholesale on every successful sync;
	// incremental patching drifts.
	dayIndex := BucketByDay(merged)
	if err := c.adapter.WriteDayIndex(dayIndex); err != nil {
		log.Printf("Warning: could not persist day index: %v", err)
	}

	for _, t := range toPush {
		if _, err := c.adapter.CreateRemote(ctx, t); err != nil {
			log.Printf("Warning: could not push local task %s to remote: %v", t.ID, err)
		}
	}

	c.mu.Lock()
	c.lastSync = time.Now()
	c.mu.Unlock()

	c.bus.Publish(events.Event{
		Type:            events.SyncCompleted,
		TasksByCategory: collection,
		TasksByDate:     dayIndex,
	})
	return nil
}

// Run drives the polling loop until the context ends, syncing on the active
// cadence while a view is visible and the idle cadence otherwise.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		interval := c.idleInterval
		if c.active.Load() {
			interval = c.activeInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-c.wake:
			timer.Stop()
		}
		if err := c.SyncNow(ctx, false); err != nil {
			log.Printf("Sync: %v", err)
		}
	}
}

// BucketByDay builds the date → tasks-starting-that-day index consumed by
// calendar views.
func BucketByDay(tasks []model.Task) map[string][]model.Task {
	idx := make(map[string][]model.Task)
	for _, t := range tasks {
		key := t.StartDate.Format(DayKey)
		idx[key] = append(idx[key], t.Clone())
	}
	return idx
}
