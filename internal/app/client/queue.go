package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/mutation"
)

// MutationQueue is the durable FIFO of pending writes. Every change is
// persisted through the QueueStore; if persistence fails the in-memory queue
// stays authoritative and the failure is logged.
type MutationQueue struct {
	mu          sync.Mutex
	entries     []*mutation.QueuedMutation
	store       QueueStore
	subscribers map[int]func([]*mutation.QueuedMutation)
	nextSubID   int
	maxRetries  int
	log         *slog.Logger
	now         func() time.Time
}

// NewMutationQueue loads the persisted snapshot from store. A load failure is
// treated as a corrupt snapshot: the queue starts empty and the error is
// logged rather than propagated. maxRetries is the retry ceiling stamped on
// new entries; values below 1 fall back to mutation.DefaultMaxRetries.
func NewMutationQueue(store QueueStore, maxRetries int, log *slog.Logger) *MutationQueue {
	if maxRetries < 1 {
		maxRetries = mutation.DefaultMaxRetries
	}

	q := &MutationQueue{
		store:       store,
		subscribers: make(map[int]func([]*mutation.QueuedMutation)),
		maxRetries:  maxRetries,
		log:         log.With("component", "mutation_queue"),
		now:         time.Now,
	}

	entries, err := store.Load()
	if err != nil {
		q.log.Warn("failed to load persisted queue, starting empty", "error", err)
		entries = nil
	}
	q.entries = entries

	return q
}

// Enqueue appends a pending write to the tail of the queue and returns the
// stored entry. Missing bookkeeping fields are filled in.
func (q *MutationQueue) Enqueue(m *mutation.QueuedMutation) (*mutation.QueuedMutation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	entry := *m
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = q.now()
	}
	if entry.MaxRetries == 0 {
		entry.MaxRetries = q.maxRetries
	}
	if entry.Operation == mutation.OpCreate && entry.IdempotencyKey == "" {
		entry.IdempotencyKey = uuid.New().String()
	}

	q.mu.Lock()
	q.entries = append(q.entries, &entry)
	q.persistLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)

	stored := entry
	return &stored, nil
}

// Snapshot returns a copy of the queue in FIFO order. Callers may mutate the
// returned entries freely.
func (q *MutationQueue) Snapshot() []*mutation.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Get returns a copy of the entry with the given id.
func (q *MutationQueue) Get(id string) (*mutation.QueuedMutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range q.entries {
		if entry.ID == id {
			clone := *entry
			return &clone, nil
		}
	}
	return nil, mutation.ErrNotFound
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// queue change. It does not fire for the current state. The returned function
// removes the listener without affecting the others.
func (q *MutationQueue) Subscribe(fn func([]*mutation.QueuedMutation)) func() {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subscribers, id)
		q.mu.Unlock()
	}
}

// Remove deletes the entry with the given id. Removing an absent id is a
// no-op and does not notify subscribers.
func (q *MutationQueue) Remove(id string) {
	q.mu.Lock()
	idx := -1
	for i, entry := range q.entries {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	q.persistLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)
}

// SetRetryCount updates the retry counter of a queued entry.
func (q *MutationQueue) SetRetryCount(id string, count int) error {
	q.mu.Lock()
	var found *mutation.QueuedMutation
	for _, entry := range q.entries {
		if entry.ID == id {
			found = entry
			break
		}
	}
	if found == nil {
		q.mu.Unlock()
		return mutation.ErrNotFound
	}
	found.RetryCount = count
	q.persistLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)
	return nil
}

// RewriteEntityID replaces oldID with newID in every queued entry that still
// references it, both as the entity id and as a payload value (cross-entity
// references such as a todo's patient_id). Used after an offline create is
// assigned its server id.
func (q *MutationQueue) RewriteEntityID(oldID, newID string) {
	q.mu.Lock()
	changed := false
	for _, entry := range q.entries {
		if entry.EntityID == oldID {
			entry.EntityID = newID
			changed = true
		}
		for key, value := range entry.Payload {
			if ref, ok := value.(string); ok && ref == oldID {
				entry.Payload[key] = newID
				changed = true
			}
		}
	}
	if !changed {
		q.mu.Unlock()
		return
	}
	q.persistLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)
}

// Clear discards every queued entry, including exhausted ones. Clearing an
// empty queue is a no-op.
func (q *MutationQueue) Clear() {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}
	q.entries = nil
	q.persistLocked()
	q.mu.Unlock()

	q.notify(nil)
}

// Len returns the number of queued entries, exhausted ones included.
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ExhaustedCount returns how many entries have used up their retries.
func (q *MutationQueue) ExhaustedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, entry := range q.entries {
		if entry.Exhausted() {
			count++
		}
	}
	return count
}

func (q *MutationQueue) snapshotLocked() []*mutation.QueuedMutation {
	out := make([]*mutation.QueuedMutation, len(q.entries))
	for i, entry := range q.entries {
		clone := *entry
		out[i] = &clone
	}
	return out
}

func (q *MutationQueue) persistLocked() {
	if err := q.store.Save(q.entries); err != nil {
		q.log.Warn("failed to persist queue, in-memory state stays authoritative", "error", err)
	}
}

// notify runs outside the queue lock so subscribers may call back into the
// queue.
func (q *MutationQueue) notify(snapshot []*mutation.QueuedMutation) {
	q.mu.Lock()
	subs := make([]func([]*mutation.QueuedMutation), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
