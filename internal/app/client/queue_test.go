package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/mutation"
)

// failingQueueStore simulates broken local persistence.
type failingQueueStore struct {
	loadErr error
	saveErr error
	saved   [][]*mutation.QueuedMutation
}

func (s *failingQueueStore) Load() ([]*mutation.QueuedMutation, error) {
	return nil, s.loadErr
}

func (s *failingQueueStore) Save(entries []*mutation.QueuedMutation) error {
	snapshot := make([]*mutation.QueuedMutation, len(entries))
	copy(snapshot, entries)
	s.saved = append(s.saved, snapshot)
	return s.saveErr
}

func (s *failingQueueStore) Close() error { return nil }

func newTestQueue(t *testing.T) *MutationQueue {
	t.Helper()
	return NewMutationQueue(NewMemoryQueueStore(), 0, slog.Default())
}

func enqueue(t *testing.T, q *MutationQueue, op mutation.Operation, entityID string) *mutation.QueuedMutation {
	t.Helper()
	entry, err := q.Enqueue(&mutation.QueuedMutation{
		Type:      "patient",
		Operation: op,
		Table:     "patients",
		EntityID:  entityID,
		Payload:   map[string]interface{}{"name": "Ada Harris"},
	})
	require.NoError(t, err)
	return entry
}

func TestMutationQueue_Enqueue_FillsDefaults(t *testing.T) {
	q := newTestQueue(t)

	entry := enqueue(t, q, mutation.OpCreate, "")

	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, entry.IdempotencyKey)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, mutation.DefaultMaxRetries, entry.MaxRetries)
}

func TestMutationQueue_Enqueue_ConfiguredMaxRetries(t *testing.T) {
	q := NewMutationQueue(NewMemoryQueueStore(), 5, slog.Default())

	entry := enqueue(t, q, mutation.OpUpdate, "p1")

	assert.Equal(t, 5, entry.MaxRetries)
}

func TestMutationQueue_Enqueue_NoIdempotencyKeyForUpdates(t *testing.T) {
	q := newTestQueue(t)

	entry := enqueue(t, q, mutation.OpUpdate, "p1")

	assert.Empty(t, entry.IdempotencyKey)
}

func TestMutationQueue_Enqueue_Invalid(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.Enqueue(&mutation.QueuedMutation{Operation: mutation.OpUpdate, Table: "patients"})

	require.ErrorIs(t, err, mutation.ErrMissingEntityID)
	assert.Equal(t, 0, q.Len())
}

func TestMutationQueue_Snapshot_FIFO(t *testing.T) {
	q := newTestQueue(t)

	first := enqueue(t, q, mutation.OpCreate, "")
	second := enqueue(t, q, mutation.OpUpdate, "p1")
	third := enqueue(t, q, mutation.OpDelete, "p2")

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, first.ID, snapshot[0].ID)
	assert.Equal(t, second.ID, snapshot[1].ID)
	assert.Equal(t, third.ID, snapshot[2].ID)
}

func TestMutationQueue_Snapshot_CopiesEntries(t *testing.T) {
	q := newTestQueue(t)
	enqueue(t, q, mutation.OpUpdate, "p1")

	q.Snapshot()[0].EntityID = "mutated"

	assert.Equal(t, "p1", q.Snapshot()[0].EntityID)
}

func TestMutationQueue_Remove(t *testing.T) {
	q := newTestQueue(t)
	entry := enqueue(t, q, mutation.OpUpdate, "p1")
	other := enqueue(t, q, mutation.OpUpdate, "p2")

	q.Remove(entry.ID)

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, other.ID, snapshot[0].ID)
}

func TestMutationQueue_Remove_AbsentDoesNotNotify(t *testing.T) {
	q := newTestQueue(t)
	enqueue(t, q, mutation.OpUpdate, "p1")

	notified := 0
	q.Subscribe(func([]*mutation.QueuedMutation) { notified++ })

	q.Remove("no-such-id")

	assert.Equal(t, 0, notified)
	assert.Equal(t, 1, q.Len())
}

func TestMutationQueue_Subscribe_Unsubscribe(t *testing.T) {
	q := newTestQueue(t)

	first, second := 0, 0
	unsubscribe := q.Subscribe(func([]*mutation.QueuedMutation) { first++ })
	q.Subscribe(func([]*mutation.QueuedMutation) { second++ })

	enqueue(t, q, mutation.OpUpdate, "p1")
	unsubscribe()
	enqueue(t, q, mutation.OpUpdate, "p2")

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestMutationQueue_SetRetryCount(t *testing.T) {
	q := newTestQueue(t)
	entry := enqueue(t, q, mutation.OpUpdate, "p1")

	require.NoError(t, q.SetRetryCount(entry.ID, 2))

	got, err := q.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)

	assert.ErrorIs(t, q.SetRetryCount("no-such-id", 1), mutation.ErrNotFound)
}

func TestMutationQueue_RewriteEntityID(t *testing.T) {
	q := newTestQueue(t)
	create := enqueue(t, q, mutation.OpCreate, "tmp_1")
	update := enqueue(t, q, mutation.OpUpdate, "tmp_1")
	unrelated := enqueue(t, q, mutation.OpUpdate, "p9")

	q.RewriteEntityID("tmp_1", "srv_42")

	for _, id := range []string{create.ID, update.ID} {
		got, err := q.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "srv_42", got.EntityID)
	}

	got, err := q.Get(unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, "p9", got.EntityID)
}

func TestMutationQueue_RewriteEntityID_PayloadRefs(t *testing.T) {
	q := newTestQueue(t)

	entry, err := q.Enqueue(&mutation.QueuedMutation{
		Type:      "todo",
		Operation: mutation.OpCreate,
		Table:     "todos",
		EntityID:  "tmp_t1",
		Payload:   map[string]interface{}{"text": "draw blood", "patient_id": "tmp_p1", "done": false},
	})
	require.NoError(t, err)

	q.RewriteEntityID("tmp_p1", "srv_42")

	got, err := q.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "tmp_t1", got.EntityID)
	assert.Equal(t, "srv_42", got.Payload["patient_id"])
	assert.Equal(t, "draw blood", got.Payload["text"])
}

func TestMutationQueue_Clear(t *testing.T) {
	q := newTestQueue(t)
	enqueue(t, q, mutation.OpUpdate, "p1")
	enqueue(t, q, mutation.OpUpdate, "p2")

	notified := 0
	q.Subscribe(func([]*mutation.QueuedMutation) { notified++ })

	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, notified)

	// Clearing an empty queue stays silent.
	q.Clear()
	assert.Equal(t, 1, notified)
}

func TestMutationQueue_ExhaustedCount(t *testing.T) {
	q := newTestQueue(t)
	entry := enqueue(t, q, mutation.OpUpdate, "p1")
	enqueue(t, q, mutation.OpUpdate, "p2")

	require.NoError(t, q.SetRetryCount(entry.ID, entry.MaxRetries))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, q.ExhaustedCount())
}

func TestMutationQueue_SurvivesReload(t *testing.T) {
	store := NewMemoryQueueStore()

	q := NewMutationQueue(store, 0, slog.Default())
	entry := enqueue(t, q, mutation.OpCreate, "tmp_1")

	reloaded := NewMutationQueue(store, 0, slog.Default())
	snapshot := reloaded.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, entry.ID, snapshot[0].ID)
	assert.Equal(t, entry.IdempotencyKey, snapshot[0].IdempotencyKey)
}

func TestMutationQueue_CorruptStoreStartsEmpty(t *testing.T) {
	store := &failingQueueStore{loadErr: errors.New("corrupt snapshot")}

	q := NewMutationQueue(store, 0, slog.Default())

	assert.Equal(t, 0, q.Len())
}

func TestMutationQueue_SaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	store := &failingQueueStore{saveErr: errors.New("disk full")}
	q := NewMutationQueue(store, 0, slog.Default())

	entry := enqueue(t, q, mutation.OpUpdate, "p1")

	assert.Equal(t, 1, q.Len())
	got, err := q.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.EntityID)
}
