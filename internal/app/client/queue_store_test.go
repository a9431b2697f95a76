package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roundkeeper/internal/domain/mutation"
)

func newSQLiteQueueStore(t *testing.T) *SQLiteQueueStore {
	t.Helper()

	store, err := NewSQLiteQueueStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteQueueStore_SaveLoad(t *testing.T) {
	store := newSQLiteQueueStore(t)

	entries := []*mutation.QueuedMutation{
		{
			ID:             "m1",
			Type:           "patient",
			Operation:      mutation.OpCreate,
			Table:          "patients",
			Payload:        map[string]interface{}{"name": "Ada Harris"},
			EntityID:       "tmp_1",
			IdempotencyKey: "key-1",
			Timestamp:      time.Now().UTC().Truncate(time.Second),
			MaxRetries:     3,
		},
		{
			ID:         "m2",
			Type:       "todo",
			Operation:  mutation.OpDelete,
			Table:      "todos",
			EntityID:   "t9",
			Timestamp:  time.Now().UTC().Truncate(time.Second),
			RetryCount: 2,
			MaxRetries: 3,
		},
	}

	require.NoError(t, store.Save(entries))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "m1", loaded[0].ID)
	assert.Equal(t, "key-1", loaded[0].IdempotencyKey)
	assert.Equal(t, "Ada Harris", loaded[0].Payload["name"])
	assert.Equal(t, "m2", loaded[1].ID)
	assert.Equal(t, 2, loaded[1].RetryCount)
}

func TestSQLiteQueueStore_SaveReplacesSnapshot(t *testing.T) {
	store := newSQLiteQueueStore(t)

	require.NoError(t, store.Save([]*mutation.QueuedMutation{
		{ID: "m1", Operation: mutation.OpUpdate, Table: "patients", EntityID: "p1"},
		{ID: "m2", Operation: mutation.OpUpdate, Table: "patients", EntityID: "p2"},
	}))
	require.NoError(t, store.Save([]*mutation.QueuedMutation{
		{ID: "m2", Operation: mutation.OpUpdate, Table: "patients", EntityID: "p2"},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "m2", loaded[0].ID)
}

func TestSQLiteQueueStore_LoadEmpty(t *testing.T) {
	store := newSQLiteQueueStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteQueueStore_SkipsCorruptRows(t *testing.T) {
	store := newSQLiteQueueStore(t)

	require.NoError(t, store.Save([]*mutation.QueuedMutation{
		{ID: "m1", Operation: mutation.OpUpdate, Table: "patients", EntityID: "p1"},
	}))

	_, err := store.db.Exec(`INSERT INTO mutation_queue (id, data) VALUES ('bad', 'not json')`)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "m1", loaded[0].ID)
}
