package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/mutation"
)

type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) CreateRecord(ctx context.Context, table string, payload map[string]interface{}, idempotencyKey string) (string, error) {
	args := m.Called(ctx, table, payload, idempotencyKey)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteStore) UpdateRecord(ctx context.Context, table, id string, payload map[string]interface{}) error {
	args := m.Called(ctx, table, id, payload)
	return args.Error(0)
}

func (m *MockRemoteStore) DeleteRecord(ctx context.Context, table, id string) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockRemoteStore) ListRecords(ctx context.Context, table string) ([]map[string]interface{}, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (m *MockRemoteStore) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestSync(t *testing.T, remote RemoteStore) (*SyncService, *MutationQueue, *MemoryCache) {
	t.Helper()

	queue := NewMutationQueue(NewMemoryQueueStore(), 0, slog.Default())
	cache := NewMemoryCache()
	service := NewSyncService(queue, remote, cache, slog.Default())

	return service, queue, cache
}

func TestSyncService_SyncAll_DrainsInOrder(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	enqueue(t, queue, mutation.OpUpdate, "p1")
	enqueue(t, queue, mutation.OpDelete, "p2")

	var order []string
	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "update") }).Return(nil)
	remote.On("DeleteRecord", mock.Anything, "patients", "p2").
		Run(func(mock.Arguments) { order = append(order, "delete") }).Return(nil)

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"update", "delete"}, order)
	assert.Equal(t, 0, queue.Len())
	assert.False(t, service.LastSyncTime().IsZero())
}

func TestSyncService_SyncAll_RewritesTempID(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, cache := newTestSync(t, remote)

	tempID := "tmp_abc"
	require.NoError(t, cache.Upsert("patients", tempID, map[string]interface{}{"name": "Ada Harris"}))

	_, err := queue.Enqueue(&mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpCreate,
		Table:     "patients",
		EntityID:  tempID,
		Payload:   map[string]interface{}{"name": "Ada Harris"},
	})
	require.NoError(t, err)
	_, err = queue.Enqueue(&mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpUpdate,
		Table:     "patients",
		EntityID:  tempID,
		Payload:   map[string]interface{}{"room": "412"},
	})
	require.NoError(t, err)

	remote.On("CreateRecord", mock.Anything, "patients", mock.Anything, mock.Anything).
		Return("srv_1", nil)
	// The later update must go out with the server id, not the temp id.
	remote.On("UpdateRecord", mock.Anything, "patients", "srv_1", mock.Anything).
		Return(nil)

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	remote.AssertExpectations(t)

	// The cached row moved to the server id.
	_, err = cache.Get("patients", tempID)
	assert.ErrorIs(t, err, ErrCacheMiss)
	row, err := cache.Get("patients", "srv_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Harris", row["name"])
}

func TestSyncService_SyncAll_RewritesCrossEntityRefs(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, cache := newTestSync(t, remote)

	// A patient and a dependent todo, both created offline.
	require.NoError(t, cache.Upsert("patients", "tmp_p", map[string]interface{}{"name": "Ada Harris"}))
	require.NoError(t, cache.Upsert("todos", "tmp_t", map[string]interface{}{"text": "draw blood", "patient_id": "tmp_p"}))

	_, err := queue.Enqueue(&mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpCreate,
		Table:     "patients",
		EntityID:  "tmp_p",
		Payload:   map[string]interface{}{"name": "Ada Harris"},
	})
	require.NoError(t, err)
	_, err = queue.Enqueue(&mutation.QueuedMutation{
		Type:      "todo",
		Operation: mutation.OpCreate,
		Table:     "todos",
		EntityID:  "tmp_t",
		Payload:   map[string]interface{}{"text": "draw blood", "patient_id": "tmp_p"},
	})
	require.NoError(t, err)

	remote.On("CreateRecord", mock.Anything, "patients", mock.Anything, mock.Anything).
		Return("srv_p1", nil)
	// The todo must go out referencing the patient's server id.
	remote.On("CreateRecord", mock.Anything, "todos", mock.MatchedBy(func(p map[string]interface{}) bool {
		return p["patient_id"] == "srv_p1"
	}), mock.Anything).Return("srv_t1", nil)

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	remote.AssertExpectations(t)

	// The cached todo row follows the reference too.
	row, err := cache.Get("todos", "srv_t1")
	require.NoError(t, err)
	assert.Equal(t, "srv_p1", row["patient_id"])
}

func TestSyncService_SyncAll_TransientFailureKeepsEntry(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	entry := enqueue(t, queue, mutation.OpUpdate, "p1")

	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).
		Return(&RemoteError{StatusCode: 500, Message: "boom"})

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 1, result.Failed)

	got, err := queue.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.False(t, got.Exhausted())
	assert.True(t, service.LastSyncTime().IsZero())
}

func TestSyncService_SyncAll_PermanentFailureExhausts(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	entry := enqueue(t, queue, mutation.OpUpdate, "p1")

	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).
		Return(&RemoteError{StatusCode: 422, Message: "invalid"})

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	got, err := queue.Get(entry.ID)
	require.NoError(t, err)
	assert.True(t, got.Exhausted())
}

func TestSyncService_SyncAll_SkipsExhausted(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	entry := enqueue(t, queue, mutation.OpUpdate, "p1")
	require.NoError(t, queue.SetRetryCount(entry.ID, entry.MaxRetries))

	result, err := service.SyncAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, queue.Len())
	remote.AssertNotCalled(t, "UpdateRecord")
}

func TestSyncService_SyncAll_ReportsProgress(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	enqueue(t, queue, mutation.OpUpdate, "p1")
	enqueue(t, queue, mutation.OpUpdate, "p2")

	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).Return(nil)
	remote.On("UpdateRecord", mock.Anything, "patients", "p2", mock.Anything).
		Return(&RemoteError{StatusCode: 500, Message: "boom"})

	var progress []mutation.SyncProgress
	_, err := service.SyncAll(context.Background(), func(p mutation.SyncProgress) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, 1, progress[0].Completed)
	assert.Equal(t, 2, progress[0].Total)
	// The failed entry still produces a progress tick.
	assert.Equal(t, 1, progress[1].Completed)
	assert.Equal(t, 2, progress[1].Total)
}

func TestSyncService_SyncAll_MidRunEnqueueWaitsForNextRun(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	enqueue(t, queue, mutation.OpUpdate, "p1")
	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).Return(nil)

	var late *mutation.QueuedMutation
	result, err := service.SyncAll(context.Background(), func(p mutation.SyncProgress) {
		if late == nil {
			late = enqueue(t, queue, mutation.OpUpdate, "p2")
		}
		// The run works off its starting snapshot; the late entry is not
		// part of this run's total.
		assert.Equal(t, 1, p.Total)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, queue.Len())
	remote.AssertNotCalled(t, "UpdateRecord", mock.Anything, "patients", "p2", mock.Anything)

	// The next run picks it up.
	remote.On("UpdateRecord", mock.Anything, "patients", "p2", mock.Anything).Return(nil)
	result, err = service.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 0, queue.Len())
}

func TestSyncService_SyncAll_RetriesAcrossRuns(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	flaky := enqueue(t, queue, mutation.OpUpdate, "p1")
	enqueue(t, queue, mutation.OpUpdate, "p2")

	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).
		Return(&RemoteError{StatusCode: 503, Message: "unavailable"}).Twice()
	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).
		Return(nil).Once()
	remote.On("UpdateRecord", mock.Anything, "patients", "p2", mock.Anything).
		Return(nil).Once()

	// Run one drains the independent entry while the flaky one burns a retry.
	result, err := service.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, result.Failed)

	got, err := queue.Get(flaky.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)

	// Run two: one more attempt, one more failure.
	result, err = service.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 1, result.Failed)

	got, err = queue.Get(flaky.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)

	// Run three succeeds and empties the queue.
	result, err = service.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 0, queue.Len())
	remote.AssertExpectations(t)
}

func TestSyncService_SyncAll_SingleFlight(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	enqueue(t, queue, mutation.OpUpdate, "p1")
	remote.On("UpdateRecord", mock.Anything, "patients", "p1", mock.Anything).Return(nil)

	var nested error
	_, err := service.SyncAll(context.Background(), func(mutation.SyncProgress) {
		// The progress callback runs inside the drain, so a second call
		// must be rejected here.
		_, nested = service.SyncAll(context.Background(), nil)
	})

	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrSyncInProgress)
	assert.False(t, service.IsSyncing())
}

func TestSyncService_SyncAll_ContextCancelled(t *testing.T) {
	remote := new(MockRemoteStore)
	service, queue, _ := newTestSync(t, remote)

	enqueue(t, queue, mutation.OpUpdate, "p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.SyncAll(ctx, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 1, queue.Len())
}
