package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"roundkeeper/internal/app/client/config"
	"roundkeeper/internal/domain/mutation"
	"roundkeeper/internal/domain/patient"
	"roundkeeper/internal/domain/todo"
)

// Status is the coordinator state visible to the UI.
type Status string

const (
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
	StatusOnline  Status = "online"
)

// MutationOutcome tells the caller where a write ended up.
type MutationOutcome struct {
	// EntityID is the id of the affected record. For offline creates this is
	// a temp id that will be replaced once the create syncs.
	EntityID string
	// Queued is true when the write went into the pending queue instead of
	// straight to the remote store.
	Queued bool
}

// App wires the mutation queue, sync engine, local cache and connectivity
// monitor into a single client. It decides, per write, whether to go straight
// to the remote store or queue for later.
type App struct {
	Config *config.Config
	Log    *slog.Logger

	queue   *MutationQueue
	sync    *SyncService
	cache   EntityCache
	remote  RemoteStore
	monitor *Monitor

	queueStore QueueStore

	mu           sync.Mutex
	reconnect    *time.Timer
	progressSubs map[int]func(mutation.SyncProgress)
	nextSubID    int
}

// New builds the client. Local persistence failures degrade to in-memory
// stores so the client always starts.
func New(cfg *config.Config, log *slog.Logger) *App {
	var queueStore QueueStore
	sqliteQueue, err := NewSQLiteQueueStore(cfg.QueuePath)
	if err != nil {
		log.Warn("failed to open queue database, queue will not survive restart", "error", err)
		queueStore = NewMemoryQueueStore()
	} else {
		queueStore = sqliteQueue
	}

	var cache EntityCache
	sqliteCache, err := NewSQLiteCache(cfg.CachePath)
	if err != nil {
		log.Warn("failed to open cache database, cache will not survive restart", "error", err)
		cache = NewMemoryCache()
	} else {
		cache = sqliteCache
	}

	remote := NewHTTPClient(cfg.ServerAddress, cfg.EnableTLS, log)
	queue := NewMutationQueue(queueStore, cfg.MaxRetries, log)
	syncService := NewSyncService(queue, remote, cache, log)
	monitor := NewMonitor(remote, cfg.ProbeInterval, log)

	app := &App{
		Config:       cfg,
		Log:          log,
		queue:        queue,
		sync:         syncService,
		cache:        cache,
		remote:       remote,
		monitor:      monitor,
		queueStore:   queueStore,
		progressSubs: make(map[int]func(mutation.SyncProgress)),
	}

	monitor.OnChange(app.onConnectivityChange)

	return app
}

// Start launches the connectivity probe loop.
func (a *App) Start(ctx context.Context) {
	a.monitor.Start(ctx)
}

// onConnectivityChange schedules a debounced drain when connectivity returns,
// and cancels a pending one when it drops again. The debounce absorbs
// connection flapping.
func (a *App) onConnectivityChange(online bool) {
	a.mu.Lock()
	if a.reconnect != nil {
		a.reconnect.Stop()
		a.reconnect = nil
	}
	if online {
		a.reconnect = time.AfterFunc(a.Config.ReconnectDebounce, a.autoSync)
	}
	a.mu.Unlock()
}

func (a *App) autoSync() {
	a.mu.Lock()
	a.reconnect = nil
	a.mu.Unlock()

	if _, err := a.TriggerSync(context.Background()); err != nil {
		a.Log.Warn("automatic sync did not run", "error", err)
	}
}

// TriggerSync drains the queue immediately, skipping the reconnect debounce.
// It fails with ErrOffline when disconnected and ErrSyncInProgress when a
// drain is already running.
func (a *App) TriggerSync(ctx context.Context) (*mutation.SyncResult, error) {
	if !a.monitor.IsOnline() {
		return nil, ErrOffline
	}

	result, err := a.sync.SyncAll(ctx, a.emitProgress)
	if err != nil {
		return result, err
	}

	return result, nil
}

// SubscribeProgress registers a callback invoked synchronously after every
// entry processed during a drain. The returned function removes the listener.
func (a *App) SubscribeProgress(fn func(mutation.SyncProgress)) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.progressSubs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.progressSubs, id)
		a.mu.Unlock()
	}
}

func (a *App) emitProgress(p mutation.SyncProgress) {
	a.mu.Lock()
	subs := make([]func(mutation.SyncProgress), 0, len(a.progressSubs))
	for _, fn := range a.progressSubs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
}

// Mutate routes a write. Online, the remote store is called directly and the
// cache change is rolled back if the call fails. Offline, the write is queued
// and the cache change sticks so the UI reflects unsynced intent.
func (a *App) Mutate(ctx context.Context, m mutation.QueuedMutation) (*MutationOutcome, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if !a.monitor.IsOnline() {
		return a.mutateOffline(m)
	}

	return a.mutateOnline(ctx, m)
}

func (a *App) mutateOffline(m mutation.QueuedMutation) (*MutationOutcome, error) {
	if m.Operation == mutation.OpCreate && m.EntityID == "" {
		m.EntityID = mutation.NewTempID()
	}

	entry, err := a.queue.Enqueue(&m)
	if err != nil {
		return nil, err
	}

	a.applyToCache(entry.Operation, entry.Table, entry.EntityID, entry.Payload)

	return &MutationOutcome{EntityID: entry.EntityID, Queued: true}, nil
}

func (a *App) mutateOnline(ctx context.Context, m mutation.QueuedMutation) (*MutationOutcome, error) {
	switch m.Operation {
	case mutation.OpCreate:
		serverID, err := a.remote.CreateRecord(ctx, m.Table, m.Payload, "")
		if err != nil {
			return nil, err
		}
		a.applyToCache(mutation.OpCreate, m.Table, serverID, m.Payload)
		return &MutationOutcome{EntityID: serverID}, nil

	case mutation.OpUpdate:
		prior, priorErr := a.cache.Get(m.Table, m.EntityID)
		a.applyToCache(mutation.OpUpdate, m.Table, m.EntityID, m.Payload)

		if err := a.remote.UpdateRecord(ctx, m.Table, m.EntityID, m.Payload); err != nil {
			a.rollback(m.Table, m.EntityID, prior, priorErr == nil)
			return nil, err
		}
		return &MutationOutcome{EntityID: m.EntityID}, nil

	case mutation.OpDelete:
		prior, priorErr := a.cache.Get(m.Table, m.EntityID)
		a.applyToCache(mutation.OpDelete, m.Table, m.EntityID, nil)

		if err := a.remote.DeleteRecord(ctx, m.Table, m.EntityID); err != nil {
			a.rollback(m.Table, m.EntityID, prior, priorErr == nil)
			return nil, err
		}
		return &MutationOutcome{EntityID: m.EntityID}, nil

	default:
		return nil, mutation.ErrInvalidOperation
	}
}

func (a *App) applyToCache(op mutation.Operation, table, id string, payload map[string]interface{}) {
	var err error
	switch op {
	case mutation.OpCreate:
		err = a.cache.Upsert(table, id, payload)
	case mutation.OpUpdate:
		err = a.cache.Merge(table, id, payload)
	case mutation.OpDelete:
		err = a.cache.Delete(table, id)
	}
	if err != nil {
		a.Log.Warn("failed to apply cache change", "table", table, "id", id, "error", err)
	}
}

func (a *App) rollback(table, id string, prior map[string]interface{}, existed bool) {
	var err error
	if existed {
		err = a.cache.Upsert(table, id, prior)
	} else {
		err = a.cache.Delete(table, id)
	}
	if err != nil {
		a.Log.Warn("failed to roll back cache change", "table", table, "id", id, "error", err)
	}
}

// Refresh replaces the cached rows for a table with a fresh server listing.
// Refreshing while offline fails with ErrOffline.
func (a *App) Refresh(ctx context.Context, table string) error {
	if !a.monitor.IsOnline() {
		return ErrOffline
	}

	rows, err := a.remote.ListRecords(ctx, table)
	if err != nil {
		return err
	}

	return a.cache.ReplaceTable(table, rows)
}

// CreatePatient adds a patient card.
func (a *App) CreatePatient(ctx context.Context, p *patient.Patient) (*MutationOutcome, error) {
	payload := p.Payload()
	if err := patient.ValidatePayload(payload); err != nil {
		return nil, err
	}
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpCreate,
		Table:     patient.Table,
		Payload:   payload,
	})
}

// UpdatePatient merges fields into an existing patient card.
func (a *App) UpdatePatient(ctx context.Context, id string, fields map[string]interface{}) (*MutationOutcome, error) {
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpUpdate,
		Table:     patient.Table,
		EntityID:  id,
		Payload:   fields,
	})
}

// DeletePatient removes a patient card.
func (a *App) DeletePatient(ctx context.Context, id string) (*MutationOutcome, error) {
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "patient",
		Operation: mutation.OpDelete,
		Table:     patient.Table,
		EntityID:  id,
	})
}

// ListPatients reads patient cards from the local cache.
func (a *App) ListPatients() ([]*patient.Patient, error) {
	rows, err := a.cache.List(patient.Table)
	if err != nil {
		return nil, err
	}

	out := make([]*patient.Patient, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		out = append(out, patient.FromPayload(id, row))
	}
	return out, nil
}

// AddTodo attaches a task to a patient card.
func (a *App) AddTodo(ctx context.Context, t *todo.Todo) (*MutationOutcome, error) {
	payload := t.Payload()
	if err := todo.ValidatePayload(payload); err != nil {
		return nil, err
	}
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "todo",
		Operation: mutation.OpCreate,
		Table:     todo.Table,
		Payload:   payload,
	})
}

// SetTodoDone flips the done flag on a task.
func (a *App) SetTodoDone(ctx context.Context, id string, done bool) (*MutationOutcome, error) {
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "todo",
		Operation: mutation.OpUpdate,
		Table:     todo.Table,
		EntityID:  id,
		Payload:   map[string]interface{}{"done": done},
	})
}

// DeleteTodo removes a task.
func (a *App) DeleteTodo(ctx context.Context, id string) (*MutationOutcome, error) {
	return a.Mutate(ctx, mutation.QueuedMutation{
		Type:      "todo",
		Operation: mutation.OpDelete,
		Table:     todo.Table,
		EntityID:  id,
	})
}

// ListTodos reads tasks from the local cache, optionally filtered by patient.
func (a *App) ListTodos(patientID string) ([]*todo.Todo, error) {
	rows, err := a.cache.List(todo.Table)
	if err != nil {
		return nil, err
	}

	out := make([]*todo.Todo, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		t := todo.FromPayload(id, row)
		if patientID != "" && t.PatientID != patientID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Status derives the coordinator state from connectivity and sync activity.
func (a *App) Status() Status {
	if !a.monitor.IsOnline() {
		return StatusOffline
	}
	if a.sync.IsSyncing() {
		return StatusSyncing
	}
	return StatusOnline
}

// IsOnline reports the last known connectivity.
func (a *App) IsOnline() bool {
	return a.monitor.IsOnline()
}

// SetOnline overrides connectivity, mainly for tooling and tests.
func (a *App) SetOnline(online bool) {
	a.monitor.SetOnline(online)
}

// IsSyncing reports whether a drain is running.
func (a *App) IsSyncing() bool {
	return a.sync.IsSyncing()
}

// PendingCount returns the queue length, exhausted entries included.
func (a *App) PendingCount() int {
	return a.queue.Len()
}

// ExhaustedCount returns how many queued entries ran out of retries.
func (a *App) ExhaustedCount() int {
	return a.queue.ExhaustedCount()
}

// LastSyncTime returns when the last drain with at least one completed entry
// finished.
func (a *App) LastSyncTime() time.Time {
	return a.sync.LastSyncTime()
}

// QueueSnapshot returns a copy of the pending queue in FIFO order.
func (a *App) QueueSnapshot() []*mutation.QueuedMutation {
	return a.queue.Snapshot()
}

// SubscribeQueue registers a callback invoked after every queue change. The
// returned function removes the listener.
func (a *App) SubscribeQueue(fn func([]*mutation.QueuedMutation)) func() {
	return a.queue.Subscribe(fn)
}

// ClearQueue discards every pending entry, the only way to get rid of
// exhausted ones.
func (a *App) ClearQueue() {
	a.queue.Clear()
}

// Close stops the probe loop and closes the local stores.
func (a *App) Close() {
	a.monitor.Stop()

	a.mu.Lock()
	if a.reconnect != nil {
		a.reconnect.Stop()
		a.reconnect = nil
	}
	a.mu.Unlock()

	if err := a.queueStore.Close(); err != nil {
		a.Log.Warn("failed to close queue store", "error", err)
	}
	if err := a.cache.Close(); err != nil {
		a.Log.Warn("failed to close cache", "error", err)
	}
}

type contextKey struct{}

// NewContext attaches the app to a context for command handlers.
func NewContext(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, contextKey{}, app)
}

// FromContext extracts the app placed by NewContext.
func FromContext(ctx context.Context) (*App, bool) {
	app, ok := ctx.Value(contextKey{}).(*App)
	return app, ok
}
