package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/mutation"
)

// SyncService drains the mutation queue against the remote store. Only one
// drain runs at a time; a second caller gets ErrSyncInProgress instead of
// waiting.
type SyncService struct {
	queue  *MutationQueue
	remote RemoteStore
	cache  EntityCache
	log    *slog.Logger

	mu        sync.Mutex
	isSyncing bool
	lastSync  time.Time
}

// NewSyncService creates a sync service over the given queue, remote store
// and local cache.
func NewSyncService(queue *MutationQueue, remote RemoteStore, cache EntityCache, log *slog.Logger) *SyncService {
	return &SyncService{
		queue:  queue,
		remote: remote,
		cache:  cache,
		log:    log.With("component", "sync"),
	}
}

// SyncAll processes the pending queue in FIFO order, one attempt per entry
// per run. Successful entries are removed; failed entries keep their place
// with an incremented retry counter, or are exhausted outright when the
// failure can never succeed on retry. Entries already exhausted are skipped.
// The progress callback, if set, runs synchronously after every processed
// entry.
func (s *SyncService) SyncAll(ctx context.Context, progress func(mutation.SyncProgress)) (*mutation.SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	var pending []*mutation.QueuedMutation
	for _, entry := range s.queue.Snapshot() {
		if !entry.Exhausted() {
			pending = append(pending, entry)
		}
	}

	result := &mutation.SyncResult{}
	total := len(pending)

	s.log.Info("sync started", "pending", total)

	for _, stale := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Re-read the live entry: an earlier create in this run may have
		// rewritten its entity id.
		entry, err := s.queue.Get(stale.ID)
		if err != nil {
			continue
		}

		if err := s.process(ctx, entry); err != nil {
			result.Failed++
			s.fail(entry, err)
		} else {
			result.Completed++
			s.queue.Remove(entry.ID)
		}

		if progress != nil {
			progress(mutation.SyncProgress{
				Current:   entry.Describe(),
				Completed: result.Completed,
				Total:     total,
			})
		}
	}

	if result.Completed > 0 {
		s.mu.Lock()
		s.lastSync = time.Now()
		s.mu.Unlock()
	}

	s.log.Info("sync finished", "completed", result.Completed, "failed", result.Failed)

	return result, nil
}

func (s *SyncService) process(ctx context.Context, entry *mutation.QueuedMutation) error {
	switch entry.Operation {
	case mutation.OpCreate:
		serverID, err := s.remote.CreateRecord(ctx, entry.Table, entry.Payload, entry.IdempotencyKey)
		if err != nil {
			return err
		}
		if entry.EntityID != "" && mutation.IsTempID(entry.EntityID) && serverID != entry.EntityID {
			s.queue.RewriteEntityID(entry.EntityID, serverID)
			if err := s.cache.Rename(entry.Table, entry.EntityID, serverID); err != nil {
				s.log.Warn("failed to rename cached row", "table", entry.Table, "error", err)
			}
			// Cached rows in other tables may still reference the temp id.
			if err := s.cache.RewriteRefs(entry.EntityID, serverID); err != nil {
				s.log.Warn("failed to rewrite cached references", "error", err)
			}
		}
		return nil
	case mutation.OpUpdate:
		return s.remote.UpdateRecord(ctx, entry.Table, entry.EntityID, entry.Payload)
	case mutation.OpDelete:
		return s.remote.DeleteRecord(ctx, entry.Table, entry.EntityID)
	default:
		return mutation.ErrInvalidOperation
	}
}

// fail bumps the retry counter, or exhausts the entry immediately when the
// remote rejected it for good.
func (s *SyncService) fail(entry *mutation.QueuedMutation, err error) {
	retries := entry.RetryCount + 1

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Permanent() {
		retries = entry.MaxRetries
		s.log.Warn("mutation rejected, retries exhausted",
			"mutation", entry.Describe(), "status", remoteErr.StatusCode)
	} else {
		s.log.Warn("mutation failed, will retry",
			"mutation", entry.Describe(), "retries", retries, "error", err)
	}

	if err := s.queue.SetRetryCount(entry.ID, retries); err != nil {
		s.log.Warn("failed to record retry count", "mutation", entry.ID, "error", err)
	}
}

// IsSyncing reports whether a drain is currently running.
func (s *SyncService) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSyncing
}

// LastSyncTime returns when the last drain that completed at least one entry
// finished, or the zero time if none has.
func (s *SyncService) LastSyncTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}
