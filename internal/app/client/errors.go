package client

import "errors"

var (
	// ErrSyncInProgress is returned when a drain is requested while another
	// one is still running. Concurrent drains over the same queue would
	// double-apply entries, so the second caller is rejected immediately.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned by operations that require connectivity.
	ErrOffline = errors.New("client is offline")

	// ErrCacheMiss is returned by cache lookups for unknown rows.
	ErrCacheMiss = errors.New("row not cached")
)
