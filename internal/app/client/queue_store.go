package client

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"roundkeeper/internal/domain/mutation"
)

// QueueStore persists the pending mutation queue between runs.
type QueueStore interface {
	Load() ([]*mutation.QueuedMutation, error)
	Save(entries []*mutation.QueuedMutation) error
	Close() error
}

// SQLiteQueueStore keeps queued mutations in a local SQLite file. The queue
// is written as a full snapshot on every change so the file always reflects
// the in-memory order.
type SQLiteQueueStore struct {
	db *sql.DB
}

// NewSQLiteQueueStore opens (or creates) the queue database at path.
func NewSQLiteQueueStore(path string) (*SQLiteQueueStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	store := &SQLiteQueueStore{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteQueueStore) initTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS mutation_queue (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		data TEXT NOT NULL
	);`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create mutation_queue table: %w", err)
	}

	return nil
}

// Load reads the persisted queue in FIFO order. Rows that fail to decode are
// skipped so a corrupt snapshot degrades to a shorter (or empty) queue
// instead of blocking startup.
func (s *SQLiteQueueStore) Load() ([]*mutation.QueuedMutation, error) {
	rows, err := s.db.Query(`SELECT data FROM mutation_queue ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load mutation queue: %w", err)
	}
	defer rows.Close()

	var entries []*mutation.QueuedMutation
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var entry mutation.QueuedMutation
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mutation queue rows: %w", err)
	}

	return entries, nil
}

// Save replaces the persisted snapshot with the given entries.
func (s *SQLiteQueueStore) Save(entries []*mutation.QueuedMutation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin queue transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mutation_queue`); err != nil {
		return fmt.Errorf("failed to clear mutation queue: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO mutation_queue (id, data) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare queue insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode queued mutation %s: %w", entry.ID, err)
		}
		if _, err := stmt.Exec(entry.ID, string(data)); err != nil {
			return fmt.Errorf("failed to insert queued mutation %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit queue snapshot: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLiteQueueStore) Close() error {
	return s.db.Close()
}

// MemoryQueueStore is the fallback store used when the SQLite file cannot be
// opened. The queue survives only as long as the process.
type MemoryQueueStore struct {
	entries []*mutation.QueuedMutation
}

// NewMemoryQueueStore creates an empty in-memory queue store.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{}
}

// Load returns the last saved snapshot.
func (s *MemoryQueueStore) Load() ([]*mutation.QueuedMutation, error) {
	out := make([]*mutation.QueuedMutation, len(s.entries))
	for i, entry := range s.entries {
		clone := *entry
		out[i] = &clone
	}
	return out, nil
}

// Save keeps a copy of the snapshot in memory.
func (s *MemoryQueueStore) Save(entries []*mutation.QueuedMutation) error {
	out := make([]*mutation.QueuedMutation, len(entries))
	for i, entry := range entries {
		clone := *entry
		out[i] = &clone
	}
	s.entries = out
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryQueueStore) Close() error {
	return nil
}

var _ QueueStore = (*SQLiteQueueStore)(nil)
var _ QueueStore = (*MemoryQueueStore)(nil)
