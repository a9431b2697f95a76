package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// EntityCache is the local read model. Rows are open field maps keyed by
// table and id, mirroring what the remote store holds plus any optimistic
// writes that have not synced yet.
type EntityCache interface {
	Upsert(table, id string, payload map[string]interface{}) error
	Merge(table, id string, payload map[string]interface{}) error
	Get(table, id string) (map[string]interface{}, error)
	List(table string) ([]map[string]interface{}, error)
	Delete(table, id string) error
	Rename(table, oldID, newID string) error
	RewriteRefs(oldID, newID string) error
	ReplaceTable(table string, rows []map[string]interface{}) error
	Close() error
}

// SQLiteCache stores cached rows in a local SQLite file so reads work across
// restarts while offline.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache := &SQLiteCache{db: db}
	if err := cache.initTables(); err != nil {
		db.Close()
		return nil, err
	}

	return cache, nil
}

func (c *SQLiteCache) initTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_rows (
		table_name TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (table_name, id)
	);`

	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create cache_rows table: %w", err)
	}

	return nil
}

// Upsert replaces the cached row wholesale.
func (c *SQLiteCache) Upsert(table, id string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cached row: %w", err)
	}

	query := `
	INSERT INTO cache_rows (table_name, id, data) VALUES (?, ?, ?)
	ON CONFLICT(table_name, id) DO UPDATE SET data = excluded.data`

	if _, err := c.db.Exec(query, table, id, string(data)); err != nil {
		return fmt.Errorf("failed to upsert cached row: %w", err)
	}

	return nil
}

// Merge overlays payload onto the cached row, creating it if absent.
func (c *SQLiteCache) Merge(table, id string, payload map[string]interface{}) error {
	existing, err := c.Get(table, id)
	if err != nil {
		existing = map[string]interface{}{}
	}
	for k, v := range payload {
		existing[k] = v
	}
	return c.Upsert(table, id, existing)
}

// Get returns the cached row or ErrCacheMiss.
func (c *SQLiteCache) Get(table, id string) (map[string]interface{}, error) {
	var data string
	err := c.db.QueryRow(`SELECT data FROM cache_rows WHERE table_name = ? AND id = ?`, table, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached row: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode cached row: %w", err)
	}

	return payload, nil
}

// List returns every cached row in a table, each map carrying its "id".
func (c *SQLiteCache) List(table string) ([]map[string]interface{}, error) {
	rows, err := c.db.Query(`SELECT id, data FROM cache_rows WHERE table_name = ? ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached rows: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan cached row: %w", err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue
		}
		payload["id"] = id
		out = append(out, payload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cached rows: %w", err)
	}

	return out, nil
}

// Delete removes a cached row. Deleting an absent row is a no-op.
func (c *SQLiteCache) Delete(table, id string) error {
	if _, err := c.db.Exec(`DELETE FROM cache_rows WHERE table_name = ? AND id = ?`, table, id); err != nil {
		return fmt.Errorf("failed to delete cached row: %w", err)
	}
	return nil
}

// Rename moves a cached row to a new id, used when a temp id is assigned its
// server id.
func (c *SQLiteCache) Rename(table, oldID, newID string) error {
	if _, err := c.db.Exec(`UPDATE cache_rows SET id = ? WHERE table_name = ? AND id = ?`, newID, table, oldID); err != nil {
		return fmt.Errorf("failed to rename cached row: %w", err)
	}
	return nil
}

// RewriteRefs replaces oldID with newID wherever it appears as a field value
// in a cached row, across all tables. Used when a temp id is assigned its
// server id and other rows still point at it.
func (c *SQLiteCache) RewriteRefs(oldID, newID string) error {
	rows, err := c.db.Query(`SELECT table_name, id, data FROM cache_rows WHERE data LIKE ?`, "%"+oldID+"%")
	if err != nil {
		return fmt.Errorf("failed to scan cached rows: %w", err)
	}
	defer rows.Close()

	type update struct {
		table, id, data string
	}
	var updates []update

	for rows.Next() {
		var table, id, data string
		if err := rows.Scan(&table, &id, &data); err != nil {
			return fmt.Errorf("failed to scan cached row: %w", err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue
		}

		changed := false
		for key, value := range payload {
			if ref, ok := value.(string); ok && ref == oldID {
				payload[key] = newID
				changed = true
			}
		}
		if !changed {
			continue
		}

		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode cached row: %w", err)
		}
		updates = append(updates, update{table: table, id: id, data: string(encoded)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read cached rows: %w", err)
	}

	for _, u := range updates {
		if _, err := c.db.Exec(`UPDATE cache_rows SET data = ? WHERE table_name = ? AND id = ?`, u.data, u.table, u.id); err != nil {
			return fmt.Errorf("failed to rewrite cached row: %w", err)
		}
	}

	return nil
}

// ReplaceTable swaps the whole table for a fresh server listing.
func (c *SQLiteCache) ReplaceTable(table string, newRows []map[string]interface{}) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cache_rows WHERE table_name = ?`, table); err != nil {
		return fmt.Errorf("failed to clear cached table: %w", err)
	}

	for _, row := range newRows {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}

		payload := make(map[string]interface{}, len(row))
		for k, v := range row {
			if k == "id" {
				continue
			}
			payload[k] = v
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode cached row %s: %w", id, err)
		}
		if _, err := tx.Exec(`INSERT INTO cache_rows (table_name, id, data) VALUES (?, ?, ?)`, table, id, string(data)); err != nil {
			return fmt.Errorf("failed to insert cached row %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache replace: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// MemoryCache is the fallback read model used when the SQLite file cannot be
// opened.
type MemoryCache struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]interface{}
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		tables: make(map[string]map[string]map[string]interface{}),
	}
}

func (c *MemoryCache) tableLocked(table string) map[string]map[string]interface{} {
	t, ok := c.tables[table]
	if !ok {
		t = make(map[string]map[string]interface{})
		c.tables[table] = t
	}
	return t
}

func clonePayload(payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func (c *MemoryCache) Upsert(table, id string, payload map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableLocked(table)[id] = clonePayload(payload)
	return nil
}

func (c *MemoryCache) Merge(table, id string, payload map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.tableLocked(table)
	existing, ok := t[id]
	if !ok {
		existing = map[string]interface{}{}
	}
	for k, v := range payload {
		existing[k] = v
	}
	t[id] = existing
	return nil
}

func (c *MemoryCache) Get(table, id string) (map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[table]
	if !ok {
		return nil, ErrCacheMiss
	}
	payload, ok := t[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	return clonePayload(payload), nil
}

func (c *MemoryCache) List(table string) ([]map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.tables[table]
	out := make([]map[string]interface{}, 0, len(t))
	for id, payload := range t {
		row := clonePayload(payload)
		row["id"] = id
		out = append(out, row)
	}
	return out, nil
}

func (c *MemoryCache) Delete(table, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tableLocked(table), id)
	return nil
}

func (c *MemoryCache) Rename(table, oldID, newID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.tableLocked(table)
	payload, ok := t[oldID]
	if !ok {
		return nil
	}
	delete(t, oldID)
	t[newID] = payload
	return nil
}

func (c *MemoryCache) RewriteRefs(oldID, newID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tables {
		for _, payload := range t {
			for key, value := range payload {
				if ref, ok := value.(string); ok && ref == oldID {
					payload[key] = newID
				}
			}
		}
	}
	return nil
}

func (c *MemoryCache) ReplaceTable(table string, rows []map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		payload := clonePayload(row)
		delete(payload, "id")
		t[id] = payload
	}
	c.tables[table] = t
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

var _ EntityCache = (*SQLiteCache)(nil)
var _ EntityCache = (*MemoryCache)(nil)
