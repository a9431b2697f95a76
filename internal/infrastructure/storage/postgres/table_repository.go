package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/row"
)

// TableRepository stores open-schema rows in PostgreSQL, one JSONB payload
// per record.
type TableRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTableRepository(pool *pgxpool.Pool, log *slog.Logger) *TableRepository {
	return &TableRepository{
		pool: pool,
		log:  log.With("component", "table_repository"),
	}
}

// Create inserts a row. A repeated idempotency key returns the row the first
// request created, so retried creates never duplicate.
func (r *TableRepository) Create(ctx context.Context, table string, payload map[string]interface{}, idempotencyKey string) (*row.Row, error) {
	if !row.Known(table) {
		return nil, row.ErrUnknownTable
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	if idempotencyKey != "" {
		const lookup = `
			SELECT r.id, r.table_name, r.payload, r.created_at, r.updated_at
			FROM idempotency_keys k
			JOIN rows r ON r.id = k.row_id
			WHERE k.key = $1`

		existing, err := r.scanRow(tx.QueryRow(ctx, lookup, idempotencyKey))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Error("failed to look up idempotency key", "key", idempotencyKey, "error", err)
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	const insert = `
		INSERT INTO rows (id, table_name, payload)
		VALUES ($1, $2, $3)
		RETURNING id, table_name, payload, created_at, updated_at`

	created, err := r.scanRow(tx.QueryRow(ctx, insert, uuid.New().String(), table, data))
	if err != nil {
		r.log.Error("failed to create row", "table", table, "error", err)
		return nil, fmt.Errorf("create row: %w", err)
	}

	if idempotencyKey != "" {
		const remember = `INSERT INTO idempotency_keys (key, row_id) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, remember, idempotencyKey, created.ID); err != nil {
			r.log.Error("failed to store idempotency key", "key", idempotencyKey, "error", err)
			return nil, fmt.Errorf("store idempotency key: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	return created, nil
}

// Update merges payload into an existing row's JSONB document.
func (r *TableRepository) Update(ctx context.Context, table, id string, payload map[string]interface{}) (*row.Row, error) {
	if !row.Known(table) {
		return nil, row.ErrUnknownTable
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	const query = `
		UPDATE rows
		SET payload = payload || $3::jsonb, updated_at = NOW()
		WHERE id = $1 AND table_name = $2
		RETURNING id, table_name, payload, created_at, updated_at`

	updated, err := r.scanRow(r.pool.QueryRow(ctx, query, id, table, data))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, row.ErrNotFound
		}
		r.log.Error("failed to update row", "table", table, "id", id, "error", err)
		return nil, fmt.Errorf("update row: %w", err)
	}

	return updated, nil
}

func (r *TableRepository) Delete(ctx context.Context, table, id string) error {
	if !row.Known(table) {
		return row.ErrUnknownTable
	}

	const query = `DELETE FROM rows WHERE id = $1 AND table_name = $2`

	result, err := r.pool.Exec(ctx, query, id, table)
	if err != nil {
		r.log.Error("failed to delete row", "table", table, "id", id, "error", err)
		return fmt.Errorf("delete row: %w", err)
	}

	if result.RowsAffected() == 0 {
		return row.ErrNotFound
	}

	return nil
}

func (r *TableRepository) Get(ctx context.Context, table, id string) (*row.Row, error) {
	if !row.Known(table) {
		return nil, row.ErrUnknownTable
	}

	const query = `
		SELECT id, table_name, payload, created_at, updated_at
		FROM rows
		WHERE id = $1 AND table_name = $2`

	found, err := r.scanRow(r.pool.QueryRow(ctx, query, id, table))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, row.ErrNotFound
		}
		r.log.Error("failed to get row", "table", table, "id", id, "error", err)
		return nil, fmt.Errorf("get row: %w", err)
	}

	return found, nil
}

func (r *TableRepository) List(ctx context.Context, table string) ([]row.Row, error) {
	if !row.Known(table) {
		return nil, row.ErrUnknownTable
	}

	const query = `
		SELECT id, table_name, payload, created_at, updated_at
		FROM rows
		WHERE table_name = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		r.log.Error("failed to list rows", "table", table, "error", err)
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []row.Row
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	return out, rows.Err()
}

func (r *TableRepository) scanRow(src interface {
	Scan(dest ...interface{}) error
}) (*row.Row, error) {
	var rec row.Row
	var data []byte

	if err := src.Scan(&rec.ID, &rec.Table, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return &rec, nil
}

var _ row.Repository = (*TableRepository)(nil)
