package row

import "context"

// Repository is the server-side row store.
type Repository interface {
	// Create inserts a row and returns it with its assigned id. When
	// idempotencyKey is non-empty and was seen before, the original row is
	// returned instead of inserting a duplicate.
	Create(ctx context.Context, table string, payload map[string]interface{}, idempotencyKey string) (*Row, error)
	// Update merges payload into an existing row.
	Update(ctx context.Context, table, id string, payload map[string]interface{}) (*Row, error)
	Delete(ctx context.Context, table, id string) error
	Get(ctx context.Context, table, id string) (*Row, error)
	List(ctx context.Context, table string) ([]Row, error)
}
