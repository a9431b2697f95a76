package mutation

import "errors"

var (
	ErrNotFound         = errors.New("queued mutation not found")
	ErrInvalidOperation = errors.New("invalid mutation operation")
	ErrMissingTable     = errors.New("mutation table is required")
	ErrMissingEntityID  = errors.New("entity id is required for update and delete")
)
