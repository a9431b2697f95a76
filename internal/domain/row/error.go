package row

import "errors"

var (
	ErrNotFound     = errors.New("row not found")
	ErrUnknownTable = errors.New("unknown table")
)
