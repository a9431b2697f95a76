package patient

import "errors"

var (
	ErrNotFound     = errors.New("patient not found")
	ErrNameRequired = errors.New("patient name is required")
)
