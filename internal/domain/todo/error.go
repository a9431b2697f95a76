package todo

import "errors"

var (
	ErrNotFound        = errors.New("todo not found")
	ErrTextRequired    = errors.New("todo text is required")
	ErrPatientRequired = errors.New("todo patient id is required")
)
