package conversions

import "errors"

var (
	ErrNotFound      = errors.New("conversion not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotArchived   = errors.New("converted file not archived")
	ErrSampleMissing = errors.New("sample pdf not available")
)
