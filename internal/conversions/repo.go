package conversions

import "context"

// History page sizes shared by every Repo and the list endpoint.
const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// Repo defines persistence operations for the conversion history.
type Repo interface {
	Create(ctx context.Context, conv Conversion) error
	GetByID(ctx context.Context, id string) (Conversion, error)
	List(ctx context.Context, limit, offset int) ([]Conversion, error)
}

// ClampLimit maps a requested page size onto [1, MaxListLimit]; non-positive means DefaultListLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
