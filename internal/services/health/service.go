package health

import (
	"context"
	"database/sql"
	"time"
)

// Service encapsulates health-related checks.
type Service struct {
	DB      *sql.DB
	Timeout time.Duration
}

// NewService constructs a health service. db may be nil when history is kept in memory.
func NewService(db ...*sql.DB) *Service {
	s := &Service{Timeout: 2 * time.Second}
	if len(db) > 0 {
		s.DB = db[0]
	}
	return s
}

// Status reports overall health plus the state of the history database.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{"ok": true, "database": "disabled"}
	if s.DB == nil {
		return out
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		out["ok"] = false
		out["database"] = "down"
		return out
	}
	out["database"] = "up"
	return out
}
