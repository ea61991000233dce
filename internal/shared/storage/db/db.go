package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"descomplicacv/internal/shared/telemetry"
)

// Options sizes the pool behind the conversion history.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// HistoryOptions suits the API process: one insert per conversion plus paged list reads.
func HistoryOptions() Options {
	return Options{
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// MigrateOptions suits cmd/migrate, which holds a single connection for goose.
func MigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// Validate rejects pools that cannot serve a single history write.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.MaxOpenConns, validation.Required, validation.Min(1)),
		validation.Field(&o.MaxIdleConns, validation.Min(0), validation.Max(o.MaxOpenConns)),
		validation.Field(&o.ConnMaxLifetime, validation.Min(time.Duration(0))),
		validation.Field(&o.ConnMaxIdleTime, validation.Min(time.Duration(0))),
		validation.Field(&o.PingTimeout, validation.Min(time.Duration(0))),
	)
}

// OptionsFromEnv overrides defaults with DB_* env vars. Unparsable values keep the default.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	readEnv("DB_MAX_OPEN_CONNS", strconv.Atoi, &opts.MaxOpenConns)
	readEnv("DB_MAX_IDLE_CONNS", strconv.Atoi, &opts.MaxIdleConns)
	readEnv("DB_CONN_MAX_LIFETIME", time.ParseDuration, &opts.ConnMaxLifetime)
	readEnv("DB_CONN_MAX_IDLE_TIME", time.ParseDuration, &opts.ConnMaxIdleTime)
	readEnv("DB_PING_TIMEOUT", time.ParseDuration, &opts.PingTimeout)
	return opts
}

// Connect opens the conversion history database through the pgx driver and pings it.
// The returned *sql.DB is shared by the history repo for the life of the process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("history pool options: %w", err)
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	stats := db.Stats()
	telemetry.Info("history_db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"max_idle": opts.MaxIdleConns,
		"open":     stats.OpenConnections,
	})
	return db, nil
}

func readEnv[T any](key string, parse func(string) (T, error), dst *T) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := parse(raw)
	if err != nil {
		telemetry.Warn("history_db.env_invalid", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}
