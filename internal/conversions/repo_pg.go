package conversions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"descomplicacv/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const conversionColumns = `id, file_name, source_format, content_type, size_bytes, checksum, status, summary, error_message, output_key, output_bytes, duration_ms, created_at`

// Create inserts a conversion record.
func (r *PGRepo) Create(ctx context.Context, conv Conversion) error {
	const query = `
INSERT INTO conversions (
    id,
    file_name,
    source_format,
    content_type,
    size_bytes,
    checksum,
    status,
    summary,
    error_message,
    output_key,
    output_bytes,
    duration_ms,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var summary []byte
	if conv.Summary != nil {
		raw, err := json.Marshal(conv.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		summary = raw
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		conv.ID,
		conv.FileName,
		conv.SourceFormat,
		conv.ContentType,
		conv.SizeBytes,
		conv.Checksum,
		conv.Status,
		summary,
		nullString(conv.ErrorMessage),
		nullString(conv.OutputKey),
		conv.OutputBytes,
		conv.DurationMs,
		conv.CreatedAt,
	)
	return err
}

// GetByID fetches a conversion by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1 LIMIT 1`
	conv, err := scanConversion(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		return Conversion{}, err
	}
	return conv, nil
}

// List returns conversions ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Conversion, error) {
	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + conversionColumns + ` FROM conversions ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversion{}
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (Conversion, error) {
	var conv Conversion
	var summary []byte
	var errorMessage sql.NullString
	var outputKey sql.NullString
	if err := row.Scan(
		&conv.ID,
		&conv.FileName,
		&conv.SourceFormat,
		&conv.ContentType,
		&conv.SizeBytes,
		&conv.Checksum,
		&conv.Status,
		&summary,
		&errorMessage,
		&outputKey,
		&conv.OutputBytes,
		&conv.DurationMs,
		&conv.CreatedAt,
	); err != nil {
		return Conversion{}, err
	}
	if len(summary) > 0 {
		var s extract.Summary
		if err := json.Unmarshal(summary, &s); err != nil {
			return Conversion{}, fmt.Errorf("decode summary for %s: %w", conv.ID, err)
		}
		conv.Summary = &s
	}
	if errorMessage.Valid {
		conv.ErrorMessage = errorMessage.String
	}
	if outputKey.Valid {
		conv.OutputKey = outputKey.String
	}
	return conv, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
