package object

import (
	"context"
	"io"
)

// ObjectStore archives generated files and serves them back by key.
type ObjectStore interface {
	// Save stores r under the conversion's namespace and reports the key, size and sniffed MIME type.
	Save(ctx context.Context, conversionID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
