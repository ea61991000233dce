package fileutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"descomplicacv/internal/shared/util"
)

// DownloadFile hands blob to the browser as an attachment named fileName.
func DownloadFile(w http.ResponseWriter, blob []byte, fileName string) error {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		name = DefaultConvertedName
	}
	h := w.Header()
	h.Set("Content-Type", http.DetectContentType(blob))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	h.Set("Content-Length", strconv.Itoa(len(blob)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("write download: %w", err)
	}
	return nil
}

// SaveFile is the filesystem save-as: blob is written to a temporary file in dir,
// which is then renamed to fileName. The temporary file is always released.
// It returns the final path.
func SaveFile(dir, fileName string, blob io.Reader) (path string, err error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save file: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("save file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			path = ""
			err = errors.Join(err, fmt.Errorf("save file: release temp: %w", rmErr))
		}
	}()

	if _, err := io.Copy(tmp, blob); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save file: close: %w", err)
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("save file: rename: %w", err)
	}
	return target, nil
}
