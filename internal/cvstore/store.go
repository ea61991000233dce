// Package cvstore holds the front end's conversion state: whether an upload is in flight,
// which file it is and the last failure, plus a short history of outcomes.
package cvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"descomplicacv/internal/cvapi"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/metrics"
	"descomplicacv/internal/shared/telemetry"
)

// FailureMessage is the user-facing error recorded whenever a conversion fails.
const FailureMessage = "failed to process the résumé"

const defaultHistoryLimit = 20

var (
	ErrBusy            = errors.New("a conversion is already in progress")
	ErrInvalidFileType = errors.New("file type is not allowed")
	ErrNoResult        = errors.New("no converted résumé to download")
)

// ConversionError is returned by UploadCV when the backend call fails.
type ConversionError struct {
	FileName string
	Err      error
}

func (e *ConversionError) Error() string {
	return FailureMessage + ": " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Converter sends a résumé to the conversion backend.
type Converter interface {
	ConvertCV(ctx context.Context, req cvapi.ConversionRequest) ([]byte, error)
}

// FileInfo identifies the file being converted.
type FileInfo struct {
	Name string
	Type string
	Size int64
}

// State is a snapshot of the store.
type State struct {
	Processing  bool
	CurrentFile *FileInfo
	Error       string
}

// HistoryEntry records one finished upload.
type HistoryEntry struct {
	File        FileInfo
	Succeeded   bool
	Error       string
	OutputBytes int
	StartedAt   time.Time
	DurationMs  float64
}

// Store serializes uploads and exposes their state. The zero value is not usable; call New.
type Store struct {
	conv         Converter
	allowedTypes []string
	historyLimit int
	observers    []func(State)

	mu      sync.Mutex
	state   State
	history []HistoryEntry
	last    *result
}

type result struct {
	fileName string
	pdf      []byte
}

// Option configures a Store.
type Option func(*Store)

// WithAllowedTypes restricts uploads to the given declared MIME types.
func WithAllowedTypes(types []string) Option {
	return func(s *Store) {
		s.allowedTypes = append([]string(nil), types...)
	}
}

// WithHistoryLimit caps how many outcomes History keeps.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// Observers run synchronously and must not call back into the store's mutating methods.
func WithObserver(fn func(State)) Option {
	return func(s *Store) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// New builds a Store around conv.
func New(conv Converter, opts ...Option) *Store {
	s := &Store{conv: conv, historyLimit: defaultHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// History returns past outcomes, newest first.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// AllowedTypes returns the configured allow-list.
func (s *Store) AllowedTypes() []string {
	return append([]string(nil), s.allowedTypes...)
}

// UploadCV converts req through the backend and returns the PDF bytes.
// Processing is true for the whole call and false again on every return path.
func (s *Store) UploadCV(ctx context.Context, req cvapi.ConversionRequest) ([]byte, error) {
	if len(s.allowedTypes) > 0 && !fileutil.IsValidFileType(req, s.allowedTypes) {
		metrics.IncConversionRejected()
		return nil, ErrInvalidFileType
	}

	file := FileInfo{Name: req.FileName, Type: req.Type(), Size: req.Size()}
	if !s.acquire(file) {
		return nil, ErrBusy
	}

	start := time.Now()
	var (
		pdf []byte
		err error
	)
	defer func() {
		// A panicking converter still counts as a failed attempt; the panic is re-raised.
		rec := recover()
		if rec != nil && err == nil {
			err = fmt.Errorf("converter panic: %v", rec)
			pdf = nil
		}
		var kept *result
		if err == nil {
			kept = &result{fileName: file.Name, pdf: pdf}
		}
		s.release(HistoryEntry{
			File:        file,
			Succeeded:   err == nil,
			Error:       errorText(err),
			OutputBytes: len(pdf),
			StartedAt:   start.UTC(),
			DurationMs:  metrics.SinceMillis(start),
		}, kept)
		if rec != nil {
			panic(rec)
		}
	}()

	pdf, err = s.conv.ConvertCV(ctx, req)
	if err != nil {
		telemetry.Warn("cvstore.upload_failed", map[string]any{
			"file_name": file.Name,
			"file_type": file.Type,
			"error":     err,
		})
		err = &ConversionError{FileName: file.Name, Err: err}
		pdf = nil
		return nil, err
	}
	telemetry.Info("cvstore.upload_completed", map[string]any{
		"file_name":    file.Name,
		"output_bytes": len(pdf),
	})
	return pdf, nil
}

// DownloadCV hands the last converted résumé to the browser as "<stem>.pdf".
func (s *Store) DownloadCV(w http.ResponseWriter) error {
	last, err := s.lastResult()
	if err != nil {
		return err
	}
	return fileutil.DownloadFile(w, last.pdf, fileutil.ConvertedFileName(last.fileName))
}

// SaveCV writes the last converted résumé into dir and returns its path.
func (s *Store) SaveCV(dir string) (string, error) {
	last, err := s.lastResult()
	if err != nil {
		return "", err
	}
	return fileutil.SaveFile(dir, fileutil.ConvertedFileName(last.fileName), bytes.NewReader(last.pdf))
}

func (s *Store) lastResult() (result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return result{}, ErrNoResult
	}
	return *s.last, nil
}

func (s *Store) acquire(file FileInfo) bool {
	s.mu.Lock()
	if s.state.Processing {
		s.mu.Unlock()
		return false
	}
	s.state = State{Processing: true, CurrentFile: &file}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// release clears the busy flag. A nil kept marks the attempt as failed.
func (s *Store) release(entry HistoryEntry, kept *result) {
	s.mu.Lock()
	s.state.Processing = false
	if kept == nil {
		s.state.Error = FailureMessage
	} else {
		s.last = kept
	}
	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) snapshotLocked() State {
	snap := s.state
	if snap.CurrentFile != nil {
		file := *snap.CurrentFile
		snap.CurrentFile = &file
	}
	return snap
}

func (s *Store) notify(snap State) {
	for _, fn := range s.observers {
		fn(snap)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
