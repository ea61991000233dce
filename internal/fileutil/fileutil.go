// Package fileutil holds the small file helpers shared by the web front end,
// the terminal front end and the conversion API.
package fileutil

import (
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"
)

// MIME types accepted for upload by default.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTXT  = "text/plain"
)

// DefaultConvertedName is used when no usable stem can be derived from the original file.
const DefaultConvertedName = "curriculo_convertido.pdf"

// DefaultAllowedTypes lists the declared types the conversion API can read.
var DefaultAllowedTypes = []string{MimePDF, MimeDOCX, MimeTXT}

// TypedFile is anything carrying a declared MIME type, such as an upload.
type TypedFile interface {
	Type() string
}

// IsValidFileType reports whether the file's declared type is a member of allowedTypes.
// Content is never inspected. A nil file or an empty allow-list is always invalid.
func IsValidFileType(file TypedFile, allowedTypes []string) bool {
	if file == nil || len(allowedTypes) == 0 {
		return false
	}
	return slices.Contains(allowedTypes, file.Type())
}

// TypeByExtension returns the declared type for a local file name, ignoring parameters.
func TypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt":
		return MimeTXT
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return "application/octet-stream"
	}
	if base, _, err := mime.ParseMediaType(t); err == nil {
		return base
	}
	return t
}

// ConvertedFileName derives the download name of a converted résumé: "<stem>.pdf".
func ConvertedFileName(original string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Trim(stem, ". ")
	if stem == "" || stem == "/" {
		return DefaultConvertedName
	}
	return stem + ".pdf"
}

// FormatSize renders a byte count for humans, e.g. "1.5 MB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
