package main

// Convert a résumé from the terminal:
//   go run ./cmd/convert -out ./out curriculo.docx

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"descomplicacv/internal/cvapi"
	"descomplicacv/internal/cvstore"
	"descomplicacv/internal/fileutil"
	"descomplicacv/internal/shared/config"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", cfg.APIURL, "conversion API base URL")
	outDir := fs.String("out", ".", "directory for the converted PDF")
	timeout := fs.Duration("timeout", cfg.APITimeout, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: convert [-api URL] [-out DIR] [-timeout D] <file>")
		return 2
	}

	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "read failed: %v\n", err)
		return 1
	}
	req := cvapi.ConversionRequest{
		FileName:    filepath.Base(path),
		ContentType: fileutil.TypeByExtension(path),
		Content:     content,
	}

	client := cvapi.NewClient(*apiURL, cvapi.WithTimeout(*timeout))
	store := cvstore.New(client, cvstore.WithAllowedTypes(cfg.AllowedTypes))

	start := time.Now()
	pdf, err := store.UploadCV(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, cvstore.ErrInvalidFileType):
			fmt.Fprintf(stderr, "unsupported file type %s; allowed: %v\n", req.ContentType, store.AllowedTypes())
		default:
			fmt.Fprintf(stderr, "%s: %v\n", store.State().Error, errors.Unwrap(err))
		}
		return 1
	}

	saved, err := store.SaveCV(*outDir)
	if err != nil {
		fmt.Fprintf(stderr, "save failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "OK: wrote %s (%s in %s)\n", saved, fileutil.FormatSize(int64(len(pdf))), time.Since(start).Round(time.Millisecond))
	return 0
}
