// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// downloadMarker is stripped from derived file names; some mirrors append
// it to PDF links.
const downloadMarker = "?download=true"

// Download fetches identifier and writes the PDF into destDir. The file is
// written only on success; the returned Document carries its path.
func (f *Fetcher) Download(ctx context.Context, identifier, destDir string) (*Document, error) {
	doc, err := f.Fetch(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if !HasPDFSignature(doc.Body) {
		return nil, &Failure{
			Reason:     ErrNotAPDF,
			Identifier: identifier,
			Attempts:   1,
			Err:        fmt.Errorf("downloaded content from %s is not a valid PDF", doc.SourceURL),
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	path := DestinationPath(destDir, doc.Name)
	if err := writeFile(path, doc.Body); err != nil {
		return nil, fmt.Errorf("saving %s: %w", identifier, err)
	}
	doc.Path = path

	f.log.Info("downloaded",
		zap.String("identifier", identifier),
		zap.String("path", path),
		zap.Int("bytes", len(doc.Body)),
	)
	return doc, nil
}

// DestinationPath joins destDir and name, removes the download marker, and
// forces a ".pdf" suffix.
func DestinationPath(destDir, name string) string {
	path := filepath.Join(destDir, name)
	path = strings.ReplaceAll(path, downloadMarker, "")
	if !strings.HasSuffix(path, ".pdf") {
		path += ".pdf"
	}
	return path
}

// writeFile writes data to a temporary file next to destPath and renames it
// into place, so a partial write never leaves a truncated PDF behind.
func writeFile(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
