// Package extract reads the zipped CSV extract bundle.
package extract

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"review_ingest/internal/domain"
)

// Unzip extracts every entry of src under dir and returns the entry names in
// archive order. Entries escaping dir are rejected. Errors wrap
// domain.ErrDecompression.
func Unzip(src, dir string) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrDecompression, src, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecompression, err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("%w: illegal entry %q", domain.ErrDecompression, f.Name)
		}
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrDecompression, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrDecompression, f.Name, err)
		}
	}
	return names, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadCSV returns every record of path; rows may be ragged.
// Errors wrap domain.ErrParse.
func ReadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrParse, path, err)
	}
	return recs, nil
}
