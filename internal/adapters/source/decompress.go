package source

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"review_ingest/internal/domain"
)

// Decompress inflates the gzip file at src into dst. The output is staged in
// a temp file next to dst and renamed into place only after the whole
// archive inflated, so a failed run never leaves a partial dst behind (an
// existing dst is left untouched). Errors wrap domain.ErrDecompression.
func Decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecompression, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDecompression, src, err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: stage %s: %w", domain.ErrDecompression, dst, err)
	}
	staged := tmp.Name()
	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		_ = os.Remove(staged)
		return fmt.Errorf("%w: inflate %s: %w", domain.ErrDecompression, src, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("%w: close %s: %w", domain.ErrDecompression, staged, err)
	}
	if err := os.Rename(staged, dst); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("%w: rename %s: %w", domain.ErrDecompression, dst, err)
	}
	return nil
}
