package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"review_ingest/internal/domain"
)

// WriteRecords truncates path and writes header followed by rows.
// Errors wrap domain.ErrSerialization.
func WriteRecords(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrSerialization, path, err)
	}
	w := csv.NewWriter(f)
	if header != nil {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
		}
	}
	if err := w.WriteAll(rows); err != nil { // WriteAll flushes
		f.Close()
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrSerialization, path, err)
	}
	return nil
}

// ReviewWriter is the CSV sink: an unnamed positional index column followed
// by the review columns. Nulls are empty cells.
type ReviewWriter struct{ Path string }

func (w ReviewWriter) Write(_ context.Context, t domain.Table) error {
	header := append([]string{""}, domain.Columns...)
	rows := make([][]string, len(t))
	for i := range t {
		r := &t[i]
		rows[i] = []string{
			strconv.Itoa(i),
			str(r.ReviewerID),
			str(r.ASIN),
			str(r.ReviewerName),
			integer(r.Vote),
			str(r.Style),
			r.ReviewText,
			float(r.Overall),
			r.Summary,
			integer(r.UnixReviewTime),
			str(r.ReviewTime),
			str(r.Image),
		}
	}
	return WriteRecords(w.Path, header, rows)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func integer(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// float always keeps a decimal point: 5 -> "5.0".
func float(p *float64) string {
	if p == nil {
		return ""
	}
	s := strconv.FormatFloat(*p, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
