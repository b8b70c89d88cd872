package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"review_ingest/internal/domain"
)

const DefaultChunkSize = 100_000

// Loader reads newline-delimited review JSON in fixed-size chunks.
type Loader struct {
	ChunkSize int
	Log       zerolog.Logger
}

// line mirrors one review line; polymorphic fields stay raw until decoded.
type line struct {
	ReviewerID     *string         `json:"reviewerID"`
	ASIN           *string         `json:"asin"`
	ReviewerName   *string         `json:"reviewerName"`
	Vote           json.RawMessage `json:"vote"`
	Style          json.RawMessage `json:"style"`
	ReviewText     *string         `json:"reviewText"`
	Overall        *float64        `json:"overall"`
	Summary        *string         `json:"summary"`
	UnixReviewTime *int64          `json:"unixReviewTime"`
	ReviewTime     *string         `json:"reviewTime"`
	Image          json.RawMessage `json:"image"`
}

// Load parses the whole file. Any malformed line aborts the load with an
// error wrapping domain.ErrParse; there is no partial result.
func (l Loader) Load(ctx context.Context, path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	defer f.Close()
	return l.Read(ctx, f)
}

// Read is Load over an arbitrary reader.
func (l Loader) Read(ctx context.Context, r io.Reader) (domain.RawTable, error) {
	size := l.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	br := bufio.NewReaderSize(r, 1<<20)

	var (
		table  domain.RawTable
		chunk  = make([][]byte, 0, size)
		lineNo int
		first  = 1 // line number of chunk[0]
		chunks int
	)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		rows, err := decodeChunk(chunk, first)
		if err != nil {
			return err
		}
		table = append(table, rows...)
		chunks++
		l.Log.Debug().Int("chunk", chunks).Int("rows", len(rows)).Msg("chunk loaded")
		chunk = chunk[:0]
		return nil
	}

	for {
		b, err := br.ReadBytes('\n')
		if len(b) > 0 {
			lineNo++
			if len(chunk) == 0 {
				first = lineNo
			}
			chunk = append(chunk, b)
			if len(chunk) == size {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if ferr := flush(); ferr != nil {
					return nil, ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read line %d: %w", domain.ErrParse, lineNo+1, err)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	l.Log.Info().Int("rows", len(table)).Int("chunks", chunks).Msg("json loaded")
	return table, nil
}

func decodeChunk(lines [][]byte, first int) (domain.RawTable, error) {
	out := make(domain.RawTable, 0, len(lines))
	for i, b := range lines {
		b = bytes.TrimSpace(b)
		if len(b) == 0 {
			continue
		}
		row, err := decodeLine(b)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", domain.ErrParse, first+i, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func decodeLine(b []byte) (domain.RawReview, error) {
	var ln line
	if err := json.Unmarshal(b, &ln); err != nil {
		return domain.RawReview{}, err
	}
	vote, err := parseVote(ln.Vote)
	if err != nil {
		return domain.RawReview{}, err
	}
	style, err := decodeAny(ln.Style)
	if err != nil {
		return domain.RawReview{}, fmt.Errorf("style: %w", err)
	}
	image, err := decodeAny(ln.Image)
	if err != nil {
		return domain.RawReview{}, fmt.Errorf("image: %w", err)
	}
	return domain.RawReview{
		ReviewerID:     ln.ReviewerID,
		ASIN:           ln.ASIN,
		ReviewerName:   ln.ReviewerName,
		Vote:           vote,
		Style:          style,
		ReviewText:     ln.ReviewText,
		Overall:        ln.Overall,
		Summary:        ln.Summary,
		UnixReviewTime: ln.UnixReviewTime,
		ReviewTime:     ln.ReviewTime,
		Image:          image,
	}, nil
}

func decodeAny(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseVote accepts 3, "3" and "1,234"; anything else non-numeric is null.
func parseVote(raw json.RawMessage) (*int64, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	switch t := v.(type) {
	case float64:
		n := int64(t)
		return &n, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n := int64(f)
			return &n, nil
		}
	}
	return nil, nil
}
