package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/domain"
)

// Fetcher downloads a remote file to a local path exactly once.
type Fetcher struct {
	hc  *http.Client
	log zerolog.Logger
}

func NewFetcher(hc *http.Client, l zerolog.Logger) *Fetcher {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Fetcher{hc: hc, log: l}
}

// Fetch streams url into dest. An existing dest is treated as success and no
// request is made (skipped=true). Errors wrap domain.ErrTransport.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (skipped bool, err error) {
	if _, err := os.Stat(dest); err == nil {
		f.log.Info().Str("file", dest).Msg("file already exists, skipping download")
		return true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: stat %s: %w", domain.ErrTransport, dest, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", "review-ingest/1.0")

	resp, err := f.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("source", "archive", 0, time.Since(start))
		return false, fmt.Errorf("%w: get %s: %w", domain.ErrTransport, url, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("source", "archive", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("%w: bad status %d: %s", domain.ErrTransport, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	out, err := os.Create(dest)
	if err != nil {
		return false, fmt.Errorf("%w: create %s: %w", domain.ErrTransport, dest, err)
	}
	pw := &progressWriter{total: resp.ContentLength, last: -1, log: f.log}
	_, copyErr := io.Copy(out, io.TeeReader(resp.Body, pw))
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		// best effort; an interrupted file must not look like a finished download
		_ = os.Remove(dest)
		return false, fmt.Errorf("%w: write %s: %w", domain.ErrTransport, dest, copyErr)
	}
	f.log.Info().Str("file", dest).Int64("bytes", pw.done).Msg("downloaded")
	return false, nil
}

// progressWriter logs whole-percent progress changes only.
type progressWriter struct {
	total int64
	done  int64
	last  int
	log   zerolog.Logger
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	if p.total <= 0 {
		return len(b), nil
	}
	pct := int(p.done * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.log.Info().Int("percent", pct).Msg("download progress")
	}
	return len(b), nil
}
