package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/domain"
)

// minPartition keeps tiny tables from being split into one goroutine per row.
const minPartition = 1024

type Transformer struct {
	cleaner *Cleaner
	workers int
	log     zerolog.Logger
}

func NewTransformer(c *Cleaner, workers int, l zerolog.Logger) *Transformer {
	if c == nil {
		c = NewCleaner()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Transformer{cleaner: c, workers: workers, log: l}
}

// Transform runs, in order: concurrent cleaning of reviewText and summary,
// dedup + empty-row filtering on raw values, then concurrent Format
// extraction and image joining over the surviving rows.
func (t *Transformer) Transform(ctx context.Context, raw domain.RawTable) (domain.Table, error) {
	start := time.Now()
	texts := make([]string, len(raw))
	summaries := make([]string, len(raw))

	// shared bound for both columns
	sem := semaphore.NewWeighted(int64(t.workers))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.cleanColumn(gctx, sem, raw, texts, func(r *domain.RawReview) *string { return r.ReviewText })
	})
	g.Go(func() error {
		return t.cleanColumn(gctx, sem, raw, summaries, func(r *domain.RawReview) *string { return r.Summary })
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	observability.ObserveStage("clean", len(raw), time.Since(start))
	t.log.Info().Int("rows", len(raw)).Int("memo", t.cleaner.Len()).Msg("text cleaned")

	start = time.Now()
	keep := Dedup(raw)
	observability.ObserveStage("dedup", len(keep), time.Since(start))
	t.log.Info().Int("in", len(raw)).Int("out", len(keep)).Msg("deduplicated")

	start = time.Now()
	out := make(domain.Table, len(keep))
	// style and image are independent columns and cannot fail
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i, idx := range keep {
			out[i].Style = ExtractFormat(raw[idx].Style)
		}
	}()
	go func() {
		defer wg.Done()
		for i, idx := range keep {
			out[i].Image = imageString(raw[idx].Image)
		}
	}()
	wg.Wait()

	for i, idx := range keep {
		r := &raw[idx]
		o := &out[i]
		o.ReviewerID = r.ReviewerID
		o.ASIN = r.ASIN
		o.ReviewerName = r.ReviewerName
		o.Vote = r.Vote
		o.ReviewText = texts[idx]
		o.Overall = r.Overall
		o.Summary = summaries[idx]
		o.UnixReviewTime = r.UnixReviewTime
		o.ReviewTime = r.ReviewTime
	}
	observability.ObserveStage("flatten", len(out), time.Since(start))
	return out, nil
}

func (t *Transformer) cleanColumn(ctx context.Context, sem *semaphore.Weighted, raw domain.RawTable, dst []string, col func(*domain.RawReview) *string) error {
	size := (len(raw) + t.workers - 1) / t.workers
	if size < minPartition {
		size = minPartition
	}
	var wg sync.WaitGroup
	for lo := 0; lo < len(raw); lo += size {
		hi := min(lo+size, len(raw))
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			defer sem.Release(1)
			for i := lo; i < hi; i++ {
				dst[i] = t.cleaner.Clean(col(&raw[i]))
			}
		}(lo, hi)
	}
	wg.Wait()
	return nil
}

type dedupKey struct {
	reviewerID, asin, name        string
	hasReviewer, hasASIN, hasName bool
	overall                       float64
	hasOverall                    bool
}

func keyOf(r *domain.RawReview) dedupKey {
	k := dedupKey{}
	if r.ReviewerID != nil {
		k.reviewerID, k.hasReviewer = *r.ReviewerID, true
	}
	if r.ASIN != nil {
		k.asin, k.hasASIN = *r.ASIN, true
	}
	if r.ReviewerName != nil {
		k.name, k.hasName = *r.ReviewerName, true
	}
	if r.Overall != nil {
		k.overall, k.hasOverall = *r.Overall, true
	}
	return k
}

// Dedup returns the indexes of rows to keep, in order: the first row per
// (reviewerID, asin, overall, reviewerName), skipping rows with no fields.
// Missing key parts compare equal to each other.
func Dedup(raw domain.RawTable) []int {
	seen := make(map[dedupKey]struct{}, len(raw))
	keep := make([]int, 0, len(raw))
	for i := range raw {
		k := keyOf(&raw[i])
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if raw[i].Empty() {
			continue
		}
		keep = append(keep, i)
	}
	return keep
}
