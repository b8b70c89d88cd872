package app

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"review_ingest/internal/domain"
)

// maxCachedBytes bounds what a single read-through entry may occupy.
const maxCachedBytes = 1 << 20

// QueryService reads the persisted table through an optional cache.
type QueryService struct {
	repo  domain.ReviewRepository
	cache domain.Cache
	ttl   time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, ttl: ttl}
}

func (s *QueryService) Summary(ctx context.Context) (domain.Summary, error) {
	return readThrough(ctx, s, summaryKey, func() (domain.Summary, error) {
		return s.repo.Summary(ctx)
	})
}

// ListByASIN caches per (asin, limit); keys share productKeyBase so a reload
// can drop them all.
func (s *QueryService) ListByASIN(ctx context.Context, asin string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	key := productKeyBase + asin + ":" + strconv.Itoa(pg.Limit)
	return readThrough(ctx, s, key, func() (domain.ReviewsPage, error) {
		page, err := s.repo.ListByASIN(ctx, asin, pg)
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		// detach from the repo's backing array
		items := make([]domain.Review, len(page.Items))
		copy(items, page.Items)
		return domain.ReviewsPage{Items: items}, nil
	})
}

// readThrough serves key from cache, else loads and stores it. Cache errors
// only cost a miss.
func readThrough[T any](ctx context.Context, s *QueryService, key string, load func() (T, error)) (T, error) {
	var v T
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &v); ok {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(v); err == nil && len(b) < maxCachedBytes {
			_ = s.cache.Set(ctx, key, v, int(s.ttl.Seconds()))
		}
	}
	return v, nil
}
