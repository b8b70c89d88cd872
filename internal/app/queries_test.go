package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	sum   domain.Summary
	rp    domain.ReviewsPage
	err   error
	calls int
}

func (f *fakeRepo) ReplaceAll(ctx context.Context, t domain.Table) error { return nil }
func (f *fakeRepo) Summary(ctx context.Context) (domain.Summary, error) {
	f.calls++
	return f.sum, nil
}
func (f *fakeRepo) ListByASIN(ctx context.Context, asin string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	f.calls++
	if f.err != nil {
		return domain.ReviewsPage{}, f.err
	}
	return f.rp, nil
}

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Summary:
		*d = v.(domain.Summary)
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}
func (c *fakeCache) DelPrefix(ctx context.Context, prefix string) error {
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
		}
	}
	return nil
}

// ---- tests ----

func TestSummary_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{sum: domain.Summary{HardcoverASINs: []string{"A1"}, TopASIN: ptr("A1"), TopCount: 4}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	s, err := q.Summary(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if deref(s.TopASIN) != "A1" || s.TopCount != 4 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.sum.TopASIN = ptr("SHOULD NOT SEE THIS")

	s2, err := q.Summary(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if deref(s2.TopASIN) != "A1" || repo.calls != 1 {
		t.Fatalf("expected cached summary, got %s (repo calls %d)", deref(s2.TopASIN), repo.calls)
	}
}

func TestListByASIN_Cache(t *testing.T) {
	repo := &fakeRepo{
		rp: domain.ReviewsPage{Items: []domain.Review{
			{ASIN: ptr("A1"), ReviewerName: ptr("Ana"), Overall: pfloat(5)},
		}},
	}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	out, err := q.ListByASIN(context.Background(), "A1", domain.PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || deref(out.Items[0].ReviewerName) != "Ana" {
		t.Fatalf("unexpected reviews: %+v", out.Items)
	}
	if _, ok := cache.store["reviews:asin:A1:10"]; !ok {
		t.Fatalf("expected cache key reviews:asin:A1:10, have %v", cache.store)
	}

	// Change repo, call again -> should come from cache
	repo.rp.Items[0].ReviewerName = ptr("Changed")
	out2, _ := q.ListByASIN(context.Background(), "A1", domain.PageQuery{Limit: 10})
	if deref(out2.Items[0].ReviewerName) != "Ana" {
		t.Fatalf("expected cached name Ana, got %s", deref(out2.Items[0].ReviewerName))
	}
}

func TestListByASIN_ErrorsAreNotCached(t *testing.T) {
	repo := &fakeRepo{err: domain.ErrNotFound}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	if _, err := q.ListByASIN(context.Background(), "ZZ", domain.PageQuery{Limit: 5}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(cache.store) != 0 {
		t.Fatalf("error result was cached: %v", cache.store)
	}
}

func TestQueryService_NilCache(t *testing.T) {
	repo := &fakeRepo{sum: domain.Summary{TopASIN: ptr("B2"), TopCount: 1}}
	q := app.NewQueryService(repo, nil, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := q.Summary(context.Background()); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
	if repo.calls != 2 {
		t.Fatalf("expected every call to hit the repo, got %d", repo.calls)
	}
}

func ptr[T any](v T) *T { return &v }
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
func pfloat(f float64) *float64 { return &f }
