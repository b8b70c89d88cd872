package redisad_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "review_ingest/internal/adapters/redis"
	"review_ingest/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGetMiss(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	var got domain.Summary
	if ok, err := c.Get(ctx, "reviews:summary", &got); ok || err != nil {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	top := "A1"
	want := domain.Summary{HardcoverASINs: []string{"A1", "A2"}, TopASIN: &top, TopCount: 3}
	if err := c.Set(ctx, "reviews:summary", want, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("reviews:summary"); ttl != 60*time.Second {
		t.Fatalf("ttl: %v", ttl)
	}
	ok, err := c.Get(ctx, "reviews:summary", &got)
	if !ok || err != nil {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.TopASIN == nil || *got.TopASIN != "A1" || len(got.HardcoverASINs) != 2 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestCache_DelPrefix(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		if err := mr.Set(fmt.Sprintf("reviews:asin:A%d:50", i), "{}"); err != nil {
			t.Fatal(err)
		}
	}
	if err := mr.Set("reviews:summary", "{}"); err != nil {
		t.Fatal(err)
	}

	if err := c.DelPrefix(ctx, "reviews:asin:"); err != nil {
		t.Fatalf("DelPrefix: %v", err)
	}
	if n := len(mr.Keys()); n != 1 || !mr.Exists("reviews:summary") {
		t.Fatalf("expected only summary key left, got %v", mr.Keys())
	}
}
