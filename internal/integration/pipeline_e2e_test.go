package integration

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"review_ingest/internal/adapters/csvout"
	server "review_ingest/internal/adapters/http_server"
	"review_ingest/internal/adapters/jsonl"
	redisad "review_ingest/internal/adapters/redis"
	"review_ingest/internal/adapters/source"
	"review_ingest/internal/app"
	"review_ingest/internal/domain"
	"review_ingest/internal/storage/sqlstore"
)

// ---------- helpers ----------

const dataset = `{"reviewerID":"R1","asin":"A1","reviewerName":"X","overall":5.0,"reviewText":"Loved it!! http://spam.example","summary":"Five Stars","style":{"Format:":" Hardcover"},"unixReviewTime":1400000000,"reviewTime":"05 13, 2014","vote":"1,204"}
{"reviewerID":"R1","asin":"A1","reviewerName":"X","overall":5.0,"reviewText":"duplicate with other text","summary":"dup"}
{"reviewerID":"R2","asin":"A1","reviewerName":"Y","overall":2.0,"reviewText":"meh","summary":"Two","image":["http://img/1.jpg","http://img/2.jpg"]}
{"reviewerID":"R3","asin":"B2","reviewerName":"Z","overall":4.0,"reviewText":"Good","summary":"Four","style":{"Format:":"Paperback"}}
{}
`

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type failingMailer struct{}

func (failingMailer) Send(ctx context.Context, subject, body string) error {
	return errors.New("smtp: connection refused")
}

// ---------- the test ----------

func TestPipeline_EndToEnd_ThenServe(t *testing.T) {
	archive := gz(t, dataset)
	var hits int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(archive)
	}))
	defer origin.Close()

	dir := t.TempDir()
	ctx := context.Background()
	lg := zerolog.Nop()

	db, err := sqlstore.Open(ctx, "sqlite", filepath.Join(dir, "amazon_reviews.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := sqlstore.New(db, "sqlite")

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })
	if err := mr.Set("reviews:summary", `{"stale":true}`); err != nil {
		t.Fatal(err)
	}

	csvPath := filepath.Join(dir, "final_result.csv")
	sinks := []app.Sink{
		{Name: app.SinkDatabase, W: repo},
		{Name: "csv", W: csvout.ReviewWriter{Path: csvPath}},
		{Name: "email", W: app.NewNotifier(failingMailer{}, "Daily Review Report", lg)},
	}
	svc := app.NewIngestionService(
		source.NewFetcher(origin.Client(), lg),
		source.Decompress,
		jsonl.Loader{ChunkSize: 2, Log: lg},
		app.NewTransformer(app.NewCleaner(), 4, lg),
		sinks, cache, lg,
	)
	job := app.Job{
		SourceURL:   origin.URL,
		ArchivePath: filepath.Join(dir, "Electronics_5.json.gz"),
		JSONPath:    filepath.Join(dir, "Electronics_5.json"),
	}

	rep, err := svc.Run(ctx, job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Loaded != 5 || rep.Kept != 3 {
		t.Fatalf("loaded=%d kept=%d", rep.Loaded, rep.Kept)
	}
	if !errors.Is(rep.Sinks["email"], domain.ErrNotification) {
		t.Fatalf("email sink should fail, got %v", rep.Sinks["email"])
	}
	if rep.Sinks[app.SinkDatabase] != nil || rep.Sinks["csv"] != nil {
		t.Fatalf("db/csv sinks should succeed: %v", rep.Sinks)
	}
	if mr.Exists("reviews:summary") {
		t.Fatalf("stale summary cache should be invalidated")
	}

	// CSV artifact
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	recs, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("csv rows: %d", len(recs))
	}
	if recs[1][1] != "R1" || recs[1][6] != "loved it" || recs[1][4] != "1204" || recs[2][11] != "http://img/1.jpg; http://img/2.jpg" {
		t.Fatalf("unexpected csv rows: %v", recs[1:])
	}

	// Second run is idempotent on the network side.
	if _, err := svc.Run(ctx, job); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one download, got %d", n)
	}

	// Serve what was persisted.
	srv := server.New(lg, 5*time.Second)
	srv.MountHandlers(&server.Handlers{Q: app.NewQueryService(repo, cache, time.Minute)})
	api := httptest.NewServer(srv.Mux())
	defer api.Close()

	res, err := http.Get(api.URL + "/v1/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	var sum domain.Summary
	if err := json.NewDecoder(res.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res.Body.Close()
	if len(sum.HardcoverASINs) != 1 || sum.HardcoverASINs[0] != "A1" {
		t.Fatalf("hardcover: %v", sum.HardcoverASINs)
	}
	if sum.TopASIN == nil || *sum.TopASIN != "A1" || sum.TopCount != 2 {
		t.Fatalf("top: %+v", sum)
	}

	res, err = http.Get(fmt.Sprintf("%s/v1/products/%s/reviews?limit=10", api.URL, "B2"))
	if err != nil {
		t.Fatalf("GET reviews: %v", err)
	}
	var page domain.ReviewsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res.Body.Close()
	if len(page.Items) != 1 || page.Items[0].ReviewText != "good" {
		t.Fatalf("unexpected reviews: %+v", page.Items)
	}

	res, err = http.Get(api.URL + "/v1/products/NOPE/reviews")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
}
