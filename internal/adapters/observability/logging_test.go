package observability_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/adapters/observability"
)

func TestNewRunLogger_WritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	l, closer, err := observability.NewRunLogger("prod", dir, "ingestor", now)
	if err != nil {
		t.Fatalf("NewRunLogger: %v", err)
	}
	l.Info().Str("stage", "fetch").Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "ingestor_2024-03-09_14-05-07.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"stage":"fetch"`) || !strings.Contains(string(b), `"message":"hello"`) {
		t.Fatalf("unexpected log content: %s", b)
	}
}

func TestSetupGlobal_FallsBackWithoutLogDir(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	closeLog := observability.SetupGlobal("prod", blocker, "api")
	closeLog()

	dir := filepath.Join(t.TempDir(), "logs")
	closeLog = observability.SetupGlobal("prod", dir, "api")
	log.Info().Msg("started")
	closeLog()
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "api_") {
		t.Fatalf("expected one api_ log file, got %v (%v)", entries, err)
	}
}
