package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"review_ingest/internal/adapters/csvout"
	"review_ingest/internal/adapters/jsonl"
	mailad "review_ingest/internal/adapters/mail"
	"review_ingest/internal/adapters/observability"
	redisad "review_ingest/internal/adapters/redis"
	"review_ingest/internal/adapters/source"
	"review_ingest/internal/app"
	"review_ingest/internal/domain"
	"review_ingest/internal/shared"
	"review_ingest/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) logger: console/JSON plus a per-run file
	closeLog := observability.SetupGlobal(cfg.AppEnv, cfg.LogDir, "ingestor")
	defer closeLog()

	observability.Serve(cfg.MetricsAddr)
	cfg.WarnMissingMail()

	log.Info().
		Str("source", cfg.SourceURL).
		Str("db_driver", cfg.DBDriver).
		Int("workers", cfg.Workers).
		Int("chunk", cfg.ChunkSize).
		Msg("ingestor starting")

	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

	// cache is optional; a dead redis only costs the invalidation step
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; cache invalidation disabled")
		_ = rc.Close()
	} else {
		cache = rc
		defer rc.Close()
	}
	cancel()

	mailer := mailad.New(mailad.Options{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		To:       cfg.MailTo,
	})
	sinks := []app.Sink{
		{Name: app.SinkDatabase, W: sqlstore.New(db, cfg.DBDriver)},
		{Name: "csv", W: csvout.ReviewWriter{Path: cfg.ResultCSV}},
		{Name: "email", W: app.NewNotifier(mailer, cfg.MailSubject, log.Logger)},
	}

	ing := app.NewIngestionService(
		source.NewFetcher(&http.Client{Timeout: 30 * time.Minute}, log.Logger),
		source.Decompress,
		jsonl.Loader{ChunkSize: cfg.ChunkSize, Log: log.Logger},
		app.NewTransformer(app.NewCleaner(), cfg.Workers, log.Logger),
		sinks,
		cache,
		log.Logger,
	)

	rep, err := ing.Run(ctx, app.Job{
		SourceURL:   cfg.SourceURL,
		ArchivePath: cfg.ArchivePath,
		JSONPath:    cfg.JSONPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	failed := 0
	for name, serr := range rep.Sinks {
		if serr != nil {
			failed++
			log.Warn().Str("sink", name).Err(serr).Msg("sink failed")
		}
	}
	log.Info().
		Bool("download_skipped", rep.Skipped).
		Int("loaded", rep.Loaded).
		Int("kept", rep.Kept).
		Int("sinks_failed", failed).
		Msg("ingestion completed")
}
