package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/adapters/csvout"
	"review_ingest/internal/adapters/extract"
	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/app"
	"review_ingest/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	closeLog := observability.SetupGlobal(cfg.AppEnv, cfg.LogDir, "merge")
	defer closeLog()

	svc := app.NewMergeService(
		app.ExtractSource{Unzip: extract.Unzip, ReadCSV: extract.ReadCSV},
		csvout.WriteRecords,
		log.Logger,
	)
	res, err := svc.Run(ctx, app.MergeJob{Archive: cfg.MergeZip, Dir: cfg.MergeDir, Out: cfg.MergeOut})
	if err != nil {
		log.Error().Err(err).Msg("merge failed")
		closeLog()
		os.Exit(1)
	}
	log.Info().Int("rows", len(res.Rows)).Msg("merge completed")
}
