package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/adapters/afterpay"
	"review_ingest/internal/adapters/csvout"
	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/app"
	"review_ingest/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	closeLog := observability.SetupGlobal(cfg.AppEnv, cfg.LogDir, "categories")
	defer closeLog()

	client, err := afterpay.New(cfg.CategoriesURL, cfg.CategoriesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize category client")
	}
	log.Info().Str("url", cfg.CategoriesURL).Msg("fetching categories")

	svc := app.NewCategoryService(client, csvout.WriteRecords, log.Logger)
	if err := svc.Export(ctx, cfg.CategoriesCSV, cfg.ParentsCSV); err != nil {
		log.Error().Err(err).Msg("category export incomplete")
		closeLog()
		os.Exit(1)
	}
	log.Info().Msg("category export completed")
}
