package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/domain"
)

// Cache key prefixes shared with QueryService.
const (
	summaryKey     = "reviews:summary"
	productKeyBase = "reviews:asin:"
)

// SinkDatabase names the relational sink; a successful write there
// invalidates the query caches.
const SinkDatabase = "database"

type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) (skipped bool, err error)
}

type Loader interface {
	Load(ctx context.Context, path string) (domain.RawTable, error)
}

type Sink struct {
	Name string
	W    domain.TableWriter
}

// Job names the inputs of one pipeline run.
type Job struct {
	SourceURL   string
	ArchivePath string
	JSONPath    string
}

// Report is the outcome of one run. Sinks holds each sink's error (nil on success).
type Report struct {
	Skipped bool
	Loaded  int
	Kept    int
	Sinks   map[string]error
}

type IngestionService struct {
	fetcher     Fetcher
	decompress  func(src, dst string) error
	loader      Loader
	transformer *Transformer
	sinks       []Sink
	cache       domain.Cache
	log         zerolog.Logger
}

func NewIngestionService(f Fetcher, decompress func(src, dst string) error, l Loader, t *Transformer, sinks []Sink, cache domain.Cache, lg zerolog.Logger) *IngestionService {
	return &IngestionService{fetcher: f, decompress: decompress, loader: l, transformer: t, sinks: sinks, cache: cache, log: lg}
}

// Run executes fetch -> decompress -> load -> transform -> sink fan-out.
// Only transport and parse failures are returned; decompression and sink
// failures are logged and recorded in the report.
func (s *IngestionService) Run(ctx context.Context, job Job) (Report, error) {
	var rep Report

	// 1) Fetch (idempotent).
	s.log.Info().Str("url", job.SourceURL).Msg("downloading")
	start := time.Now()
	skipped, err := s.fetcher.Fetch(ctx, job.SourceURL, job.ArchivePath)
	if err != nil {
		s.log.Error().Err(err).Msg("error downloading file")
		return rep, err
	}
	rep.Skipped = skipped
	observability.ObserveStage("fetch", 0, time.Since(start))

	// 2) Decompress: a failure here is not fatal; the loader decides whether
	// a usable working file exists.
	s.log.Info().Str("file", job.ArchivePath).Msg("unzipping")
	start = time.Now()
	if err := s.decompress(job.ArchivePath, job.JSONPath); err != nil {
		s.log.Error().Err(err).Msg("error unzipping file")
	} else {
		s.log.Info().Str("file", job.JSONPath).Msg("unzipped")
	}
	observability.ObserveStage("decompress", 0, time.Since(start))

	// 3) Load.
	start = time.Now()
	raw, err := s.loader.Load(ctx, job.JSONPath)
	if err != nil {
		s.log.Error().Err(err).Msg("error reading json")
		return rep, err
	}
	rep.Loaded = len(raw)
	observability.ObserveStage("load", len(raw), time.Since(start))

	// 4) Transform.
	table, err := s.transformer.Transform(ctx, raw)
	if err != nil {
		return rep, fmt.Errorf("transform: %w", err)
	}
	rep.Kept = len(table)

	// 5) Fan-out; join all sinks regardless of outcome.
	rep.Sinks = s.fanOut(ctx, table)
	if dbErr, ok := rep.Sinks[SinkDatabase]; ok && dbErr == nil && s.cache != nil {
		s.invalidate(ctx)
	}
	s.log.Info().Int("loaded", rep.Loaded).Int("kept", rep.Kept).Msg("process finished")
	return rep, nil
}

func (s *IngestionService) fanOut(ctx context.Context, t domain.Table) map[string]error {
	errs := make([]error, len(s.sinks))
	var g errgroup.Group
	for i, sk := range s.sinks {
		g.Go(func() error {
			start := time.Now()
			err := safeWrite(ctx, sk.W, t)
			errs[i] = err
			observability.ObserveSink(sk.Name, err)
			if err != nil {
				s.log.Error().Str("sink", sk.Name).Err(err).Msg("sink failed")
				return nil
			}
			s.log.Info().Str("sink", sk.Name).Dur("took", time.Since(start)).Msg("sink completed")
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]error, len(s.sinks))
	for i, sk := range s.sinks {
		out[sk.Name] = errs[i]
	}
	return out
}

// safeWrite keeps a panicking sink inside its own failure domain.
func safeWrite(ctx context.Context, w domain.TableWriter, t domain.Table) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint("sink panic: ", r))
		}
	}()
	return w.Write(ctx, t)
}

func (s *IngestionService) invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, summaryKey); err != nil {
		s.log.Warn().Err(err).Msg("summary cache invalidation failed")
	}
	if err := s.cache.DelPrefix(ctx, productKeyBase); err != nil {
		s.log.Warn().Err(err).Msg("product cache invalidation failed")
	}
}
