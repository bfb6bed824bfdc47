package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/app"
	"nanjing_go/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	file := flag.String("file", cfg.SeedFile, "JSON array of location records")
	start := flag.Int("start", cfg.SeedStartIndex, "key of the first record under locations/")
	flag.Parse()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("file", *file).
		Str("backend", cfg.StoreBackend).
		Int("start", *start).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("open seed file failed")
	}
	records, err := app.ReadSeed(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("read seed file failed")
	}

	backend, err := shared.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening document store failed")
	}
	defer backend.Close()

	res, err := app.NewSeedService(backend.Store, cfg.SeedWorkers).Seed(ctx, records, *start)
	if err != nil {
		log.Error().Err(err).Msg("seeding aborted")
	}
	log.Info().
		Int("written", res.Written).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("seeding completed")
	if res.Failed > 0 {
		backend.Close()
		os.Exit(1)
	}
}
