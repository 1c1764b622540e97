package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BitcoinSentinel/internal/app"
	"BitcoinSentinel/internal/config"
	"BitcoinSentinel/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Config validation")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("days", cfg.CoinGecko.Days).Str("location", cfg.Storage.Location).Msg("Fetching Bitcoin prices")
	if err := app.Run(ctx, cfg, app.TaskFetch); err != nil {
		log.Error().Err(err).Msg("Fetch failed")
		stop()
		os.Exit(1)
	}
}
