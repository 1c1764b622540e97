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

	log.Info().
		Str("input", cfg.Analysis.Input).
		Int("ma_window", cfg.Analysis.MAWindow).
		Float64("z_threshold", cfg.Analysis.ZThreshold).
		Str("z_mode", cfg.Analysis.ZMode).
		Int("iqr_window", cfg.Analysis.IQRWindow).
		Int("horizon", cfg.Analysis.ForecastHorizon).
		Msg("BitcoinSentinel analyzer starting")

	if err := app.Run(ctx, cfg, app.TaskAnalyze); err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("BitcoinSentinel analyzer stopped")
}
