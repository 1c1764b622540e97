// Package app wires configuration into a runnable pipeline for the command-line entry points.
package app

import (
	"context"
	"fmt"

	"BitcoinSentinel/internal/anomaly"
	"BitcoinSentinel/internal/collector"
	"BitcoinSentinel/internal/config"
	"BitcoinSentinel/internal/forecast"
	"BitcoinSentinel/internal/model"
	"BitcoinSentinel/internal/pipeline"
	"BitcoinSentinel/internal/recorder"
	"BitcoinSentinel/internal/storage"

	"github.com/rs/zerolog/log"
)

// Task selects what a command runs.
type Task string

const (
	TaskFetch   Task = "fetch"
	TaskAnalyze Task = "analyze"
)

// Build creates the pipeline described by cfg. The returned close func releases the recorder.
func Build(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	fetcher := collector.NewCoinGeckoFetcher(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.Proxy, cfg.CoinGecko.Timeout)
	log.Info().Str("source", fetcher.Name()).Bool("api_key", cfg.CoinGecko.APIKey != "").Msg("Data source configured")

	col := collector.NewCollector(fetcher, collector.Query{
		CoinID:     cfg.CoinGecko.CoinID,
		VsCurrency: cfg.CoinGecko.VsCurrency,
		Days:       cfg.CoinGecko.Days,
		Interval:   cfg.CoinGecko.Interval,
	}, collector.FailurePolicy(cfg.CoinGecko.OnError), !cfg.CoinGecko.KeepIntraday)

	var (
		adapter *storage.Adapter
		loc     storage.Location
	)
	if cfg.Storage.Location != "" {
		var err error
		if loc, err = storage.ParseLocation(cfg.Storage.Location); err != nil {
			return nil, nil, err
		}
		store, err := newBlobStore(ctx, cfg.Storage)
		if err != nil {
			if cfg.Analysis.Input == string(pipeline.InputStorage) {
				return nil, nil, err
			}
			log.Warn().Err(err).Msg("Object storage unavailable, uploads disabled")
		} else {
			adapter = storage.NewAdapter(store)
		}
	}

	var fc *forecast.Forecaster
	if !cfg.Analysis.DisableForecast {
		order := model.Order{P: cfg.Analysis.ARIMA.P, D: cfg.Analysis.ARIMA.D, Q: cfg.Analysis.ARIMA.Q}
		fc = forecast.NewForecaster(forecast.NewARIMAEstimator(), order)
	}

	// Recorder falls back to noop when SQLite cannot be opened.
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	closeFn := func() {}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("Init sqlite recorder failed, using noop")
		} else {
			rec = sr
			closeFn = func() {
				if err := sr.Close(); err != nil {
					log.Error().Err(err).Msg("Close sqlite recorder")
				}
			}
		}
	}

	return pipeline.New(col, adapter, loc, fc, rec, Settings(cfg)), closeFn, nil
}

// Settings converts configuration into pipeline settings.
func Settings(cfg *config.Config) pipeline.Settings {
	a, o := cfg.Analysis, cfg.Output
	s := pipeline.Settings{
		Input:         pipeline.Input(a.Input),
		OutputDir:     o.Dir,
		PricesFile:    o.PricesFile,
		AnomaliesFile: o.AnomaliesFile,
		ForecastFile:  o.ForecastFile,
		ChartsDir:     o.ChartsDir,
		WorkbookFile:  o.WorkbookFile,
		ReportFile:    o.ReportFile,
		Horizon:       a.ForecastHorizon,
		Analysis: pipeline.Options{
			MAWindow:       a.MAWindow,
			SeasonalPeriod: a.SeasonalPeriod,
			Detect: anomaly.Options{
				ZThreshold:    a.ZThreshold,
				ZMode:         model.ZScoreMode(a.ZMode),
				ZWindow:       a.ZWindow,
				IQRWindow:     a.IQRWindow,
				IQRMultiplier: a.IQRMultiplier,
			},
		},
	}
	if o.DisableCharts {
		s.ChartsDir = ""
	}
	return s
}

func newBlobStore(ctx context.Context, sc config.StorageConfig) (storage.BlobStore, error) {
	switch sc.Backend {
	case "file":
		return storage.NewFileStore(sc.FileRoot), nil
	case "s3", "":
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:       sc.Region,
			Endpoint:     sc.Endpoint,
			UsePathStyle: sc.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", model.ErrInvalidArgument, sc.Backend)
	}
}

// Run executes task once, or on its cron schedule until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, task Task) error {
	p, closeFn, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	job, spec := p.Analyze, cfg.Schedule.AnalyzeCron
	if task == TaskFetch {
		job, spec = p.Fetch, cfg.Schedule.FetchCron
	}

	if spec == "" {
		res, err := job(ctx)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			log.Warn().Str("task", string(task)).Msg(w)
		}
		log.Info().Str("task", string(task)).Strs("files", res.Files).Msg("Run complete")
		return nil
	}

	sched := pipeline.NewScheduler(ctx)
	if err := sched.Register(spec, string(task), job); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("RUN_ON_START enabled, executing task now")
		sched.Trigger(string(task), job)
	}

	<-ctx.Done()
	return nil
}
