package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BitcoinSentinel/internal/config"
	"BitcoinSentinel/internal/model"
	"BitcoinSentinel/internal/pipeline"
	"BitcoinSentinel/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketChart(days int) string {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]string, days)
	for i := range rows {
		rows[i] = fmt.Sprintf("[%d,%.2f]", start.AddDate(0, 0, i).UnixMilli(), 42000+float64(i*15%97))
	}
	return `{"prices":[` + strings.Join(rows, ",") + `]}`
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.CoinGecko.BaseURL = baseURL
	cfg.CoinGecko.Days = 60
	cfg.Storage.Location = "bitcoin-timeseries-data-kv/bitcoin_prices.csv"
	cfg.Storage.Backend = "file"
	cfg.Storage.FileRoot = filepath.Join(dir, "objects")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.DisableCharts = true
	cfg.Database.SQLitePath = filepath.Join(dir, "history.db")
	cfg.Analysis.DisableForecast = true
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSettings(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	s := Settings(cfg)
	assert.Equal(t, pipeline.InputAPI, s.Input)
	assert.Empty(t, s.ChartsDir)
	assert.Equal(t, 30, s.Horizon)
	assert.Equal(t, model.ZScoreGlobal, s.Analysis.Detect.ZMode)
	assert.Equal(t, 3.0, s.Analysis.Detect.ZThreshold)
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	p, closeFn, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	assert.NotNil(t, p.Storage)
	assert.Equal(t, "bitcoin-timeseries-data-kv", p.Location.Bucket)
	assert.Nil(t, p.Forecaster)
	_, ok := p.Recorder.(*recorder.SQLiteRecorder)
	assert.True(t, ok)
}

func TestBuild_BadLocation(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.Storage.Location = "no-key"
	_, _, err := Build(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestRun_FetchThenAnalyzeOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketChart(60)))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	require.NoError(t, Run(context.Background(), cfg, TaskFetch))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "bitcoin_prices.csv"))
	assert.FileExists(t, filepath.Join(cfg.Storage.FileRoot, "bitcoin-timeseries-data-kv", "bitcoin_prices.csv"))

	cfg.Analysis.Input = "storage"
	require.NoError(t, Run(context.Background(), cfg, TaskAnalyze))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "bitcoin_prices_with_anomalies.csv"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "report.txt"))
}

func TestRun_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := Run(context.Background(), testConfig(t, srv.URL), TaskFetch)
	assert.ErrorIs(t, err, model.ErrFetchFailed)
}

func TestRun_ScheduledStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Schedule.FetchCron = "0 0 0 1 1 *"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, TaskFetch) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not stop")
	}
}
