package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"BitcoinSentinel/internal/collector"
	"BitcoinSentinel/internal/forecast"
	"BitcoinSentinel/internal/model"
	"BitcoinSentinel/internal/plotter"
	"BitcoinSentinel/internal/recorder"
	"BitcoinSentinel/internal/report"
	"BitcoinSentinel/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Input selects where the analyzer reads its series from.
type Input string

const (
	InputAPI     Input = "api"
	InputCSV     Input = "csv"
	InputStorage Input = "storage"
)

// Settings holds file locations and analysis parameters of a pipeline.
type Settings struct {
	Input         Input
	OutputDir     string
	PricesFile    string
	AnomaliesFile string
	ForecastFile  string
	ChartsDir     string // relative to OutputDir, empty disables charts
	WorkbookFile  string // empty disables the workbook
	ReportFile    string // empty disables the text report
	Horizon       int
	Analysis      Options
}

// DefaultSettings returns the standard file names and analysis defaults.
func DefaultSettings() Settings {
	return Settings{
		Input:         InputAPI,
		OutputDir:     "data",
		PricesFile:    "bitcoin_prices.csv",
		AnomaliesFile: "bitcoin_prices_with_anomalies.csv",
		ForecastFile:  "bitcoin_prices_with_forecast.csv",
		ChartsDir:     "charts",
		WorkbookFile:  "bitcoin_analysis.xlsx",
		ReportFile:    "report.txt",
		Horizon:       forecast.DefaultHorizon,
		Analysis:      DefaultOptions(),
	}
}

// Pipeline wires the components of one fetch or analysis run.
type Pipeline struct {
	Collector  *collector.Collector
	Storage    *storage.Adapter // nil disables upload and download
	Location   storage.Location
	Forecaster *forecast.Forecaster // nil disables forecasting
	Recorder   recorder.Recorder
	Settings   Settings
	logger     zerolog.Logger
}

// New creates a Pipeline. A nil recorder is replaced by a no-op one.
func New(col *collector.Collector, store *storage.Adapter, loc storage.Location, fc *forecast.Forecaster, rec recorder.Recorder, settings Settings) *Pipeline {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Pipeline{
		Collector:  col,
		Storage:    store,
		Location:   loc,
		Forecaster: fc,
		Recorder:   rec,
		Settings:   settings,
		logger:     log.With().Str("component", "pipeline").Logger(),
	}
}

// Result summarises one run.
type Result struct {
	Source    string
	Series    model.PriceSeries
	Missing   model.MissingReport
	Analysis  *Analysis
	Forecast  []model.ForecastPoint
	Upload    *storage.Result
	Files     []string
	Warnings  []string
	RunID     int64
	StartedAt time.Time
}

func (r *Result) warn(logger zerolog.Logger, err error, msg string) {
	logger.Warn().Err(err).Msg(msg)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

// Fetch downloads the price history, saves it locally and uploads it when storage is configured.
// A failed upload is reported on the Result and does not fail the run.
func (p *Pipeline) Fetch(ctx context.Context) (*Result, error) {
	res := &Result{Source: string(InputAPI), StartedAt: time.Now().UTC()}
	col, err := p.Collector.Collect(ctx)
	if err != nil {
		p.record(res, err)
		return nil, err
	}
	res.Series, res.Missing = col.Series, col.Missing
	if col.Degraded() {
		res.warn(p.logger, col.Err, "fetch failed")
	}
	if res.Series.Empty() {
		err := fmt.Errorf("%w: no prices fetched", model.ErrInsufficientData)
		p.record(res, err)
		return nil, err
	}

	path := p.path(p.Settings.PricesFile)
	if err := storage.SaveLocal(path, model.NewFrame(res.Series)); err != nil {
		p.record(res, err)
		return nil, err
	}
	res.Files = append(res.Files, path)
	p.logger.Info().Str("path", path).Int("points", res.Series.Len()).Msg("Prices saved")

	if p.Storage != nil {
		up := p.Storage.Upload(ctx, model.NewFrame(res.Series), p.Location)
		res.Upload = &up
		if !up.OK() {
			res.warn(p.logger, up.Err, "upload failed")
		}
	}

	p.record(res, nil)
	return res, nil
}

// Analyze loads the series, analyses it, forecasts it and writes every output.
func (p *Pipeline) Analyze(ctx context.Context) (*Result, error) {
	res := &Result{Source: string(p.Settings.Input), StartedAt: time.Now().UTC()}
	if err := p.load(ctx, res); err != nil {
		p.record(res, err)
		return nil, err
	}

	a, err := Analyze(res.Series, p.Settings.Analysis)
	if err != nil {
		p.record(res, err)
		return nil, err
	}
	res.Analysis = a
	res.Warnings = append(res.Warnings, a.Warnings...)
	p.logger.Info().
		Int("points", res.Series.Len()).
		Int("anomalies_z", a.Anomalies.CountZ()).
		Int("anomalies_iqr", a.Anomalies.CountIQR()).
		Msg("Analysis complete")

	if p.Forecaster != nil {
		fc, err := p.Forecaster.Forecast(ctx, res.Series, p.Settings.Horizon)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.record(res, err)
				return nil, err
			}
			res.warn(p.logger, err, "forecast failed")
		}
		res.Forecast = fc
	}

	p.writeOutputs(res)
	p.record(res, nil)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, res *Result) error {
	switch p.Settings.Input {
	case InputAPI, "":
		col, err := p.Collector.Collect(ctx)
		if err != nil {
			return err
		}
		if col.Degraded() {
			res.warn(p.logger, col.Err, "fetch failed")
		}
		res.Series, res.Missing = col.Series, col.Missing
	case InputCSV:
		f, err := storage.LoadLocal(p.path(p.Settings.PricesFile))
		if err != nil {
			return err
		}
		res.Series = f.Series
	case InputStorage:
		if p.Storage == nil {
			return fmt.Errorf("%w: storage input selected without a storage location", model.ErrInvalidArgument)
		}
		f, dl := p.Storage.Download(ctx, p.Location)
		if !dl.OK() {
			return dl.Err
		}
		res.Series = f.Series
	default:
		return fmt.Errorf("%w: unknown input %q", model.ErrInvalidArgument, p.Settings.Input)
	}
	res.Missing.Rows = max(res.Missing.Rows, res.Series.Len())
	return nil
}

// writeOutputs persists CSVs, charts, workbook and report. Failures become warnings.
func (p *Pipeline) writeOutputs(res *Result) {
	a := res.Analysis
	s := p.Settings

	p.output(res, p.path(s.AnomaliesFile), "anomalies csv", func(path string) error {
		return storage.SaveLocal(path, a.Frame)
	})
	if len(res.Forecast) > 0 {
		p.output(res, p.path(s.ForecastFile), "forecast csv", func(path string) error {
			return storage.SaveForecastLocal(path, res.Forecast)
		})
	}

	if s.ChartsDir != "" {
		dir := p.path(s.ChartsDir)
		p.output(res, filepath.Join(dir, "prices.png"), "price chart", func(path string) error {
			return plotter.Prices(path, res.Series)
		})
		if a.MovingAverage.Len() > 0 {
			p.output(res, filepath.Join(dir, "moving_average.png"), "moving average chart", func(path string) error {
				return plotter.PriceWithMovingAverage(path, res.Series, a.MovingAverage)
			})
		}
		p.output(res, filepath.Join(dir, "anomalies.png"), "anomaly chart", func(path string) error {
			return plotter.Anomalies(path, res.Series, a.Anomalies)
		})
		if len(res.Forecast) > 0 {
			p.output(res, filepath.Join(dir, "forecast.png"), "forecast chart", func(path string) error {
				return plotter.Forecast(path, res.Series, res.Forecast)
			})
		}
		if a.Decomposition != nil {
			p.output(res, filepath.Join(dir, "decomposition.png"), "decomposition chart", func(path string) error {
				return plotter.Decomposition(path, res.Series, *a.Decomposition)
			})
		}
	}

	run := p.reportRun(res)
	if s.WorkbookFile != "" {
		p.output(res, p.path(s.WorkbookFile), "workbook", func(path string) error {
			return report.WriteWorkbook(path, a.Frame, run)
		})
	}
	if s.ReportFile != "" {
		run.Warnings = res.Warnings
		p.output(res, p.path(s.ReportFile), "report", func(path string) error {
			return report.WriteText(path, run)
		})
	}
}

func (p *Pipeline) output(res *Result, path, what string, write func(string) error) {
	if err := write(path); err != nil {
		res.warn(p.logger, err, "write "+what)
		return
	}
	res.Files = append(res.Files, path)
	p.logger.Debug().Str("path", path).Msg("Wrote " + what)
}

func (p *Pipeline) reportRun(res *Result) *report.Run {
	return &report.Run{
		GeneratedAt:   time.Now().UTC(),
		Source:        res.Source,
		Summary:       res.Analysis.Summary,
		MovingAverage: res.Analysis.MovingAverage,
		Anomalies:     res.Analysis.Anomalies,
		Forecast:      res.Forecast,
		Missing:       res.Missing,
		Warnings:      res.Warnings,
	}
}

// record stores the run in history. Recorder failures are logged only.
func (p *Pipeline) record(res *Result, runErr error) {
	snap := &recorder.RunSnapshot{
		StartedAt:  res.StartedAt,
		FinishedAt: time.Now().UTC(),
		Source:     res.Source,
		Points:     res.Series.Len(),
		Missing:    res.Missing,
		Forecast:   res.Forecast,
	}
	if a := res.Analysis; a != nil {
		snap.Summary = &a.Summary
		snap.Anomalies = &a.Anomalies
	}
	if up := res.Upload; up != nil {
		snap.Upload = up.Location.String()
		if up.Err != nil {
			snap.UploadErr = up.Err.Error()
		}
	}
	if runErr != nil {
		snap.Err = runErr.Error()
	}
	id, err := p.Recorder.RecordRun(snap)
	if err != nil {
		p.logger.Error().Err(err).Msg("Record run")
		return
	}
	res.RunID = id
}

func (p *Pipeline) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Settings.OutputDir, name)
}
