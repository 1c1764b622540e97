package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	CoinGecko CoinGeckoConfig `yaml:"coingecko" ignored:"true"`
	Storage   StorageConfig   `yaml:"storage" ignored:"true"`
	Analysis  AnalysisConfig  `yaml:"analysis" ignored:"true"`
	Output    OutputConfig    `yaml:"output" ignored:"true"`
	Schedule  ScheduleConfig  `yaml:"schedule" ignored:"true"`
	Database  DatabaseConfig  `yaml:"database" ignored:"true"`
	Log       LogConfig       `yaml:"log" ignored:"true"`
	Proxy     string          `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// CoinGeckoConfig configures the market-data source.
type CoinGeckoConfig struct {
	BaseURL      string        `yaml:"base_url" envconfig:"COINGECKO_BASE_URL" validate:"required,url"`
	APIKey       string        `yaml:"api_key" envconfig:"COINGECKO_API_KEY"`
	CoinID       string        `yaml:"coin_id" envconfig:"COINGECKO_COIN_ID" validate:"required"`
	VsCurrency   string        `yaml:"vs_currency" envconfig:"COINGECKO_VS_CURRENCY" validate:"required"`
	Days         int           `yaml:"days" envconfig:"COINGECKO_DAYS" validate:"min=1"`
	Interval     string        `yaml:"interval" envconfig:"COINGECKO_INTERVAL" validate:"omitempty,oneof=daily hourly"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"COINGECKO_TIMEOUT" validate:"gt=0"`
	OnError      string        `yaml:"on_error" envconfig:"COINGECKO_ON_ERROR" validate:"oneof=fail empty"`
	KeepIntraday bool          `yaml:"keep_intraday" envconfig:"COINGECKO_KEEP_INTRADAY"`
}

// StorageConfig configures object storage. An empty Location disables it.
type StorageConfig struct {
	Location     string `yaml:"location" envconfig:"STORAGE_LOCATION"`
	Backend      string `yaml:"backend" envconfig:"STORAGE_BACKEND" validate:"oneof=s3 file"`
	Region       string `yaml:"region" envconfig:"STORAGE_REGION"`
	Endpoint     string `yaml:"endpoint" envconfig:"STORAGE_ENDPOINT" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style" envconfig:"STORAGE_USE_PATH_STYLE"`
	FileRoot     string `yaml:"file_root" envconfig:"STORAGE_FILE_ROOT" validate:"required_if=Backend file"`
}

// AnalysisConfig configures the analyzer.
type AnalysisConfig struct {
	Input           string  `yaml:"input" envconfig:"ANALYSIS_INPUT" validate:"oneof=api csv storage"`
	MAWindow        int     `yaml:"ma_window" envconfig:"ANALYSIS_MA_WINDOW" validate:"min=1"`
	ZThreshold      float64 `yaml:"z_threshold" envconfig:"ANALYSIS_Z_THRESHOLD" validate:"gt=0"`
	ZMode           string  `yaml:"z_mode" envconfig:"ANALYSIS_Z_MODE" validate:"oneof=global rolling"`
	ZWindow         int     `yaml:"z_window" envconfig:"ANALYSIS_Z_WINDOW" validate:"min=2"`
	IQRWindow       int     `yaml:"iqr_window" envconfig:"ANALYSIS_IQR_WINDOW" validate:"min=1"`
	IQRMultiplier   float64 `yaml:"iqr_multiplier" envconfig:"ANALYSIS_IQR_MULTIPLIER" validate:"gte=0"`
	SeasonalPeriod  int     `yaml:"seasonal_period" envconfig:"ANALYSIS_SEASONAL_PERIOD" validate:"min=2"`
	ForecastHorizon int     `yaml:"forecast_horizon" envconfig:"ANALYSIS_FORECAST_HORIZON" validate:"min=1"`
	ARIMA           struct {
		P int `yaml:"p" envconfig:"ANALYSIS_ARIMA_P" validate:"min=0"`
		D int `yaml:"d" envconfig:"ANALYSIS_ARIMA_D" validate:"min=0"`
		Q int `yaml:"q" envconfig:"ANALYSIS_ARIMA_Q" validate:"min=0"`
	} `yaml:"arima" envconfig:"ANALYSIS_ARIMA"`
	DisableForecast bool `yaml:"disable_forecast" envconfig:"ANALYSIS_DISABLE_FORECAST"`
}

// OutputConfig names the files a run writes. Paths are relative to Dir.
type OutputConfig struct {
	Dir           string `yaml:"dir" envconfig:"OUTPUT_DIR" validate:"required"`
	PricesFile    string `yaml:"prices_file" envconfig:"OUTPUT_PRICES_FILE" validate:"required"`
	AnomaliesFile string `yaml:"anomalies_file" envconfig:"OUTPUT_ANOMALIES_FILE" validate:"required"`
	ForecastFile  string `yaml:"forecast_file" envconfig:"OUTPUT_FORECAST_FILE" validate:"required"`
	ChartsDir     string `yaml:"charts_dir" envconfig:"OUTPUT_CHARTS_DIR"`
	WorkbookFile  string `yaml:"workbook_file" envconfig:"OUTPUT_WORKBOOK_FILE"`
	ReportFile    string `yaml:"report_file" envconfig:"OUTPUT_REPORT_FILE"`
	DisableCharts bool   `yaml:"disable_charts" envconfig:"OUTPUT_DISABLE_CHARTS"`
}

// ScheduleConfig enables periodic runs. An empty Cron runs once and exits.
type ScheduleConfig struct {
	FetchCron   string `yaml:"fetch_cron" envconfig:"SCHEDULE_FETCH_CRON"`
	AnalyzeCron string `yaml:"analyze_cron" envconfig:"SCHEDULE_ANALYZE_CRON"`
	RunOnStart  bool   `yaml:"run_on_start" envconfig:"SCHEDULE_RUN_ON_START"`
}

// DatabaseConfig configures run history. An empty path disables it.
type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"DATABASE_SQLITE_PATH"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" validate:"oneof=console json"`
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env, the YAML file at path, then applies environment variable overrides and defaults.
// A missing .env or config file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides fields from the environment. Every tag carries the full
// variable name, so envconfig's unprefixed fallback lookup matches the same name.
func (c *Config) applyEnv() error {
	specs := []interface{}{c, &c.CoinGecko, &c.Storage, &c.Analysis, &c.Output, &c.Schedule, &c.Database, &c.Log}
	for _, spec := range specs {
		if err := envconfig.Process("", spec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.CoinGecko.BaseURL == "" {
		c.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.CoinGecko.CoinID == "" {
		c.CoinGecko.CoinID = "bitcoin"
	}
	if c.CoinGecko.VsCurrency == "" {
		c.CoinGecko.VsCurrency = "usd"
	}
	if c.CoinGecko.Days == 0 {
		c.CoinGecko.Days = 365
	}
	if c.CoinGecko.Interval == "" {
		c.CoinGecko.Interval = "daily"
	}
	if c.CoinGecko.Timeout == 0 {
		c.CoinGecko.Timeout = 30 * time.Second
	}
	if c.CoinGecko.OnError == "" {
		c.CoinGecko.OnError = "fail"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "s3"
	}

	a := &c.Analysis
	if a.Input == "" {
		a.Input = "api"
	}
	if a.MAWindow == 0 {
		a.MAWindow = 30
	}
	if a.ZThreshold == 0 {
		a.ZThreshold = 3
	}
	if a.ZMode == "" {
		a.ZMode = "global"
	}
	if a.ZWindow == 0 {
		a.ZWindow = 30
	}
	if a.IQRWindow == 0 {
		a.IQRWindow = 7
	}
	if a.IQRMultiplier == 0 {
		a.IQRMultiplier = 1.5
	}
	if a.SeasonalPeriod == 0 {
		a.SeasonalPeriod = 7
	}
	if a.ForecastHorizon == 0 {
		a.ForecastHorizon = 30
	}
	if a.ARIMA.P == 0 && a.ARIMA.D == 0 && a.ARIMA.Q == 0 {
		a.ARIMA.P, a.ARIMA.D = 5, 1
	}

	o := &c.Output
	if o.Dir == "" {
		o.Dir = "data"
	}
	if o.PricesFile == "" {
		o.PricesFile = "bitcoin_prices.csv"
	}
	if o.AnomaliesFile == "" {
		o.AnomaliesFile = "bitcoin_prices_with_anomalies.csv"
	}
	if o.ForecastFile == "" {
		o.ForecastFile = "bitcoin_prices_with_forecast.csv"
	}
	if o.ChartsDir == "" {
		o.ChartsDir = "charts"
	}
	if o.WorkbookFile == "" {
		o.WorkbookFile = "bitcoin_analysis.xlsx"
	}
	if o.ReportFile == "" {
		o.ReportFile = "report.txt"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks field constraints and the combinations between sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Analysis.Input == "storage" && c.Storage.Location == "" {
		return errors.New("analysis.input is storage but storage.location is empty")
	}
	return nil
}
