package common

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	EODHD       EODHDConfig     `toml:"eodhd"`
	NewsAPI     NewsAPIConfig   `toml:"newsapi"`
	News        NewsConfig      `toml:"news"`
	ETL         ETLConfig       `toml:"etl"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Tracker     TrackerConfig   `toml:"tracker"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"` // Database file path
	CacheSizeMB   int    `toml:"cache_size_mb" validate:"gte=0"`
	WALMode       bool   `toml:"wal_mode"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
	File   string   `toml:"file"`   // log file path when "file" output is enabled
}

// EODHDConfig configures the market data provider.
type EODHDConfig struct {
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url" validate:"required,url"`
	RateLimit            int    `toml:"rate_limit" validate:"gt=0"` // requests per second
	Timeout              string `toml:"timeout"`
	FundamentalsCacheTTL string `toml:"fundamentals_cache_ttl"`
}

// NewsAPIConfig configures the newsapi.org client.
type NewsAPIConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url" validate:"required,url"`
	RateLimit int    `toml:"rate_limit" validate:"gt=0"`
	Timeout   string `toml:"timeout"`
}

// NewsConfig selects the news provider and the shape of news extraction.
type NewsConfig struct {
	Provider string `toml:"provider" validate:"oneof=newsapi eodhd"`
	Category string `toml:"category"`                          // top-headlines category for the general batch
	PageSize int    `toml:"page_size" validate:"gt=0,lte=100"` // articles per request
	Sources  string `toml:"sources"`                           // comma-separated source ids for symbol queries
}

// ETLConfig holds the tracked symbol set and load constants.
type ETLConfig struct {
	Symbols          []string `toml:"symbols" validate:"required,min=1,dive,required"`
	Lookback         string   `toml:"lookback" validate:"required,lookback"` // e.g. "5d", "1mo", "ytd"
	LightBars        int      `toml:"light_bars" validate:"gt=0"`            // bars kept by the light stock-update job
	RateLimitDelay   string   `toml:"rate_limit_delay"`                      // fixed delay between symbols
	RelevanceScore   float64  `toml:"relevance_score" validate:"gte=0,lte=1"`
	CredibilityScore float64  `toml:"credibility_score" validate:"gte=0,lte=1"`
}

// SchedulerConfig holds the three recurring triggers. Each is a cron spec
// accepted by cron.ParseStandard ("@every 30m", "30 16 * * *").
type SchedulerConfig struct {
	Tick         string `toml:"tick"`
	StockUpdates string `toml:"stock_updates"`
	NewsUpdates  string `toml:"news_updates"`
	FullETL      string `toml:"full_etl"`
	RunOnStart   bool   `toml:"run_on_start"`
}

// TrackerConfig configures the continuous tracking loop.
type TrackerConfig struct {
	UpdateInterval     string `toml:"update_interval"`
	NewsUpdateInterval string `toml:"news_update_interval"`
	RateLimitDelay     string `toml:"rate_limit_delay"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/stockit.db",
				CacheSizeMB:   32,
				WALMode:       true,
				BusyTimeoutMS: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
			File:   "./logs/stockit.log",
		},
		EODHD: EODHDConfig{
			BaseURL:              "https://eodhd.com/api",
			RateLimit:            10,
			Timeout:              "30s",
			FundamentalsCacheTTL: "6h",
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:   "https://newsapi.org/v2",
			RateLimit: 5,
			Timeout:   "30s",
		},
		News: NewsConfig{
			Provider: "newsapi",
			Category: "business",
			PageSize: 50,
		},
		ETL: ETLConfig{
			Symbols:          []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META", "NFLX"},
			Lookback:         "5d",
			LightBars:        5,
			RateLimitDelay:   "1s",
			RelevanceScore:   0.75,
			CredibilityScore: 0.50,
		},
		Scheduler: SchedulerConfig{
			Tick:         "60s",
			StockUpdates: "@every 30m",
			NewsUpdates:  "@every 15m",
			FullETL:      "30 16 * * *",
			RunOnStart:   true,
		},
		Tracker: TrackerConfig{
			UpdateInterval:     "300s",
			NewsUpdateInterval: "1800s",
			RateLimitDelay:     "12s",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env -> env.
// CLI flags are applied afterwards by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env never overrides variables already present in the process environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies STOCKIT_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKIT_ENV"); env != "" {
		config.Environment = env
	}

	// Storage
	if path := os.Getenv("STOCKIT_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}

	// Logging
	if level := os.Getenv("STOCKIT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("STOCKIT_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Providers
	if key := firstEnv("EODHD_API_KEY", "STOCKIT_EODHD_API_KEY"); key != "" {
		config.EODHD.APIKey = key
	}
	if baseURL := os.Getenv("STOCKIT_EODHD_BASE_URL"); baseURL != "" {
		config.EODHD.BaseURL = baseURL
	}
	if key := firstEnv("NEWSAPI_API_KEY", "NEWS_API_KEY", "STOCKIT_NEWSAPI_API_KEY"); key != "" {
		config.NewsAPI.APIKey = key
	}
	if baseURL := os.Getenv("STOCKIT_NEWSAPI_BASE_URL"); baseURL != "" {
		config.NewsAPI.BaseURL = baseURL
	}
	if provider := os.Getenv("STOCKIT_NEWS_PROVIDER"); provider != "" {
		config.News.Provider = provider
	}
	if pageSize := os.Getenv("STOCKIT_NEWS_PAGE_SIZE"); pageSize != "" {
		if n, err := strconv.Atoi(pageSize); err == nil {
			config.News.PageSize = n
		}
	}

	// ETL
	if symbols := os.Getenv("STOCKIT_SYMBOLS"); symbols != "" {
		if list := splitList(symbols); len(list) > 0 {
			config.ETL.Symbols = list
		}
	}
	if lookback := os.Getenv("STOCKIT_LOOKBACK"); lookback != "" {
		config.ETL.Lookback = lookback
	}
	if delay := os.Getenv("STOCKIT_RATE_LIMIT_DELAY"); delay != "" {
		config.ETL.RateLimitDelay = delay
	}

	// Scheduler
	if spec := os.Getenv("STOCKIT_SCHEDULE_STOCK_UPDATES"); spec != "" {
		config.Scheduler.StockUpdates = spec
	}
	if spec := os.Getenv("STOCKIT_SCHEDULE_NEWS_UPDATES"); spec != "" {
		config.Scheduler.NewsUpdates = spec
	}
	if spec := os.Getenv("STOCKIT_SCHEDULE_FULL_ETL"); spec != "" {
		config.Scheduler.FullETL = spec
	}
	if runOnStart := os.Getenv("STOCKIT_SCHEDULE_RUN_ON_START"); runOnStart != "" {
		if b, err := strconv.ParseBool(runOnStart); err == nil {
			config.Scheduler.RunOnStart = b
		}
	}

	// Tracker
	if interval := os.Getenv("STOCKIT_TRACKER_UPDATE_INTERVAL"); interval != "" {
		config.Tracker.UpdateInterval = interval
	}
	if interval := os.Getenv("STOCKIT_TRACKER_NEWS_INTERVAL"); interval != "" {
		config.Tracker.NewsUpdateInterval = interval
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, dbPath string, logLevel string, symbols []string) {
	if dbPath != "" {
		config.Storage.SQLite.Path = dbPath
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if len(symbols) > 0 {
		config.ETL.Symbols = symbols
	}
}

// lookbackPattern matches the period strings the price provider understands
var lookbackPattern = regexp.MustCompile(`^([1-9]\d*(d|wk|mo|y)|ytd|max)$`)

func validLookback(fl validator.FieldLevel) bool {
	return lookbackPattern.MatchString(strings.ToLower(strings.TrimSpace(fl.Field().String())))
}

// Validate checks struct constraints (including the lookback format), durations and schedules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("lookback", validLookback); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"eodhd.timeout":                c.EODHD.Timeout,
		"eodhd.fundamentals_cache_ttl": c.EODHD.FundamentalsCacheTTL,
		"newsapi.timeout":              c.NewsAPI.Timeout,
		"etl.rate_limit_delay":         c.ETL.RateLimitDelay,
		"scheduler.tick":               c.Scheduler.Tick,
		"tracker.update_interval":      c.Tracker.UpdateInterval,
		"tracker.news_update_interval": c.Tracker.NewsUpdateInterval,
		"tracker.rate_limit_delay":     c.Tracker.RateLimitDelay,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	for name, spec := range map[string]string{
		"scheduler.stock_updates": c.Scheduler.StockUpdates,
		"scheduler.news_updates":  c.Scheduler.NewsUpdates,
		"scheduler.full_etl":      c.Scheduler.FullETL,
	} {
		if err := ValidateJobSchedule(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

// ValidateJobSchedule validates a cron schedule expression ("@every 15m", "30 16 * * *")
func ValidateJobSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule is empty")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDurationOr parses value, returning fallback when value is empty or invalid.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
