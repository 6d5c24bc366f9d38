package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Client ClientConfig `yaml:"client" mapstructure:"client"`
	Crawl  CrawlConfig  `yaml:"crawl" mapstructure:"crawl"`
	OCR    OCRConfig    `yaml:"ocr" mapstructure:"ocr"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ClientConfig configures the Nuri API client.
type ClientConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries      int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseSecs int     `yaml:"backoff_base_secs" mapstructure:"backoff_base_secs"`
	BackoffCapSecs  int     `yaml:"backoff_cap_secs" mapstructure:"backoff_cap_secs"`
	RateLimitWait   int     `yaml:"rate_limit_wait_secs" mapstructure:"rate_limit_wait_secs"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// CrawlConfig configures the collection loop.
type CrawlConfig struct {
	MaxPages        int     `yaml:"max_pages" mapstructure:"max_pages"`
	RecordsPerPage  int     `yaml:"records_per_page" mapstructure:"records_per_page"`
	DaysBack        int     `yaml:"days_back" mapstructure:"days_back"`
	FetchDetails    bool    `yaml:"fetch_details" mapstructure:"fetch_details"`
	PageDelaySecs   float64 `yaml:"page_delay_secs" mapstructure:"page_delay_secs"`
	DetailDelaySecs float64 `yaml:"detail_delay_secs" mapstructure:"detail_delay_secs"`
	IntervalSecs    int     `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// PageDelay returns the inter-page delay as a duration.
func (c CrawlConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelaySecs * float64(time.Second))
}

// DetailDelay returns the inter-detail delay as a duration.
func (c CrawlConfig) DetailDelay() time.Duration {
	return time.Duration(c.DetailDelaySecs * float64(time.Second))
}

// OCRConfig configures the weight-ticket parsing task.
type OCRConfig struct {
	SampleDir string `yaml:"sample_dir" mapstructure:"sample_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ExportConfig configures output artifacts.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NURI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/crawler_state.db")
	v.SetDefault("client.base_url", "https://nuri.g2b.go.kr")
	v.SetDefault("client.timeout_secs", 30)
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.backoff_base_secs", 2)
	v.SetDefault("client.backoff_cap_secs", 10)
	v.SetDefault("client.rate_limit_wait_secs", 60)
	v.SetDefault("client.requests_per_sec", 5)
	v.SetDefault("client.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("crawl.max_pages", 1)
	v.SetDefault("crawl.records_per_page", 10)
	v.SetDefault("crawl.days_back", 30)
	v.SetDefault("crawl.fetch_details", false)
	v.SetDefault("crawl.page_delay_secs", 1.0)
	v.SetDefault("crawl.detail_delay_secs", 0.5)
	v.SetDefault("crawl.interval_secs", 3600)
	v.SetDefault("ocr.sample_dir", "samples")
	v.SetDefault("ocr.output_dir", "output")
	v.SetDefault("export.output_dir", "output")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
