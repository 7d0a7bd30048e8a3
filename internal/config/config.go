package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Enrich    StageConfig     `yaml:"enrich" mapstructure:"enrich"`
	Generate  StageConfig     `yaml:"generate" mapstructure:"generate"`
	Delivery  DeliveryConfig  `yaml:"delivery" mapstructure:"delivery"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxResultsPerQ  int     `yaml:"max_results_per_query" mapstructure:"max_results_per_query"`
}

// AnthropicConfig holds Anthropic API settings for content generation.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TelegramConfig holds the messaging transport settings. Recipients maps a
// destination phone number to a Telegram chat ID; destinations without a
// mapping are treated as unregistered.
type TelegramConfig struct {
	Token      string           `yaml:"token" mapstructure:"token"`
	Recipients map[string]int64 `yaml:"recipients" mapstructure:"recipients"`
}

// DiscoveryConfig paces the discovery stage.
type DiscoveryConfig struct {
	MinIntervalMs int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// StageConfig holds the batch settings shared by the enrich and generate
// stages.
type StageConfig struct {
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	InterBatchDelayMs int `yaml:"inter_batch_delay_ms" mapstructure:"inter_batch_delay_ms"`
	MinIntervalMs     int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// DeliveryConfig paces and caps the delivery stage.
type DeliveryConfig struct {
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	InterBatchDelayMs int `yaml:"inter_batch_delay_ms" mapstructure:"inter_batch_delay_ms"`
	MinIntervalMs     int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	QuotaPerHour      int `yaml:"quota_per_hour" mapstructure:"quota_per_hour"`
}

// ServerConfig configures the status server.
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

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	// Empty defaults so env-only credentials survive Unmarshal.
	v.SetDefault("places.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.requests_per_sec", 5)
	v.SetDefault("places.max_results_per_query", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("discovery.min_interval_ms", 1000)
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.inter_batch_delay_ms", 2000)
	v.SetDefault("enrich.min_interval_ms", 200)
	v.SetDefault("generate.batch_size", 5)
	v.SetDefault("generate.inter_batch_delay_ms", 1000)
	v.SetDefault("generate.min_interval_ms", 500)
	v.SetDefault("delivery.batch_size", 3)
	v.SetDefault("delivery.inter_batch_delay_ms", 5000)
	v.SetDefault("delivery.min_interval_ms", 3000)
	v.SetDefault("delivery.quota_per_hour", 20)

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

// Validate checks that the credentials required for a run are present.
// Missing credentials are fatal: the run aborts before any stage starts.
func (c *Config) Validate(deliver bool) error {
	if c.Places.Key == "" {
		return eris.New("config: places.key is required")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required")
	}
	if deliver && c.Telegram.Token == "" {
		return eris.New("config: telegram.token is required when delivery is enabled")
	}
	return nil
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
