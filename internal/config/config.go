// Package config loads harness settings from flags, environment, .env and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/born-ml/benchmarks/internal/store"
)

// DefaultSuiteURL is the suite log served by "born-bench serve" with default flags.
const DefaultSuiteURL = "http://localhost:8080/suite/suite_log.json"

// EnvPrefix prefixes every environment variable, e.g. BORN_BENCH_SUITE_URL.
const EnvPrefix = "BORN_BENCH"

// Config is the decoded harness configuration.
type Config struct {
	SuiteURL  string        `mapstructure:"suite_url"`
	SuiteFile string        `mapstructure:"suite_file"`
	ModelsURL string        `mapstructure:"models_url"`
	ModelsDir string        `mapstructure:"models_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Threads   int           `mapstructure:"threads"`
	Seed      int64         `mapstructure:"seed"`
	Tokenizer string        `mapstructure:"tokenizer"`
	TaskType  string        `mapstructure:"task_type"`
	Export    string        `mapstructure:"export"`
	Report    string        `mapstructure:"report"`

	Store store.Config `mapstructure:"store"`
	Log   LogConfig    `mapstructure:"log"`

	Metrics MetricsConfig `mapstructure:"metrics"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

// LogConfig configures telemetry.InitLogger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	PushGateway string `mapstructure:"push_gateway"`
	Job         string `mapstructure:"job"`
}

// SlackConfig configures the run summary notification.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Token      string `mapstructure:"token"`
	Channel    string `mapstructure:"channel"`
}

// ServeConfig configures the asset server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
	Dir  string `mapstructure:"dir"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("suite_url", DefaultSuiteURL)
	v.SetDefault("timeout", 600*time.Second)
	v.SetDefault("threads", 0)
	v.SetDefault("seed", 1)
	v.SetDefault("tokenizer", "cl100k_base")
	v.SetDefault("task_type", "model")
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.dsn", store.DefaultSQLitePath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.job", "born_bench")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.dir", "testdata/suite")

	// Plain SLACK_WEBHOOK_URL is honoured when the prefixed variable is unset.
	if os.Getenv(EnvPrefix+"_SLACK_WEBHOOK_URL") == "" && os.Getenv("SLACK_WEBHOOK_URL") != "" {
		v.SetDefault("slack.webhook_url", os.Getenv("SLACK_WEBHOOK_URL"))
	}
}

// Load reads .env, cfgFile (or ./born-bench.yaml when present) and the
// environment into v and decodes the result.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("born-bench")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", c.Threads)
	}
	switch strings.ToLower(c.Store.Type) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}
	return nil
}
