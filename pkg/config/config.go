package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SignalForge/pkg/util"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const envPrefix = "SIGNALFORGE_"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		BodyLimit       string        `yaml:"body_limit" default:"8M"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backtest struct {
		ChunkSize           int     `yaml:"chunk_size" default:"500" validate:"min=1"`
		Workers             int     `yaml:"workers" default:"4" validate:"min=1,max=256"`
		WarmUp              int     `yaml:"warm_up" default:"50" validate:"min=0"`
		RequiredSignals     int     `yaml:"required_signals" default:"2" validate:"min=1"`
		MaxSignals          int     `yaml:"max_signals" default:"4" validate:"min=1,max=12"`
		MinCombinedStrength float64 `yaml:"min_combined_strength" default:"100" validate:"min=0"`
		TargetGainPct       float64 `yaml:"target_gain_pct" default:"2" validate:"gt=0"`
		TimeWindow          string  `yaml:"time_window" default:"4h" validate:"required"`
		Timeframe           string  `yaml:"timeframe" default:"15m" validate:"required"`
		MinOccurrences      int     `yaml:"min_occurrences" default:"3" validate:"min=1"`

		ResultTTL time.Duration `yaml:"result_ttl" default:"30m"`
	} `yaml:"backtest"`
	Scoring struct {
		MinLearningSamples int     `yaml:"min_learning_samples" default:"10" validate:"min=1"`
		LearningRate       float64 `yaml:"learning_rate" default:"0.1" validate:"gte=0,lte=1"`
		HistoryWindow      int     `yaml:"history_window" default:"50" validate:"min=1"`
	} `yaml:"scoring"`
	Analytics struct {
		Mode       string        `yaml:"mode" default:"local" validate:"oneof=local remote"`
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"analytics"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalforge"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		StrategyTopic    string   `yaml:"strategy_topic" default:"signalforge.strategies"`
		DiagnosticsTopic string   `yaml:"diagnostics_topic" default:"signalforge.diagnostics"`
		RequiredAcks     int      `yaml:"required_acks" default:"1"`
		Compression      string   `yaml:"compression" default:"snappy"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Name       string        `yaml:"name" default:"backtests"`
		Workers    int           `yaml:"workers" default:"2" validate:"min=1"`
		MaxRetries int           `yaml:"max_retries" default:"3" validate:"min=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"queue"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"min=1"`
		DefaultTTL    time.Duration `yaml:"default_ttl" default:"10m"`
	} `yaml:"cache"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"2"`
		Burst int     `yaml:"burst" default:"5"`
	} `yaml:"rate_limit"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads an optional .env file, the YAML config, and applies
// SIGNALFORGE_* overrides. An empty path starts from defaults.
func LoadWithEnv(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	var c *Config
	if path == "" {
		c = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	applyEnv(c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := env("ENV"); v != "" {
		c.Environment = v
	}
	if v, ok := envInt("PORT"); ok {
		c.Server.Port = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("ANALYTICS_MODE"); v != "" {
		c.Analytics.Mode = v
	}
	if v := env("ANALYTICS_URL"); v != "" {
		c.Analytics.ServiceURL = v
	}
	if v, ok := envInt("WORKERS"); ok {
		c.Backtest.Workers = v
	}
	if v, ok := envInt("CHUNK_SIZE"); ok {
		c.Backtest.ChunkSize = v
	}
	if v := env("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := env("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := env("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := env("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func envInt(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Backtest.MaxSignals < c.Backtest.RequiredSignals {
		return fmt.Errorf("%w: backtest.max_signals must be >= backtest.required_signals", ErrInvalidConfig)
	}
	if c.Analytics.Mode == "remote" && c.Analytics.ServiceURL == "" {
		return fmt.Errorf("%w: analytics.service_url is required in remote mode", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers cannot be empty when kafka is enabled", ErrInvalidConfig)
	}
	return nil
}
