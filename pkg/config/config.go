package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Market struct {
		BaseURL          string        `yaml:"base_url"`
		APIKey           string        `yaml:"api_key"`
		Currency         string        `yaml:"currency"`
		Timeout          time.Duration `yaml:"timeout"`
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		MaxFailures      int           `yaml:"max_failures"`
		FailureCooldown  time.Duration `yaml:"failure_cooldown"`
	} `yaml:"market"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		ThrottleMin    time.Duration `yaml:"throttle_min"`
	} `yaml:"stream"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID         string        `yaml:"group_id"`
			AutoOffsetReset string        `yaml:"auto_offset_reset"`
			Workers         int           `yaml:"workers"`
			BufferSize      int           `yaml:"buffer_size"`
			RetryMax        int           `yaml:"retry_max"`
			BackoffMin      time.Duration `yaml:"backoff_min"`
			BackoffMax      time.Duration `yaml:"backoff_max"`
			DLQTopic        string        `yaml:"dlq_topic"`
			MinBytes        int           `yaml:"min_bytes"`
			MaxBytes        int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Forecast struct {
		DefaultModel string        `yaml:"default_model"`
		Epochs       int           `yaml:"epochs"`
		HiddenSize   int           `yaml:"hidden_size"`
		Window       int           `yaml:"window"`
		ArchiveRuns  bool          `yaml:"archive_runs"`
		WarmInterval time.Duration `yaml:"warm_interval"`
		CacheTTL     struct {
			History  time.Duration `yaml:"history"`
			Forecast time.Duration `yaml:"forecast"`
		} `yaml:"cache_ttl"`
	} `yaml:"forecast"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.Market.APIKey = v
	}
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		c.Market.BaseURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	switch c.Backend.Type {
	case "", "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Backend.Type)
	}
	if c.Stream.Enabled && len(c.Stream.Symbols) == 0 {
		return fmt.Errorf("stream.symbols cannot be empty when the stream is enabled")
	}
	if c.Forecast.DefaultModel != "" && c.Forecast.DefaultModel != "lstm" && c.Forecast.DefaultModel != "arima" {
		return fmt.Errorf("forecast.default_model must be 'lstm' or 'arima', got '%s'", c.Forecast.DefaultModel)
	}
	return nil
}
