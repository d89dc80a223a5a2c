package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"service_market/internal/domain"
)

// Config holds every setting of the daemon.
// LoadConfig reads the YAML file, then lets MARKET_* environment variables override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		Workers   int    `yaml:"workers"`
		InboxSize int    `yaml:"inbox_size"`
		DumpPath  string `yaml:"dump_path"`
	} `yaml:"engine"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Outbox struct {
		Dir     string `yaml:"dir"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"outbox"`

	Publisher struct {
		Driver         string   `yaml:"driver"`
		Brokers        []string `yaml:"brokers"`
		Topic          string   `yaml:"topic"`
		PollIntervalMS int      `yaml:"poll_interval_ms"`
	} `yaml:"publisher"`

	API struct {
		GRPCAddr       string  `yaml:"grpc_addr"`
		OpsAddr        string  `yaml:"ops_addr"`
		PprofAddr      string  `yaml:"pprof_addr"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"api"`

	Genesis struct {
		Accounts []GenesisAccount `yaml:"accounts"`
	} `yaml:"genesis"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// GenesisAccount funds a wallet when the journal is empty.
type GenesisAccount struct {
	Address  string `yaml:"address"`
	Lamports uint64 `yaml:"lamports"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and env overrides, and validates.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// secrets and deployment addresses come from the environment
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the settings used for keys the file leaves out.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "service-market"
	cfg.Engine.Workers = 4
	cfg.Engine.InboxSize = 1024
	cfg.Engine.DumpPath = "panic_dump.json"
	cfg.Outbox.Dir = "data/outbox"
	cfg.Publisher.Driver = "none"
	cfg.Publisher.PollIntervalMS = 250
	cfg.API.GRPCAddr = "127.0.0.1:7070"
	cfg.API.OpsAddr = "127.0.0.1:9090"
	cfg.API.RateLimitRPS = 50
	cfg.API.RateLimitBurst = 100
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Engine
	if c.Engine.Workers <= 0 {
		return fieldError("engine.workers", "must be positive")
	}
	if c.Engine.InboxSize <= 0 {
		return fieldError("engine.inbox_size", "must be positive")
	}

	// Publisher
	switch c.Publisher.Driver {
	case "none":
	case "kafka-go", "sarama":
		if len(c.Publisher.Brokers) == 0 {
			return fieldError("publisher.brokers", "at least one broker is required")
		}
		if c.Publisher.Topic == "" {
			return fieldError("publisher.topic", "topic is required")
		}
		if !c.Outbox.Enabled {
			return fieldError("outbox.enabled", "publishing requires the outbox")
		}
	default:
		return fieldError("publisher.driver", fmt.Sprintf("unknown driver %q", c.Publisher.Driver))
	}
	if c.Publisher.PollIntervalMS <= 0 {
		return fieldError("publisher.poll_interval_ms", "must be positive")
	}
	if c.Outbox.Enabled && c.Outbox.Dir == "" {
		return fieldError("outbox.dir", "required when the outbox is enabled")
	}

	// API
	if c.API.GRPCAddr == "" {
		return fieldError("api.grpc_addr", "required")
	}
	if c.API.RateLimitRPS <= 0 || c.API.RateLimitBurst <= 0 {
		return fieldError("api.rate_limit_rps", "rate limit must be positive")
	}

	// Genesis
	for i, acc := range c.Genesis.Accounts {
		if _, err := domain.ParseAddress(acc.Address); err != nil {
			return &domain.ConfigError{Field: fmt.Sprintf("genesis.accounts[%d].address", i), Err: err}
		}
	}
	return nil
}

func fieldError(field, reason string) error {
	return &domain.ConfigError{Field: field, Err: errors.New(reason)}
}

// overrideWithEnv overwrites settings when the matching environment variable is set.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("MARKET_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MARKET_GRPC_ADDR"); v != "" {
		cfg.API.GRPCAddr = v
	}
	if v := os.Getenv("MARKET_OPS_ADDR"); v != "" {
		cfg.API.OpsAddr = v
	}
	if v := os.Getenv("MARKET_PUBLISHER_DRIVER"); v != "" {
		cfg.Publisher.Driver = v
	}
	if v := os.Getenv("MARKET_KAFKA_BROKERS"); v != "" {
		cfg.Publisher.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_KAFKA_TOPIC"); v != "" {
		cfg.Publisher.Topic = v
	}
	if v := os.Getenv("MARKET_ENGINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("MARKET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
