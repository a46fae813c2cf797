package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a simulation run.
type Config struct {
	NumAgents        int           `yaml:"num_agents"`
	DailyLimit       float64       `yaml:"daily_limit"`
	Days             int           `yaml:"days"`
	StartingMoney    int64         `yaml:"starting_money"`
	MaxStartingGoods int64         `yaml:"max_starting_goods"`
	Seed             uint64        `yaml:"seed"` // 0 picks a time-based seed
	Workers          int           `yaml:"workers"`
	TopAgents        int           `yaml:"top_agents"`
	LogLevel         string        `yaml:"log_level"`
	CheckInvariants  bool          `yaml:"check_invariants"`
	JournalPath      string        `yaml:"journal_path"` // empty disables the journal
	HTTPAddr         string        `yaml:"http_addr"`    // empty disables the report server
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		NumAgents:        10000,
		DailyLimit:       0.1,
		Days:             1,
		StartingMoney:    100,
		MaxStartingGoods: 10,
		Workers:          runtime.NumCPU(),
		TopAgents:        10,
		LogLevel:         "info",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// HERMES_CONFIG if set, then environment variables, and validates the
// result. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("HERMES_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.NumAgents, err = getInt("NUM_AGENTS", cfg.NumAgents); err != nil {
		return nil, fmt.Errorf("invalid NUM_AGENTS: %w", err)
	}
	if cfg.DailyLimit, err = getFloat("DAILY_LIMIT", cfg.DailyLimit); err != nil {
		return nil, fmt.Errorf("invalid DAILY_LIMIT: %w", err)
	}
	if cfg.Days, err = getInt("DAYS", cfg.Days); err != nil {
		return nil, fmt.Errorf("invalid DAYS: %w", err)
	}
	if cfg.StartingMoney, err = getInt64("STARTING_MONEY", cfg.StartingMoney); err != nil {
		return nil, fmt.Errorf("invalid STARTING_MONEY: %w", err)
	}
	if cfg.MaxStartingGoods, err = getInt64("MAX_STARTING_GOODS", cfg.MaxStartingGoods); err != nil {
		return nil, fmt.Errorf("invalid MAX_STARTING_GOODS: %w", err)
	}
	if cfg.Seed, err = getUint64("SEED", cfg.Seed); err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}
	if cfg.Workers, err = getInt("WORKERS", cfg.Workers); err != nil {
		return nil, fmt.Errorf("invalid WORKERS: %w", err)
	}
	if cfg.TopAgents, err = getInt("TOP_AGENTS", cfg.TopAgents); err != nil {
		return nil, fmt.Errorf("invalid TOP_AGENTS: %w", err)
	}
	cfg.LogLevel = getStr("LOG_LEVEL", cfg.LogLevel)
	if cfg.CheckInvariants, err = getBool("CHECK_INVARIANTS", cfg.CheckInvariants); err != nil {
		return nil, fmt.Errorf("invalid CHECK_INVARIANTS: %w", err)
	}
	cfg.JournalPath = getStr("JOURNAL_PATH", cfg.JournalPath)
	cfg.HTTPAddr = getStr("HTTP_ADDR", cfg.HTTPAddr)
	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = getDuration("WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getDuration("IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	if c.NumAgents <= 0 {
		return fmt.Errorf("invalid NUM_AGENTS: %d, must be > 0", c.NumAgents)
	}
	if !(c.DailyLimit > 0 && c.DailyLimit <= 1) {
		return fmt.Errorf("invalid DAILY_LIMIT: %v, must be in (0, 1]", c.DailyLimit)
	}
	if c.Days <= 0 {
		return fmt.Errorf("invalid DAYS: %d, must be > 0", c.Days)
	}
	if c.StartingMoney < 0 {
		return fmt.Errorf("invalid STARTING_MONEY: %d, must be >= 0", c.StartingMoney)
	}
	if c.MaxStartingGoods < 0 {
		return fmt.Errorf("invalid MAX_STARTING_GOODS: %d, must be >= 0", c.MaxStartingGoods)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid WORKERS: %d, must be > 0", c.Workers)
	}
	if c.TopAgents < 0 {
		return fmt.Errorf("invalid TOP_AGENTS: %d, must be >= 0", c.TopAgents)
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getUint64(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
