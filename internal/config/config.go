package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"finflow/internal/core"
)

type Config struct {
	// HTTP server
	Port         string `toml:"port"`
	RateLimitRPM int    `toml:"rate_limit_rpm"`

	// Storage
	DataBackend  string `toml:"data_backend"`
	SQLiteDBPath string `toml:"sqlite_db_path"`
	SeedDir      string `toml:"seed_dir"`

	// Budget
	WeeklyBudget     string `toml:"weekly_budget"`
	ReferenceBalance string `toml:"reference_balance"`
	Timezone         string `toml:"timezone"`

	// Advice
	GeminiAPIKey   string        `toml:"gemini_api_key"`
	GeminiModel    string        `toml:"gemini_model"`
	AdviceTimeout  time.Duration `toml:"advice_timeout"`
	AdviceCacheTTL time.Duration `toml:"advice_cache_ttl"`

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	LogLevel string `toml:"log_level"`

	// ConfigFile is the TOML file merged under the environment, if any.
	ConfigFile string `toml:"-"`

	loadErrs []string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:             "8081",
		RateLimitRPM:     60,
		DataBackend:      "sqlite",
		SQLiteDBPath:     "./data/finflow.db",
		WeeklyBudget:     "3500",
		ReferenceBalance: "4893.90",
		Timezone:         "Local",
		GeminiModel:      "gemini-1.5-flash",
		AdviceTimeout:    20 * time.Second,
		AdviceCacheTTL:   10 * time.Minute,
		AMQPExchange:     "finflow",
		AMQPQueue:        "finflow_log_events",
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FINFLOW_CONFIG, then the environment. Problems reading the file surface
// from Validate.
func Load() *Config {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("FINFLOW_CONFIG")); path != "" {
		cfg.ConfigFile = path
		if err := cfg.mergeFile(path); err != nil {
			cfg.loadErrs = append(cfg.loadErrs, err.Error())
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) mergeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config file '%s': %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in config file '%s': %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", c.RateLimitRPM)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.SeedDir = getEnv("MEMORY_SEED_DIR", c.SeedDir)

	c.WeeklyBudget = getEnv("WEEKLY_BUDGET", c.WeeklyBudget)
	c.ReferenceBalance = getEnv("REFERENCE_BALANCE", c.ReferenceBalance)
	c.Timezone = getEnv("FINFLOW_TZ", c.Timezone)

	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.AdviceTimeout = getEnvDuration("ADVICE_TIMEOUT", c.AdviceTimeout)
	c.AdviceCacheTTL = getEnvDuration("ADVICE_CACHE_TTL", c.AdviceCacheTTL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.LogLevel = getEnv("FINFLOW_LOG_LEVEL", c.LogLevel)
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	errors := append([]string(nil), c.loadErrs...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 0 || c.RateLimitRPM > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 0 and 10000 requests per minute", c.RateLimitRPM))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == "memory" && c.SeedDir != "" {
		if info, err := os.Stat(c.SeedDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("memory seed directory does not exist: %s", c.SeedDir))
		}
	}

	if m, err := core.ParseAmount(c.WeeklyBudget); err != nil {
		errors = append(errors, fmt.Sprintf("invalid weekly budget '%s': must be a non-negative amount", c.WeeklyBudget))
	} else if m.IsZero() {
		errors = append(errors, "invalid weekly budget 0: must be greater than zero")
	}
	if _, err := core.ParseAmount(c.ReferenceBalance); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reference balance '%s': must be a non-negative amount", c.ReferenceBalance))
	}
	if _, err := loadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AdviceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must be at least 1 second", c.AdviceTimeout))
	} else if c.AdviceTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must be at most 2 minutes", c.AdviceTimeout))
	}
	if c.AdviceCacheTTL < 0 || c.AdviceCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid advice cache TTL %v: must be between 0 and 24 hours", c.AdviceCacheTTL))
	}
	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when GEMINI_API_KEY is provided")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// WeeklyLimit is the parsed weekly budget. Call after Validate.
func (c *Config) WeeklyLimit() core.Money {
	m, _ := core.ParseAmount(c.WeeklyBudget)
	return m
}

// Balance is the parsed reference balance fed to the advisor.
func (c *Config) Balance() core.Money {
	m, _ := core.ParseAmount(c.ReferenceBalance)
	return m
}

// Location is the zone in which calendar dates and ISO weeks are computed.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// AMQPEnabled reports whether events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(name)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
