package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Naru    NaruConfig    `mapstructure:"naru"`
	Collect CollectConfig `mapstructure:"collect"`
	Network NetworkConfig `mapstructure:"network"`
	Output  OutputConfig  `mapstructure:"output"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

// NaruConfig holds upstream API settings
type NaruConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Region  string `mapstructure:"region"`
}

// LibraryEntry is a statically configured library
type LibraryEntry struct {
	Code    string `mapstructure:"code"`
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

// CollectConfig holds collection settings
type CollectConfig struct {
	Markers         []string       `mapstructure:"markers"`      // region marker substrings
	MarkedGroup     string         `mapstructure:"marked_group"` // snapshot key of the marked group
	Libraries       []LibraryEntry `mapstructure:"libraries"`    // static list; empty means fetch by region
	PageSize        int            `mapstructure:"page_size"`
	MaxPages        int            `mapstructure:"max_pages"`
	LibraryMaxPages int            `mapstructure:"library_max_pages"`
	DedupeScope     string         `mapstructure:"dedupe_scope"` // library or global
	IncludePopular  bool           `mapstructure:"include_popular"`
	PopularDays     int            `mapstructure:"popular_days"`
	NewArrivalDays  int            `mapstructure:"new_arrival_days"`
}

// NetworkConfig holds network settings
type NetworkConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	LibraryDelay      time.Duration `mapstructure:"library_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// OutputConfig holds snapshot output settings
type OutputConfig struct {
	Path         string `mapstructure:"path"`
	FallbackPath string `mapstructure:"fallback_path"`
	MetricsPath  string `mapstructure:"metrics_path"`
}

// CacheConfig holds live search cache settings
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotifyConfig holds desktop notification settings
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ConfigError reports a missing or invalid setting
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

var cfg *Config

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "narubooks")
}

// GetDBPath returns the database file path
func GetDBPath() string {
	return filepath.Join(GetConfigDir(), "narubooks.db")
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

func setDefaults() {
	viper.SetDefault("naru.base_url", "https://data4library.kr/api")
	viper.SetDefault("naru.region", "대구광역시")
	viper.SetDefault("collect.markers", []string{"달성"})
	viper.SetDefault("collect.marked_group", "dalseong")
	viper.SetDefault("collect.page_size", 100)
	viper.SetDefault("collect.max_pages", 20)
	viper.SetDefault("collect.library_max_pages", 30)
	viper.SetDefault("collect.dedupe_scope", "library")
	viper.SetDefault("collect.include_popular", false)
	viper.SetDefault("collect.popular_days", 30)
	viper.SetDefault("collect.new_arrival_days", 90)
	viper.SetDefault("network.timeout", 30*time.Second)
	viper.SetDefault("network.page_delay", 120*time.Millisecond)
	viper.SetDefault("network.library_delay", 120*time.Millisecond)
	viper.SetDefault("network.requests_per_second", 0)
	viper.SetDefault("network.breaker_failures", 5)
	viper.SetDefault("network.breaker_timeout", 30*time.Second)
	viper.SetDefault("network.user_agent", "narubooks/0.1 (+https://data4library.kr)")
	viper.SetDefault("output.path", filepath.Join("public", "books.json"))
	viper.SetDefault("output.fallback_path", "books.json")
	viper.SetDefault("output.metrics_path", "")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", 6*time.Hour)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("notify.enabled", false)
}

// Init initializes the configuration
func Init(cfgFile string) error {
	// .env in the working directory (ignore if not found)
	_ = godotenv.Load()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetConfigDir())
	}

	// Environment variable overrides
	viper.SetEnvPrefix("NARU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Legacy variable names used by older deployments
	if err := viper.BindEnv("naru.api_key", "NARU_API_KEY", "JEONGBONAROU_API_KEY", "API_KEY"); err != nil {
		return err
	}
	if err := viper.BindEnv("naru.region", "NARU_REGION", "DAEGU_REGION"); err != nil {
		return err
	}

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg = nil
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
		_ = viper.Unmarshal(cfg)
		cfg.Output.Path = expandPath(cfg.Output.Path)
		cfg.Output.FallbackPath = expandPath(cfg.Output.FallbackPath)
		cfg.Output.MetricsPath = expandPath(cfg.Output.MetricsPath)
	}
	return cfg
}

// Validate checks the settings the collector cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Naru.APIKey) == "" {
		return &ConfigError{Key: "naru.api_key", Reason: "not set (export NARU_API_KEY, JEONGBONAROU_API_KEY or API_KEY)"}
	}
	if c.Naru.BaseURL == "" {
		return &ConfigError{Key: "naru.base_url", Reason: "empty"}
	}
	if c.Collect.PageSize <= 0 {
		return &ConfigError{Key: "collect.page_size", Reason: "must be positive"}
	}
	switch strings.ToLower(strings.TrimSpace(c.Collect.DedupeScope)) {
	case "", "library", "global":
	default:
		return &ConfigError{Key: "collect.dedupe_scope", Reason: fmt.Sprintf("unknown scope %q (use library or global)", c.Collect.DedupeScope)}
	}
	for i, lib := range c.Collect.Libraries {
		if lib.Code == "" {
			return &ConfigError{Key: fmt.Sprintf("collect.libraries[%d].code", i), Reason: "empty"}
		}
	}
	return nil
}

// Set sets a configuration value
func Set(key, value string) error {
	viper.Set(key, value)

	// Ensure config directory exists
	configDir := GetConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Reset cached config
	cfg = nil

	return viper.WriteConfigAs(GetConfigPath())
}

// GetValue retrieves a configuration value
func GetValue(key string) interface{} {
	return viper.Get(key)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// AllSettings returns the merged settings as a nested map with the API key masked
func AllSettings() map[string]interface{} {
	settings := viper.AllSettings()
	if naru, ok := settings["naru"].(map[string]interface{}); ok {
		if key, _ := naru["api_key"].(string); key != "" {
			naru["api_key"] = "***"
		}
	}
	return settings
}
