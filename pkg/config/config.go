package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix shared by all environment overrides
	EnvPrefix = "WALLHEAVEN_SYNC_"

	// StoragePathEnv overrides the storage root
	StoragePathEnv = EnvPrefix + "STORAGE_PATH"

	// DefaultAPIURL is the Wallhaven API base URL
	DefaultAPIURL = "https://wallhaven.cc/api/v1"

	// DefaultStorageDir is the storage directory created under the user's home
	DefaultStorageDir = "wallheaven_storage"
)

// Version is reported in the default user agent
var Version = "1.0.0"

// Config holds all configuration options for wallheaven-sync
type Config struct {
	// Remote API settings
	Wallhaven WallhavenConfig `yaml:"wallhaven" json:"wallhaven"`

	// Local storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Quota handling
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Sync behaviour
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WallhavenConfig holds remote API configuration
type WallhavenConfig struct {
	APIURL    string `yaml:"api_url" json:"api_url"`
	Username  string `yaml:"username" json:"username"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// StorageConfig holds the storage root
type StorageConfig struct {
	Root string `yaml:"root" json:"root"`
}

// RateLimitConfig controls how server quota signals are honoured.
// Zero values mean unlimited.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxWaits          int           `yaml:"max_waits" json:"max_waits"`
	MaxWait           time.Duration `yaml:"max_wait" json:"max_wait"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	FallbackExtension string        `yaml:"fallback_extension" json:"fallback_extension"`
}

// SyncConfig holds reconciliation settings
type SyncConfig struct {
	// FlushEachItem persists the index after every downloaded item instead of once per run
	FlushEachItem bool `yaml:"flush_each_item" json:"flush_each_item"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Wallhaven: WallhavenConfig{
			APIURL:    DefaultAPIURL,
			UserAgent: "wallheaven_sync/" + Version,
		},
		Storage: StorageConfig{
			Root: DefaultStorageRoot(),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			MaxWaits:          0,
			MaxWait:           0,
		},
		Download: DownloadConfig{
			Timeout:           0,
			FallbackExtension: "jpg",
		},
		Sync: SyncConfig{
			FlushEachItem: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// DefaultStorageRoot returns the platform default storage root under the user's home
func DefaultStorageRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultStorageDir
	}
	return filepath.Join(home, DefaultStorageDir)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if root := os.Getenv(StoragePathEnv); root != "" {
		c.Storage.Root = root
	}
	if username := os.Getenv(EnvPrefix + "USERNAME"); username != "" {
		c.Wallhaven.Username = username
	}
	if apiKey := os.Getenv(EnvPrefix + "API_KEY"); apiKey != "" {
		c.Wallhaven.APIKey = apiKey
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.Wallhaven.UserAgent = userAgent
	}
	if apiURL := os.Getenv(EnvPrefix + "API_URL"); apiURL != "" {
		c.Wallhaven.APIURL = apiURL
	}

	if rpm := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if maxWaits := os.Getenv(EnvPrefix + "MAX_WAITS"); maxWaits != "" {
		val, err := strconv.Atoi(maxWaits)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_WAITS: %w", EnvPrefix, err))
		} else {
			c.RateLimit.MaxWaits = val
		}
	}

	if flush := os.Getenv(EnvPrefix + "FLUSH_EACH_ITEM"); flush != "" {
		c.Sync.FlushEachItem = strings.ToLower(flush) == "true"
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// ConfigLocations lists the config files searched, in order of precedence
func ConfigLocations() []string {
	home := os.Getenv("HOME")
	return []string{
		".wallheaven-sync.yaml",
		".wallheaven-sync.yml",
		filepath.Join(home, ".config", "wallheaven-sync", "config.yaml"),
		filepath.Join(home, ".config", "wallheaven-sync", "config.yml"),
		filepath.Join(home, ".wallheaven-sync.yaml"),
	}
}

// FindConfigFile returns the first existing config file, or "" if none exists
func FindConfigFile() string {
	for _, loc := range ConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Wallhaven.APIURL == "" {
		errs = append(errs, errors.New("wallhaven API URL is required"))
	}
	if c.Wallhaven.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Storage.Root == "" {
		errs = append(errs, errors.New("storage root is required"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.MaxWaits < 0 {
		errs = append(errs, errors.New("max waits cannot be negative"))
	}
	if c.RateLimit.MaxWait < 0 {
		errs = append(errs, errors.New("max wait cannot be negative"))
	}

	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if ext := c.Download.FallbackExtension; ext == "" || strings.ContainsAny(ext, "./\\") {
		errs = append(errs, fmt.Errorf("invalid fallback extension %q", ext))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if root, ok := flags["storage"].(string); ok && root != "" {
		c.Storage.Root = root
	}
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Wallhaven.Username = username
	}
	if apiURL, ok := flags["api-url"].(string); ok && apiURL != "" {
		c.Wallhaven.APIURL = apiURL
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if maxWaits, ok := flags["max-waits"].(int); ok && maxWaits >= 0 {
		c.RateLimit.MaxWaits = maxWaits
	}
	if flush, ok := flags["flush-each-item"].(bool); ok {
		c.Sync.FlushEachItem = flush
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".wallheaven-sync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
