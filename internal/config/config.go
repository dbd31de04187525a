package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	UI        UIConfig        `mapstructure:"ui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds Librarian server connection configuration
type ServerConfig struct {
	URL      string `mapstructure:"url"`      // Server URL
	APIKey   string `mapstructure:"api_key"`  // API token from login
	UserID   string `mapstructure:"user_id"`  // Authenticated account ID
	Username string `mapstructure:"username"` // Authenticated account name (display)
}

// DashboardConfig tunes the dashboard cache and its queries
type DashboardConfig struct {
	FreshMinutes       int `mapstructure:"fresh_minutes"`        // Snapshot age served without refresh
	ExpiryMinutes      int `mapstructure:"expiry_minutes"`       // Snapshot age treated as absent
	UpcomingDays       int `mapstructure:"upcoming_days"`        // Global schedule window
	CalendarDays       int `mapstructure:"calendar_days"`        // Series-library calendar window
	SeriesLibraryLimit int `mapstructure:"series_library_limit"` // Series libraries queried for recent additions
	RecentSeriesLimit  int `mapstructure:"recent_series_limit"`  // Recent series fetched per library
}

// UIConfig holds UI configuration
type UIConfig struct {
	DefaultView string `mapstructure:"default_view"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{},
		Dashboard: DashboardConfig{
			FreshMinutes:       5,
			ExpiryMinutes:      30,
			UpcomingDays:       7,
			CalendarDays:       14,
			SeriesLibraryLimit: 2,
			RecentSeriesLimit:  10,
		},
		UI: UIConfig{
			DefaultView: "dashboard",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// FreshTTL returns the dashboard fresh threshold as a duration
func (c *Config) FreshTTL() time.Duration {
	return time.Duration(c.Dashboard.FreshMinutes) * time.Minute
}

// ExpiryTTL returns the dashboard hard-expiry threshold as a duration
func (c *Config) ExpiryTTL() time.Duration {
	return time.Duration(c.Dashboard.ExpiryMinutes) * time.Minute
}

// IsConfigured returns true if the server URL and API key are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.APIKey != ""
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "librarian", "librarian.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "librarian", "librarian.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "librarian")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "librarian")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "librarian", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "librarian", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("LIBRARIAN")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.api_key", cfg.Server.APIKey)
	viper.Set("server.user_id", cfg.Server.UserID)
	viper.Set("server.username", cfg.Server.Username)

	viper.Set("dashboard.fresh_minutes", cfg.Dashboard.FreshMinutes)
	viper.Set("dashboard.expiry_minutes", cfg.Dashboard.ExpiryMinutes)
	viper.Set("dashboard.upcoming_days", cfg.Dashboard.UpcomingDays)
	viper.Set("dashboard.calendar_days", cfg.Dashboard.CalendarDays)
	viper.Set("dashboard.series_library_limit", cfg.Dashboard.SeriesLibraryLimit)
	viper.Set("dashboard.recent_series_limit", cfg.Dashboard.RecentSeriesLimit)

	viper.Set("ui.default_view", cfg.UI.DefaultView)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveCredentials updates just the server connection fields in the configuration
func SaveCredentials(url, apiKey, username, userID string) error {
	viper.Set("server.url", url)
	viper.Set("server.api_key", apiKey)
	viper.Set("server.username", username)
	viper.Set("server.user_id", userID)

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClearCredentials removes all server connection configuration while
// preserving other settings (dashboard, UI, logging)
func ClearCredentials() error {
	viper.Set("server.url", "")
	viper.Set("server.api_key", "")
	viper.Set("server.user_id", "")
	viper.Set("server.username", "")

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClearCache removes all cached data
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
