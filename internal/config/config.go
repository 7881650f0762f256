package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Tracker configuration
	Tracker TrackerConfig `mapstructure:"tracker"`

	// Source configuration
	Source SourceConfig `mapstructure:"source"`

	// Daemon configuration
	Daemon DaemonConfig `mapstructure:"daemon"`

	// Report configuration
	Report ReportConfig `mapstructure:"report"`

	// Web server configuration
	Web WebConfig `mapstructure:"web"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path         string        `mapstructure:"path"` // Path to SQLite database file
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
	WriteRetries int           `mapstructure:"write_retries"` // Attempts per write, including the first
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval          time.Duration `mapstructure:"poll_interval"` // How often producers sample the desktop
	MinPollInterval       time.Duration `mapstructure:"min_poll_interval"`
	MaxPollInterval       time.Duration `mapstructure:"max_poll_interval"`
	CheckpointInterval    time.Duration `mapstructure:"checkpoint_interval"`
	MinCheckpointInterval time.Duration `mapstructure:"min_checkpoint_interval"`
	IdleThreshold         time.Duration `mapstructure:"idle_threshold"` // Time before considering user AFK
	QueueSize             int           `mapstructure:"queue_size"`
}

// SourceConfig selects the focus producer
type SourceConfig struct {
	Focus string `mapstructure:"focus"` // "auto", "x11", "hyprland" or "sway"
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile         string        `mapstructure:"pid_file"` // Path to PID file for daemon management
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	ExcludeAfk bool   `mapstructure:"exclude_afk"` // Whether to exclude AFK-flagged rows from reports
	TimeZone   string `mapstructure:"time_zone"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host      string        `mapstructure:"host"` // Host to bind web server to
	Port      int           `mapstructure:"port"` // Port for web server
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

var (
	validFocusSources = map[string]bool{"auto": true, "x11": true, "hyprland": true, "sway": true}
	validLogLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats   = map[string]bool{"json": true, "text": true}
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "", // Empty means use default ~/.config/focusd/focusd.db
			MaxOpenConns: 10,
			BusyTimeout:  5 * time.Second,
			WriteRetries: 3,
		},
		Tracker: TrackerConfig{
			PollInterval:          time.Second,
			MinPollInterval:       250 * time.Millisecond,
			MaxPollInterval:       60 * time.Second,
			CheckpointInterval:    10 * time.Second,
			MinCheckpointInterval: time.Second,
			IdleThreshold:         300 * time.Second, // 5 minutes idle threshold
			QueueSize:             100,
		},
		Source: SourceConfig{
			Focus: "auto",
		},
		Daemon: DaemonConfig{
			PIDFile:         fmt.Sprintf("/tmp/focusd-%d.pid", os.Getuid()),
			LogFile:         fmt.Sprintf("/tmp/focusd-%d.log", os.Getuid()),
			ShutdownTimeout: 10 * time.Second,
		},
		Report: ReportConfig{
			ExcludeAfk: true,
			TimeZone:   "Local",
		},
		Web: WebConfig{
			Host:      "localhost",
			Port:      10000 + os.Getuid(), // Default port based on user ID
			CacheSize: 64,
			CacheTTL:  15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.CheckpointInterval < c.Tracker.MinCheckpointInterval {
		return fmt.Errorf("checkpoint interval (%v) cannot be less than minimum (%v)",
			c.Tracker.CheckpointInterval, c.Tracker.MinCheckpointInterval)
	}

	if c.Tracker.IdleThreshold <= 0 {
		return fmt.Errorf("idle threshold must be positive")
	}

	if c.Tracker.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.Tracker.QueueSize)
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1, got %d", c.Database.MaxOpenConns)
	}

	if c.Database.WriteRetries < 1 {
		return fmt.Errorf("write retries must be at least 1, got %d", c.Database.WriteRetries)
	}

	if !validFocusSources[c.Source.Focus] {
		return fmt.Errorf("invalid focus source: %s (valid: auto, x11, hyprland, sway)", c.Source.Focus)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Daemon.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetCheckpointInterval sets the checkpoint interval with validation
func (c *Config) SetCheckpointInterval(interval time.Duration) error {
	if interval < c.Tracker.MinCheckpointInterval {
		return fmt.Errorf("checkpoint interval cannot be less than %v", c.Tracker.MinCheckpointInterval)
	}
	c.Tracker.CheckpointInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location resolves Report.TimeZone
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.TimeZone)
}

// GetIdleThresholdSeconds returns the idle threshold in seconds
func (c *Config) GetIdleThresholdSeconds() int64 {
	return int64(c.Tracker.IdleThreshold.Seconds())
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
    Max Open Conns: %d
    Busy Timeout: %v
    Write Retries: %d
  Tracker:
    Poll Interval: %v
    Checkpoint Interval: %v
    Idle Threshold: %v
    Queue Size: %d
  Source:
    Focus: %s
  Daemon:
    PID File: %s
    Log File: %s
    Shutdown Timeout: %v
  Report:
    Exclude AFK: %v
    Time Zone: %s
  Web:
    Host: %s
    Port: %d
  Logging:
    Level: %s
    Format: %s`,
		c.Database.Path,
		c.Database.MaxOpenConns,
		c.Database.BusyTimeout,
		c.Database.WriteRetries,
		c.Tracker.PollInterval,
		c.Tracker.CheckpointInterval,
		c.Tracker.IdleThreshold,
		c.Tracker.QueueSize,
		c.Source.Focus,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Daemon.ShutdownTimeout,
		c.Report.ExcludeAfk,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
		c.Logging.Level,
		c.Logging.Format,
	)
}
