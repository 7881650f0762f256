package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	if dbPath := os.Getenv("FOCUSD_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if pollInterval := os.Getenv("FOCUSD_POLL_INTERVAL"); pollInterval != "" {
		if seconds, err := strconv.Atoi(pollInterval); err == nil && seconds > 0 {
			interval := time.Duration(seconds) * time.Second
			if interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
				cfg.Tracker.PollInterval = interval
			}
		}
	}

	if checkpoint := os.Getenv("FOCUSD_CHECKPOINT_INTERVAL"); checkpoint != "" {
		if seconds, err := strconv.Atoi(checkpoint); err == nil && seconds > 0 {
			interval := time.Duration(seconds) * time.Second
			if interval >= cfg.Tracker.MinCheckpointInterval {
				cfg.Tracker.CheckpointInterval = interval
			}
		}
	}

	if idleThreshold := os.Getenv("FOCUSD_IDLE_THRESHOLD"); idleThreshold != "" {
		if seconds, err := strconv.Atoi(idleThreshold); err == nil && seconds > 0 {
			cfg.Tracker.IdleThreshold = time.Duration(seconds) * time.Second
		}
	}

	if source := os.Getenv("FOCUSD_FOCUS_SOURCE"); source != "" {
		cfg.Source.Focus = source
	}

	if pidFile := os.Getenv("FOCUSD_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("FOCUSD_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	if excludeAfk := os.Getenv("FOCUSD_EXCLUDE_AFK"); excludeAfk != "" {
		if val, err := strconv.ParseBool(excludeAfk); err == nil {
			cfg.Report.ExcludeAfk = val
		}
	}

	if timeZone := os.Getenv("FOCUSD_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	if webHost := os.Getenv("FOCUSD_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("FOCUSD_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}

	if level := os.Getenv("FOCUSD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if format := os.Getenv("FOCUSD_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
