package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load builds a Config from defaults, an optional config file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v := viper.New()
	setDefaults(v, cfg)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// setDefaults seeds viper with the current values so keys missing from the
// file keep their defaults after Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("database.write_retries", cfg.Database.WriteRetries)

	v.SetDefault("tracker.poll_interval", cfg.Tracker.PollInterval)
	v.SetDefault("tracker.min_poll_interval", cfg.Tracker.MinPollInterval)
	v.SetDefault("tracker.max_poll_interval", cfg.Tracker.MaxPollInterval)
	v.SetDefault("tracker.checkpoint_interval", cfg.Tracker.CheckpointInterval)
	v.SetDefault("tracker.min_checkpoint_interval", cfg.Tracker.MinCheckpointInterval)
	v.SetDefault("tracker.idle_threshold", cfg.Tracker.IdleThreshold)
	v.SetDefault("tracker.queue_size", cfg.Tracker.QueueSize)

	v.SetDefault("source.focus", cfg.Source.Focus)

	v.SetDefault("daemon.pid_file", cfg.Daemon.PIDFile)
	v.SetDefault("daemon.log_file", cfg.Daemon.LogFile)
	v.SetDefault("daemon.shutdown_timeout", cfg.Daemon.ShutdownTimeout)

	v.SetDefault("report.exclude_afk", cfg.Report.ExcludeAfk)
	v.SetDefault("report.time_zone", cfg.Report.TimeZone)

	v.SetDefault("web.host", cfg.Web.Host)
	v.SetDefault("web.port", cfg.Web.Port)
	v.SetDefault("web.cache_size", cfg.Web.CacheSize)
	v.SetDefault("web.cache_ttl", cfg.Web.CacheTTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
