package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/database"
)

var (
	configPath string
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "focusd - window focus and AFK time tracker",
	Long: `focusd records how long each desktop window holds focus, pauses while you
are away from the keyboard, and stores the result in a local SQLite database.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = defaultConfigPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default ~/.config/focusd/config.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s version %s\n  commit: %s\n  built:  %s\n", appName, version, commit, date))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// openRepository connects to the configured database and applies migrations.
func openRepository(logger zerolog.Logger) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(database.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	repo := database.NewRepository(db,
		database.WithLogger(logger),
		database.WithWriteAttempts(cfg.Database.WriteRetries),
		database.WithExcludeAfk(cfg.Report.ExcludeAfk),
	)
	return db, repo, nil
}

// cliLogger is used by the short-lived commands; only warnings reach stderr.
func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
