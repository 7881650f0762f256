package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/dispatcher"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(&dispatcher.ShutdownFlushError{Err: errors.New("disk full")}))
	assert.Equal(t, 2, exitCode(errors.Wrap(&dispatcher.ShutdownFlushError{Err: errors.New("x")}, "run")))
}

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "serve", "stop", "status", "report", "goals", "aliases", "categories", "clear", "errors", "version"} {
		assert.True(t, names[want], want)
	}
}

func runCommand(t *testing.T, c *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	defer c.SetOut(nil)
	require.NoError(t, c.RunE(c, args))
	return out.String()
}

func TestCategoriesCommands(t *testing.T) {
	prev := cfg
	defer func() { cfg = prev }()
	cfg = config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "cli.db")
	cfg.Report.TimeZone = "UTC"

	assert.Contains(t, runCommand(t, categoriesCmd), "No categories defined")

	categoryIcon, categoryColor = "W", "#2e7d32"
	defer func() { categoryIcon, categoryColor = "", "" }()
	assert.Contains(t, runCommand(t, categoriesAddCmd, "Work"), "Category Work created")
	assert.Error(t, categoriesAddCmd.RunE(categoriesAddCmd, []string{"Work"}))

	assert.Contains(t, runCommand(t, categoriesAssignCmd, "Work", "code"), "code added to Work")
	assert.Contains(t, runCommand(t, categoriesAssignCmd, "Work", "firefox"), "firefox added to Work")

	listed := runCommand(t, categoriesCmd)
	assert.Contains(t, listed, "W Work (#2e7d32)")
	assert.Contains(t, listed, "code, firefox")

	assert.Contains(t, runCommand(t, categoriesReportCmd, "day"), "W Work")

	assert.Contains(t, runCommand(t, categoriesUnassignCmd, "Work", "firefox"), "firefox removed from Work")
	assert.Error(t, categoriesUnassignCmd.RunE(categoriesUnassignCmd, []string{"Work", "firefox"}))
	assert.Error(t, categoriesAssignCmd.RunE(categoriesAssignCmd, []string{"Play", "steam"}))

	assert.Contains(t, runCommand(t, categoriesRmCmd, "Work"), "Category Work removed")
	assert.Contains(t, runCommand(t, categoriesCmd), "No categories defined")
}
