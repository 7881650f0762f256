package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/focusd/focusd/internal/checkpoint"
	"github.com/focusd/focusd/internal/daemon"
	"github.com/focusd/focusd/internal/dispatcher"
	"github.com/focusd/focusd/internal/source"
	"github.com/focusd/focusd/internal/web"
)

const childEnv = "FOCUSD_DAEMON_CHILD"

var (
	foreground bool
	webPort    int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracking daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return launch(false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking daemon with the web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return launch(true)
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, serveCmd} {
		c.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground (for systemd or debugging)")
		rootCmd.AddCommand(c)
	}
	serveCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (overrides config)")
}

func launch(withWeb bool) error {
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	if foreground {
		return runTracker(os.Stdout, dm, withWeb)
	}

	// Parent process - fork and exit
	if os.Getenv(childEnv) != "1" {
		return daemonize(withWeb)
	}

	logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer logFile.Close()

	return runTracker(logFile, dm, withWeb)
}

// runTracker wires producers, the dispatcher, the checkpoint scheduler and
// optionally the web server, then blocks until SIGINT or SIGTERM. On signal
// the producers stop first and the open session is flushed through the
// dispatcher before the process exits.
func runTracker(out io.Writer, dm *daemon.Daemon, withWeb bool) error {
	logger := setupLogger(cfg.Logging, out)
	logger.Info().Str("version", version).Msg("Starting focusd")
	logger.Debug().Msg(cfg.String())

	if err := dm.WritePID(); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	db, repo, err := openRepository(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sealed, closed, err := repo.RecoverOpen(context.Background())
	if err != nil {
		return errors.Wrap(err, "failed to recover previous run")
	}
	if sealed > 0 || closed > 0 {
		logger.Warn().Int64("sessions", sealed).Int64("afk_intervals", closed).Msg("Recovered state left open by an unclean exit")
	}

	sources, closeSources, err := source.Build(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to initialize event sources")
	}
	defer closeSources()

	disp := dispatcher.New(repo, logger, dispatcher.WithQueueSize(cfg.Tracker.QueueSize))
	sched := checkpoint.New(repo, disp, cfg.Tracker.CheckpointInterval, logger)

	// The dispatcher outlives the signal so it can flush the final session.
	dispCtx, cancelDisp := context.WithCancel(context.Background())
	defer cancelDisp()
	dispErr := make(chan error, 1)
	go func() {
		dispErr <- disp.Run(dispCtx)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Producers share one ordered sink so the dispatcher never sees time
	// run backwards between them.
	sink := source.NewOrdered(disp)
	g, ctx := errgroup.WithContext(sigCtx)
	for _, src := range sources {
		g.Go(func() error {
			return errors.Wrap(src.Run(ctx, sink), src.Name())
		})
	}
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return daemon.RunWatchdog(ctx, logger) })
	if withWeb {
		srv := web.NewServer(cfg, repo, disp, logger, webPort)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if err := daemon.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("systemd notification failed")
	}

	// Producers stop on signal or on the first component failure.
	runErr := g.Wait()
	if runErr != nil {
		logger.Error().Err(runErr).Msg("Component failed, shutting down")
	} else {
		logger.Info().Msg("Received shutdown signal")
	}
	_ = daemon.NotifyStopping()

	if err := shutdown(logger, disp, dispErr, cancelDisp); err != nil {
		return err
	}
	logger.Info().Msg("Daemon stopped successfully")
	return runErr
}

// shutdown queues the Shutdown event and waits for the dispatcher to flush it.
// If the timeout passes first the dispatcher is cancelled; checkpointed rows
// stay in storage and are sealed on the next start.
func shutdown(logger zerolog.Logger, disp *dispatcher.Dispatcher, dispErr <-chan error, cancel context.CancelFunc) error {
	ctx, done := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
	defer done()

	if err := disp.Shutdown(ctx, time.Now()); err != nil && !errors.Is(err, dispatcher.ErrStopped) {
		logger.Error().Err(err).Msg("Could not queue shutdown")
	}

	select {
	case err := <-dispErr:
		return err
	case <-ctx.Done():
		cancel()
		<-dispErr
		return &dispatcher.ShutdownFlushError{Err: errors.Wrap(ctx.Err(), "shutdown flush timed out")}
	}
}

func exitCode(err error) int {
	var flushErr *dispatcher.ShutdownFlushError
	if errors.As(err, &flushErr) {
		return 2
	}
	return 1
}

func daemonize(withWeb bool) error {
	// Fork the process
	env := append(os.Environ(), childEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return errors.Wrap(err, "failed to start daemon process")
	}

	green := color.New(color.FgGreen, color.Bold)
	green.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		port := cfg.Web.Port
		if webPort > 0 {
			port = webPort
		}
		fmt.Printf("Web dashboard: http://%s:%d\n", cfg.Web.Host, port)
	}
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)

	return process.Release()
}
