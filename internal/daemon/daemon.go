// Package daemon manages the tracker's PID file and its systemd lifecycle.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ErrNotRunning is returned by Stop when no live daemon owns the PID file.
var ErrNotRunning = errors.New("daemon is not running")

type Daemon struct {
	pidFile string
	poll    time.Duration
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile, poll: 100 * time.Millisecond}
}

// PIDFile returns the managed path.
func (d *Daemon) PIDFile() string {
	return d.pidFile
}

// WritePID records the current process. It refuses to overwrite the PID of
// another live process.
func (d *Daemon) WritePID() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return err
	}
	if running && pid != os.Getpid() {
		return errors.Errorf("daemon already running with PID %d", pid)
	}

	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		return errors.Wrap(err, "failed to create PID directory")
	}
	return os.WriteFile(d.pidFile, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644)
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the recorded process is alive. A stale PID file
// is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if !alive(pid) {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Stop sends SIGTERM and waits up to timeout for the process to exit so the
// daemon can flush its open session. The daemon removes its own PID file.
func (d *Daemon) Stop(timeout time.Duration) (int, error) {
	running, pid, err := d.IsRunning()
	if err != nil {
		return 0, errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return 0, ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return pid, errors.Wrap(err, "failed to find process")
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemovePID()
			return pid, nil
		}
		return pid, errors.Wrap(err, "failed to send SIGTERM")
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			_ = d.RemovePID()
			return pid, nil
		}
		time.Sleep(d.poll)
	}

	return pid, errors.Errorf("daemon (PID %d) did not exit within %s", pid, timeout)
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
