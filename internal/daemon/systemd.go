package daemon

import (
	"context"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// NotifyReady sends READY=1 to systemd. Outside systemd it is a no-op.
func NotifyReady() error {
	if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		return errors.Wrap(err, "failed to send sd_notify ready")
	}
	return nil
}

// NotifyStopping sends STOPPING=1 to systemd.
func NotifyStopping() error {
	if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyStopping); err != nil {
		return errors.Wrap(err, "failed to send sd_notify stopping")
	}
	return nil
}

// RunWatchdog pings the systemd watchdog at half its configured interval
// until ctx is done. It returns immediately when the watchdog is disabled.
func RunWatchdog(ctx context.Context, logger zerolog.Logger) error {
	interval, err := sddaemon.SdWatchdogEnabled(false)
	if err != nil {
		return errors.Wrap(err, "failed to query watchdog")
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyWatchdog); err != nil {
				logger.Warn().Err(err).Msg("watchdog notification failed")
			}
		}
	}
}
