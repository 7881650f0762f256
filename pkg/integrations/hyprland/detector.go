package hyprland

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/focusd/focusd/pkg/integrations/process"
	"github.com/focusd/focusd/pkg/window"
)

const queryTimeout = 2 * time.Second

// Detector implements window.Detector with request-socket queries.
type Detector struct {
	client *Client
}

func NewDetector(client *Client) *Detector {
	return &Detector{client: client}
}

// IsAvailable checks if a Hyprland instance can be located
func (d *Detector) IsAvailable() bool {
	_, err := SocketDir()
	return err == nil
}

func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	info, err := d.client.ActiveWindow(ctx)
	if err != nil || info == nil {
		return nil, err
	}
	return info.WindowInfo(), nil
}

// GetIdleInfo is not available over Hyprland IPC.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	return nil, fmt.Errorf("hyprland idle: %w", window.ErrUnsupported)
}

func (d *Detector) Close() error {
	return nil
}

// WindowInfo converts the IPC shape to the detector one.
func (c *ClientInfo) WindowInfo() *window.WindowInfo {
	return &window.WindowInfo{
		AppName:       strings.ToLower(c.Class),
		WindowTitle:   c.Title,
		Workspace:     c.Workspace.Name,
		ProcessName:   process.NameOr(c.PID, c.InitialClass),
		DisplayServer: "wayland",
	}
}
