// Package wayland reads focus from Sway and lock state from logind for
// Wayland sessions that expose no X11 idle counter.
package wayland

import (
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/focusd/focusd/pkg/integrations/process"
	"github.com/focusd/focusd/pkg/window"
)

// runner executes an external command and returns its stdout.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Detector implements window.Detector for Sway.
type Detector struct {
	run      runner
	lookPath func(string) (string, error)
	lockers  []string
}

// NewDetector creates a new Sway detector
func NewDetector() *Detector {
	return &Detector{
		run:      execRunner,
		lookPath: exec.LookPath,
		lockers:  []string{"swaylock", "waylock", "gtklock", "hyprlock"},
	}
}

// IsAvailable reports whether swaymsg can reach a running compositor.
func (d *Detector) IsAvailable() bool {
	if os.Getenv("SWAYSOCK") == "" {
		return false
	}
	_, err := d.lookPath("swaymsg")
	return err == nil
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// GetFocusedWindow returns the focused leaf of the Sway tree.
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	out, err := d.run("swaymsg", "-t", "get_tree", "-r")
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}

	info, err := ParseTree(out)
	if err != nil || info == nil {
		return info, err
	}
	info.DisplayServer = "wayland"
	return info, nil
}

type node struct {
	Type             string `json:"type"`
	Name             string `json:"name"`
	Focused          bool   `json:"focused"`
	AppID            string `json:"app_id"`
	PID              int    `json:"pid"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []node `json:"nodes"`
	FloatingNodes []node `json:"floating_nodes"`
}

// ParseTree finds the focused window in swaymsg get_tree output. It returns
// nil when no window has focus, e.g. on an empty workspace.
func ParseTree(data []byte) (*window.WindowInfo, error) {
	var root node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to decode sway tree")
	}
	return find(&root, ""), nil
}

func find(n *node, workspace string) *window.WindowInfo {
	if n.Type == "workspace" {
		workspace = n.Name
	}

	if n.Focused && (n.Type == "con" || n.Type == "floating_con") && n.PID > 0 {
		app := n.AppID
		if app == "" && n.WindowProperties != nil {
			// XWayland clients
			app = strings.ToLower(n.WindowProperties.Class)
		}
		if app == "" {
			app = "unknown"
		}
		return &window.WindowInfo{
			AppName:     app,
			WindowTitle: n.Name,
			Workspace:   workspace,
			ProcessName: process.NameOr(n.PID, app),
		}
	}

	for i := range n.Nodes {
		if info := find(&n.Nodes[i], workspace); info != nil {
			return info
		}
	}
	for i := range n.FloatingNodes {
		if info := find(&n.FloatingNodes[i], workspace); info != nil {
			return info
		}
	}
	return nil
}

// GetIdleInfo reports only the lock state; Wayland has no portable idle
// counter, so IdleTime is always zero.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	return &window.IdleInfo{IsLocked: d.isScreenLocked()}, nil
}

// isScreenLocked checks for a running locker, then logind's LockedHint.
func (d *Detector) isScreenLocked() bool {
	for _, locker := range d.lockers {
		if _, err := d.run("pgrep", "-x", locker); err == nil {
			return true
		}
	}

	args := []string{"show-session", "-p", "LockedHint", "--value"}
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		args = []string{"show-session", id, "-p", "LockedHint", "--value"}
	}
	out, err := d.run("loginctl", args...)
	return err == nil && strings.TrimSpace(string(out)) == "yes"
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
