package detector

import (
	"fmt"
	"os"

	"github.com/focusd/focusd/pkg/integrations/hyprland"
	"github.com/focusd/focusd/pkg/integrations/wayland"
	"github.com/focusd/focusd/pkg/integrations/x11"
	"github.com/focusd/focusd/pkg/window"
)

const (
	KindAuto     = "auto"
	KindX11      = "x11"
	KindHyprland = "hyprland"
	KindSway     = "sway"
)

// Resolve turns "auto" into a concrete backend for the current session.
func Resolve(kind string) (string, error) {
	switch kind {
	case KindX11, KindHyprland, KindSway:
		return kind, nil
	case KindAuto, "":
		if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
			return KindHyprland, nil
		}
		if os.Getenv("SWAYSOCK") != "" {
			return KindSway, nil
		}
		if DetectDisplayServer() == "x11" || os.Getenv("DISPLAY") != "" {
			return KindX11, nil
		}
		return "", fmt.Errorf("no supported focus source (display server: %s)", DetectDisplayServer())
	default:
		return "", fmt.Errorf("unknown focus source %q", kind)
	}
}

// New creates the focus detector for kind.
func New(kind string) (window.Detector, error) {
	resolved, err := Resolve(kind)
	if err != nil {
		return nil, err
	}

	switch resolved {
	case KindHyprland:
		client, err := hyprland.NewClient()
		if err != nil {
			return nil, err
		}
		return hyprland.NewDetector(client), nil
	case KindSway:
		d := wayland.NewDetector()
		if !d.IsAvailable() {
			return nil, fmt.Errorf("sway: swaymsg or SWAYSOCK not available")
		}
		return d, nil
	default:
		return x11.NewDetector()
	}
}

// NewIdle returns a detector able to report idle state. X11 (including
// XWayland) reports idle time; a pure Wayland session only reports locking.
func NewIdle() (window.Detector, error) {
	if os.Getenv("DISPLAY") != "" {
		return x11.NewDetector()
	}
	if DetectDisplayServer() == "wayland" {
		return wayland.NewDetector(), nil
	}
	return nil, fmt.Errorf("idle detection: %w", window.ErrUnsupported)
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
