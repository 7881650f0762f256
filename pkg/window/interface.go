package window

import "errors"

// ErrUnsupported is returned by detectors for queries their backend cannot answer.
var ErrUnsupported = errors.New("not supported by this detector")

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string
	WindowTitle   string
	Workspace     string
	ProcessName   string
	DisplayServer string // "x11" or "wayland"
}

// IdleInfo represents system idle/lock state
type IdleInfo struct {
	IsLocked bool
	IdleTime int64 // Seconds since the last user input
}

// IdleFor reports whether input has been absent for at least threshold
// seconds, or the session is locked.
func (i *IdleInfo) IdleFor(threshold int64) bool {
	return i.IsLocked || i.IdleTime >= threshold
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused
	// window, or nil when nothing has focus
	GetFocusedWindow() (*WindowInfo, error)

	// GetIdleInfo returns information about system idle/lock state
	GetIdleInfo() (*IdleInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
