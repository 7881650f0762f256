package x11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/focusd/focusd/pkg/integrations/process"
	"github.com/focusd/focusd/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CURRENT_DESKTOP",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Detector implements window.Detector over a single X connection using
// EWMH properties for focus and the MIT-SCREEN-SAVER extension for idle time.
type Detector struct {
	mu          sync.Mutex
	conn        *xgb.Conn
	root        xproto.Window
	atoms       map[string]xproto.Atom
	screensaver bool
}

// NewDetector connects to the display named by $DISPLAY.
func NewDetector() (*Detector, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	d := &Detector{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		d.atoms[name] = reply.Atom
	}

	d.screensaver = screensaver.Init(conn) == nil
	return d, nil
}

// IsAvailable checks if an X display is configured
func (d *Detector) IsAvailable() bool {
	return os.Getenv("DISPLAY") != "" && d.conn != nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetFocusedWindow returns the EWMH active window, or nil if none.
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	win := d.activeWindow()
	if win == 0 {
		return nil, nil
	}

	data, err := d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to read WM_CLASS: %w", err)
	}
	instance, class := ParseWMClass(data)

	app := class
	if app == "" {
		app = instance
	}
	if app == "" {
		return nil, errors.New("active window has no WM_CLASS")
	}

	return &window.WindowInfo{
		AppName:       strings.ToLower(app),
		WindowTitle:   d.windowName(win),
		Workspace:     d.currentDesktop(),
		ProcessName:   process.NameOr(d.windowPID(win), instance),
		DisplayServer: "x11",
	}, nil
}

// GetIdleInfo reports the time since the last input event.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	if !d.screensaver {
		return nil, fmt.Errorf("MIT-SCREEN-SAVER: %w", window.ErrUnsupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query screensaver info: %w", err)
	}

	return &window.IdleInfo{
		IsLocked: reply.State == screensaver.StateOn,
		IdleTime: int64(reply.MsSinceUserInput / 1000),
	}, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

func (d *Detector) property(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (d *Detector) activeWindow() xproto.Window {
	data, err := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil {
		if id, ok := DecodeCardinal(data); ok && id != 0 {
			return xproto.Window(id)
		}
	}

	// Window managers without EWMH: fall back to input focus.
	reply, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil || reply.Focus == d.root || reply.Focus <= xproto.InputFocusPointerRoot {
		return 0
	}
	return d.topLevel(reply.Focus)
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) windowName(win xproto.Window) string {
	data, err := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (d *Detector) windowPID(win xproto.Window) int {
	data, err := d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil {
		return 0
	}
	pid, _ := DecodeCardinal(data)
	return int(pid)
}

func (d *Detector) currentDesktop() string {
	data, err := d.property(d.root, d.atoms["_NET_CURRENT_DESKTOP"], xproto.AtomCardinal, 1)
	if err != nil {
		return ""
	}
	n, ok := DecodeCardinal(data)
	if !ok {
		return ""
	}
	return strconv.FormatUint(uint64(n)+1, 10)
}

// ParseWMClass splits a WM_CLASS value into its instance and class parts.
func ParseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// DecodeCardinal reads the first 32-bit value of a property.
func DecodeCardinal(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}
