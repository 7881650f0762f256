// Package hyprland talks to the Hyprland compositor over its two IPC
// sockets: the request socket for queries and socket2 for the event stream.
package hyprland

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

const (
	commandSocket = ".socket.sock"
	eventSocket   = ".socket2.sock"
)

// ErrNotRunning is returned when no Hyprland instance can be located.
var ErrNotRunning = errors.New("hyprland instance not found (is HYPRLAND_INSTANCE_SIGNATURE set?)")

type Client struct {
	dir    string
	dialer net.Dialer
}

// SocketDir locates the instance directory. Newer releases use
// $XDG_RUNTIME_DIR/hypr, older ones /tmp/hypr.
func SocketDir() (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", ErrNotRunning
	}

	var candidates []string
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		candidates = append(candidates, filepath.Join(runtime, "hypr", sig))
	}
	candidates = append(candidates, filepath.Join("/tmp", "hypr", sig))

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, eventSocket)); err == nil {
			return dir, nil
		}
	}
	return "", ErrNotRunning
}

// NewClient locates the running instance from the environment.
func NewClient() (*Client, error) {
	dir, err := SocketDir()
	if err != nil {
		return nil, err
	}
	return NewClientAt(dir), nil
}

// NewClientAt uses the sockets in dir.
func NewClientAt(dir string) *Client {
	return &Client{dir: dir}
}

func (c *Client) EventSocket() string {
	return filepath.Join(c.dir, eventSocket)
}

func (c *Client) CommandSocket() string {
	return filepath.Join(c.dir, commandSocket)
}

// Command sends one request and returns the full reply.
func (c *Client) Command(ctx context.Context, cmd string) ([]byte, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.CommandSocket())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hyprland: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, cmd); err != nil {
		return nil, fmt.Errorf("failed to send %q: %w", cmd, err)
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read reply to %q: %w", cmd, err)
	}
	return reply, nil
}

type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ClientInfo is the JSON shape of a window as returned by j/activewindow.
type ClientInfo struct {
	Address      string       `json:"address"`
	Class        string       `json:"class"`
	Title        string       `json:"title"`
	InitialClass string       `json:"initialClass"`
	PID          int          `json:"pid"`
	Workspace    WorkspaceRef `json:"workspace"`
}

// ActiveWindow returns the focused window, or nil when nothing has focus.
func (c *Client) ActiveWindow(ctx context.Context) (*ClientInfo, error) {
	reply, err := c.Command(ctx, "j/activewindow")
	if err != nil {
		return nil, err
	}

	var info ClientInfo
	if err := json.Unmarshal(reply, &info); err != nil {
		return nil, fmt.Errorf("failed to decode activewindow: %w", err)
	}
	if info.Class == "" && info.Address == "" {
		return nil, nil
	}
	return &info, nil
}

// ActiveWorkspace returns the focused workspace.
func (c *Client) ActiveWorkspace(ctx context.Context) (*WorkspaceRef, error) {
	reply, err := c.Command(ctx, "j/activeworkspace")
	if err != nil {
		return nil, err
	}
	var ws WorkspaceRef
	if err := json.Unmarshal(reply, &ws); err != nil {
		return nil, fmt.Errorf("failed to decode activeworkspace: %w", err)
	}
	return &ws, nil
}

// Subscribe reads socket2 until ctx is cancelled or the compositor closes
// the stream. Lines that cannot be split are passed to fn with an error.
func (c *Client) Subscribe(ctx context.Context, fn func(Message, error)) error {
	conn, err := c.dialer.DialContext(ctx, "unix", c.EventSocket())
	if err != nil {
		return fmt.Errorf("failed to connect to hyprland event socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fn(ParseLine(line))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("hyprland event stream: %w", err)
	}
	return io.EOF
}
