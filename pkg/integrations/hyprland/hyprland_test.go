package hyprland

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	m, err := ParseLine("activewindow>>kitty,~/src: vim main.go\n")
	require.NoError(t, err)
	assert.Equal(t, Message{Name: "activewindow", Data: "kitty,~/src: vim main.go"}, m)

	_, err = ParseLine("garbage")
	assert.ErrorIs(t, err, ErrMalformedLine)

	_, err = ParseLine(">>data")
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		line string
		want interface{}
	}{
		{"activewindow>>firefox,Docs, Sheets, and Slides", ActiveWindow{Class: "firefox", Title: "Docs, Sheets, and Slides"}},
		{"activewindow>>,", ActiveWindow{}},
		{"activewindowv2>>5612d3a0", ActiveWindowV2{Address: "5612d3a0"}},
		{"openwindow>>5612d3a0,2,kitty,zsh, a shell", OpenWindow{Address: "5612d3a0", Workspace: "2", Class: "kitty", Title: "zsh, a shell"}},
		{"closewindow>>5612d3a0", CloseWindow{Address: "5612d3a0"}},
		{"workspace>>3", WorkspaceChanged{Name: "3"}},
		{"workspacev2>>3,code", WorkspaceChanged{Name: "code"}},
		{"windowtitlev2>>5612d3a0,new title", WindowTitle{Address: "5612d3a0", Title: "new title"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, err := ParseLine(tt.line)
			require.NoError(t, err)
			got, err := Decode(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(Message{Name: "activewindow", Data: "no-comma"})
	assert.ErrorIs(t, err, ErrMalformedLine)

	_, err = Decode(Message{Name: "openwindow", Data: "a,b"})
	assert.ErrorIs(t, err, ErrMalformedLine)

	_, err = Decode(Message{Name: "monitoradded", Data: "DP-1"})
	assert.ErrorIs(t, err, ErrUnhandledEvent)
}

// serve accepts one connection on path and runs handle on it.
func serve(t *testing.T, path string, handle func(net.Conn)) {
	t.Helper()
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
}

func TestActiveWindow(t *testing.T) {
	dir := t.TempDir()
	client := NewClientAt(dir)

	serve(t, client.CommandSocket(), func(conn net.Conn) {
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		if string(buf[:n]) != "j/activewindow" {
			return
		}
		_, _ = conn.Write([]byte(`{"address":"0x5612","class":"Firefox","title":"Docs","initialClass":"firefox","pid":42,"workspace":{"id":2,"name":"web"}}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	info, err := client.ActiveWindow(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Firefox", info.Class)
	assert.Equal(t, 42, info.PID)
	assert.Equal(t, "web", info.Workspace.Name)

	w := info.WindowInfo()
	assert.Equal(t, "firefox", w.AppName)
	assert.Equal(t, "Docs", w.WindowTitle)
	assert.Equal(t, "web", w.Workspace)
}

func TestActiveWindowNone(t *testing.T) {
	dir := t.TempDir()
	client := NewClientAt(dir)

	serve(t, client.CommandSocket(), func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte(`{}`))
	})

	info, err := client.ActiveWindow(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSubscribe(t *testing.T) {
	dir := t.TempDir()
	client := NewClientAt(dir)

	serve(t, client.EventSocket(), func(conn net.Conn) {
		_, _ = conn.Write([]byte("workspace>>2\nactivewindow>>kitty,zsh\n\nbogus\n"))
	})

	var msgs []Message
	var errs []error
	err := client.Subscribe(context.Background(), func(m Message, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		msgs = append(msgs, m)
	})

	assert.Error(t, err)
	assert.Equal(t, []Message{
		{Name: "workspace", Data: "2"},
		{Name: "activewindow", Data: "kitty,zsh"},
	}, msgs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedLine)
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	client := NewClientAt(dir)

	release := make(chan struct{})
	serve(t, client.EventSocket(), func(conn net.Conn) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Subscribe(ctx, func(Message, error) {})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestSocketDir(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	_, err := SocketDir()
	assert.ErrorIs(t, err, ErrNotRunning)

	runtime := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc")
	dir := filepath.Join(runtime, "hypr", "abc")

	_, err = SocketDir()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	ln, err := net.Listen("unix", filepath.Join(dir, eventSocket))
	require.NoError(t, err)
	defer ln.Close()

	got, err := SocketDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
