package hyprland

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedLine is returned for socket2 lines that do not follow the
	// EVENT>>DATA format or whose data does not fit the event.
	ErrMalformedLine = errors.New("malformed hyprland event")

	// ErrUnhandledEvent is returned for well-formed events this package does
	// not decode.
	ErrUnhandledEvent = errors.New("unhandled hyprland event")
)

// Message is one raw socket2 line split into name and payload.
type Message struct {
	Name string
	Data string
}

// ActiveWindow is sent when focus moves. Class is empty when focus moves to
// an empty workspace.
type ActiveWindow struct {
	Class string
	Title string
}

// ActiveWindowV2 carries the address of the newly focused window.
type ActiveWindowV2 struct {
	Address string
}

type OpenWindow struct {
	Address   string
	Workspace string
	Class     string
	Title     string
}

type CloseWindow struct {
	Address string
}

type WorkspaceChanged struct {
	Name string
}

// WindowTitle is sent when a window changes its title.
type WindowTitle struct {
	Address string
	Title   string
}

// ParseLine splits a socket2 line.
func ParseLine(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	name, data, ok := strings.Cut(line, ">>")
	if !ok || name == "" {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return Message{Name: name, Data: data}, nil
}

// Decode converts a message into one of the typed events above.
func Decode(m Message) (interface{}, error) {
	switch m.Name {
	case "activewindow":
		class, title, ok := strings.Cut(m.Data, ",")
		if !ok {
			return nil, fmt.Errorf("%w: activewindow %q", ErrMalformedLine, m.Data)
		}
		return ActiveWindow{Class: class, Title: title}, nil

	case "activewindowv2":
		return ActiveWindowV2{Address: m.Data}, nil

	case "openwindow":
		parts := strings.SplitN(m.Data, ",", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: openwindow %q", ErrMalformedLine, m.Data)
		}
		return OpenWindow{Address: parts[0], Workspace: parts[1], Class: parts[2], Title: parts[3]}, nil

	case "closewindow":
		return CloseWindow{Address: m.Data}, nil

	case "workspace":
		return WorkspaceChanged{Name: m.Data}, nil

	case "workspacev2":
		_, name, ok := strings.Cut(m.Data, ",")
		if !ok {
			return nil, fmt.Errorf("%w: workspacev2 %q", ErrMalformedLine, m.Data)
		}
		return WorkspaceChanged{Name: name}, nil

	case "windowtitlev2":
		addr, title, ok := strings.Cut(m.Data, ",")
		if !ok {
			return nil, fmt.Errorf("%w: windowtitlev2 %q", ErrMalformedLine, m.Data)
		}
		return WindowTitle{Address: addr, Title: title}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, m.Name)
	}
}
