// Package process resolves window owner PIDs to executable names via /proc.
package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var procRoot = "/proc"

// Name returns the command name of pid, or "" when it cannot be read.
func Name(pid int) string {
	if pid <= 0 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// NameOr returns Name(pid), or fallback when the process is unknown.
func NameOr(pid int, fallback string) string {
	if name := Name(pid); name != "" {
		return name
	}
	return fallback
}
