package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// FormatRoundedUnit renders seconds as a single coarse unit: 45s, 12m, 3h.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}

// FormatDuration renders seconds as hours and minutes, e.g. "1h 05m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	h := int64(d.Hours())
	m := int64(d.Minutes()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Ago is a relative description of t, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// Truncate shortens s to fit maxWidth terminal columns, ending in "..." when
// anything was cut. Wide characters count as two columns and are never split.
func Truncate(s string, maxWidth int) string {
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to width terminal columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
