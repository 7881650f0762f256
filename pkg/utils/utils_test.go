package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/stretchr/testify/assert"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
		{-90, "1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRoundedUnit(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "0s", FormatDuration(-5))
	assert.Equal(t, "42s", FormatDuration(42))
	assert.Equal(t, "1m 05s", FormatDuration(65))
	assert.Equal(t, "1h 00m", FormatDuration(3600))
	assert.Equal(t, "2h 30m", FormatDuration(9000))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "never", Ago(time.Time{}))
	assert.Contains(t, Ago(time.Now().Add(-3*time.Minute)), "minutes ago")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 30))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))

	title := "a" + strings.Repeat("终端窗口", 5)
	got := Truncate(title, 30)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasPrefix(got, "a终端窗口"))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, runewidth.StringWidth(got), 30)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "code      ", PadRight("code", 10))
	assert.Equal(t, 10, runewidth.StringWidth(PadRight("终端", 10)))
}
