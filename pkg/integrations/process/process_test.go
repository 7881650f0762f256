package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProc(t *testing.T, pid, comm string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, pid), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, pid, "comm"), []byte(comm), 0o644))

	old := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = old })
}

func TestName(t *testing.T) {
	fakeProc(t, "4242", "firefox-bin\n")

	assert.Equal(t, "firefox-bin", Name(4242))
	assert.Equal(t, "", Name(4243))
	assert.Equal(t, "", Name(0))
	assert.Equal(t, "", Name(-1))
}

func TestNameOr(t *testing.T) {
	fakeProc(t, "7", "foot")

	assert.Equal(t, "foot", NameOr(7, "fallback"))
	assert.Equal(t, "fallback", NameOr(8, "fallback"))
}
