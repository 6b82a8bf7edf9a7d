package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	calls []models.PreviewBuffer
}

func (c *collector) handle(b models.PreviewBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, b)
}

func (c *collector) snapshot() []models.PreviewBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.PreviewBuffer(nil), c.calls...)
}

func TestWatcherDebouncesBufferWrites(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}

	w, err := New(dir, 200*time.Millisecond, c.handle, logger.NewNop())
	require.NoError(t, err)
	defer w.Shutdown()

	path := filepath.Join(dir, "out_direct.pfm")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out_direct.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pfm"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []models.PreviewBuffer{models.PreviewDirect}, c.snapshot())
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0, func(models.PreviewBuffer) {}, logger.NewNop())
	assert.Error(t, err)
}

func TestWatcherShutdownIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0, func(models.PreviewBuffer) {}, logger.NewNop())
	require.NoError(t, err)

	w.Shutdown()
	w.Shutdown()
}
