package shutdown

import (
	"sync"
	"testing"
	"time"

	"pbrt-iile/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownReverseOrder(t *testing.T) {
	m := NewManager(logger.NewNop())

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.Register("controller", record("controller"))
	m.Register("watcher", record("watcher"))
	m.Register("renderer", record("renderer"))
	m.Register("nil", nil)

	m.Shutdown()

	assert.Equal(t, []string{"renderer", "watcher", "controller"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := NewManager(logger.NewNop())

	calls := 0
	m.Register("counter", Func(func() { calls++ }))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Shutdown()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestShutdownTimeoutSkipsStuckComponent(t *testing.T) {
	m := NewManager(logger.NewNop())
	m.SetTimeout(50 * time.Millisecond)

	block := make(chan struct{})
	defer close(block)

	reached := false
	m.Register("first", Func(func() { reached = true }))
	m.Register("stuck", Func(func() { <-block }))

	start := time.Now()
	m.Shutdown()

	require.True(t, reached)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestListenStop(t *testing.T) {
	m := NewManager(logger.NewNop())

	stop := m.Listen()
	stop()
	stop()

	assert.NoError(t, m.Context().Err())
}
