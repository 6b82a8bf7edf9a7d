// Package watcher notifies when pbrt rewrites one of the preview buffers in
// the control directory.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/models"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

// Handler receives the buffer whose float file changed
type Handler func(buffer models.PreviewBuffer)

type Watcher struct {
	dir      string
	debounce time.Duration
	handler  Handler
	logger   logger.Logger

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	timers map[models.PreviewBuffer]*time.Timer
	closed bool
	done   chan struct{}
}

// New starts watching dir. Events for the same buffer arriving within
// debounce of each other are coalesced into one handler call.
func New(dir string, debounce time.Duration, handler Handler, log logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		logger:   log,
		fsw:      fsw,
		timers:   make(map[models.PreviewBuffer]*time.Timer),
		done:     make(chan struct{}),
	}

	go w.loop()

	log.Info("Watcher", "watching control directory", map[string]interface{}{
		"dir": dir,
	})

	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warning("Watcher", "file watcher error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".pfm") {
		return
	}

	buffer, ok := models.BufferForFile(event.Name)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if t, exists := w.timers[buffer]; exists {
		t.Reset(w.debounce)
		return
	}

	w.timers[buffer] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, buffer)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.handler(buffer)
		}
	})
}

// Shutdown stops watching and cancels pending notifications
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for buffer, t := range w.timers {
		t.Stop()
		delete(w.timers, buffer)
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("Watcher", err, nil)
	}
	<-w.done
}
