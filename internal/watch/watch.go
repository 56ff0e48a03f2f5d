package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before an event is
// delivered. The game rewrites the whole record on save, which shows up as a
// burst of write events for the same path.
const DefaultDebounce = 500 * time.Millisecond

// Event reports a logbook file that was created or modified.
type Event struct {
	Path string
	Time time.Time
}

// Watcher delivers debounced change events for *.lbk files in one directory.
type Watcher struct {
	fsw      *fsnotify.Watcher
	events   chan Event
	done     chan struct{}
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New starts watching dir for logbook changes. Call Close when done.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		fsw:      fsw,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of debounced logbook changes.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the underlying filesystem watcher's error channel.
func (w *Watcher) Errors() <-chan error { return w.fsw.Errors }

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for ev := range w.fsw.Events {
		if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
			continue
		}
		if !IsLogbook(ev.Name) {
			continue
		}
		w.schedule(ev.Name)
	}
}

// schedule arms (or re-arms) the per-path debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case w.events <- Event{Path: path, Time: time.Now()}:
		case <-w.done:
		}
	})
}

// IsLogbook reports whether path names a logbook file.
func IsLogbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lbk")
}

// Run forwards events to fn until ctx is cancelled or the watcher closes.
// Errors from fn are reported through errfn and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, fn func(Event) error, errfn func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			if errfn != nil {
				errfn(err)
			}
		case ev := <-w.Events():
			if err := fn(ev); err != nil && errfn != nil {
				errfn(err)
			}
		}
	}
}
