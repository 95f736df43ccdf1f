// Package reload picks up configuration changes while the scheduler runs,
// via file polling and SIGHUP.
package reload

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the configuration files to watch. A path that does not exist
	// yet (an optional overlay) reports EventModified once it appears.
	Paths []string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// EventType describes the type of file change event.
type EventType string

const (
	// EventModified indicates a watched file was created or modified.
	EventModified EventType = "modified"
	// EventRemoved indicates a watched file disappeared.
	EventRemoved EventType = "removed"
)

// Event represents a file change notification.
type Event struct {
	Type EventType
	Path string
}

// Watcher polls configuration files for modifications.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Only the first call starts the goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the channel of file change events. Events coalesce: while
// one is pending, further changes are dropped.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	last := make(map[string]time.Time, len(w.cfg.Paths))
	for _, p := range w.cfg.Paths {
		last[p] = statModTime(p)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			for _, p := range w.cfg.Paths {
				current := statModTime(p)
				prev := last[p]
				last[p] = current

				switch {
				case current.IsZero() && !prev.IsZero():
					w.emit(Event{Type: EventRemoved, Path: p})
				case current.After(prev):
					w.emit(Event{Type: EventModified, Path: p})
				}
			}
		}
	}
}

func (w *Watcher) emit(evt Event) {
	select {
	case w.events <- evt:
	default:
	}
}

func statModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
