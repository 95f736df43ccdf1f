package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case evt := <-w.Events():
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcher_DetectsModification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "default.yaml")
	if err := os.WriteFile(path, []byte("a: 1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w := NewWatcher(WatcherConfig{Paths: []string{path}, PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("a: 2"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	evt := waitEvent(t, w)
	if evt.Type != EventModified || evt.Path != path {
		t.Errorf("event = %+v", evt)
	}
}

func TestWatcher_OverlayCreatedAndRemoved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "production.yaml")

	w := NewWatcher(WatcherConfig{Paths: []string{path}, PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log: {}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if evt := waitEvent(t, w); evt.Type != EventModified {
		t.Errorf("created overlay: event = %+v", evt)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if evt := waitEvent(t, w); evt.Type != EventRemoved {
		t.Errorf("removed overlay: event = %+v", evt)
	}
}

func TestWatcher_MissingFileIsQuiet(t *testing.T) {
	t.Parallel()

	w := NewWatcher(WatcherConfig{Paths: []string{"/nonexistent/default.yaml"}, PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	select {
	case evt := <-w.Events():
		t.Errorf("unexpected event: %+v", evt)
	case <-ctx.Done():
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start bool
	}{
		{"before start", false},
		{"after start", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := NewWatcher(WatcherConfig{Paths: []string{"/any"}, PollInterval: 20 * time.Millisecond})
			if tt.start {
				w.Start(context.Background())
			}

			done := make(chan struct{})
			go func() {
				w.Stop()
				w.Stop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Stop did not return")
			}
		})
	}
}

func TestWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	w := NewWatcher(WatcherConfig{Paths: []string{"/any"}, PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestWatcherConfig_DefaultInterval(t *testing.T) {
	t.Parallel()

	if got := (WatcherConfig{}).pollIntervalOrDefault(); got != defaultPollInterval {
		t.Errorf("interval = %v, want %v", got, defaultPollInterval)
	}
}
