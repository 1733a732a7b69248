package codegen

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_AddPathsDedupesDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	if err := w.AddPaths([]string{a, b}); err != nil {
		t.Fatalf("AddPaths: %v", err)
	}
	if got := w.fsw.WatchList(); len(got) != 1 {
		t.Errorf("expected one watched directory, got %v", got)
	}
}

func TestWatcher_RunDebouncesAndRebuilds(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(target, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Debounce = 20 * time.Millisecond
	defer w.Close()

	if err := w.AddPaths([]string{target}); err != nil {
		t.Fatalf("AddPaths: %v", err)
	}

	stop := make(chan struct{})
	rebuilds := make(chan struct{}, 10)
	done := make(chan struct{})
	go func() {
		w.Run(stop, func() { rebuilds <- struct{}{} })
		close(done)
	}()

	// Give the watcher goroutine a moment to start its select loop, then
	// perform several quick writes that should coalesce into one rebuild.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte(`{"n":1}`), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-rebuilds:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a rebuild to fire after debounced writes")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return after stop is closed")
	}
}
