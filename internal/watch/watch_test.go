package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcherSignalsOnRenameIntoPlace(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "command_log.csv")
	if err := os.WriteFile(path, []byte("Timestamp\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := New(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	tmp := filepath.Join(dir, ".command_log.csv.tmp")
	if err := os.WriteFile(tmp, []byte("Timestamp\nx\n"), 0o600); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatalf("expected a change signal")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "command_log.csv")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := New(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case <-w.Changes():
		t.Fatalf("unexpected signal for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	<-done
}
