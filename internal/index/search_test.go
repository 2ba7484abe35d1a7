package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"errlog/internal/logstore"
)

func TestBuildFTSQuery(t *testing.T) {
	got := buildFTSQuery(`hello "world" /path:test`)
	want := `"hello"* AND "world"* AND "/path:test"*`
	if got != want {
		t.Fatalf("unexpected fts query\nwant: %s\ngot:  %s", want, got)
	}
}

func TestTokenizeSearchTerms(t *testing.T) {
	got := tokenizeSearchTerms(`  hello,   "world"   (test)  `)
	if len(got) != 3 || got[0] != "hello" || got[1] != "world" || got[2] != "test" {
		t.Fatalf("unexpected tokens: %#v", got)
	}
}

func newIndexedLog(t *testing.T) (*Indexer, string, []logstore.Row) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "command_log.csv")
	if err := os.WriteFile(logPath, []byte("placeholder"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	idx, err := New(filepath.Join(dir, "index", "index.sqlite"), false)
	if err != nil {
		t.Fatalf("new indexer: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	rows := []logstore.Row{
		{ID: "r1", Command: "go build ./...", Error: "undefined: frobnicate"},
		{ID: "r2", Command: "ls /tmp", Output: "a\nb\n"},
		{ID: "r3", Command: "make test", Error: "permission denied", UserNotes: "ran as root to fix frobnicate"},
	}
	if err := idx.Sync(context.Background(), logPath, rows); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return idx, logPath, rows
}

func TestSearchMatchesAllTerms(t *testing.T) {
	idx, logPath, _ := newIndexedLog(t)
	ctx := context.Background()

	got, err := idx.Search(ctx, logPath, "frobnicate", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %#v", got)
	}

	got, err = idx.Search(ctx, logPath, "frobnicate root", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0] != "r3" {
		t.Fatalf("expected only r3, got %#v", got)
	}

	got, err = idx.Search(ctx, logPath, "   ", 10)
	if err != nil || got != nil {
		t.Fatalf("blank query should return nil, got %#v err=%v", got, err)
	}
}

func TestSearchScopedToLogFile(t *testing.T) {
	idx, _, _ := newIndexedLog(t)
	other := filepath.Join(t.TempDir(), "other.csv")
	got, err := idx.Search(context.Background(), other, "frobnicate", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches in another log, got %#v", got)
	}
}

func TestSyncReplacesRows(t *testing.T) {
	idx, logPath, rows := newIndexedLog(t)
	ctx := context.Background()

	rows = append(rows, logstore.Row{ID: "r4", Command: "echo frobnicate"})
	if err := idx.Sync(ctx, logPath, rows); err != nil {
		t.Fatalf("resync: %v", err)
	}
	got, err := idx.Search(ctx, logPath, "frobnicate", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches after resync, got %#v", got)
	}
}
