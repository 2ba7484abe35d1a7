package runner

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"errlog/internal/logstore"
)

func TestSelectShell(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}
	cases := []struct {
		name     string
		goos     string
		explicit string
		env      map[string]string
		want     Shell
	}{
		{"unix default", "linux", "", nil, Shell{Path: "/bin/sh", Args: []string{"-c"}}},
		{"unix explicit", "darwin", "/bin/zsh", nil, Shell{Path: "/bin/zsh", Args: []string{"-c"}}},
		{"windows comspec", "windows", "", map[string]string{"COMSPEC": `C:\Windows\system32\cmd.exe`}, Shell{Path: `C:\Windows\system32\cmd.exe`, Args: []string{"/C"}}},
		{"windows fallback", "windows", "", nil, Shell{Path: "cmd.exe", Args: []string{"/C"}}},
	}
	for _, tc := range cases {
		got := SelectShell(tc.goos, tc.explicit, env(tc.env))
		if got.Path != tc.want.Path || len(got.Args) != 1 || got.Args[0] != tc.want.Args[0] {
			t.Fatalf("%s: got %#v want %#v", tc.name, got, tc.want)
		}
	}
}

func TestExecuteCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh syntax")
	}
	r := New("", 0, nil)
	res, err := r.Execute(context.Background(), "echo hi; echo oops 1>&2; exit 3")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Stdout != "hi\n" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.Stderr != "oops\n" {
		t.Fatalf("unexpected stderr %q", res.Stderr)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestExecuteRejectsBlankCommand(t *testing.T) {
	r := New("", 0, nil)
	if _, err := r.Execute(context.Background(), "   "); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestExecuteMissingShellIsLaunchError(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "no-such-shell"), 0, nil)
	if _, err := r.Execute(context.Background(), "echo hi"); err == nil {
		t.Fatalf("expected launch error for missing shell")
	}
}

func TestExecuteTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh syntax")
	}
	r := New("", 50*time.Millisecond, nil)
	_, err := r.Execute(context.Background(), "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRecordEchoScenario(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh syntax")
	}
	store, err := logstore.Open(filepath.Join(t.TempDir(), "command_log.csv"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rec := NewRecorder(New("", 0, nil), store)

	row, _, err := rec.Record(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	rows, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.ID != row.ID || got.Command != "echo hi" || got.Output != "hi\n" || got.Error != "" {
		t.Fatalf("unexpected row: %#v", got)
	}
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`).MatchString(got.Timestamp) {
		t.Fatalf("unexpected timestamp format %q", got.Timestamp)
	}
}

type fakeExec struct {
	res Result
	err error
}

func (f fakeExec) Execute(context.Context, string) (Result, error) { return f.res, f.err }

type memStore struct{ rows []logstore.Row }

func (m *memStore) Append(_ context.Context, r logstore.Row) (logstore.Row, error) {
	r.ID = "id-" + r.Command
	m.rows = append(m.rows, r)
	return r, nil
}

func TestRecordLaunchFailureAppendsNothing(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(fakeExec{err: errors.New("fork failed")}, store)
	if _, _, err := rec.Record(context.Background(), "ls"); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(store.rows))
	}
}

func TestRecordNonZeroExitIsStored(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(fakeExec{res: Result{Stderr: "boom\n", ExitCode: 1}}, store)
	if _, _, err := rec.Record(context.Background(), "false"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(store.rows) != 1 || store.rows[0].Error != "boom\n" {
		t.Fatalf("unexpected rows: %#v", store.rows)
	}
}

func TestRecordRedactsHome(t *testing.T) {
	store := &memStore{}
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	rec := NewRecorder(
		fakeExec{res: Result{Stderr: "ls: /home/alice/secret: denied\n"}},
		store,
		WithHomeRedaction("/home/alice/"),
		WithClock(func() time.Time { return fixed }),
	)
	if _, _, err := rec.Record(context.Background(), "ls ~/secret"); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := store.rows[0]
	if got.Error != "ls: ***/secret: denied\n" {
		t.Fatalf("home not redacted: %q", got.Error)
	}
	if got.Timestamp != "2024-05-06 07:08:09" {
		t.Fatalf("unexpected timestamp %q", got.Timestamp)
	}
}

func TestRedactHomeIgnoresRoot(t *testing.T) {
	if got := RedactHome("/etc/passwd", "/"); got != "/etc/passwd" {
		t.Fatalf("root home must not be redacted, got %q", got)
	}
}

func TestRecordStoresLFLineEndings(t *testing.T) {
	store, err := logstore.Open(filepath.Join(t.TempDir(), "command_log.csv"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	res := Result{Stdout: "a\r\nb\r\n", Stderr: "'x' is not recognized\r\n", ExitCode: 1}
	rec := NewRecorder(fakeExec{res: res}, store)

	row, got, err := rec.Record(context.Background(), "dir")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.Stdout != "a\r\nb\r\n" {
		t.Fatalf("result returned to the caller must be untouched, got %q", got.Stdout)
	}
	if row.Output != "a\nb\n" || row.Error != "'x' is not recognized\n" {
		t.Fatalf("unexpected stored row %#v", row)
	}

	// A rewrite of the file must leave the stored text unchanged.
	if _, err := store.UpdateField(context.Background(), row.ID, logstore.FieldUserNotes, "n"); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := store.Get(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Output != row.Output || reloaded.Error != row.Error {
		t.Fatalf("stored text changed after rewrite: %#v", reloaded)
	}
}
