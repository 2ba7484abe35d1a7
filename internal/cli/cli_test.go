package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"errlog/internal/config"
	"errlog/internal/logstore"
	"errlog/internal/summarize"
)

func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))
	t.Setenv("ERRLOG_FILE", "")
	t.Setenv("ERRLOG_CONFIG", "")
	return base
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func loadLog(t *testing.T, path string) []logstore.Row {
	t.Helper()
	s, err := logstore.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return rows
}

func TestRunRecordsCommand(t *testing.T) {
	skipOnWindows(t)
	base := isolate(t)
	path := filepath.Join(base, "log.csv")

	out, _, err := execute(t, "", "--file", path, "run", "--", "echo", "hi")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "hi\n" {
		t.Fatalf("expected command stdout to be echoed, got %q", out)
	}
	rows := loadLog(t, path)
	if len(rows) != 1 || rows[0].Command != "echo hi" || rows[0].Output != "hi\n" {
		t.Fatalf("unexpected rows %#v", rows)
	}
	if _, err := os.Stat(filepath.Join(base, "state", "errlog", "errlog.log")); err != nil {
		t.Fatalf("debug log not created: %v", err)
	}
}

func TestRunReturnsExitCode(t *testing.T) {
	skipOnWindows(t)
	base := isolate(t)
	path := filepath.Join(base, "log.csv")

	_, errOut, err := execute(t, "", "--file", path, "run", "--", "echo oops >&2; exit 3")
	var exit *ExitCodeError
	if !errors.As(err, &exit) || exit.Code != 3 {
		t.Fatalf("expected exit code 3, got %v", err)
	}
	if errOut != "oops\n" {
		t.Fatalf("expected stderr to be echoed, got %q", errOut)
	}
	rows := loadLog(t, path)
	if len(rows) != 1 || rows[0].Error != "oops\n" {
		t.Fatalf("failed command should still be recorded: %#v", rows)
	}
}

func TestShellRecordsUntilExit(t *testing.T) {
	skipOnWindows(t)
	base := isolate(t)
	path := filepath.Join(base, "log.csv")

	out, _, err := execute(t, "echo one\n\n  \nEXIT\necho never\n", "--file", path, "shell")
	if err != nil {
		t.Fatalf("shell: %v", err)
	}
	if !strings.Contains(out, "$ ") || !strings.Contains(out, "one\n") {
		t.Fatalf("unexpected shell output %q", out)
	}
	rows := loadLog(t, path)
	if len(rows) != 1 || rows[0].Command != "echo one" {
		t.Fatalf("expected exactly one recorded command, got %#v", rows)
	}
}

func TestSummarizeEmptyLog(t *testing.T) {
	base := isolate(t)
	_, _, err := execute(t, "", "--file", filepath.Join(base, "log.csv"), "summarize")
	if !errors.Is(err, summarize.ErrEmptyLog) {
		t.Fatalf("expected ErrEmptyLog, got %v", err)
	}
}

func TestSummarizeRowWithCommandBackend(t *testing.T) {
	skipOnWindows(t)
	base := isolate(t)
	path := filepath.Join(base, "log.csv")

	script := filepath.Join(base, "summarize.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat >/dev/null\necho short\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	cfgPath := filepath.Join(base, "config.yaml")
	cfg := "summarizer:\n  backend: command\n  command: " + script + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store, err := logstore.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, r := range []logstore.Row{
		{Timestamp: "2024-05-01 10:00:00", Command: "ls", Error: ""},
		{Timestamp: "2024-05-01 10:01:00", Command: "cat /etc/shadow", Error: "cat: /etc/shadow: Permission denied"},
	} {
		if _, err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, _, err := execute(t, "", "--config", cfgPath, "--file", path, "summarize", "--row", "1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(out, "Error_Summary: short") {
		t.Fatalf("unexpected output %q", out)
	}
	rows := loadLog(t, path)
	if rows[1].ErrorSummary != "short" || rows[1].NotesSummary != summarize.NoNotesPlaceholder {
		t.Fatalf("unexpected summaries %#v", rows[1])
	}
	if rows[0].ErrorSummary != "" {
		t.Fatalf("other rows must not change: %#v", rows[0])
	}
}

func TestSummarizeFlagsAreExclusive(t *testing.T) {
	base := isolate(t)
	_, _, err := execute(t, "", "--file", filepath.Join(base, "log.csv"), "summarize", "--all", "--id", "x")
	if err == nil {
		t.Fatalf("expected an error for --all with --id")
	}
}

func TestExportWritesReport(t *testing.T) {
	base := isolate(t)
	path := filepath.Join(base, "log.csv")
	store, err := logstore.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Append(context.Background(), logstore.Row{Timestamp: "2024-05-01 10:00:00", Command: "make"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	outDir := filepath.Join(base, "reports")
	out, _, err := execute(t, "", "--file", path, "export", "--out", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(outDir, "log-report.md")
	if strings.TrimSpace(out) != want {
		t.Fatalf("expected report path %q, got %q", want, out)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "`make`") {
		t.Fatalf("report missing row: %s", data)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "errlog") || !strings.Contains(out, Version) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestSetupLogFilePrecedence(t *testing.T) {
	base := isolate(t)
	cfgPath := filepath.Join(base, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_file: from-config.csv\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a := &app{getenv: os.Getenv, configPath: cfgPath}
	if err := a.setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if a.cfg.LogFile != "from-config.csv" {
		t.Fatalf("settings file should beat the default, got %q", a.cfg.LogFile)
	}

	t.Setenv("ERRLOG_FILE", filepath.Join(base, "env.csv"))
	a = &app{getenv: os.Getenv, configPath: cfgPath}
	if err := a.setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if a.cfg.LogFile != filepath.Join(base, "env.csv") {
		t.Fatalf("env should beat the settings file, got %q", a.cfg.LogFile)
	}

	a = &app{getenv: os.Getenv, configPath: cfgPath, logFile: "flag.csv", noRedact: true}
	if err := a.setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if a.cfg.LogFile != "flag.csv" || a.cfg.RedactHome {
		t.Fatalf("flags should win: %#v", a.cfg)
	}
}

func TestConfigInitWritesDefaults(t *testing.T) {
	base := isolate(t)
	path := filepath.Join(base, "config", "errlog", "config.yaml")

	out, _, err := execute(t, "", "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Fatalf("expected settings path %q, got %q", path, out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Summarizer.Backend != "none" || !cfg.RedactHome {
		t.Fatalf("unexpected settings %#v", cfg)
	}

	if _, _, err := execute(t, "", "config", "init"); err == nil {
		t.Fatalf("expected an error when the settings file exists")
	}
	if _, _, err := execute(t, "", "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}

	out, _, err = execute(t, "", "--file", "x.csv", "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "log_file: x.csv") {
		t.Fatalf("unexpected config output %q", out)
	}
}

func TestVerboseRunLogsShell(t *testing.T) {
	skipOnWindows(t)
	base := isolate(t)

	if _, _, err := execute(t, "", "--verbose", "--file", filepath.Join(base, "log.csv"), "run", "--", "true"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "state", "errlog", "errlog.log"))
	if err != nil {
		t.Fatalf("read debug log: %v", err)
	}
	if !strings.Contains(string(data), `"command shell"`) || !strings.Contains(string(data), `"/bin/sh"`) {
		t.Fatalf("debug log should name the shell: %s", data)
	}
}
