package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"errlog/internal/logstore"

	"go.uber.org/zap"
)

// Executor runs one command line. *Runner is the production implementation.
type Executor interface {
	Execute(ctx context.Context, command string) (Result, error)
}

// Appender is the part of the log store a Recorder writes to.
type Appender interface {
	Append(ctx context.Context, row logstore.Row) (logstore.Row, error)
}

// Recorder executes commands and appends one log row per completed run.
type Recorder struct {
	exec   Executor
	store  Appender
	home   string
	now    func() time.Time
	logger *zap.Logger
}

type RecorderOption func(*Recorder)

// WithHomeRedaction replaces occurrences of home in captured stderr with
// "***" before the row is stored. An empty home disables redaction.
func WithHomeRedaction(home string) RecorderOption {
	return func(r *Recorder) { r.home = strings.TrimRight(strings.TrimSpace(home), "/\\") }
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func WithLogger(logger *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRecorder(exec Executor, store Appender, opts ...RecorderOption) *Recorder {
	r := &Recorder{exec: exec, store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs command and stores the outcome. Nothing is stored when the
// command cannot be launched.
func (r *Recorder) Record(ctx context.Context, command string) (logstore.Row, Result, error) {
	if strings.TrimSpace(command) == "" {
		return logstore.Row{}, Result{}, ErrEmptyCommand
	}
	ts := r.now().Local().Format(logstore.TimestampLayout)

	res, err := r.exec.Execute(ctx, command)
	if err != nil {
		r.logger.Warn("command launch failed", zap.String("command", command), zap.Error(err))
		return logstore.Row{}, res, err
	}

	row, err := r.store.Append(ctx, logstore.Row{
		Timestamp: ts,
		Command:   command,
		Output:    normalizeNewlines(res.Stdout),
		Error:     normalizeNewlines(RedactHome(res.Stderr, r.home)),
	})
	if err != nil {
		return logstore.Row{}, res, fmt.Errorf("record %q: %w", command, err)
	}
	r.logger.Info("command recorded",
		zap.String("id", row.ID),
		zap.String("command", command),
		zap.Int("exit_code", res.ExitCode),
	)
	return row, res, nil
}

// normalizeNewlines turns CRLF into LF. encoding/csv drops the CR inside
// quoted fields on read, so stored text must not depend on it.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func RedactHome(s, home string) string {
	if home == "" || home == "/" {
		return s
	}
	return strings.ReplaceAll(s, home, "***")
}
