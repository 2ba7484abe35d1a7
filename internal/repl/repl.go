// Package repl runs a line-oriented prompt that records every command it
// executes into the log.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"errlog/internal/logstore"
	"errlog/internal/runner"

	"go.uber.org/zap"
)

const Prompt = "$ "

// Recorder is satisfied by *runner.Recorder.
type Recorder interface {
	Record(ctx context.Context, command string) (logstore.Row, runner.Result, error)
}

type Loop struct {
	rec    Recorder
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

func New(rec Recorder, in io.Reader, out, errOut io.Writer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{rec: rec, in: in, out: out, errOut: errOut, logger: logger}
}

func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}

// Run prompts until exit/quit, EOF or ctx is cancelled. Reading stdin cannot
// be interrupted, so lines are read on a separate goroutine; on cancellation
// Run returns without waiting for that goroutine's pending read.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(l.in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		fmt.Fprint(l.out, Prompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(l.out)
			if err != nil {
				return fmt.Errorf("read command: %w", err)
			}
			return nil
		case line = <-lines:
		}

		if IsExit(line) {
			return nil
		}
		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		l.execute(ctx, command)
	}
}

func (l *Loop) execute(ctx context.Context, command string) {
	_, res, err := l.rec.Record(ctx, command)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		l.logger.Warn("shell command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(l.errOut, "errlog: %v\n", err)
		return
	}
	io.WriteString(l.out, res.Stdout)
	io.WriteString(l.errOut, res.Stderr)
}
