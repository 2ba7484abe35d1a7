package summarize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command summarizes by running an external program, typically a wrapper
// around a local seq2seq model. The text is written to stdin and the program
// is called with --max-length N --min-length M appended to its arguments.
type Command struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

func NewCommand(path string, args []string, timeout time.Duration, logger *zap.Logger) *Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Command{
		path:    strings.TrimSpace(path),
		args:    append([]string(nil), args...),
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Command) argv(l Length) []string {
	out := append([]string(nil), c.args...)
	return append(out,
		"--max-length", strconv.Itoa(l.Max),
		"--min-length", strconv.Itoa(l.Min),
	)
}

func (c *Command) Summarize(ctx context.Context, text string, l Length) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.argv(l)...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("summarizer %s: %w: %s", c.path, err, msg)
		}
		return "", fmt.Errorf("summarizer %s: %w", c.path, err)
	}

	summary := clampWords(stdout.String(), l.Max)
	if summary == "" {
		return "", fmt.Errorf("summarizer %s produced no output", c.path)
	}
	c.logger.Debug("command summary", zap.String("path", c.path), zap.Int("max_words", l.Max))
	return summary, nil
}
