package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyCommand = errors.New("command is empty")

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Shell is the interpreter used to resolve a command line, e.g.
// {Path: "/bin/sh", Args: ["-c"]}.
type Shell struct {
	Path string
	Args []string
}

func SelectShell(goos, explicit string, getenv func(string) string) Shell {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if goos == "windows" {
			return Shell{Path: explicit, Args: []string{"/C"}}
		}
		return Shell{Path: explicit, Args: []string{"-c"}}
	}
	if goos == "windows" {
		if comspec := getenv("COMSPEC"); comspec != "" {
			return Shell{Path: comspec, Args: []string{"/C"}}
		}
		return Shell{Path: "cmd.exe", Args: []string{"/C"}}
	}
	return Shell{Path: "/bin/sh", Args: []string{"-c"}}
}

type Runner struct {
	shell   Shell
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Runner for the given shell path (empty selects the platform
// default). timeout <= 0 waits for the command indefinitely.
func New(shellPath string, timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		shell:   SelectShell(runtime.GOOS, shellPath, os.Getenv),
		timeout: timeout,
		logger:  logger,
	}
}

func (r *Runner) Shell() Shell {
	return r.shell
}

// Execute runs command through the shell and waits for it to exit. A
// non-zero exit status is reported in Result.ExitCode, not as an error;
// errors mean the process could not be started or waited on.
func (r *Runner) Execute(ctx context.Context, command string) (Result, error) {
	if strings.TrimSpace(command) == "" {
		return Result{}, ErrEmptyCommand
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.shell.Args...), command)
	cmd := exec.CommandContext(ctx, r.shell.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren of the shell can keep the output pipes open after the
	// shell itself is killed.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil:
		// The shell exited but a background child still holds the pipes.
		res.ExitCode = cmd.ProcessState.ExitCode()
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return res, fmt.Errorf("run %q: %w", command, ctx.Err())
	default:
		return res, fmt.Errorf("start shell %s: %w", r.shell.Path, err)
	}

	r.logger.Debug("command finished",
		zap.String("command", command),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
