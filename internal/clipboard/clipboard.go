package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

// waitDelay bounds how long Copy waits on stderr after the tool exits.
// xclip, xsel and wl-copy leave a child behind that owns the selection and
// keeps the inherited pipe open.
const waitDelay = 500 * time.Millisecond

type Command struct {
	Path string
	Args []string
}

type candidate struct {
	name string
	args []string
}

var candidates = map[string][]candidate{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}, {name: "clip"}},
}

// SelectCommand picks the first clipboard writer available for goos.
func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	for _, c := range candidates[goos] {
		path, err := lookPath(c.name)
		if err != nil {
			continue
		}
		return Command{Path: path, Args: append([]string(nil), c.args...)}, nil
	}
	return Command{}, ErrToolNotFound
}

// Copier writes text to the system clipboard through an external tool.
type Copier struct {
	goos     string
	lookPath func(string) (string, error)
}

func New() *Copier {
	return &Copier{goos: runtime.GOOS, lookPath: exec.LookPath}
}

func (c *Copier) Copy(ctx context.Context, text string) error {
	def, err := SelectCommand(c.goos, c.lookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, def.Path, def.Args...)
	var stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err = cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("clipboard command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
