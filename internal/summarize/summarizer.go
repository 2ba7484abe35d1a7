package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("summarizer backend is not configured")

// Summarizer produces a shortened version of text within the given bounds.
type Summarizer interface {
	Summarize(ctx context.Context, text string, l Length) (string, error)
}

const (
	BackendNone    = "none"
	BackendOllama  = "ollama"
	BackendCommand = "command"
)

type Options struct {
	Backend string
	URL     string
	Model   string
	Command string
	Args    []string
	Timeout time.Duration
}

func New(opts Options, logger *zap.Logger) (Summarizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendNone:
		return Disabled{}, nil
	case BackendOllama:
		return NewOllama(opts.URL, opts.Model, opts.Timeout, logger), nil
	case BackendCommand:
		if strings.TrimSpace(opts.Command) == "" {
			return nil, fmt.Errorf("summarizer backend %q needs a command", BackendCommand)
		}
		return NewCommand(opts.Command, opts.Args, opts.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown summarizer backend %q", opts.Backend)
	}
}

type Disabled struct{}

func (Disabled) Summarize(context.Context, string, Length) (string, error) {
	return "", ErrUnavailable
}
