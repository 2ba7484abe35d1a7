// Package cli implements the errlog commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"errlog/internal/config"
	"errlog/internal/logstore"
	"errlog/internal/runner"
	"errlog/internal/summarize"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ExitCodeError carries the exit status of a recorded command so main can
// mirror it.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

type app struct {
	configPath string
	logFile    string
	shell      string
	verbose    bool
	noRedact   bool
	reindex    bool

	// settingsPath is configPath resolved against ERRLOG_CONFIG and XDG.
	settingsPath string

	getenv func(string) string
	cfg    config.AppConfig
	logger *zap.Logger
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func NewRootCmd() *cobra.Command {
	a := &app{getenv: os.Getenv, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "errlog",
		Short: "Record shell commands and annotate their errors",
		Long: `errlog runs shell commands, keeps their output and errors in a CSV
log, and lets you attach research notes and summaries to each run.

Run without arguments to open the interactive log browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (default $XDG_CONFIG_HOME/errlog/config.yaml)")
	flags.StringVarP(&a.logFile, "file", "f", "", "command log CSV (default $ERRLOG_FILE or ./command_log.csv)")
	flags.StringVar(&a.shell, "shell", "", "shell used to run commands (default /bin/sh or %COMSPEC%)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.noRedact, "no-redact", false, "keep the home directory in captured stderr")
	root.Flags().BoolVar(&a.reindex, "reindex", false, "rebuild the search index from scratch")

	root.AddCommand(
		newConfigCmd(a),
		newExportCmd(a),
		newRunCmd(a),
		newShellCmd(a),
		newSummarizeCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves settings as flag > ERRLOG_FILE > settings file > default
// and opens the debug log.
func (a *app) setup() error {
	path, err := config.DetectConfigPath(a.configPath, a.getenv)
	if err != nil {
		return err
	}
	a.settingsPath = path
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	switch {
	case a.logFile != "":
		cfg.LogFile = a.logFile
	case strings.TrimSpace(a.getenv("ERRLOG_FILE")) != "":
		cfg.LogFile = config.DetectLogFile(a.getenv)
	}
	if a.shell != "" {
		cfg.Shell = a.shell
	}
	if a.verbose {
		cfg.Verbose = true
	}
	if a.noRedact {
		cfg.RedactHome = false
	}
	cfg.Reindex = a.reindex
	if err := cfg.Resolve(a.getenv); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.DebugLogPath, cfg.Verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("settings resolved",
		zap.String("config", path),
		zap.String("log_file", cfg.LogFile),
		zap.String("summarizer", cfg.Summarizer.Backend))
	return nil
}

// newLogger writes JSON logs to path; the terminal belongs to the TUI and to
// the recorded commands.
func newLogger(path string, verbose bool) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (a *app) openStore() (*logstore.Store, error) {
	return logstore.Open(a.cfg.LogFile)
}

func (a *app) newRunner() *runner.Runner {
	return runner.New(a.cfg.Shell, a.cfg.CommandTimeout, a.logger)
}

// redactHome is the directory hidden from captured stderr, or "" when
// redaction is off.
func (a *app) redactHome() string {
	if !a.cfg.RedactHome {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		a.logger.Warn("home redaction disabled", zap.Error(err))
		return ""
	}
	return home
}

func (a *app) newRecorder(store *logstore.Store) *runner.Recorder {
	r := a.newRunner()
	a.logger.Debug("command shell",
		zap.String("path", r.Shell().Path),
		zap.Strings("args", r.Shell().Args))
	return runner.NewRecorder(r, store,
		runner.WithHomeRedaction(a.redactHome()),
		runner.WithLogger(a.logger),
	)
}

func (a *app) newSummarizer() (summarize.Summarizer, error) {
	s := a.cfg.Summarizer
	return summarize.New(summarize.Options{
		Backend: s.Backend,
		URL:     s.URL,
		Model:   s.Model,
		Command: s.Command,
		Args:    s.Args,
		Timeout: s.Timeout,
	}, a.logger)
}
