package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultLogFile      = "command_log.csv"
)

type SummarizerConfig struct {
	Backend string        `yaml:"backend"` // "none" | "ollama" | "command"
	URL     string        `yaml:"url,omitempty"`
	Model   string        `yaml:"model,omitempty"`
	Command string        `yaml:"command,omitempty"`
	Args    []string      `yaml:"args,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type AppConfig struct {
	LogFile        string           `yaml:"log_file,omitempty"`
	IndexPath      string           `yaml:"index_path,omitempty"`
	ExportDir      string           `yaml:"export_dir,omitempty"`
	Shell          string           `yaml:"shell,omitempty"`
	RedactHome     bool             `yaml:"redact_home"`
	CommandTimeout time.Duration    `yaml:"command_timeout,omitempty"`
	Summarizer     SummarizerConfig `yaml:"summarizer"`
	DebugLogPath   string           `yaml:"debug_log,omitempty"`
	Verbose        bool             `yaml:"verbose,omitempty"`
	Reindex        bool             `yaml:"-"`
}

func Default() AppConfig {
	return AppConfig{
		RedactHome: true,
		Summarizer: SummarizerConfig{Backend: "none"},
	}
}

// Load reads the YAML settings file at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Resolve fills derived paths and applies environment overrides. Flags are
// applied by the caller before Resolve, so explicit values win over env.
func (c *AppConfig) Resolve(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if strings.TrimSpace(c.LogFile) == "" {
		c.LogFile = DetectLogFile(getenv)
	}
	c.LogFile = filepath.Clean(c.LogFile)

	if c.IndexPath == "" {
		dir, err := DataDir(getenv)
		if err != nil {
			return err
		}
		c.IndexPath = filepath.Join(dir, "index.sqlite")
	}
	if c.DebugLogPath == "" {
		dir, err := StateDir(getenv)
		if err != nil {
			return err
		}
		c.DebugLogPath = filepath.Join(dir, "errlog.log")
	}
	if c.Summarizer.Backend == "" {
		c.Summarizer.Backend = "none"
	}
	return nil
}

func DetectLogFile(getenv func(string) string) string {
	if fromEnv := strings.TrimSpace(getenv("ERRLOG_FILE")); fromEnv != "" {
		return fromEnv
	}
	return DefaultLogFile
}

func DetectConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := getenv("ERRLOG_CONFIG"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "errlog", "config.yaml"), nil
}

func DataDir(getenv func(string) string) (string, error) {
	return xdgDir(getenv, "XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func StateDir(getenv func(string) string) (string, error) {
	return xdgDir(getenv, "XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(getenv func(string) string, env, fallback string) (string, error) {
	if base := getenv(env); base != "" {
		return filepath.Join(base, "errlog"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, fallback, "errlog"), nil
}
