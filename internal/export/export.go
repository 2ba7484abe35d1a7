package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"errlog/internal/logstore"
)

// Focus selects which annotation a row view leads with.
type Focus int

const (
	FocusNotes Focus = iota
	FocusError
	FocusErrorSummary
	FocusNotesSummary
)

func (f Focus) String() string {
	switch f {
	case FocusError:
		return "Error"
	case FocusErrorSummary:
		return "Error Summary"
	case FocusNotesSummary:
		return "Notes Summary"
	default:
		return "User Notes"
	}
}

func (f Focus) Next() Focus {
	return (f + 1) % 4
}

const noContent = "No content available."

type Exporter struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

// Export writes a markdown report of rows next to the log (or into the
// override directory) and returns its path.
func (e *Exporter) Export(logPath string, rows []logstore.Row) (string, error) {
	path := e.outputPath(logPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	md := BuildReportMarkdown(logPath, rows, time.Now())
	if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func (e *Exporter) outputPath(logPath string) string {
	name := reportFileName(logPath)
	if e.overrideDir != "" {
		dir := e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
		return filepath.Join(dir, name)
	}
	dir := filepath.Dir(logPath)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.cwd, dir)
	}
	return filepath.Join(dir, name)
}

func reportFileName(logPath string) string {
	base := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		base = "command_log"
	}
	replacer := strings.NewReplacer(" ", "_", ":", "_")
	return replacer.Replace(base) + "-report.md"
}

func BuildReportMarkdown(logPath string, rows []logstore.Row, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Command log " + filepath.Base(logPath) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n\n", len(rows)))
	for _, r := range rows {
		b.WriteString(BuildRowMarkdown(r, FocusNotes, 2))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// BuildRowMarkdown renders one row. level is the heading depth of the row
// title; focus decides which annotation comes first.
func BuildRowMarkdown(r logstore.Row, focus Focus, level int) string {
	if level < 1 {
		level = 1
	}
	h := strings.Repeat("#", level)
	sub := h + "#"

	var b strings.Builder
	b.WriteString(h + " " + safeValue(r.Timestamp) + " `" + inlineCode(r.Command) + "`\n\n")

	b.WriteString(sub + " " + focus.String() + "\n\n")
	b.WriteString(focusBody(r, focus) + "\n\n")

	b.WriteString(sub + " Output\n\n")
	b.WriteString(fenced(r.Output))
	if focus != FocusError {
		b.WriteString(sub + " Error\n\n")
		b.WriteString(fenced(r.Error))
	}
	for _, f := range []Focus{FocusNotes, FocusErrorSummary, FocusNotesSummary} {
		if f == focus {
			continue
		}
		b.WriteString(sub + " " + f.String() + "\n\n")
		b.WriteString(orNoContent(fieldFor(r, f)) + "\n\n")
	}
	return b.String()
}

func focusBody(r logstore.Row, focus Focus) string {
	if focus == FocusError {
		return strings.TrimRight(fenced(r.Error), "\n")
	}
	return orNoContent(fieldFor(r, focus))
}

func fieldFor(r logstore.Row, f Focus) string {
	switch f {
	case FocusError:
		return r.Error
	case FocusErrorSummary:
		return r.ErrorSummary
	case FocusNotesSummary:
		return r.NotesSummary
	default:
		return r.UserNotes
	}
}

func fenced(s string) string {
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return "_(empty)_\n\n"
	}
	fence := "```"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	return fence + "text\n" + s + "\n" + fence + "\n\n"
}

func inlineCode(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "`", "'")
}

func orNoContent(s string) string {
	if strings.TrimSpace(s) == "" {
		return noContent
	}
	return strings.TrimSpace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}

// Snippet is the short plain-text form of a row used for the clipboard.
func Snippet(r logstore.Row) string {
	var b strings.Builder
	b.WriteString("$ " + r.Command + "\n")
	if e := strings.TrimSpace(r.Error); e != "" {
		b.WriteString(e + "\n")
	}
	if s := strings.TrimSpace(r.ErrorSummary); s != "" {
		b.WriteString("Summary: " + s + "\n")
	}
	if n := strings.TrimSpace(r.UserNotes); n != "" {
		b.WriteString("Notes: " + n + "\n")
	}
	return b.String()
}
