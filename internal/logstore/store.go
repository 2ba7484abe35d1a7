package logstore

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store is a CSV-backed command log. Every call reads the whole file and
// every mutation rewrites it; mu serializes the read-modify-write cycle.
type Store struct {
	path  string
	mu    sync.Mutex
	newID func() string
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("log file path is empty")
	}
	s := &Store{path: filepath.Clean(path), newID: uuid.NewString}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureFile() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat log file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("create log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write log header: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (Row, error) {
	rows, err := s.Load(ctx)
	if err != nil {
		return Row{}, err
	}
	idx := indexOf(rows, id)
	if idx < 0 {
		return Row{}, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	return rows[idx], nil
}

// IDAt resolves a display position to the identifier of the row currently
// stored there.
func (s *Store) IDAt(ctx context.Context, index int) (string, error) {
	rows, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(rows) {
		return "", fmt.Errorf("%w: index %d", ErrRowNotFound, index)
	}
	return rows[index].ID, nil
}

func (s *Store) Append(ctx context.Context, row Row) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read(ctx)
	if err != nil {
		return Row{}, err
	}
	if strings.TrimSpace(row.ID) == "" {
		row.ID = s.newID()
	}
	rows = append(rows, row)
	if err := s.write(rows); err != nil {
		return Row{}, err
	}
	return row, nil
}

func (s *Store) UpdateField(ctx context.Context, id string, field Field, value string) (Row, error) {
	return s.UpdateFields(ctx, id, map[Field]string{field: value})
}

// UpdateFields applies all values to one row in a single rewrite, so either
// every field lands or none does.
func (s *Store) UpdateFields(ctx context.Context, id string, values map[Field]string) (Row, error) {
	for f := range values {
		if !f.Valid() {
			return Row{}, fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read(ctx)
	if err != nil {
		return Row{}, err
	}
	idx := indexOf(rows, id)
	if idx < 0 {
		return Row{}, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	for f, v := range values {
		rows[idx].set(f, v)
	}
	if err := s.write(rows); err != nil {
		return Row{}, err
	}
	return rows[idx], nil
}

// read parses the file. Rows without an ID (logs written before the ID
// column existed) get one assigned and persisted immediately.
func (s *Store) read(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	rows, assigned, err := decode(f, s.newID)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	if assigned {
		if err := s.write(rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func decode(r io.Reader, newID func() string) ([]Row, bool, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"Timestamp", "Command", "Output", "Error"} {
		if _, ok := cols[required]; !ok {
			return nil, false, fmt.Errorf("%w: missing column %s", ErrCorrupt, required)
		}
	}

	rows := make([]Row, 0, 64)
	assigned := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		row := Row{
			ID:           strings.TrimSpace(get("ID")),
			Timestamp:    get("Timestamp"),
			Command:      get("Command"),
			Output:       get("Output"),
			Error:        get("Error"),
			UserNotes:    get("User_Notes"),
			Summary:      get("Summary"),
			ErrorSummary: get("Error_Summary"),
			NotesSummary: get("Notes_Summary"),
		}
		if row.ID == "" {
			row.ID = newID()
			assigned = true
		}
		rows = append(rows, row)
	}
	return rows, assigned, nil
}

// write replaces the log file via a temp file in the same directory.
func (s *Store) write(rows []Row) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp log file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(s.fileMode()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp log file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write log header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write log row %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace log file: %w", err)
	}
	return nil
}

func (s *Store) fileMode() os.FileMode {
	if st, err := os.Stat(s.path); err == nil {
		return st.Mode().Perm()
	}
	return 0o600
}

func indexOf(rows []Row, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, r := range rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}
