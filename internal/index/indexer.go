package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"errlog/internal/logstore"

	_ "github.com/mattn/go-sqlite3"
)

// Indexer mirrors log rows into SQLite so the UI can run full-text search
// over commands, output, errors, notes and summaries.
type Indexer struct {
	dbPath     string
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
}

func New(dbPath string, reindex bool) (*Indexer, error) {
	if reindex {
		_ = os.Remove(dbPath)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	i := &Indexer{dbPath: dbPath, db: db}
	if err := i.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return i, nil
}

func (i *Indexer) Close() error {
	return i.db.Close()
}

func (i *Indexer) FTSEnabled() bool {
	return i.ftsEnabled
}

func (i *Indexer) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS rows (
			log_file TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER,
			ts TEXT,
			command TEXT,
			output TEXT,
			error TEXT,
			user_notes TEXT,
			error_summary TEXT,
			notes_summary TEXT,
			PRIMARY KEY (log_file, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rows_log_position ON rows(log_file, position);`,
		`CREATE TABLE IF NOT EXISTS synced_logs (
			path TEXT PRIMARY KEY,
			mtime INTEGER,
			size INTEGER,
			row_count INTEGER
		);`,
	}

	for _, stmt := range stmts {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return i.ensureFTSTable()
}

func (i *Indexer) ensureFTSTable() error {
	var sqlDef string
	err := i.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'rows_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		i.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect rows_fts table: %w", err)
	}

	_, err = i.db.Exec(`CREATE VIRTUAL TABLE rows_fts USING fts5(
		log_file UNINDEXED,
		row_id UNINDEXED,
		content
	);`)
	if err == nil {
		i.ftsEnabled = true
		return nil
	}

	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create rows_fts: %w", err)
	}

	// Fallback for sqlite builds without FTS5 support; search uses LIKE.
	i.ftsEnabled = false
	return nil
}

type logMeta struct {
	Mtime    int64
	Size     int64
	RowCount int
}

// Sync replaces the indexed copy of logPath with rows unless the file is
// unchanged since the last sync.
func (i *Indexer) Sync(ctx context.Context, logPath string, rows []logstore.Row) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := canonicalPath(logPath)
	stat, statErr := os.Stat(logPath)
	if statErr == nil {
		meta, found, err := i.getSyncedMeta(key)
		if err != nil {
			return err
		}
		if found && meta.Mtime == stat.ModTime().UnixNano() && meta.Size == stat.Size() && meta.RowCount == len(rows) {
			return nil
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync tx: %w", err)
	}
	defer tx.Rollback()

	if i.ftsEnabled {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rows_fts WHERE log_file = ?`, key); err != nil {
			return fmt.Errorf("clear fts rows for %s: %w", key, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rows WHERE log_file = ?`, key); err != nil {
		return fmt.Errorf("clear rows for %s: %w", key, err)
	}

	insertRow, err := tx.PrepareContext(ctx, `
		INSERT INTO rows(log_file, id, position, ts, command, output, error, user_notes, error_summary, notes_summary)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer insertRow.Close()

	var insertFTS *sql.Stmt
	if i.ftsEnabled {
		insertFTS, err = tx.PrepareContext(ctx, `INSERT INTO rows_fts(log_file, row_id, content) VALUES(?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fts insert: %w", err)
		}
		defer insertFTS.Close()
	}

	for pos, r := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := insertRow.ExecContext(ctx,
			key, r.ID, pos, r.Timestamp, r.Command, r.Output, r.Error,
			r.UserNotes, r.ErrorSummary, r.NotesSummary,
		); err != nil {
			return fmt.Errorf("insert row %s: %w", r.ID, err)
		}
		if insertFTS != nil {
			if _, err := insertFTS.ExecContext(ctx, key, r.ID, searchableText(r)); err != nil {
				return fmt.Errorf("insert fts row %s: %w", r.ID, err)
			}
		}
	}

	if statErr == nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO synced_logs(path, mtime, size, row_count)
			VALUES(?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				mtime=excluded.mtime,
				size=excluded.size,
				row_count=excluded.row_count
		`, key, stat.ModTime().UnixNano(), stat.Size(), len(rows)); err != nil {
			return fmt.Errorf("update synced log metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync %s: %w", key, err)
	}
	return nil
}

func (i *Indexer) getSyncedMeta(path string) (logMeta, bool, error) {
	row := i.db.QueryRow(`SELECT mtime, size, row_count FROM synced_logs WHERE path = ?`, path)
	var meta logMeta
	if err := row.Scan(&meta.Mtime, &meta.Size, &meta.RowCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return logMeta{}, false, nil
		}
		return logMeta{}, false, fmt.Errorf("read synced metadata for %s: %w", path, err)
	}
	return meta, true, nil
}

// Search returns the IDs of rows in logPath matching every term of query,
// best matches first. An empty query returns nil.
func (i *Indexer) Search(ctx context.Context, logPath, query string, limit int) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	key := canonicalPath(logPath)

	if i.ftsEnabled {
		ids, err := i.searchFTS(ctx, key, query, limit)
		if err == nil {
			return ids, nil
		}
		fallback, fbErr := i.searchLike(ctx, key, query, limit)
		if fbErr != nil {
			return nil, fmt.Errorf("search rows (fts and fallback failed): fts=%w, fallback=%v", err, fbErr)
		}
		return fallback, nil
	}
	return i.searchLike(ctx, key, query, limit)
}

func (i *Indexer) searchFTS(ctx context.Context, key, query string, limit int) ([]string, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, fmt.Errorf("empty fts query")
	}
	rows, err := i.db.QueryContext(ctx, `
		SELECT row_id
		FROM rows_fts
		WHERE rows_fts MATCH ? AND log_file = ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, key, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return scanIDs(rows)
}

func (i *Indexer) searchLike(ctx context.Context, key, query string, limit int) ([]string, error) {
	terms := tokenizeSearchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(`SELECT id FROM rows WHERE log_file = ?`)
	args := make([]any, 0, len(terms)+2)
	args = append(args, key)
	for _, term := range terms {
		b.WriteString(` AND LOWER(COALESCE(command,'') || ' ' || COALESCE(output,'') || ' ' || COALESCE(error,'') || ' ' ||
			COALESCE(user_notes,'') || ' ' || COALESCE(error_summary,'') || ' ' || COALESCE(notes_summary,'')) LIKE ?`)
		args = append(args, "%"+term+"%")
	}
	b.WriteString(` ORDER BY position DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := i.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := make([]string, 0, 32)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate row ids: %w", err)
	}
	return out, nil
}

func searchableText(r logstore.Row) string {
	parts := []string{r.Command, r.Output, r.Error, r.UserNotes, r.ErrorSummary, r.NotesSummary}
	return strings.Join(parts, "\n")
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `"`, "")
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Terms exposes the tokenizer so callers highlight exactly what was searched.
func Terms(query string) []string {
	return tokenizeSearchTerms(query)
}

func canonicalPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
