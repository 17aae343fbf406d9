// Package sqlstore implements domain.NoteStore on database/sql.
//
// Two dialects are supported: SQLite through modernc.org/sqlite (pure Go, used
// for local single-file deployments and tests) and PostgreSQL through
// github.com/lib/pq. Queries are written with '?' placeholders and rebound
// for Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const operationTimeout = 5 * time.Second

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is a SQL-backed note store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates it.
func OpenSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlstore: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
	}

	// One connection keeps the counter upsert and the pragmas on the same
	// session and avoids SQLITE_BUSY between pooled writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: pragma %q: %w", p, err)
		}
	}

	return newStore(db, DialectSQLite)
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("sqlstore: postgres dsn is required")
	}

	db, err := openDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping postgres: %w", err)
	}

	return newStore(db, DialectPostgres)
}

func newStore(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id         TEXT    PRIMARY KEY,
			seq        BIGINT  NOT NULL UNIQUE,
			owner_id   TEXT    NOT NULL,
			body       TEXT    NOT NULL,
			body_lower TEXT    NOT NULL DEFAULT '',
			completed  BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at BIGINT  NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id, updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT   PRIMARY KEY,
			seq  BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return s.migrateBodyLower(ctx)
}

// migrateBodyLower adds and fills body_lower on databases created before
// search used it. SQL LOWER() folds ASCII only on SQLite, so the folded text
// is computed in Go.
func (s *Store) migrateBodyLower(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `SELECT body_lower FROM notes LIMIT 0`); err != nil {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE notes ADD COLUMN body_lower TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add body_lower: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM notes WHERE body_lower = '' AND body <> ''`)
	if err != nil {
		return fmt.Errorf("backfill body_lower: %w", err)
	}
	pending := make(map[string]string)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			rows.Close()
			return fmt.Errorf("backfill body_lower: %w", err)
		}
		pending[id] = body
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("backfill body_lower: %w", err)
	}

	for id, body := range pending {
		if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE notes SET body_lower = ? WHERE id = ?`), fold(body), id); err != nil {
			return fmt.Errorf("backfill body_lower: %w", err)
		}
	}
	return nil
}

// ─── NoteStore ───────────────────────────────────────────────────────────────

const noteColumns = "id, seq, owner_id, body, completed, updated_at"

func (s *Store) CreateNote(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO counters (name, seq) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`), domain.NoteCounterName).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: next seq: %w", err)
	}

	n := &domain.Note{
		ID:        domain.NoteID(uuid.NewString()),
		Seq:       seq,
		Text:      text,
		UpdatedAt: s.now(),
		OwnerID:   owner,
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO notes (`+noteColumns+`, body_lower) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		string(n.ID), n.Seq, string(n.OwnerID), n.Text, n.Completed, n.UpdatedAt.UnixNano(), fold(n.Text))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: insert note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlstore: commit: %w", err)
	}
	return n, nil
}

func (s *Store) GetNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	return s.resolve(ctx, s.db, owner, ref)
}

func (s *Store) ListNotes(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	return s.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes WHERE owner_id = ? ORDER BY updated_at DESC, seq DESC`,
		string(owner))
}

func (s *Store) SearchNotes(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	pattern := "%" + escapeLike(fold(query)) + "%"
	return s.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes
		WHERE owner_id = ? AND body_lower LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, seq DESC`,
		string(owner), pattern)
}

func (s *Store) UpdateNoteText(ctx context.Context, owner domain.UserID, ref string, text string) (*domain.Note, error) {
	return s.update(ctx, owner, ref, "body = ?, body_lower = ?", []any{text, fold(text)}, func(n *domain.Note) { n.Text = text })
}

func (s *Store) UpdateNoteStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error) {
	return s.update(ctx, owner, ref, "completed = ?", []any{completed}, func(n *domain.Note) { n.Completed = completed })
}

func (s *Store) DeleteNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := s.resolve(ctx, tx, owner, ref)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM notes WHERE id = ? AND owner_id = ?`), string(n.ID), string(owner)); err != nil {
		return nil, fmt.Errorf("sqlstore: delete note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlstore: commit: %w", err)
	}
	return n, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) update(ctx context.Context, owner domain.UserID, ref, set string, values []any, apply func(*domain.Note)) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := s.resolve(ctx, tx, owner, ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	args := append(values, now.UnixNano(), string(n.ID), string(owner))
	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE notes SET `+set+`, updated_at = ? WHERE id = ? AND owner_id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: update note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlstore: commit: %w", err)
	}

	apply(n)
	n.UpdatedAt = now
	return n, nil
}

// resolve looks ref up as a note number first, then as a native ID.
func (s *Store) resolve(ctx context.Context, q queryer, owner domain.UserID, ref string) (*domain.Note, error) {
	if seq, ok := domain.ParseSeq(ref); ok {
		n, err := scanNote(q.QueryRowContext(ctx, s.rebind(`SELECT `+noteColumns+` FROM notes WHERE seq = ? AND owner_id = ?`), seq, string(owner)))
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	return scanNote(q.QueryRowContext(ctx, s.rebind(`SELECT `+noteColumns+` FROM notes WHERE id = ? AND owner_id = ?`),
		strings.TrimSpace(ref), string(owner)))
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]*domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query notes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate notes: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*domain.Note, error) {
	var (
		n         domain.Note
		id, owner string
		updatedAt int64
	)
	err := row.Scan(&id, &n.Seq, &owner, &n.Text, &n.Completed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: scan note: %w", err)
	}
	n.ID = domain.NoteID(id)
	n.OwnerID = domain.UserID(owner)
	n.UpdatedAt = time.Unix(0, updatedAt)
	return &n, nil
}

// fold lowercases text for body_lower and search patterns.
func fold(text string) string {
	return strings.ToLower(text)
}

// rebind turns '?' placeholders into '$n' for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
