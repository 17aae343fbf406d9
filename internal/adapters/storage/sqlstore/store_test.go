package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/storetest"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.NoteStore {
		return newTestStore(t)
	})
}

func TestOpenSQLite_ReopenKeepsCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notes.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	first, err := s.CreateNote(ctx, "alice", "persisted")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.GetNote(ctx, "alice", "#1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	second, err := s.CreateNote(ctx, "alice", "after reopen")
	require.NoError(t, err)
	assert.Equal(t, first.Seq+1, second.Seq)
}

func TestSearchNotes_FoldsNonASCII(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateNote(ctx, "alice", "CAFÉ AU LAIT")
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, "alice", "plain")
	require.NoError(t, err)
	_, err = s.UpdateNoteText(ctx, "alice", "2", "ÜBER Straße")
	require.NoError(t, err)

	hits, err := s.SearchNotes(ctx, "alice", "café")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "CAFÉ AU LAIT", hits[0].Text)

	hits, err = s.SearchNotes(ctx, "alice", "über")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, n.ID, hits[0].ID)
}

func TestOpenSQLite_BackfillsBodyLower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE notes (
		id         TEXT    PRIMARY KEY,
		seq        BIGINT  NOT NULL UNIQUE,
		owner_id   TEXT    NOT NULL,
		body       TEXT    NOT NULL,
		completed  BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at BIGINT  NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO notes (id, seq, owner_id, body, completed, updated_at) VALUES ('n1', 1, 'alice', 'ÉCOLE', FALSE, 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	hits, err := s.SearchNotes(context.Background(), "alice", "école")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.NoteID("n1"), hits[0].ID)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done\\`, escapeLike(`100%_done\`))
}

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "  ")
	require.Error(t, err)
}
