// Package storetest holds the behavioural contract every domain.NoteStore
// implementation must satisfy. Adapter packages call Run from their tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) domain.NoteStore

// Run executes the whole contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAssignsIncreasingSeq", func(t *testing.T) { testCreateAssignsIncreasingSeq(t, newStore(t)) })
	t.Run("ResolveBySeqOrNativeID", func(t *testing.T) { testResolveBySeqOrNativeID(t, newStore(t)) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, newStore(t)) })
	t.Run("ForeignMutationsRejected", func(t *testing.T) { testForeignMutationsRejected(t, newStore(t)) })
	t.Run("SearchIsCaseInsensitiveMostRecentFirst", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("UpdateAndDelete", func(t *testing.T) { testUpdateAndDelete(t, newStore(t)) })
	t.Run("ConcurrentCreatesUniqueSeq", func(t *testing.T) { testConcurrentCreates(t, newStore(t)) })
}

func testCreateAssignsIncreasingSeq(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	a, err := s.CreateNote(ctx, "alice", "first")
	require.NoError(t, err)
	b, err := s.CreateNote(ctx, "bob", "second")
	require.NoError(t, err)
	c, err := s.CreateNote(ctx, "alice", "third")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Less(t, a.Seq, b.Seq)
	assert.Less(t, b.Seq, c.Seq)
	assert.Equal(t, domain.UserID("alice"), a.OwnerID)
	assert.Equal(t, "first", a.Text)
	assert.False(t, a.Completed)
	assert.False(t, a.UpdatedAt.IsZero())
}

func testResolveBySeqOrNativeID(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	n, err := s.CreateNote(ctx, "alice", "resolve me")
	require.NoError(t, err)

	bySeq, err := s.GetNote(ctx, "alice", strconv.FormatInt(n.Seq, 10))
	require.NoError(t, err)
	assert.Equal(t, n.ID, bySeq.ID)

	byID, err := s.GetNote(ctx, "alice", string(n.ID))
	require.NoError(t, err)
	assert.Equal(t, n.Seq, byID.Seq)

	_, err = s.GetNote(ctx, "alice", "999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testOwnerIsolation(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateNote(ctx, "alice", fmt.Sprintf("alice shared %d", i))
		require.NoError(t, err)
		_, err = s.CreateNote(ctx, "bob", fmt.Sprintf("bob shared %d", i))
		require.NoError(t, err)
	}

	list, err := s.ListNotes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		assert.Equal(t, domain.UserID("alice"), n.OwnerID)
	}

	hits, err := s.SearchNotes(ctx, "bob", "shared")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, n := range hits {
		assert.Equal(t, domain.UserID("bob"), n.OwnerID)
	}

	empty, err := s.ListNotes(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testForeignMutationsRejected(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	n, err := s.CreateNote(ctx, "alice", "private")
	require.NoError(t, err)

	refs := []string{strconv.FormatInt(n.Seq, 10), string(n.ID)}
	for _, ref := range refs {
		_, err = s.GetNote(ctx, "mallory", ref)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.UpdateNoteText(ctx, "mallory", ref, "pwned")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.UpdateNoteStatus(ctx, "mallory", ref, true)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.DeleteNote(ctx, "mallory", ref)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	got, err := s.GetNote(ctx, "alice", string(n.ID))
	require.NoError(t, err)
	assert.Equal(t, "private", got.Text)
	assert.False(t, got.Completed)
}

func testSearch(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	older, err := s.CreateNote(ctx, "alice", "Buy MILK")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := s.CreateNote(ctx, "alice", "milkshake recipe")
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, "alice", "call mom")
	require.NoError(t, err)

	hits, err := s.SearchNotes(ctx, "alice", "milk")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, newer.ID, hits[0].ID)
	assert.Equal(t, older.ID, hits[1].ID)

	time.Sleep(2 * time.Millisecond)
	_, err = s.CreateNote(ctx, "alice", "CAFÉ AU LAIT")
	require.NoError(t, err)
	accented, err := s.SearchNotes(ctx, "alice", "café")
	require.NoError(t, err)
	require.Len(t, accented, 1)
	assert.Equal(t, "CAFÉ AU LAIT", accented[0].Text)

	none, err := s.SearchNotes(ctx, "alice", "100%_done")
	require.NoError(t, err)
	assert.Empty(t, none)

	list, err := s.ListNotes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "CAFÉ AU LAIT", list[0].Text)
}

func testUpdateAndDelete(t *testing.T, s domain.NoteStore) {
	ctx := context.Background()

	n, err := s.CreateNote(ctx, "alice", "draft")
	require.NoError(t, err)
	ref := strconv.FormatInt(n.Seq, 10)

	updated, err := s.UpdateNoteText(ctx, "alice", ref, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Text)
	assert.Equal(t, n.Seq, updated.Seq)
	assert.False(t, updated.UpdatedAt.Before(n.UpdatedAt))

	done, err := s.UpdateNoteStatus(ctx, "alice", string(n.ID), true)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, "final", done.Text)

	deleted, err := s.DeleteNote(ctx, "alice", ref)
	require.NoError(t, err)
	assert.Equal(t, n.ID, deleted.ID)
	assert.Equal(t, "final", deleted.Text)

	_, err = s.DeleteNote(ctx, "alice", ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A new note never reuses the deleted number.
	again, err := s.CreateNote(ctx, "alice", "after delete")
	require.NoError(t, err)
	assert.Greater(t, again.Seq, n.Seq)
}

func testConcurrentCreates(t *testing.T, s domain.NoteStore) {
	const workers = 24
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seqs = make(map[int64]struct{}, workers)
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		owner := domain.UserID(fmt.Sprintf("user-%d", i%3))
		g.Go(func() error {
			n, err := s.CreateNote(gctx, owner, "concurrent")
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, dup := seqs[n.Seq]; dup {
				return errors.New("duplicate seq " + strconv.FormatInt(n.Seq, 10))
			}
			seqs[n.Seq] = struct{}{}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Len(t, seqs, workers)
}
