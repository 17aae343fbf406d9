package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/quicknotes-agent/internal/app/notes"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

func newExecutor(t *testing.T) (*tools.Executor, *notes.Service) {
	t.Helper()
	svc := notes.NewService(memory.NewNoteStore())
	return tools.NewExecutor(svc), svc
}

func TestExecute_AllOperations(t *testing.T) {
	ctx := context.Background()
	ex, _ := newExecutor(t)

	obs, err := ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpCreateNote, Text: "buy milk"})
	require.NoError(t, err)
	require.True(t, obs.Success)
	assert.Equal(t, "Note created successfully", obs.Message)
	ref := "1"

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpGetNotes})
	require.NoError(t, err)
	assert.Len(t, obs.Notes, 1)

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpSearchNote, Query: "milk"})
	require.NoError(t, err)
	assert.Len(t, obs.Notes, 1)

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpUpdateNote, Ref: ref, Text: "buy bread"})
	require.NoError(t, err)
	assert.Equal(t, "buy bread", obs.Note.Text)

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpUpdateNoteStatus, Ref: ref, Completed: false})
	require.NoError(t, err)
	assert.Equal(t, "Note marked as pending", obs.Message)

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpUpdateNoteStatus, Ref: ref, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, "Note marked as completed", obs.Message)

	obs, err = ex.Execute(ctx, "alice", tools.Operation{Kind: tools.OpDeleteNote, Ref: ref})
	require.NoError(t, err)
	assert.True(t, obs.Success)
	assert.Equal(t, "Note deleted successfully", obs.Message)
}

func TestExecute_NotFoundIsAFailedObservation(t *testing.T) {
	ctx := context.Background()
	ex, svc := newExecutor(t)

	_, err := svc.Create(ctx, "alice", "secret")
	require.NoError(t, err)

	obs, err := ex.Execute(ctx, "mallory", tools.Operation{Kind: tools.OpDeleteNote, Ref: "1"})
	require.NoError(t, err)
	assert.False(t, obs.Success)
	assert.Equal(t, "Note #1 not found or you don't have permission to delete it", obs.Message)

	obs, err = ex.Execute(ctx, "mallory", tools.Operation{Kind: tools.OpUpdateNote, Ref: "#1", Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Note #1 not found or you don't have permission to update it", obs.Message)
}

func TestExecute_ValidationIsAFailedObservation(t *testing.T) {
	ex, _ := newExecutor(t)

	obs, err := ex.Execute(context.Background(), "alice", tools.Operation{Kind: tools.OpCreateNote, Text: " "})
	require.NoError(t, err)
	assert.False(t, obs.Success)
	assert.Equal(t, "Note text is required", obs.Message)
}

type failingNotes struct{ tools.NoteService }

func (failingNotes) List(context.Context, domain.UserID) ([]*domain.Note, error) {
	return nil, errors.Join(domain.ErrStore, errors.New("boom"))
}

func TestExecute_StoreErrorsAreReturned(t *testing.T) {
	ex := tools.NewExecutor(failingNotes{})

	_, err := ex.Execute(context.Background(), "alice", tools.Operation{Kind: tools.OpGetNotes})
	assert.ErrorIs(t, err, domain.ErrStore)

	_, err = ex.Execute(context.Background(), "alice", tools.Operation{Kind: "launchRockets"})
	assert.Error(t, err)
}

func TestParseOpKind(t *testing.T) {
	k, ok := tools.ParseOpKind(" getNotes() ")
	assert.True(t, ok)
	assert.Equal(t, tools.OpGetNotes, k)

	_, ok = tools.ParseOpKind("dropTable")
	assert.False(t, ok)
}
