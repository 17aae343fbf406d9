package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/quicknotes-agent/internal/app/assistant"
	"github.com/PabloGalante/quicknotes-agent/internal/app/conversation"
	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/notes"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedLLM returns its replies in order, then fallback.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	fallback string
	err      error
	delay    time.Duration
	calls    [][]domain.Turn

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *scriptedLLM) GenerateReply(_ context.Context, transcript []domain.Turn) (string, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transcript)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return f.fallback, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *scriptedLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	svc   *assistant.Service
	notes *notes.Service
	convs *conversation.Manager
	llm   *scriptedLLM
}

func newFixture(t *testing.T, llm *scriptedLLM) *fixture {
	t.Helper()
	if llm == nil {
		llm = &scriptedLLM{}
	}
	noteSvc := notes.NewService(memory.NewNoteStore())
	convs := conversation.NewManager("preamble")
	return &fixture{
		svc:   assistant.NewService(convs, llm, tools.NewExecutor(noteSvc), noteSvc, format.New(nil)),
		notes: noteSvc,
		convs: convs,
		llm:   llm,
	}
}

func (f *fixture) seed(t *testing.T, owner domain.UserID, texts ...string) {
	t.Helper()
	for _, txt := range texts {
		_, err := f.notes.Create(context.Background(), owner, txt)
		require.NoError(t, err)
	}
}

func (f *fixture) pending(t *testing.T, owner domain.UserID) domain.PendingState {
	t.Helper()
	s, ok := f.convs.Snapshot(owner)
	require.True(t, ok)
	return s.Pending
}

func TestResolve_PendingDeleteWithUnknownID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r := f.svc.Resolve(ctx, "alice", "delete this")
	assert.True(t, r.Success)
	assert.True(t, r.RequiresInput)
	assert.Equal(t, assistant.TypeOutput, r.Type)
	assert.Equal(t, format.AskDeleteTargetText, r.Message)
	assert.True(t, f.pending(t, "alice").Delete)

	r = f.svc.Resolve(ctx, "alice", "42")
	assert.True(t, r.Success)
	assert.Equal(t, "❌ Note #42 not found or you don't have permission to delete it", r.Message)
	assert.False(t, f.pending(t, "alice").Any())
	assert.Zero(t, f.llm.callCount())
}

func TestResolve_MarkCompleteWithoutModel(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "alice", "1", "2", "3", "4", "5", "6", "seven")

	r := f.svc.Resolve(context.Background(), "alice", "mark note 7 as complete")
	require.True(t, r.Success)
	assert.Equal(t, assistant.TypeResponse, r.Type)
	assert.Contains(t, r.Message, "✅ Note marked as completed")

	n, err := f.notes.Get(context.Background(), "alice", "7")
	require.NoError(t, err)
	assert.True(t, n.Completed)
	assert.Zero(t, f.llm.callCount())
}

func TestResolve_DirectDelete(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "alice", "a", "b", "c", "d", "e", "f", "g", "h", "to go")

	r := f.svc.Resolve(context.Background(), "alice", "delete note 9")
	require.True(t, r.Success)
	assert.Contains(t, r.Message, "✅ Note deleted successfully")
	assert.Contains(t, r.Message, "to go")
	assert.False(t, f.pending(t, "alice").Any())

	_, err := f.notes.Get(context.Background(), "alice", "9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_ForeignNoteIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "bob", "bob's note")

	r := f.svc.Resolve(context.Background(), "alice", "delete note 1")
	assert.True(t, r.Success)
	assert.Equal(t, "❌ Note #1 not found or you don't have permission to delete it", r.Message)

	_, err := f.notes.Get(context.Background(), "bob", "1")
	assert.NoError(t, err)
}

func TestResolve_UpdateContent(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "alice", "one", "two", "three")

	r := f.svc.Resolve(context.Background(), "alice", "update note 3 to: buy milk")
	require.True(t, r.Success)
	assert.Contains(t, r.Message, "✅")
	assert.Contains(t, r.Message, "buy milk")
	assert.Zero(t, f.llm.callCount())
}

func TestResolve_ClarifyThenAnswer(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "alice", "one", "two")
	ctx := context.Background()

	r := f.svc.Resolve(ctx, "alice", "2")
	assert.Equal(t, "Please provide the status for note #2 (true for complete, false for incomplete):", r.Message)
	assert.Equal(t, "2", f.pending(t, "alice").StatusRef)

	r = f.svc.Resolve(ctx, "alice", "done")
	assert.Contains(t, r.Message, "✅ Note marked as completed")
	assert.False(t, f.pending(t, "alice").Any())

	r = f.svc.Resolve(ctx, "alice", "update note 1")
	assert.True(t, r.RequiresInput)
	assert.Equal(t, "1", f.pending(t, "alice").ContentRef)

	r = f.svc.Resolve(ctx, "alice", "call the plumber")
	assert.Contains(t, r.Message, "call the plumber")
	assert.False(t, f.pending(t, "alice").Any())
}

func TestResolve_SearchWithoutHitsViaModel(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`Sure! {"type": "plan", "plan": "search"} then {"type": "action", "function": "searchNote", "input": "done"}`,
	}}
	f := newFixture(t, llm)
	f.seed(t, "alice", "buy milk")

	r := f.svc.Resolve(context.Background(), "alice", "show me notes containing done")
	require.True(t, r.Success)
	assert.Equal(t, assistant.TypeResponse, r.Type)
	assert.Contains(t, r.Message, `"done"`)
	assert.Contains(t, r.Message, "Try a different search term")
	assert.Contains(t, r.Message, "See all your notes")
	assert.Contains(t, r.Message, "Create a new note")

	// The user turn and the chosen envelope were committed.
	s, _ := f.convs.Snapshot("alice")
	require.Len(t, s.Transcript, 3)
	assert.Equal(t, `{"type":"user","user":"show me notes containing done"}`, s.Transcript[1].Content)
	assert.Equal(t, domain.RoleAssistant, s.Transcript[2].Role)
	assert.Contains(t, s.Transcript[2].Content, "searchNote")
}

func TestResolve_ModelOutputRequiresInput(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"type":"output","output":"What is the note about?"}`}}
	f := newFixture(t, llm)

	r := f.svc.Resolve(context.Background(), "alice", "add a note")
	assert.True(t, r.Success)
	assert.True(t, r.RequiresInput)
	assert.Equal(t, assistant.TypeOutput, r.Type)
	assert.Equal(t, "What is the note about?", r.Message)

	// The model saw the preamble followed by the user turn.
	require.Equal(t, 1, llm.callCount())
	sent := llm.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "preamble", sent[0].Content)
}

func TestResolve_CreateViaModel(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```json\n{\"type\":\"action\",\"function\":\"createNote\",\"input\":\"Finish my school assignment\"}\n```"}}
	f := newFixture(t, llm)

	r := f.svc.Resolve(context.Background(), "alice", "add a note to finish my school assignment")
	require.True(t, r.Success)
	assert.Contains(t, r.Message, "✅ Note created successfully")

	list, err := f.notes.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Finish my school assignment", list[0].Text)
}

func TestResolve_UpdateOverridePicksMostRecentHit(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"type":"output","output":"Which note do you mean?"}`}}
	f := newFixture(t, llm)
	f.seed(t, "alice", "call mom", "call mom tomorrow")

	r := f.svc.Resolve(context.Background(), "alice", "change call mom")
	require.True(t, r.Success)
	assert.Equal(t, assistant.TypeResponse, r.Type)
	assert.Contains(t, r.Message, "✅ Note updated successfully")

	// Both notes matched "call mom"; only the most recent one (#2) was rewritten.
	older, err := f.notes.Get(context.Background(), "alice", "1")
	require.NoError(t, err)
	assert.Equal(t, "call mom", older.Text)
	newer, err := f.notes.Get(context.Background(), "alice", "2")
	require.NoError(t, err)
	assert.Equal(t, "call mom", newer.Text)
}

func TestResolve_ModelFailureResetsPendingAndSkipsTranscript(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("quota exceeded")}
	f := newFixture(t, llm)
	ctx := context.Background()

	f.svc.Resolve(ctx, "alice", "5")
	require.Equal(t, "5", f.pending(t, "alice").StatusRef)

	r := f.svc.Resolve(ctx, "alice", "list my notes")
	assert.False(t, r.Success)
	assert.Equal(t, assistant.TypeError, r.Type)
	assert.Equal(t, format.UpstreamErrorText, r.Message)

	s, _ := f.convs.Snapshot("alice")
	assert.False(t, s.Pending.Any())
	assert.Len(t, s.Transcript, 1)
}

// brokenStore fails every delete with a backend error.
type brokenStore struct {
	*memory.NoteStore
}

func (brokenStore) DeleteNote(context.Context, domain.UserID, string) (*domain.Note, error) {
	return nil, errors.New("connection reset by peer")
}

func TestResolve_StoreFailureResetsPendingAndSkipsTranscript(t *testing.T) {
	llm := &scriptedLLM{}
	noteSvc := notes.NewService(brokenStore{memory.NewNoteStore()})
	convs := conversation.NewManager("preamble")
	svc := assistant.NewService(convs, llm, tools.NewExecutor(noteSvc), noteSvc, format.New(nil))
	ctx := context.Background()

	_, err := noteSvc.Create(ctx, "alice", "buy milk")
	require.NoError(t, err)

	r := svc.Resolve(ctx, "alice", "5")
	require.True(t, r.RequiresInput)
	before, ok := convs.Snapshot("alice")
	require.True(t, ok)
	require.Equal(t, "5", before.Pending.StatusRef)

	r = svc.Resolve(ctx, "alice", "delete note 1")
	assert.False(t, r.Success)
	assert.Equal(t, assistant.TypeError, r.Type)
	assert.Equal(t, format.StoreErrorText, r.Message)

	after, _ := convs.Snapshot("alice")
	assert.False(t, after.Pending.Any())
	assert.Equal(t, before.Transcript, after.Transcript)
	assert.Zero(t, llm.callCount())

	// The note survives the failed delete.
	n, err := noteSvc.Get(ctx, "alice", "1")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", n.Text)
}

func TestResolve_UnusableModelReplies(t *testing.T) {
	cases := []string{
		"",
		"I think you want your notes.",
		`{"type":"plan","plan":"think"}`,
		`{"type":"action","function":"dropDatabase","input":""}`,
	}
	for _, reply := range cases {
		t.Run(reply, func(t *testing.T) {
			llm := &scriptedLLM{replies: []string{reply}}
			f := newFixture(t, llm)

			r := f.svc.Resolve(context.Background(), "alice", "hello there")
			assert.False(t, r.Success)
			assert.Equal(t, format.UpstreamErrorText, r.Message)
		})
	}
}

func TestResolve_Validation(t *testing.T) {
	f := newFixture(t, nil)

	r := f.svc.Resolve(context.Background(), "", "list notes")
	assert.False(t, r.Success)
	assert.Equal(t, "User authentication required", r.Message)

	r = f.svc.Resolve(context.Background(), "alice", "   ")
	assert.False(t, r.Success)
	assert.Equal(t, "Message is required", r.Message)

	_, ok := f.convs.Snapshot("alice")
	assert.False(t, ok, "validation failures must not create a conversation")
}

func TestReset_TwiceEqualsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.Resolve(ctx, "alice", "delete something")
	require.True(t, f.pending(t, "alice").Delete)

	f.svc.Reset("alice")
	once, _ := f.convs.Snapshot("alice")
	f.svc.Reset("alice")
	twice, _ := f.convs.Snapshot("alice")

	assert.Equal(t, once, twice)
	assert.False(t, once.Pending.Any())
	assert.Len(t, once.Transcript, 1)

	f.svc.ResetAll()
	all, _ := f.convs.Snapshot("alice")
	assert.Equal(t, once, all)
}

func TestState(t *testing.T) {
	f := newFixture(t, nil)

	st := f.svc.State("alice")
	assert.Equal(t, domain.UserID("alice"), st.UserID)
	assert.False(t, st.Pending.Any())
	assert.Empty(t, st.Transcript)

	f.svc.Resolve(context.Background(), "alice", "delete this")
	st = f.svc.State("alice")
	assert.True(t, st.Pending.Delete)
	assert.Len(t, st.Transcript, 1)
}

func TestResolve_SameUserTurnsAreSerialized(t *testing.T) {
	llm := &scriptedLLM{
		fallback: `{"type":"information","message":"I'm Quick."}`,
		delay:    5 * time.Millisecond,
	}
	f := newFixture(t, llm)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			r := f.svc.Resolve(context.Background(), "alice", "who are you?")
			if !r.Success {
				return fmt.Errorf("turn failed: %s", r.Message)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), llm.maxInflight.Load())
	s, _ := f.convs.Snapshot("alice")
	assert.Len(t, s.Transcript, 1+8*2)
}

func TestResolve_DifferentUsersAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "alice", "alice note")

	f.svc.Resolve(context.Background(), "bob", "remove it")
	assert.True(t, f.pending(t, "bob").Delete)

	r := f.svc.Resolve(context.Background(), "alice", "1")
	assert.True(t, strings.HasPrefix(r.Message, "Please provide the status for note #1"))
	assert.True(t, f.pending(t, "bob").Delete)
}
