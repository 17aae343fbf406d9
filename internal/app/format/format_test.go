package format_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

var stamp = time.Date(2024, 2, 21, 14, 30, 0, 0, time.UTC)

func TestRender_EmptyList(t *testing.T) {
	f := format.New(nil)
	got := f.Render(&tools.Observation{Op: tools.Operation{Kind: tools.OpGetNotes}, Success: true})
	assert.Equal(t, "You don't have any notes yet. Would you like to create one?", got)
}

func TestRender_ListEnumeratesAndTruncates(t *testing.T) {
	long := strings.Repeat("é", 100)
	f := format.New(nil)

	got := f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpGetNotes},
		Success: true,
		Notes: []*domain.Note{
			{Seq: 4, Text: "buy milk", UpdatedAt: stamp, Completed: true},
			{Seq: 2, Text: long, UpdatedAt: stamp},
		},
	})

	assert.True(t, strings.HasPrefix(got, "📋 Here are all your notes (2 total):"))
	assert.Contains(t, got, "1. 📝 Note: buy milk")
	assert.Contains(t, got, "#️⃣ Note ID: 4")
	assert.Contains(t, got, "Completed ✓")
	assert.Contains(t, got, "Pending ⏳")
	assert.Contains(t, got, "Feb 21, 2024 2:30 PM")
	assert.Contains(t, got, strings.Repeat("é", 80)+"…")
	assert.NotContains(t, got, strings.Repeat("é", 81))
	assert.True(t, strings.HasSuffix(got, "4. Delete a note"))
}

func TestRender_UsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	f := format.New(loc)

	got := f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpGetNotes},
		Success: true,
		Notes:   []*domain.Note{{Seq: 1, Text: "x", UpdatedAt: stamp}},
	})
	assert.Contains(t, got, "Feb 21, 2024 4:30 PM")
}

func TestRender_SearchWithoutHitsQuotesTerm(t *testing.T) {
	f := format.New(nil)
	got := f.Render(&tools.Observation{Op: tools.Operation{Kind: tools.OpSearchNote, Query: "done"}, Success: true})

	assert.Contains(t, got, `"done"`)
	assert.Contains(t, got, "Try a different search term")
	assert.Contains(t, got, "See all your notes")
	assert.Contains(t, got, "Create a new note")
}

func TestRender_SearchHitsAreCounted(t *testing.T) {
	f := format.New(nil)
	got := f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpSearchNote, Query: "milk"},
		Success: true,
		Notes:   []*domain.Note{{Seq: 3, Text: "buy milk", UpdatedAt: stamp}},
	})

	assert.Contains(t, got, `Search Results for "milk"`)
	assert.Contains(t, got, "Found Note #3: buy milk")
	assert.Contains(t, got, "Found 1 matching note(s).")
}

func TestRender_Mutations(t *testing.T) {
	f := format.New(nil)
	note := &domain.Note{Seq: 3, Text: "buy milk", UpdatedAt: stamp, Completed: true}

	cases := []struct {
		name string
		obs  tools.Observation
		want []string
	}{
		{
			name: "create",
			obs:  tools.Observation{Op: tools.Operation{Kind: tools.OpCreateNote}, Success: true, Message: "Note created successfully", Note: note},
			want: []string{"✅ Note created successfully", `"buy milk"`, "Note ID: 3"},
		},
		{
			name: "update",
			obs:  tools.Observation{Op: tools.Operation{Kind: tools.OpUpdateNote}, Success: true, Message: "Note updated successfully", Note: note},
			want: []string{"✅ Note updated successfully!", `New content: "buy milk"`},
		},
		{
			name: "status",
			obs:  tools.Observation{Op: tools.Operation{Kind: tools.OpUpdateNoteStatus}, Success: true, Message: "Note marked as completed", Note: note},
			want: []string{"✅ Note marked as completed!", "Completed ✓"},
		},
		{
			name: "delete",
			obs:  tools.Observation{Op: tools.Operation{Kind: tools.OpDeleteNote}, Success: true, Message: "Note deleted successfully", Note: note},
			want: []string{"✅ Note deleted successfully!", `Deleted note: "buy milk"`},
		},
		{
			name: "failure",
			obs:  tools.Observation{Op: tools.Operation{Kind: tools.OpDeleteNote}, Message: "Note #9 not found or you don't have permission to delete it"},
			want: []string{"❌ Note #9 not found or you don't have permission to delete it"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := f.Render(&tc.obs)
			for _, w := range tc.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestRender_RelaysTextVerbatim(t *testing.T) {
	f := format.New(nil)
	text := "say \"hi\"\nto mom \\ later"

	got := f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpUpdateNote},
		Success: true,
		Message: "Note updated successfully",
		Note:    &domain.Note{Seq: 1, Text: text, UpdatedAt: stamp},
	})
	assert.Contains(t, got, "New content: \""+text+"\"")
	assert.NotContains(t, got, `\"`)

	got = f.Render(&tools.Observation{Op: tools.Operation{Kind: tools.OpSearchNote, Query: `"milk"`}, Success: true})
	assert.Contains(t, got, `I searched for ""milk"" but`)

	got = f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpSearchNote, Query: "a\nb"},
		Success: true,
		Notes:   []*domain.Note{{Seq: 2, Text: "a\nb", UpdatedAt: stamp}},
	})
	assert.Contains(t, got, "Search Results for \"a\nb\"")
}

func TestRender_FailedSearchShowsMessage(t *testing.T) {
	f := format.New(nil)

	got := f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpSearchNote},
		Message: "Search query is required",
	})
	assert.Equal(t, "❌ Search query is required", got)

	got = f.Render(&tools.Observation{
		Op:      tools.Operation{Kind: tools.OpGetNotes},
		Message: "User authentication required",
	})
	assert.Equal(t, "❌ User authentication required", got)
}

func TestClarifications(t *testing.T) {
	f := format.New(nil)
	assert.Equal(t, format.AskDeleteTargetText, f.AskDeleteTarget())
	assert.Equal(t, "Please provide the status for note #5 (true for complete, false for incomplete):", f.AskStatus("5"))
	require.Contains(t, f.AskContent("7"), "#7")
}
