package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

func userTurn(text string) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Content: `{"type":"user","user":"` + text + `"}`}
}

func TestMockLLM_Envelopes(t *testing.T) {
	m := NewMockLLM()
	ctx := context.Background()

	cases := []struct {
		msg  string
		want string
	}{
		{"show me all my notes", `{"type":"action","function":"getNotes","input":""}`},
		{"show me notes containing done", `{"function":"searchNote","input":"done","type":"action"}`},
		{"find notes about work", `{"function":"searchNote","input":"work","type":"action"}`},
		{"add a note to buy milk", `{"function":"createNote","input":"buy milk","type":"action"}`},
		{"add a note", `{"output":"What is the note about?","type":"output"}`},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			got, err := m.GenerateReply(ctx, []domain.Turn{{Role: domain.RoleUser, Content: "preamble"}, userTurn(tc.msg)})
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, got)
		})
	}
}

func TestMockLLM_IdentityIsInformation(t *testing.T) {
	got, err := NewMockLLM().GenerateReply(context.Background(), []domain.Turn{userTurn("what's your name?")})
	require.NoError(t, err)
	assert.Contains(t, got, `"type":"information"`)
	assert.Contains(t, got, "Quick")
}

func TestToContents_MapsRoles(t *testing.T) {
	contents := toContents([]domain.Turn{
		{Role: domain.RoleUser, Content: "preamble"},
		{Role: domain.RoleAssistant, Content: `{"type":"output","output":"hi"}`},
		{Role: domain.RoleUser, Content: ""},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "preamble", contents[0].Parts[0].Text)
}

func TestNewGeminiClient_RequiresCredentials(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.Error(t, err)
}

func TestBuildPreamble(t *testing.T) {
	p := BuildPreamble("")
	for _, tool := range []string{"getNotes", "createNote", "searchNote", "updateNote", "updateNoteStatus", "deleteNote"} {
		assert.Contains(t, p, tool)
	}
	assert.Contains(t, p, `"Quick"`)

	assert.Contains(t, BuildPreamble("Answer in Spanish."), "Additional instructions:\nAnswer in Spanish.")
}
