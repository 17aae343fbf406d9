package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// MockLLM answers with the same JSON envelopes the real model is prompted
// to produce, using a few keyword rules. It is meant for local runs.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

var (
	searchRe = regexp.MustCompile(`(?i)\b(?:search|find|containing|about|for)\s+(?:notes?\s+)?(?:for\s+|about\s+|containing\s+)?["']?([^"']+?)["']?\s*$`)
	createRe = regexp.MustCompile(`(?i)^\s*(?:add|create|new|write)\s+(?:a\s+)?(?:new\s+)?note\s*(?:for|about|to|:)?\s*(.*)$`)
)

func (m *MockLLM) GenerateReply(_ context.Context, transcript []domain.Turn) (string, error) {
	msg := strings.TrimSpace(lastUserMessage(transcript))
	lower := strings.ToLower(msg)

	switch {
	case lower == "":
		return envelope("output", "output", "How can I help you with your notes?"), nil

	case strings.Contains(lower, "your name") || strings.Contains(lower, "who are you"):
		return envelope("information", "message", "Hi! I'm Quick, your Quick-Notes assistant. I can create, search, update and delete your notes."), nil

	case strings.Contains(lower, "search") || strings.Contains(lower, "find") || strings.Contains(lower, "containing"):
		if sm := searchRe.FindStringSubmatch(msg); sm != nil {
			return action("searchNote", strings.TrimSpace(sm[1])), nil
		}
		return envelope("output", "output", "What should I search for?"), nil

	case createRe.MatchString(msg):
		text := strings.TrimSpace(createRe.FindStringSubmatch(msg)[1])
		if text == "" {
			return envelope("output", "output", "What is the note about?"), nil
		}
		return action("createNote", text), nil

	case strings.Contains(lower, "note") && (strings.Contains(lower, "show") || strings.Contains(lower, "list") || strings.Contains(lower, "all")):
		return `{"type":"action","function":"getNotes","input":""}`, nil

	default:
		return envelope("output", "output", "I can create, list, search, update or delete notes. What would you like to do?"), nil
	}
}

// lastUserMessage unwraps the {"type":"user","user":...} content of the last user turn.
func lastUserMessage(transcript []domain.Turn) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		t := transcript[i]
		if t.Role != domain.RoleUser {
			continue
		}
		var u struct {
			Type string `json:"type"`
			User string `json:"user"`
		}
		if err := json.Unmarshal([]byte(t.Content), &u); err == nil && u.Type == "user" {
			return u.User
		}
		return t.Content
	}
	return ""
}

func envelope(typ, field, text string) string {
	b, _ := json.Marshal(map[string]string{"type": typ, field: text})
	return string(b)
}

func action(function, input string) string {
	b, _ := json.Marshal(map[string]string{"type": "action", "function": function, "input": input})
	return string(b)
}
