package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/app/intent"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

var (
	ErrNoStructuredResponse = fmt.Errorf("%w: no response from model", domain.ErrUpstreamModel)
	ErrNoValidAction        = fmt.Errorf("%w: no valid action found in response", domain.ErrUpstreamModel)
	ErrInvalidTool          = fmt.Errorf("%w: invalid tool", domain.ErrUpstreamModel)
)

// envelope is the JSON object the model answers with.
type envelope struct {
	Type     string          `json:"type"`
	Message  string          `json:"message,omitempty"`
	Output   string          `json:"output,omitempty"`
	Function string          `json:"function,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

type userEnvelope struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// Bridge sends the transcript to the model and decodes its reply into an Action.
type Bridge struct {
	llm domain.LLMClient
}

func NewBridge(llm domain.LLMClient) *Bridge {
	return &Bridge{llm: llm}
}

// Dispatch asks the model about message. It returns the decoded action and
// the user turn that was sent, so the caller can commit both on success.
func (b *Bridge) Dispatch(ctx context.Context, transcript []domain.Turn, message string) (Action, domain.Turn, error) {
	userTurn := UserTurn(message)

	outgoing := make([]domain.Turn, 0, len(transcript)+1)
	outgoing = append(outgoing, transcript...)
	outgoing = append(outgoing, userTurn)

	raw, err := b.llm.GenerateReply(ctx, outgoing)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamModel) {
			return Action{}, userTurn, err
		}
		return Action{}, userTurn, fmt.Errorf("%w: %w", domain.ErrUpstreamModel, err)
	}

	action, err := DecodeReply(raw)
	return action, userTurn, err
}

// UserTurn wraps message the way the model expects user input.
func UserTurn(message string) domain.Turn {
	content, _ := json.Marshal(userEnvelope{Type: "user", User: message})
	return domain.Turn{Role: domain.RoleUser, Content: string(content)}
}

// DecodeReply picks the first top-level JSON object in raw that is a usable
// envelope. Objects that do not decode, or carry another type, are skipped.
func DecodeReply(raw string) (Action, error) {
	if strings.TrimSpace(raw) == "" {
		return Action{}, ErrNoStructuredResponse
	}

	for _, candidate := range scanObjects(raw) {
		var env envelope
		if err := json.Unmarshal([]byte(candidate), &env); err != nil {
			continue
		}

		switch env.Type {
		case "output", "information":
			text := env.Message
			if text == "" {
				text = env.Output
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			kind := KindReply
			if env.Type == "information" {
				kind = KindInform
			}
			return Action{Kind: kind, Type: env.Type, Message: text, Raw: candidate}, nil

		case "action":
			kind, ok := tools.ParseOpKind(env.Function)
			if !ok {
				return Action{}, fmt.Errorf("%w: %s", ErrInvalidTool, env.Function)
			}
			op, err := decodeOperation(kind, env.Input)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %s input: %v", domain.ErrUpstreamModel, kind, err)
			}
			return Action{Kind: KindInvoke, Type: env.Type, Op: op, Raw: candidate}, nil
		}
	}

	return Action{}, ErrNoValidAction
}

// scanObjects returns the top-level balanced {...} substrings of s in order.
// Braces inside string literals are ignored.
func scanObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	return out
}

// toolInput is the object form of an action input. The model uses _id, noteId
// or id for the target note.
type toolInput struct {
	ID     flexString `json:"_id"`
	NoteID flexString `json:"noteId"`
	AltID  flexString `json:"id"`
	Note   string     `json:"note"`
	Query  string     `json:"query"`
	Status *flexBool  `json:"status"`
}

func (in toolInput) ref() string {
	for _, v := range []flexString{in.NoteID, in.ID, in.AltID} {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

func decodeOperation(kind tools.OpKind, raw json.RawMessage) (tools.Operation, error) {
	op := tools.Operation{Kind: kind}
	raw = bytes.TrimSpace(raw)

	var (
		scalar string
		obj    toolInput
	)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		if err := json.Unmarshal(raw, &obj); err != nil {
			return op, err
		}
	default:
		var s flexString
		if err := json.Unmarshal(raw, &s); err != nil {
			return op, err
		}
		scalar = strings.TrimSpace(string(s))
	}

	switch kind {
	case tools.OpGetNotes:
	case tools.OpCreateNote:
		op.Text = firstNonEmpty(scalar, obj.Note)
	case tools.OpSearchNote:
		op.Query = firstNonEmpty(scalar, obj.Query, obj.Note)
	case tools.OpDeleteNote:
		op.Ref = firstNonEmpty(scalar, obj.ref())
	case tools.OpUpdateNote:
		op.Ref = obj.ref()
		op.Text = obj.Note
	case tools.OpUpdateNoteStatus:
		op.Ref = obj.ref()
		if obj.Status == nil {
			return op, errors.New("status is required")
		}
		op.Completed = bool(*obj.Status)
	}
	return op, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*f = flexString(n.String())
		return nil
	}
}

// flexBool accepts a JSON boolean or a status word such as "done".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected boolean, got %s", b)
	}
	if v, ok := intent.ParseStatus(s); ok {
		*f = flexBool(v)
		return nil
	}
	if v, err := strconv.ParseBool(s); err == nil {
		*f = flexBool(v)
		return nil
	}
	return fmt.Errorf("expected boolean, got %q", s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
