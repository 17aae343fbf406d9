package assistant

import (
	"encoding/json"
	"strconv"

	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// ActionKind tells whether the model replied to the user or asked to run an operation.
type ActionKind int

const (
	// KindReply is a model question or answer ("output").
	KindReply ActionKind = iota + 1
	// KindInform is an identity or help answer ("information").
	KindInform
	// KindInvoke runs a note operation ("action").
	KindInvoke
)

// Action is what the resolver decided to do for one turn.
type Action struct {
	Kind    ActionKind
	Type    string
	Message string
	Op      tools.Operation

	// Raw is the envelope as chosen from the model reply.
	Raw string
}

// invokeAction builds an action envelope the model would have produced for op.
func invokeAction(op tools.Operation) Action {
	input := map[string]any{}
	if ref := op.Ref; ref != "" {
		if seq, ok := domain.ParseSeq(ref); ok {
			input["noteId"] = seq
		} else {
			input["_id"] = ref
		}
	}
	switch op.Kind {
	case tools.OpUpdateNote, tools.OpCreateNote:
		input["note"] = op.Text
	case tools.OpUpdateNoteStatus:
		input["status"] = op.Completed
	case tools.OpSearchNote:
		input["query"] = op.Query
	}

	raw, _ := json.Marshal(struct {
		Type     string         `json:"type"`
		Function string         `json:"function"`
		Input    map[string]any `json:"input"`
	}{Type: "action", Function: string(op.Kind), Input: input})

	return Action{Kind: KindInvoke, Type: "action", Op: op, Raw: string(raw)}
}

func refFromSeq(seq int64) string {
	return strconv.FormatInt(seq, 10)
}
