package tools

import (
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// OpKind names one of the note operations the assistant can invoke.
// The string values are the function names the model emits.
type OpKind string

const (
	OpCreateNote       OpKind = "createNote"
	OpGetNotes         OpKind = "getNotes"
	OpSearchNote       OpKind = "searchNote"
	OpUpdateNote       OpKind = "updateNote"
	OpUpdateNoteStatus OpKind = "updateNoteStatus"
	OpDeleteNote       OpKind = "deleteNote"
)

// AllOps lists the operations in catalogue order.
var AllOps = []OpKind{
	OpGetNotes,
	OpCreateNote,
	OpDeleteNote,
	OpSearchNote,
	OpUpdateNote,
	OpUpdateNoteStatus,
}

// ParseOpKind resolves a function name, ignoring surrounding blanks and a
// trailing "()".
func ParseOpKind(name string) (OpKind, bool) {
	name = strings.TrimSuffix(strings.TrimSpace(name), "()")
	for _, k := range AllOps {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Operation is a typed tool invocation. Only the fields relevant to Kind are set.
type Operation struct {
	Kind      OpKind
	Ref       string
	Text      string
	Query     string
	Completed bool
}

// Observation is the outcome of executing an Operation.
// A failed observation is a user-facing outcome (unknown note, bad input),
// not an error.
type Observation struct {
	Op      Operation
	Success bool
	Message string

	Note  *domain.Note
	Notes []*domain.Note
}
