package domain

import "context"

// LLMClient defines how the core application interacts with a generative model.
// The reply is free-form text; an empty string means the model produced nothing.
type LLMClient interface {
	GenerateReply(ctx context.Context, transcript []Turn) (string, error)
}

// NoteStore defines note persistence. Every method is scoped by owner, and
// ref is either the store-native ID or the decimal note number (Seq).
// Missing notes and notes of another owner both yield ErrNotFound.
type NoteStore interface {
	CreateNote(ctx context.Context, owner UserID, text string) (*Note, error)
	GetNote(ctx context.Context, owner UserID, ref string) (*Note, error)

	// ListNotes and SearchNotes return most recently modified notes first.
	ListNotes(ctx context.Context, owner UserID) ([]*Note, error)
	SearchNotes(ctx context.Context, owner UserID, query string) ([]*Note, error)

	UpdateNoteText(ctx context.Context, owner UserID, ref string, text string) (*Note, error)
	UpdateNoteStatus(ctx context.Context, owner UserID, ref string, completed bool) (*Note, error)
	DeleteNote(ctx context.Context, owner UserID, ref string) (*Note, error)
}
