package domain

// Note is a single owner-scoped note.
type Note struct {
	ID NoteID `json:"id"`

	// Seq is the human-facing note number. It is assigned once from the
	// "noteId" counter when the note is created and never reused.
	Seq int64 `json:"note_id"`

	Text      string    `json:"note"`
	UpdatedAt Timestamp `json:"date"`
	Completed bool      `json:"status"`
	OwnerID   UserID    `json:"user_id"`
}

// NoteCounterName is the key of the monotonic counter backing Note.Seq.
const NoteCounterName = "noteId"
