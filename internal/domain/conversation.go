package domain

// Turn is one role-tagged entry of the transcript sent to the model.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PendingState records which follow-up answer the previous turn asked for.
// At most one field is set at a time.
type PendingState struct {
	Delete     bool   `json:"pending_delete"`
	StatusRef  string `json:"pending_status_ref,omitempty"`
	ContentRef string `json:"pending_content_ref,omitempty"`
}

// Any reports whether one of the pending fields is set.
func (p PendingState) Any() bool {
	return p.Delete || p.StatusRef != "" || p.ContentRef != ""
}

// ConversationState is a copy of one user's assistant conversation.
type ConversationState struct {
	UserID     UserID       `json:"user_id"`
	Pending    PendingState `json:"pending"`
	Transcript []Turn       `json:"transcript"`
}
