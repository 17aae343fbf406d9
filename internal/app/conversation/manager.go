package conversation

import (
	"sync"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// Manager owns the per-user assistant conversations. State lives in memory
// for the process lifetime.
type Manager struct {
	mu       sync.Mutex
	convs    map[domain.UserID]*Conversation
	preamble string
	maxTurns int
}

type Option func(*Manager)

// WithMaxTurns bounds the transcript length. 0 keeps every turn.
func WithMaxTurns(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxTurns = n
		}
	}
}

// NewManager creates a manager whose conversations start with preamble as
// their first transcript turn.
func NewManager(preamble string, opts ...Option) *Manager {
	m := &Manager{
		convs:    make(map[domain.UserID]*Conversation),
		preamble: preamble,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the user's conversation, creating it on first use.
func (m *Manager) GetOrCreate(userID domain.UserID) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.convs[userID]
	if !ok {
		c = m.newConversation(userID)
		m.convs[userID] = c
	}
	return c
}

// Reset restores one user's conversation to its initial form.
// Unknown users are ignored.
func (m *Manager) Reset(userID domain.UserID) {
	m.mu.Lock()
	c, ok := m.convs[userID]
	m.mu.Unlock()
	if !ok {
		return
	}

	c.Lock()
	defer c.Unlock()
	c.reset()
}

// ResetAll restores every conversation.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	all := make([]*Conversation, 0, len(m.convs))
	for _, c := range m.convs {
		all = append(all, c)
	}
	m.mu.Unlock()

	for _, c := range all {
		c.Lock()
		c.reset()
		c.Unlock()
	}
}

// Snapshot returns a copy of the user's state, if a conversation exists.
func (m *Manager) Snapshot(userID domain.UserID) (domain.ConversationState, bool) {
	m.mu.Lock()
	c, ok := m.convs[userID]
	m.mu.Unlock()
	if !ok {
		return domain.ConversationState{}, false
	}

	c.Lock()
	defer c.Unlock()
	return domain.ConversationState{
		UserID:     userID,
		Pending:    c.pending,
		Transcript: c.Transcript(),
	}, true
}

func (m *Manager) newConversation(userID domain.UserID) *Conversation {
	c := &Conversation{
		userID:   userID,
		preamble: m.preamble,
		maxTurns: m.maxTurns,
	}
	c.reset()
	return c
}

// Conversation is one user's state. Callers hold Lock for a whole turn;
// the accessors below assume it is held.
type Conversation struct {
	mu sync.Mutex

	userID     domain.UserID
	preamble   string
	maxTurns   int
	pending    domain.PendingState
	transcript []domain.Turn
}

func (c *Conversation) Lock()   { c.mu.Lock() }
func (c *Conversation) Unlock() { c.mu.Unlock() }

func (c *Conversation) UserID() domain.UserID { return c.userID }

func (c *Conversation) Pending() domain.PendingState { return c.pending }

func (c *Conversation) SetPendingDelete() {
	c.pending = domain.PendingState{Delete: true}
}

func (c *Conversation) SetPendingStatus(ref string) {
	c.pending = domain.PendingState{StatusRef: ref}
}

func (c *Conversation) SetPendingContent(ref string) {
	c.pending = domain.PendingState{ContentRef: ref}
}

func (c *Conversation) ClearPending() {
	c.pending = domain.PendingState{}
}

// Transcript returns a copy of the turns, preamble first.
func (c *Conversation) Transcript() []domain.Turn {
	out := make([]domain.Turn, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Append adds turns and drops the oldest non-preamble turns beyond maxTurns.
func (c *Conversation) Append(turns ...domain.Turn) {
	c.transcript = append(c.transcript, turns...)

	if c.maxTurns <= 0 || len(c.transcript) <= c.maxTurns+1 {
		return
	}
	drop := len(c.transcript) - (c.maxTurns + 1)
	trimmed := make([]domain.Turn, 0, c.maxTurns+1)
	trimmed = append(trimmed, c.transcript[0])
	trimmed = append(trimmed, c.transcript[1+drop:]...)
	c.transcript = trimmed
}

func (c *Conversation) reset() {
	c.pending = domain.PendingState{}
	c.transcript = []domain.Turn{{Role: domain.RoleUser, Content: c.preamble}}
}
