package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// NoteStore is a simple in-memory implementation of domain.NoteStore.
// It is NOT persistent and is only suitable for development / local mode.
type NoteStore struct {
	mu       sync.RWMutex
	notes    map[domain.NoteID]*domain.Note
	counters map[string]int64
	now      func() time.Time
}

// NewNoteStore creates a new in-memory NoteStore.
func NewNoteStore() *NoteStore {
	return &NoteStore{
		notes:    make(map[domain.NoteID]*domain.Note),
		counters: make(map[string]int64),
		now:      time.Now,
	}
}

func (s *NoteStore) CreateNote(_ context.Context, owner domain.UserID, text string) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[domain.NoteCounterName]++

	n := &domain.Note{
		ID:        domain.NoteID(uuid.NewString()),
		Seq:       s.counters[domain.NoteCounterName],
		Text:      text,
		UpdatedAt: s.now(),
		OwnerID:   owner,
	}
	s.notes[n.ID] = n

	return clone(n), nil
}

func (s *NoteStore) GetNote(_ context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.find(owner, ref)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(n), nil
}

func (s *NoteStore) ListNotes(_ context.Context, owner domain.UserID) ([]*domain.Note, error) {
	return s.collect(owner, func(*domain.Note) bool { return true }), nil
}

func (s *NoteStore) SearchNotes(_ context.Context, owner domain.UserID, query string) ([]*domain.Note, error) {
	q := strings.ToLower(query)
	return s.collect(owner, func(n *domain.Note) bool {
		return strings.Contains(strings.ToLower(n.Text), q)
	}), nil
}

func (s *NoteStore) UpdateNoteText(_ context.Context, owner domain.UserID, ref string, text string) (*domain.Note, error) {
	return s.mutate(owner, ref, func(n *domain.Note) { n.Text = text })
}

func (s *NoteStore) UpdateNoteStatus(_ context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error) {
	return s.mutate(owner, ref, func(n *domain.Note) { n.Completed = completed })
}

func (s *NoteStore) DeleteNote(_ context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.find(owner, ref)
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.notes, n.ID)
	return clone(n), nil
}

// --- internal helpers --- //

func (s *NoteStore) mutate(owner domain.UserID, ref string, apply func(*domain.Note)) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.find(owner, ref)
	if !ok {
		return nil, domain.ErrNotFound
	}
	apply(n)
	n.UpdatedAt = s.now()
	return clone(n), nil
}

// find resolves ref as a note number first, then as a native ID.
// Callers must hold the lock.
func (s *NoteStore) find(owner domain.UserID, ref string) (*domain.Note, bool) {
	if seq, ok := domain.ParseSeq(ref); ok {
		for _, n := range s.notes {
			if n.Seq == seq && n.OwnerID == owner {
				return n, true
			}
		}
	}

	n, ok := s.notes[domain.NoteID(strings.TrimSpace(ref))]
	if !ok || n.OwnerID != owner {
		return nil, false
	}
	return n, true
}

func (s *NoteStore) collect(owner domain.UserID, keep func(*domain.Note) bool) []*domain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Note, 0)
	for _, n := range s.notes {
		if n.OwnerID == owner && keep(n) {
			out = append(out, clone(n))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

func clone(n *domain.Note) *domain.Note {
	c := *n
	return &c
}
