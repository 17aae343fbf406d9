package notes

import (
	"context"
	"errors"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

// Service holds the logic of reading and writing a user's notes.
// Every call is scoped to owner.
type Service struct {
	store domain.NoteStore
}

// NewService creates a notes service from a NoteStore
func NewService(store domain.NoteStore) *Service {
	return &Service{
		store: store,
	}
}

func (s *Service) Create(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("note", "Note text is required")
	}

	n, err := s.store.CreateNote(ctx, owner, text)
	if err != nil {
		return nil, s.fail(ctx, "create note", owner, err)
	}

	observability.LoggerFromContext(ctx).Info("note created", "user_id", owner, "note_id", n.Seq)
	return n, nil
}

func (s *Service) Get(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	if err := requireOwnerAndRef(owner, ref); err != nil {
		return nil, err
	}

	n, err := s.store.GetNote(ctx, owner, strings.TrimSpace(ref))
	if err != nil {
		return nil, s.fail(ctx, "get note", owner, err)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	list, err := s.store.ListNotes(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "list notes", owner, err)
	}
	return list, nil
}

func (s *Service) Search(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "Search query is required")
	}

	hits, err := s.store.SearchNotes(ctx, owner, query)
	if err != nil {
		return nil, s.fail(ctx, "search notes", owner, err)
	}

	observability.LoggerFromContext(ctx).Debug("notes searched", "user_id", owner, "hits", len(hits))
	return hits, nil
}

func (s *Service) UpdateText(ctx context.Context, owner domain.UserID, ref, text string) (*domain.Note, error) {
	if err := requireOwnerAndRef(owner, ref); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("note", "Note text is required")
	}

	n, err := s.store.UpdateNoteText(ctx, owner, strings.TrimSpace(ref), text)
	if err != nil {
		return nil, s.fail(ctx, "update note", owner, err)
	}

	observability.LoggerFromContext(ctx).Info("note updated", "user_id", owner, "note_id", n.Seq)
	return n, nil
}

func (s *Service) SetStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error) {
	if err := requireOwnerAndRef(owner, ref); err != nil {
		return nil, err
	}

	n, err := s.store.UpdateNoteStatus(ctx, owner, strings.TrimSpace(ref), completed)
	if err != nil {
		return nil, s.fail(ctx, "update note status", owner, err)
	}

	observability.LoggerFromContext(ctx).Info("note status updated", "user_id", owner, "note_id", n.Seq, "completed", completed)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	if err := requireOwnerAndRef(owner, ref); err != nil {
		return nil, err
	}

	n, err := s.store.DeleteNote(ctx, owner, strings.TrimSpace(ref))
	if err != nil {
		return nil, s.fail(ctx, "delete note", owner, err)
	}

	observability.LoggerFromContext(ctx).Info("note deleted", "user_id", owner, "note_id", n.Seq)
	return n, nil
}

// --- internal helpers --- //

// fail keeps ErrNotFound as is and marks everything else as a store failure.
func (s *Service) fail(ctx context.Context, op string, owner domain.UserID, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	observability.LoggerFromContext(ctx).Error("note store failed", "op", op, "user_id", owner, "error", err)
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return errors.Join(domain.ErrStore, err)
}

func requireOwner(owner domain.UserID) error {
	if strings.TrimSpace(string(owner)) == "" {
		return domain.NewValidationError("user_id", "User authentication required")
	}
	return nil
}

func requireOwnerAndRef(owner domain.UserID, ref string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if strings.TrimSpace(ref) == "" {
		return domain.NewValidationError("id", "Note ID is required")
	}
	return nil
}
