package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

// NoteService is the subset of the notes service the executor drives.
type NoteService interface {
	Create(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error)
	List(ctx context.Context, owner domain.UserID) ([]*domain.Note, error)
	Search(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error)
	UpdateText(ctx context.Context, owner domain.UserID, ref, text string) (*domain.Note, error)
	SetStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error)
	Delete(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error)
}

// Executor runs operations against the caller's notes.
type Executor struct {
	notes NoteService
}

func NewExecutor(notes NoteService) *Executor {
	return &Executor{notes: notes}
}

// Execute dispatches op for owner. Not-found and validation failures come
// back as failed observations; any other error is returned.
func (e *Executor) Execute(ctx context.Context, owner domain.UserID, op Operation) (*Observation, error) {
	log := observability.LoggerFromContext(ctx).With("user_id", owner, "op", op.Kind)

	var (
		obs = &Observation{Op: op}
		err error
	)

	switch op.Kind {
	case OpCreateNote:
		obs.Note, err = e.notes.Create(ctx, owner, op.Text)
		obs.Message = "Note created successfully"

	case OpGetNotes:
		obs.Notes, err = e.notes.List(ctx, owner)

	case OpSearchNote:
		obs.Notes, err = e.notes.Search(ctx, owner, op.Query)

	case OpUpdateNote:
		obs.Note, err = e.notes.UpdateText(ctx, owner, op.Ref, op.Text)
		obs.Message = "Note updated successfully"

	case OpUpdateNoteStatus:
		obs.Note, err = e.notes.SetStatus(ctx, owner, op.Ref, op.Completed)
		if op.Completed {
			obs.Message = "Note marked as completed"
		} else {
			obs.Message = "Note marked as pending"
		}

	case OpDeleteNote:
		obs.Note, err = e.notes.Delete(ctx, owner, op.Ref)
		obs.Message = "Note deleted successfully"

	default:
		return nil, fmt.Errorf("tools: unsupported operation %q", op.Kind)
	}

	switch {
	case err == nil:
		obs.Success = true
		log.Debug("operation executed")
		return obs, nil

	case errors.Is(err, domain.ErrNotFound):
		obs.Message = notFoundMessage(op)
		log.Info("operation target not found", "ref", op.Ref)
		return obs, nil

	case domain.IsValidation(err):
		obs.Message = err.Error()
		log.Info("operation rejected", "reason", err.Error())
		return obs, nil

	default:
		return nil, fmt.Errorf("tools: %s: %w", op.Kind, err)
	}
}

func notFoundMessage(op Operation) string {
	verb := "update"
	if op.Kind == OpDeleteNote {
		verb = "delete"
	}
	return fmt.Sprintf("Note #%s not found or you don't have permission to %s it", strings.TrimPrefix(op.Ref, "#"), verb)
}
