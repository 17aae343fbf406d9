package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (QUICKNOTES_FIRESTORE_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) notesCol() *firestore.CollectionRef {
	return s.client.Collection("notes")
}

func (s *Store) counterDoc() *firestore.DocumentRef {
	return s.client.Collection("counters").Doc(domain.NoteCounterName)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type noteDoc struct {
	Seq       int64     `firestore:"seq"`
	OwnerID   string    `firestore:"owner_id"`
	Text      string    `firestore:"note"`
	Completed bool      `firestore:"status"`
	UpdatedAt time.Time `firestore:"date"`
}

type counterDoc struct {
	Seq int64 `firestore:"seq"`
}

func toNote(id string, doc noteDoc) *domain.Note {
	return &domain.Note{
		ID:        domain.NoteID(id),
		Seq:       doc.Seq,
		Text:      doc.Text,
		UpdatedAt: doc.UpdatedAt,
		Completed: doc.Completed,
		OwnerID:   domain.UserID(doc.OwnerID),
	}
}

// ─────────────────────────────────────────
// NoteStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateNote(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error) {
	ref := s.notesCol().NewDoc()
	doc := noteDoc{
		OwnerID:   string(owner),
		Text:      text,
		UpdatedAt: s.now(),
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var c counterDoc
		snap, err := tx.Get(s.counterDoc())
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if err := snap.DataTo(&c); err != nil {
				return fmt.Errorf("decode counter: %w", err)
			}
		}

		c.Seq++
		doc.Seq = c.Seq
		if err := tx.Set(s.counterDoc(), c); err != nil {
			return err
		}
		return tx.Create(ref, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("firestore CreateNote: %w", err)
	}

	return toNote(ref.ID, doc), nil
}

func (s *Store) GetNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	snap, err := s.resolve(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (s *Store) ListNotes(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	return s.collect(ctx, owner, func(*domain.Note) bool { return true })
}

// SearchNotes filters client-side: Firestore has no substring match.
func (s *Store) SearchNotes(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error) {
	q := strings.ToLower(query)
	return s.collect(ctx, owner, func(n *domain.Note) bool {
		return strings.Contains(strings.ToLower(n.Text), q)
	})
}

func (s *Store) UpdateNoteText(ctx context.Context, owner domain.UserID, ref string, text string) (*domain.Note, error) {
	return s.update(ctx, owner, ref, "note", text)
}

func (s *Store) UpdateNoteStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error) {
	return s.update(ctx, owner, ref, "status", completed)
}

func (s *Store) DeleteNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	snap, err := s.resolve(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	n, err := decode(snap)
	if err != nil {
		return nil, err
	}

	if _, err := snap.Ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore DeleteNote: %w", err)
	}
	return n, nil
}

// ─────────────────────────────────────────
// Internals
// ─────────────────────────────────────────

func (s *Store) update(ctx context.Context, owner domain.UserID, ref, field string, value interface{}) (*domain.Note, error) {
	snap, err := s.resolve(ctx, owner, ref)
	if err != nil {
		return nil, err
	}

	_, err = snap.Ref.Update(ctx, []firestore.Update{
		{Path: field, Value: value},
		{Path: "date", Value: s.now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore update %s: %w", field, err)
	}

	fresh, err := snap.Ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore reload note: %w", err)
	}
	return decode(fresh)
}

// resolve finds the owner's note by number first, then by document ID.
func (s *Store) resolve(ctx context.Context, owner domain.UserID, ref string) (*firestore.DocumentSnapshot, error) {
	if seq, ok := domain.ParseSeq(ref); ok {
		iter := s.notesCol().
			Where("seq", "==", seq).
			Where("owner_id", "==", string(owner)).
			Limit(1).
			Documents(ctx)
		snap, err := iter.Next()
		iter.Stop()
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, iterator.Done) {
			return nil, fmt.Errorf("firestore resolve note: %w", err)
		}
	}

	id := strings.TrimSpace(ref)
	if id == "" || strings.Contains(id, "/") {
		return nil, domain.ErrNotFound
	}

	snap, err := s.notesCol().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetNote: %w", err)
	}
	if owned, _ := snap.DataAt("owner_id"); owned != string(owner) {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

func (s *Store) collect(ctx context.Context, owner domain.UserID, keep func(*domain.Note) bool) ([]*domain.Note, error) {
	iter := s.notesCol().Where("owner_id", "==", string(owner)).Documents(ctx)
	defer iter.Stop()

	out := make([]*domain.Note, 0)
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore list notes: %w", err)
		}

		n, err := decode(snap)
		if err != nil {
			return nil, err
		}
		if keep(n) {
			out = append(out, n)
		}
	}

	// Sorted here so no composite index is required.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func decode(snap *firestore.DocumentSnapshot) (*domain.Note, error) {
	var doc noteDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode noteDoc: %w", err)
	}
	return toNote(snap.Ref.ID, doc), nil
}
