// Package mongo implements domain.NoteStore on MongoDB with two collections:
// "notes" and "counters", whose "noteId" document's seq is incremented for
// every new note.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

const operationTimeout = 5 * time.Second

type noteDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Seq       int64              `bson:"noteId"`
	Text      string             `bson:"note"`
	UpdatedAt time.Time          `bson:"date"`
	Completed bool               `bson:"status"`
	OwnerID   string             `bson:"userId"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func (d noteDoc) toNote() *domain.Note {
	return &domain.Note{
		ID:        domain.NoteID(d.ID.Hex()),
		Seq:       d.Seq,
		Text:      d.Text,
		UpdatedAt: d.UpdatedAt,
		Completed: d.Completed,
		OwnerID:   domain.UserID(d.OwnerID),
	}
}

type Store struct {
	client   *mongo.Client
	notes    *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// NewStore connects to uri and ensures the indexes exist.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if database == "" {
		database = "quicknotes"
	}

	connectCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		notes:    db.Collection("notes"),
		counters: db.Collection("counters"),
		now:      time.Now,
	}

	_, err = s.notes.Indexes().CreateMany(connectCtx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "noteId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: create indexes: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateNote(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return nil, err
	}

	doc := noteDoc{
		Seq:       seq,
		Text:      text,
		UpdatedAt: s.now().UTC().Truncate(time.Millisecond),
		OwnerID:   string(owner),
	}
	res, err := s.notes.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: insert note: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toNote(), nil
}

func (s *Store) GetNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var doc noteDoc
	err := s.notes.FindOne(ctx, refFilter(owner, ref)).Decode(&doc)
	if err != nil {
		return nil, mapErr("get note", err)
	}
	return doc.toNote(), nil
}

func (s *Store) ListNotes(ctx context.Context, owner domain.UserID) ([]*domain.Note, error) {
	return s.find(ctx, bson.M{"userId": string(owner)})
}

func (s *Store) SearchNotes(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error) {
	return s.find(ctx, bson.M{
		"userId": string(owner),
		"note":   primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	})
}

func (s *Store) UpdateNoteText(ctx context.Context, owner domain.UserID, ref string, text string) (*domain.Note, error) {
	return s.update(ctx, owner, ref, bson.M{"note": text})
}

func (s *Store) UpdateNoteStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error) {
	return s.update(ctx, owner, ref, bson.M{"status": completed})
}

func (s *Store) DeleteNote(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var doc noteDoc
	err := s.notes.FindOneAndDelete(ctx, refFilter(owner, ref)).Decode(&doc)
	if err != nil {
		return nil, mapErr("delete note", err)
	}
	return doc.toNote(), nil
}

func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counterDoc
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": domain.NoteCounterName},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("mongo: next seq: %w", err)
	}
	return c.Seq, nil
}

func (s *Store) update(ctx context.Context, owner domain.UserID, ref string, set bson.M) (*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	set["date"] = s.now().UTC().Truncate(time.Millisecond)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc noteDoc
	err := s.notes.FindOneAndUpdate(ctx, refFilter(owner, ref), bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mapErr("update note", err)
	}
	return doc.toNote(), nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]*domain.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "noteId", Value: -1}})
	cur, err := s.notes.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find notes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []noteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode notes: %w", err)
	}

	out := make([]*domain.Note, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toNote())
	}
	return out, nil
}

// refFilter matches the owner's note by number or by ObjectID hex.
func refFilter(owner domain.UserID, ref string) bson.M {
	ref = strings.TrimSpace(ref)

	var alts bson.A
	if seq, ok := domain.ParseSeq(ref); ok {
		alts = append(alts, bson.M{"noteId": seq})
	}
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		alts = append(alts, bson.M{"_id": oid})
	}

	filter := bson.M{"userId": string(owner)}
	switch len(alts) {
	case 0:
		// Nothing can match; keep the query well-formed.
		filter["_id"] = primitive.NilObjectID
	case 1:
		for k, v := range alts[0].(bson.M) {
			filter[k] = v
		}
	default:
		filter["$or"] = alts
	}
	return filter
}

func mapErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("mongo: %s: %w", op, err)
}
