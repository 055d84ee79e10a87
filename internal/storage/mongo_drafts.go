package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"studio/internal/domain"
)

const mongoTimeout = 10 * time.Second

// MongoDraftStore implements domain.DraftStore on a MongoDB collection so
// drafts can be shared between machines.
type MongoDraftStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// draftDoc is the stored form of a draft. The design is kept as JSON so
// its untyped metadata survives unchanged.
type draftDoc struct {
	ID         string    `bson:"_id"`
	RemoteID   string    `bson:"remote_id"`
	Name       string    `bson:"name"`
	ProductID  string    `bson:"product_id"`
	DesignJSON string    `bson:"design_json"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// NewMongoDraftStore connects to uri and uses the "drafts" collection of
// database.
func NewMongoDraftStore(ctx context.Context, uri, database string) (*MongoDraftStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("storage: drafts stored in mongo database %q", database)
	return &MongoDraftStore{
		client: client,
		coll:   client.Database(database).Collection("drafts"),
	}, nil
}

func (s *MongoDraftStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoDraftStore) SaveDraft(d *domain.Draft) error {
	d.UpdatedAt = time.Now()
	doc, err := toDraftDoc(d)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *MongoDraftStore) GetDraft(id string) (*domain.Draft, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var doc draftDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return fromDraftDoc(doc)
}

func (s *MongoDraftStore) ListDrafts() ([]domain.Draft, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	var docs []draftDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	drafts := make([]domain.Draft, 0, len(docs))
	for _, doc := range docs {
		d, err := fromDraftDoc(doc)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, nil
}

func (s *MongoDraftStore) DeleteDraft(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func toDraftDoc(d *domain.Draft) (draftDoc, error) {
	designJSON, err := json.Marshal(d.Design)
	if err != nil {
		return draftDoc{}, fmt.Errorf("marshal design: %w", err)
	}
	return draftDoc{
		ID:         d.ID,
		RemoteID:   d.RemoteID,
		Name:       d.Name,
		ProductID:  d.ProductID,
		DesignJSON: string(designJSON),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}, nil
}

func fromDraftDoc(doc draftDoc) (*domain.Draft, error) {
	d := &domain.Draft{
		ID:        doc.ID,
		RemoteID:  doc.RemoteID,
		Name:      doc.Name,
		ProductID: doc.ProductID,
		UpdatedAt: doc.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(doc.DesignJSON), &d.Design); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", doc.ID, err)
	}
	return d, nil
}
