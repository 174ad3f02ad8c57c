package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"uebergabe/models"
)

type MongoProtocolRepo struct {
	DB       *mongo.Client
	Database string
	Clock    Clock
}

func NewMongoProtocolRepo(db *mongo.Client, database string) *MongoProtocolRepo {
	return &MongoProtocolRepo{DB: db, Database: database}
}

type mongoDraft struct {
	Slot               string `bson:"_id"`
	models.DraftRecord `bson:",inline"`
}

func (r *MongoProtocolRepo) drafts() *mongo.Collection {
	return r.DB.Database(r.Database).Collection("drafts")
}

func (r *MongoProtocolRepo) history() *mongo.Collection {
	return r.DB.Database(r.Database).Collection("history")
}

func (r *MongoProtocolRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	rec := mongoDraft{Slot: draftSlot, DraftRecord: models.DraftRecord{Document: *doc, SavedAt: r.Clock.now()}}
	_, err := r.drafts().ReplaceOne(ctx, bson.M{"_id": draftSlot}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (r *MongoProtocolRepo) LoadDraft(ctx context.Context) (*models.Document, error) {
	var rec mongoDraft
	err := r.drafts().FindOne(ctx, bson.M{"_id": draftSlot}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return &rec.Document, nil
}

func (r *MongoProtocolRepo) DeleteDraft(ctx context.Context) error {
	if _, err := r.drafts().DeleteOne(ctx, bson.M{"_id": draftSlot}); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (r *MongoProtocolRepo) UpsertHistoryEntry(ctx context.Context, doc *models.Document, status models.Status, artifactRef *string) (*models.HistoryEntry, error) {
	prev, err := r.GetHistoryEntry(ctx, doc.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	e := models.MergeHistoryEntry(prev, doc, status, artifactRef, r.Clock.now())
	_, err = r.history().ReplaceOne(ctx, bson.M{"_id": e.ID}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert history entry: %w", err)
	}
	return e, nil
}

func (r *MongoProtocolRepo) ListHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.history().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer cur.Close(ctx)

	entries := []*models.HistoryEntry{}
	for cur.Next(ctx) {
		var e models.HistoryEntry
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, cur.Err()
}

func (r *MongoProtocolRepo) GetHistoryEntry(ctx context.Context, id string) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := r.history().FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return &e, nil
}

func (r *MongoProtocolRepo) DeleteHistoryEntry(ctx context.Context, id string) error {
	res, err := r.history().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
