package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Ctx      context.Context
	Cancel   context.CancelFunc
	URL      string
	Database string
}

func NewMongoDB(url, database string) *MongoDB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	return &MongoDB{
		Ctx:      ctx,
		Cancel:   cancel,
		URL:      url,
		Database: database,
	}
}

func (m *MongoDB) Connect() error {
	client, err := mongo.Connect(m.Ctx, options.Client().ApplyURI(m.URL))
	if err != nil {
		return err
	}
	m.Client = client
	if err := m.Client.Ping(m.Ctx, nil); err != nil {
		return err
	}
	return m.ensureIndexes()
}

// ensureIndexes backs the history list, which is always read newest first.
func (m *MongoDB) ensureIndexes() error {
	_, err := m.Client.Database(m.Database).Collection("history").Indexes().CreateOne(m.Ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	return err
}

func (m *MongoDB) Disconnect() error {
	m.Cancel()
	// the connect timeout may have passed; disconnect with a fresh one
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) GetContext() context.Context {
	return m.Ctx
}
