package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/acp-registry/apiserver/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDocument is the stored form of the registry document.
type mongoDocument struct {
	Name      string    `bson:"_id"`
	Content   string    `bson:"content"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps the document as one record of a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	name       string
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg config.MongoConfig, name string) (*MongoStore, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" || strings.TrimSpace(cfg.Collection) == "" {
		return nil, errors.New("mongo database and collection are required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("document name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		name:       name,
	}, nil
}

func (m *MongoStore) Read(ctx context.Context) ([]byte, error) {
	var doc mongoDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": m.name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	return []byte(doc.Content), nil
}

func (m *MongoStore) Write(ctx context.Context, data []byte) error {
	doc := mongoDocument{
		Name:      m.name,
		Content:   string(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": m.name}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoStore) Name() string {
	return "mongo:" + m.collection.Name() + "/" + m.name
}

// Close disconnects the MongoDB client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
