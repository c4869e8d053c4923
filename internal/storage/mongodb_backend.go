package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const preferencesCollection = "preferences"

// MongoDBBackend stores one document per preference: {_id: key, value, updated_at}.
type MongoDBBackend struct {
	uri        string
	dbName     string
	client     *mongo.Client
	collection *mongo.Collection
}

type preferenceDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDBBackend creates a MongoDB storage backend
func NewMongoDBBackend(uri, dbName string) (*MongoDBBackend, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	if dbName == "" {
		dbName = "quotaflow"
	}
	return &MongoDBBackend{uri: uri, dbName: dbName}, nil
}

func (m *MongoDBBackend) Name() string { return "mongodb" }

// Initialize connects to MongoDB
func (m *MongoDBBackend) Initialize(ctx context.Context) error {
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(m.uri)
	clientOptions.SetMaxPoolSize(10)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.collection = client.Database(m.dbName).Collection(preferencesCollection)

	if _, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create preferences index: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB
func (m *MongoDBBackend) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Health pings the primary
func (m *MongoDBBackend) Health(ctx context.Context) error {
	if m.client == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *MongoDBBackend) GetPreference(ctx context.Context, key string) (string, error) {
	if m.collection == nil {
		return "", errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	var doc preferenceDoc
	if err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", &ErrNotFound{Key: key}
		}
		return "", err
	}
	return doc.Value, nil
}

func (m *MongoDBBackend) SetPreference(ctx context.Context, key, value string) error {
	if m.collection == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	doc := preferenceDoc{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoDBBackend) DeletePreference(ctx context.Context, key string) error {
	if m.collection == nil {
		return errNotInitialized
	}
	ctx, cancel := withStorageTimeout(ctx, defaultStorageTimeout)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &ErrNotFound{Key: key}
	}
	return nil
}
