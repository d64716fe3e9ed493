// Package mongodb implements storage interfaces using MongoDB
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-bluem/internal/storage"
)

// Store implements storage.NotificationStore using MongoDB
type Store struct {
	client        *mongo.Client
	db            *mongo.Database
	notifications *mongo.Collection
}

// Config holds MongoDB connection settings
type Config struct {
	URI        string
	Database   string
	Collection string
}

// NewStore connects to MongoDB and prepares the notification collection
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "notifications"
	}
	db := client.Database(cfg.Database)
	s := &Store{
		client:        client,
		db:            db,
		notifications: db.Collection(collection),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.notifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "entrance_code", Value: 1}}},
		{Keys: bson.D{{Key: "reference", Value: 1}, {Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "received_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating notification indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) SaveNotification(ctx context.Context, rec *storage.Record) error {
	_, err := s.notifications.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, rec.ID)
	}
	return err
}

func (s *Store) GetNotification(ctx context.Context, id string) (*storage.Record, error) {
	var rec storage.Record
	err := s.notifications.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListNotifications(ctx context.Context, filter *storage.RecordFilter) ([]*storage.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if filter != nil && filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.notifications.Find(ctx, Query(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*storage.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Query translates a filter into a MongoDB query document
func Query(filter *storage.RecordFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.EntranceCode != "" {
		query["entrance_code"] = filter.EntranceCode
	}
	if filter.Reference != "" {
		query["reference"] = filter.Reference
	}
	if filter.Since != nil {
		query["received_at"] = bson.M{"$gte": *filter.Since}
	}
	return query
}

var _ storage.NotificationStore = (*Store)(nil)
