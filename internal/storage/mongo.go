package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pricescout/internal/types"
)

// MongoStore persists order records in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

type mongoOrder struct {
	UserID    string            `bson:"user_id"`
	Product   types.ProductInfo `bson:"product_info"`
	CreatedAt time.Time         `bson:"created_at"`
}

// NewMongoStore connects to MongoDB.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) SaveOrder(ctx context.Context, userID string, info types.ProductInfo) error {
	doc := mongoOrder{
		UserID:    userID,
		Product:   info,
		CreatedAt: time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}
	s.logger.Debug("order saved", "user_id", userID)
	return nil
}

func (s *MongoStore) DistinctUsers(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "user_id", bson.D{})
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}

	users := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			users = append(users, id)
		}
	}
	return users, nil
}

func (s *MongoStore) OrdersSince(ctx context.Context, since time.Time) ([]types.OrderRecord, error) {
	filter := bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	defer cursor.Close(ctx)

	var records []types.OrderRecord
	for cursor.Next(ctx) {
		var doc mongoOrder
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn("skipping undecodable document", "error", err)
			continue
		}
		records = append(records, types.OrderRecord{
			UserID:    doc.UserID,
			Product:   doc.Product,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	return records, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
