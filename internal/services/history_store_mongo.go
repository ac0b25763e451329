package services

import (
	"context"
	"fmt"

	"companion/internal/database"
	"companion/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoHistoryStore reads history documents from MongoDB collections that
// mirror the SQL tables (snake_case fields, user_id string)
type MongoHistoryStore struct {
	mongoDB *database.MongoDB
}

// NewMongoHistoryStore creates a new Mongo-backed history store
func NewMongoHistoryStore(mongoDB *database.MongoDB) *MongoHistoryStore {
	return &MongoHistoryStore{mongoDB: mongoDB}
}

// Name identifies the backend in logs and health output
func (s *MongoHistoryStore) Name() string {
	return "mongo"
}

// Ping checks MongoDB connectivity
func (s *MongoHistoryStore) Ping(ctx context.Context) error {
	return s.mongoDB.Ping(ctx)
}

// recentByUser builds the filter and options shared by every history read
func recentByUser(userID, recencyField string, limit int) (bson.M, *options.FindOptions) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: recencyField, Value: -1}}).
		SetLimit(int64(limit))
	return filter, opts
}

// mongoQuery resolves the collection, filter and options for one source
func mongoQuery(source models.HistorySource, userID string, limit int) (string, bson.M, *options.FindOptions) {
	filter, opts := recentByUser(userID, source.RecencyColumn(), limit)
	return source.Table(), filter, opts
}

func findRecent[T any](ctx context.Context, s *MongoHistoryStore, source models.HistorySource, userID string, limit int) ([]T, error) {
	collection, filter, opts := mongoQuery(source, userID, limit)

	cursor, err := s.mongoDB.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var rows []T
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return rows, nil
}

// ListValueRatings returns the user's most recent value ratings
func (s *MongoHistoryStore) ListValueRatings(ctx context.Context, userID string, limit int) ([]models.ValueRating, error) {
	return findRecent[models.ValueRating](ctx, s, models.SourceValues, userID, limit)
}

// ListGoals returns the user's most recently created goals
func (s *MongoHistoryStore) ListGoals(ctx context.Context, userID string, limit int) ([]models.Goal, error) {
	return findRecent[models.Goal](ctx, s, models.SourceGoals, userID, limit)
}

// ListReflections returns the user's most recent daily reflections
func (s *MongoHistoryStore) ListReflections(ctx context.Context, userID string, limit int) ([]models.DailyReflection, error) {
	return findRecent[models.DailyReflection](ctx, s, models.SourceReflections, userID, limit)
}

// ListVisionItems returns the user's most recently created vision board items
func (s *MongoHistoryStore) ListVisionItems(ctx context.Context, userID string, limit int) ([]models.VisionItem, error) {
	return findRecent[models.VisionItem](ctx, s, models.SourceVisions, userID, limit)
}
