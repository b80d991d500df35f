package repository

import (
	"context"
	"time"

	"socialcredit-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBAuditRepository implements AuditRepository for MongoDB
type MongoDBAuditRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBAuditRepository creates a new MongoDB audit repository
func NewMongoDBAuditRepository(uri, dbName, collectionName string) (*MongoDBAuditRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	collection := client.Database(dbName).Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, err
	}

	return &MongoDBAuditRepository{
		client:     client,
		collection: collection,
	}, nil
}

// InsertAuditEvent inserts a new audit entry
func (r *MongoDBAuditRepository) InsertAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

// GetAuditEvents returns audit entries newest first with pagination
func (r *MongoDBAuditRepository) GetAuditEvents(ctx context.Context, limit, offset int) ([]model.AuditEvent, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var events []model.AuditEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, err
	}

	// Ensure not nil slice for JSON
	if events == nil {
		events = []model.AuditEvent{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return events, count, nil
}

// Close closes the MongoDB connection
func (r *MongoDBAuditRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ AuditRepository = (*MongoDBAuditRepository)(nil)
