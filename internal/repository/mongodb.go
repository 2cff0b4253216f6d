package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/m2tx/manualchat/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTranscriptArchive implements TranscriptArchive using MongoDB, one
// document per session.
type MongoTranscriptArchive struct {
	collection *mongo.Collection
}

// NewMongoTranscriptArchive creates a new MongoTranscriptArchive.
// collectionName defaults to "transcripts" if empty.
func NewMongoTranscriptArchive(db *mongo.Database, collectionName string) *MongoTranscriptArchive {
	if collectionName == "" {
		collectionName = "transcripts"
	}
	return &MongoTranscriptArchive{
		collection: db.Collection(collectionName),
	}
}

func (r *MongoTranscriptArchive) Append(ctx context.Context, sessionID string, exchange model.Exchange) error {
	filter := bson.M{"_id": sessionID}
	update := appendUpdate(exchange, time.Now().UTC())
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("repository: append exchange to %q: %w", sessionID, err)
	}

	return nil
}

func (r *MongoTranscriptArchive) Delete(ctx context.Context, sessionID string) error {
	filter := bson.M{"_id": sessionID}

	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("repository: delete transcript %q: %w", sessionID, err)
	}

	return nil
}

func appendUpdate(exchange model.Exchange, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"exchanges": exchange},
		"$set":  bson.M{"updated_at": now},
	}
}

// Connect opens a MongoDB client for uri and returns the archive over
// database/collection along with a function that disconnects the client.
func Connect(ctx context.Context, uri, database, collection string) (*MongoTranscriptArchive, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("repository: connect: %w", err)
	}
	return NewMongoTranscriptArchive(client.Database(database), collection), client.Disconnect, nil
}
