package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aidevlab/aidev-chat/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sessionsCollection = "sessions"
	messagesCollection = "messages"
	profilesCollection = "profiles"
)

// DB wraps the Mongo client and database handle
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDB connects to MongoDB and prepares the collections' indexes
func NewDB(ctx context.Context, cfg config.MongoConfig) (*DB, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	db := &DB{client: client, db: client.Database(cfg.Database)}
	if err := db.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	sessions := d.db.Collection(sessionsCollection)
	_, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Secondary lookup by (userId, conversationId).
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "conversationId", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	messages := d.db.Collection(messagesCollection)
	_, err = messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "conversationId", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			// Store-side retention; mirrors the 90-day TTL on each message.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	profiles := d.db.Collection(profilesCollection)
	_, err = profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create profile index: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used by readiness checks
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
