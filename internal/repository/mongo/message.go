package mongo

import (
	"context"
	"fmt"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository implements domain.MessageRepository on MongoDB
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) collection() *mongo.Collection {
	return r.db.db.Collection(messagesCollection)
}

// Append inserts a message; messages are never updated or deleted here
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	if _, err := r.collection().InsertOne(ctx, message); err != nil {
		return fmt.Errorf("%w: append message: %v", domain.ErrPersistence, err)
	}
	return nil
}

// ListByConversation returns up to limit messages in ascending timestamp
// order, dropping the oldest when more exist
func (r *MessageRepository) ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	filter := bson.M{"userId": userID, "conversationId": conversationID}

	// Fetch the newest `limit` in descending order, then reverse.
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var newestFirst []domain.Message
	if err := cur.All(ctx, &newestFirst); err != nil {
		return nil, fmt.Errorf("%w: decode messages: %v", domain.ErrPersistence, err)
	}

	messages := make([]domain.Message, len(newestFirst))
	for i, m := range newestFirst {
		messages[len(newestFirst)-1-i] = m
	}
	return messages, nil
}

// Recent returns up to n messages in descending timestamp order
func (r *MessageRepository) Recent(ctx context.Context, userID, conversationID string, n int) ([]domain.Message, error) {
	filter := bson.M{"userId": userID, "conversationId": conversationID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(n))

	cur, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: recent messages: %v", domain.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("%w: decode messages: %v", domain.ErrPersistence, err)
	}
	return messages, nil
}
