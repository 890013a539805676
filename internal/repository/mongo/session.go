package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository implements domain.SessionRepository on MongoDB
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) collection() *mongo.Collection {
	return r.db.db.Collection(sessionsCollection)
}

// Create persists a new session record
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if _, err := r.collection().InsertOne(ctx, session); err != nil {
		return fmt.Errorf("%w: insert session: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Get looks up a session by its ID
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection().FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", domain.ErrPersistence, err)
	}
	return &session, nil
}

// FindByConversation looks up a session by (userId, conversationId)
func (r *SessionRepository) FindByConversation(ctx context.Context, userID, conversationID string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection().FindOne(ctx, bson.M{
		"userId":         userID,
		"conversationId": conversationID,
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find session: %v", domain.ErrPersistence, err)
	}
	return &session, nil
}

// Update writes the full session record; last writer wins
func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	res, err := r.collection().ReplaceOne(ctx, bson.M{"sessionId": session.SessionID}, session)
	if err != nil {
		return fmt.Errorf("%w: update session: %v", domain.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Touch updates currentAgent and lastActivityAt only
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, agent domain.AgentType, at time.Time) error {
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"sessionId": sessionID},
		bson.M{"$set": bson.M{"currentAgent": agent, "lastActivityAt": at}},
	)
	if err != nil {
		return fmt.Errorf("%w: touch session: %v", domain.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
