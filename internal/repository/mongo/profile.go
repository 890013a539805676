package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository implements domain.ProfileRepository on MongoDB
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) collection() *mongo.Collection {
	return r.db.db.Collection(profilesCollection)
}

// Get returns the profile for a user, or nil when none exists
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection().FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", domain.ErrPersistence, err)
	}
	return &profile, nil
}

// Upsert writes the profile keyed by userId
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	_, err := r.collection().ReplaceOne(ctx,
		bson.M{"userId": profile.UserID},
		profile,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert profile: %v", domain.ErrPersistence, err)
	}
	return nil
}
