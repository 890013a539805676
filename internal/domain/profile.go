package domain

import (
	"context"
	"time"
)

// UserProfile holds per-user preferences read on each turn.
type UserProfile struct {
	UserID            string    `bson:"userId" json:"userId"`
	DisplayName       string    `bson:"displayName,omitempty" json:"displayName,omitempty"`
	PreferredProvider string    `bson:"preferredProvider,omitempty" json:"preferredProvider,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProfileRepository defines user profile storage.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*UserProfile, error)
	Upsert(ctx context.Context, profile *UserProfile) error
}
