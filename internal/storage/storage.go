// Package storage defines the persistence interface for per-user data.
package storage

import (
	"context"

	"github.com/hyperjump/miftah/internal/models"
)

// UserStore persists favorites and preferences keyed by user id.
type UserStore interface {
	// Get returns the user's data or models.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.UserData, error)
	// Set replaces everything stored for the user.
	Set(ctx context.Context, data *models.UserData) error
	// Update merges patch into the stored data and returns the result.
	// Favorites are appended unless the same kind and record id is already
	// present; preferences are overwritten key by key.
	Update(ctx context.Context, patch *models.UserData) (*models.UserData, error)

	// Stats
	CountUsers(ctx context.Context) (int64, error)
	CountFavorites(ctx context.Context) (int64, error)

	Close() error
}
