package models

import (
	"fmt"
	"time"
)

// Favorite is one record a user bookmarked.
type Favorite struct {
	ID       string     `json:"id"`
	Kind     RecordKind `json:"kind"`
	RecordID string     `json:"record_id"`
	AddedAt  time.Time  `json:"added_at"`
}

// Key identifies the bookmarked record independent of the favorite's own ID.
func (f *Favorite) Key() string {
	return string(f.Kind) + "/" + f.RecordID
}

// UserData is the per-user profile: favorites plus free-form preferences.
type UserData struct {
	UserID      string            `json:"user_id"`
	Favorites   []Favorite        `json:"favorites"`
	Preferences map[string]string `json:"preferences"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate checks the user id and every favorite.
func (u *UserData) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("user id is required: %w", ErrInvalid)
	}
	for i, f := range u.Favorites {
		switch f.Kind {
		case KindFact, KindVerse, KindNarration:
		default:
			return fmt.Errorf("favorite %d: unknown kind %q: %w", i, f.Kind, ErrInvalid)
		}
		if f.RecordID == "" {
			return fmt.Errorf("favorite %d: record id is required: %w", i, ErrInvalid)
		}
	}
	return nil
}
