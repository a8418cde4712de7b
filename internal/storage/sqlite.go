package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miftah/internal/models"
)

// SQLiteUserStore implements UserStore using SQLite.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" gives a private in-memory store.
func NewSQLiteUserStore(dbPath string) (*SQLiteUserStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection so an in-memory database is shared by every query
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteUserStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		preferences TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS favorites (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		record_id TEXT NOT NULL,
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, id),
		UNIQUE (user_id, kind, record_id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites(user_id);
	`
	_, err := db.Exec(schema)
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the user's data, favorites in insertion order.
func (s *SQLiteUserStore) Get(ctx context.Context, userID string) (*models.UserData, error) {
	return get(ctx, s.db, userID)
}

func get(ctx context.Context, q querier, userID string) (*models.UserData, error) {
	data := &models.UserData{UserID: userID}
	var prefsJSON string
	err := q.QueryRowContext(ctx,
		`SELECT preferences, updated_at FROM users WHERE user_id = ?`, userID,
	).Scan(&prefsJSON, &data.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefsJSON), &data.Preferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	if data.Preferences == nil {
		data.Preferences = map[string]string{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, kind, record_id, added_at FROM favorites
		 WHERE user_id = ? ORDER BY added_at, rowid`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data.Favorites = []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.Kind, &f.RecordID, &f.AddedAt); err != nil {
			return nil, err
		}
		data.Favorites = append(data.Favorites, f)
	}
	return data, rows.Err()
}

// Set replaces the user's favorites and preferences in a transaction.
func (s *SQLiteUserStore) Set(ctx context.Context, data *models.UserData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	data.UpdatedAt = time.Now().UTC()
	if err := upsertUser(ctx, tx, data.UserID, data.Preferences, data.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ?`, data.UserID); err != nil {
		return err
	}
	favorites, err := insertFavorites(ctx, tx, data.UserID, data.Favorites, data.UpdatedAt)
	if err != nil {
		return err
	}
	data.Favorites = favorites
	return tx.Commit()
}

// Update merges patch into the stored data, creating the user when absent.
func (s *SQLiteUserStore) Update(ctx context.Context, patch *models.UserData) (*models.UserData, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := get(ctx, tx, patch.UserID)
	if errors.Is(err, models.ErrNotFound) {
		current = &models.UserData{UserID: patch.UserID, Preferences: map[string]string{}}
	} else if err != nil {
		return nil, err
	}

	for k, v := range patch.Preferences {
		current.Preferences[k] = v
	}
	now := time.Now().UTC()
	if err := upsertUser(ctx, tx, patch.UserID, current.Preferences, now); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(current.Favorites))
	for _, f := range current.Favorites {
		seen[f.Key()] = true
	}
	var fresh []models.Favorite
	for _, f := range patch.Favorites {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		fresh = append(fresh, f)
	}
	added, err := insertFavorites(ctx, tx, patch.UserID, fresh, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	current.Favorites = append(current.Favorites, added...)
	current.UpdatedAt = now
	return current, nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, userID string, prefs map[string]string, at time.Time) error {
	if prefs == nil {
		prefs = map[string]string{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (user_id, preferences, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET preferences = excluded.preferences, updated_at = excluded.updated_at`,
		userID, string(prefsJSON), at,
	)
	return err
}

// insertFavorites assigns missing ids and timestamps, skips duplicates within
// the batch, and returns the favorites actually stored. Favorite ids are
// scoped to the user; a row the database ignores is not reported.
func insertFavorites(ctx context.Context, tx *sql.Tx, userID string, favorites []models.Favorite, at time.Time) ([]models.Favorite, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO favorites (id, user_id, kind, record_id, added_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	stored := make([]models.Favorite, 0, len(favorites))
	seen := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.AddedAt.IsZero() {
			f.AddedAt = at
		}
		f.AddedAt = f.AddedAt.UTC()
		res, err := stmt.ExecContext(ctx, f.ID, userID, string(f.Kind), f.RecordID, f.AddedAt)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 0 {
			continue
		}
		stored = append(stored, f)
	}
	return stored, nil
}

// CountUsers returns the number of stored users.
func (s *SQLiteUserStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountFavorites returns the number of stored favorites across users.
func (s *SQLiteUserStore) CountFavorites(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteUserStore) Close() error {
	return s.db.Close()
}
