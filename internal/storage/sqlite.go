// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"shelfmate/internal/library"
)

// SQLiteStore keeps one JSON row per user in a local database file. It is
// the default for single-device installs and for the offline console.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and prepares the
// schema. Use ":memory:" for a throwaway store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS user_records (
			user_id    TEXT PRIMARY KEY,
			record     TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create user_records table: %w", err)
	}
	return nil
}

// GetRecord loads the user's record, returning a fresh empty record when the
// user has none yet.
func (s *SQLiteStore) GetRecord(ctx context.Context, userID string) (*library.UserRecord, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM user_records WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return library.NewUserRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record for user %s: %w", userID, err)
	}
	return decodeRecord(raw)
}

// SaveRecord upserts the user's record.
func (s *SQLiteStore) SaveRecord(ctx context.Context, userID string, rec *library.UserRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_records (user_id, record, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET record = excluded.record, updated_at = CURRENT_TIMESTAMP
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("upsert record for user %s: %w", userID, err)
	}
	return nil
}

// DeleteRecord removes the user's record. Deleting a missing record is not
// an error.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_records WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("delete record for user %s: %w", userID, err)
	}
	return nil
}
