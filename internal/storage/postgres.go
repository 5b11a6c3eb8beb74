// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shelfmate/internal/library"
)

// PostgresStore keeps one JSONB row per user. It implements
// library.RecordStore for multi-device installs backed by a shared database.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore wraps an open database handle. Call EnsureSchema once at
// startup.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("shelfmate/storage"),
	}
}

// EnsureSchema creates the record table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_records (
			user_id    TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create user_records table: %w", err)
	}
	return nil
}

// GetRecord loads the user's record, returning a fresh empty record when the
// user has none yet.
func (s *PostgresStore) GetRecord(ctx context.Context, userID string) (*library.UserRecord, error) {
	ctx, span := s.tracer.Start(ctx, "storage.get_record",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM user_records WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("record.missing", true))
		return library.NewUserRecord(), nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query record for user %s: %w", userID, err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

// SaveRecord upserts the user's record.
func (s *PostgresStore) SaveRecord(ctx context.Context, userID string, rec *library.UserRecord) error {
	ctx, span := s.tracer.Start(ctx, "storage.save_record",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("record.books", len(rec.Books)),
			attribute.Int("record.active_loans", len(rec.ActiveLoans)),
		),
	)
	defer span.End()

	raw, err := encodeRecord(rec)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_records (user_id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET record = $2, updated_at = NOW()
	`, userID, raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert record for user %s: %w", userID, err)
	}
	return nil
}

// DeleteRecord removes the user's record. Deleting a missing record is not
// an error.
func (s *PostgresStore) DeleteRecord(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.delete_record",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_records WHERE user_id = $1`, userID,
	); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete record for user %s: %w", userID, err)
	}
	return nil
}
