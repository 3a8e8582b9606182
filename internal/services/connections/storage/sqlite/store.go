// Package sqlite provides a SQLite-backed partner storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pairspace/pairspace/internal/platform/storage/sqlitemigrate"
	"github.com/pairspace/pairspace/internal/services/connections/storage"
	"github.com/pairspace/pairspace/internal/services/connections/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists partnerships in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite partner store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutPartnership upserts one partnership row.
func (s *Store) PutPartnership(ctx context.Context, partnership storage.Partnership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID := strings.TrimSpace(partnership.UserID)
	partnerID := strings.TrimSpace(partnership.PartnerID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if partnerID == "" {
		return fmt.Errorf("partner id is required")
	}
	if userID == partnerID {
		return fmt.Errorf("partner id must differ from user id")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO partnerships (user_id, partner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   partner_id = excluded.partner_id,
		   updated_at = excluded.updated_at`,
		userID,
		partnerID,
		toMillis(partnership.CreatedAt),
		toMillis(partnership.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put partnership: %w", err)
	}
	return nil
}

// ResolvePartner returns the partner linked to a user. The relationship
// may have been stored from either side, so the lookup is bidirectional.
func (s *Store) ResolvePartner(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	var partnerID string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT partner_id FROM partnerships WHERE user_id = ?`,
		userID,
	).Scan(&partnerID)
	if err == nil {
		return partnerID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve partner: %w", err)
	}

	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_id FROM partnerships WHERE partner_id = ?`,
		userID,
	).Scan(&partnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve partner: %w", err)
	}
	return partnerID, nil
}

// DeletePartnership removes the partnership row involving a user.
func (s *Store) DeletePartnership(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM partnerships WHERE user_id = ? OR partner_id = ?`,
		userID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete partnership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete partnership: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
