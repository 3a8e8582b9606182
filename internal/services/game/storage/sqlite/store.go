// Package sqlite provides a SQLite-backed game event log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pairspace/pairspace/internal/platform/id"
	"github.com/pairspace/pairspace/internal/platform/storage/sqlitemigrate"
	"github.com/pairspace/pairspace/internal/services/game/domain/event"
	"github.com/pairspace/pairspace/internal/services/game/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists the game event log in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite event store and applies embedded migrations.
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

// AppendEvent appends one record and returns it with id and seq assigned.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	appended, err := appendInTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit append: %w", err)
	}
	return appended, nil
}

// AppendEvents appends every record in one transaction.
func (s *Store) AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("at least one event is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	appended := make([]event.Event, 0, len(events))
	for _, evt := range events {
		row, err := appendInTx(ctx, tx, evt)
		if err != nil {
			return nil, err
		}
		appended = append(appended, row)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch append: %w", err)
	}
	return appended, nil
}

func appendInTx(ctx context.Context, tx *sql.Tx, evt event.Event) (event.Event, error) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	if err := evt.ValidateForAppend(); err != nil {
		return event.Event{}, err
	}
	if evt.ID == "" {
		rowID, err := id.NewID()
		if err != nil {
			return event.Event{}, fmt.Errorf("generate event id: %w", err)
		}
		evt.ID = rowID
	}

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO game_events (id, owner_id, author_name, content, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		evt.ID,
		evt.OwnerID,
		evt.AuthorName,
		evt.Content,
		toMillis(evt.Timestamp),
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return event.Event{}, fmt.Errorf("read event seq: %w", err)
	}
	evt.Seq = uint64(seq)
	return evt, nil
}

// ListEventsByOwners returns events owned by any given participant,
// ascending by (timestamp, seq).
func (s *Store) ListEventsByOwners(ctx context.Context, ownerIDs []string) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	owners := make([]string, 0, len(ownerIDs))
	for _, ownerID := range ownerIDs {
		ownerID = strings.TrimSpace(ownerID)
		if ownerID != "" {
			owners = append(owners, ownerID)
		}
	}
	if len(owners) == 0 {
		return nil, fmt.Errorf("at least one owner id is required")
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(owners)), ",")
	args := make([]any, len(owners))
	for i, owner := range owners {
		args[i] = owner
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		fmt.Sprintf(`SELECT seq, id, owner_id, author_name, content, timestamp
		 FROM game_events
		 WHERE owner_id IN (%s)
		 ORDER BY timestamp ASC, seq ASC`, placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var seq int64
		var timestamp int64
		if err := rows.Scan(&seq, &evt.ID, &evt.OwnerID, &evt.AuthorName, &evt.Content, &timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Timestamp = fromMillis(timestamp)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
