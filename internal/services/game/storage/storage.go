// Package storage defines persistence contracts for the game event log.
package storage

import (
	"context"
	"errors"

	"github.com/pairspace/pairspace/internal/services/game/domain/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// EventStore persists the append-only game log.
//
// The store is the single ordering authority: it assigns a monotonic
// sequence on append and every listing returns records ascending by
// (timestamp, seq), so same-millisecond writes from two clients replay
// deterministically.
type EventStore interface {
	// AppendEvent appends one record and returns it with storage identity
	// and sequence set.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// AppendEvents appends a batch atomically: either every record is
	// durably recorded or none is. Used by the invite fan-out so a
	// proposal never materializes for only one participant.
	AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error)
	// ListEventsByOwners returns every record owned by any of the given
	// participants, ascending by (timestamp, seq). Always a fresh
	// snapshot.
	ListEventsByOwners(ctx context.Context, ownerIDs []string) ([]event.Event, error)
}
