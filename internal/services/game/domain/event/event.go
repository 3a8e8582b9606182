// Package event defines the append-only game log record and its payload codec.
//
// A record is owned by exactly one participant: queries are always scoped
// to owner ids, so a logically shared event (an invite) is materialized as
// two rows with identical content under both owners. Ownership therefore
// never identifies the author of an event; authorship travels in the
// payload where it matters.
package event

import (
	"fmt"
	"strings"
	"time"
)

// Event is one immutable record in the game log.
type Event struct {
	// ID is the storage identity of the row. Assigned on append.
	ID string
	// Seq is a per-log monotonic sequence assigned by storage on append.
	// It breaks ties between records created in the same millisecond.
	Seq uint64
	// OwnerID is the participant whose feed this row appears under.
	// For dual-materialized events this is NOT necessarily the author.
	OwnerID string
	// AuthorName is the display name of the true author, for attribution.
	AuthorName string
	// Content is the tagged payload as persisted. Decode it once at the
	// storage boundary; components downstream work with typed payloads.
	Content string
	// Timestamp orders the log. Storage rejects zero timestamps.
	Timestamp time.Time
}

// ValidateForAppend reports whether the event may be persisted.
func (e Event) ValidateForAppend() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// Payload returns the decoded payload for this event's content.
func (e Event) Payload() Payload {
	return Decode(e.Content)
}
