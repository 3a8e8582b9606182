// Package storage defines persistence contracts for partner relationships.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested partnership record is missing.
var ErrNotFound = errors.New("record not found")

// Partnership stores one linked pair of users. The row is written from
// one side, so lookups must try both columns.
type Partnership struct {
	UserID    string
	PartnerID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PartnerStore persists and resolves user partnerships.
type PartnerStore interface {
	PutPartnership(ctx context.Context, partnership Partnership) error
	// ResolvePartner returns the partner of the given user, trying the
	// user as the primary party first and as the partner-of side second.
	ResolvePartner(ctx context.Context, userID string) (string, error)
	DeletePartnership(ctx context.Context, userID string) error
}
