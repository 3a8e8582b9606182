package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pairspace/pairspace/internal/services/connections/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "connections.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func putTestPartnership(t *testing.T, store *Store, userID, partnerID string) {
	t.Helper()
	now := time.Now()
	err := store.PutPartnership(context.Background(), storage.Partnership{
		UserID:    userID,
		PartnerID: partnerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("put partnership: %v", err)
	}
}

func TestResolvePartnerFromPrimarySide(t *testing.T) {
	store := newTestStore(t)
	putTestPartnership(t, store, "alice-id", "bob-id")

	partner, err := store.ResolvePartner(context.Background(), "alice-id")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if partner != "bob-id" {
		t.Fatalf("partner = %q, want bob-id", partner)
	}
}

func TestResolvePartnerFromPartnerSide(t *testing.T) {
	store := newTestStore(t)
	putTestPartnership(t, store, "alice-id", "bob-id")

	partner, err := store.ResolvePartner(context.Background(), "bob-id")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if partner != "alice-id" {
		t.Fatalf("partner = %q, want alice-id", partner)
	}
}

func TestResolvePartnerNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ResolvePartner(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutPartnershipRejectsSelfLink(t *testing.T) {
	store := newTestStore(t)
	err := store.PutPartnership(context.Background(), storage.Partnership{
		UserID:    "alice-id",
		PartnerID: "alice-id",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected self link to be rejected")
	}
}

func TestDeletePartnershipEitherSide(t *testing.T) {
	store := newTestStore(t)
	putTestPartnership(t, store, "alice-id", "bob-id")

	if err := store.DeletePartnership(context.Background(), "bob-id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.ResolvePartner(context.Background(), "alice-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}
