package identity_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-mdmigrate/internal/identity"
	"github.com/google/uuid"
)

func TestUUID_Deterministic(t *testing.T) {
	a := identity.UUID("grc-migrate:test:1")
	b := identity.UUID("  grc-migrate:test:1 ")
	if a == uuid.Nil || a != b {
		t.Fatalf("expected stable non-nil uuid, got %s and %s", a, b)
	}
	if identity.UUID("") != uuid.Nil {
		t.Fatalf("blank key should map to nil uuid")
	}
}

func TestBatchUUID_IgnoresOrderAndDuplicates(t *testing.T) {
	at := time.Date(2018, 3, 14, 15, 9, 26, 500, time.UTC)
	a := identity.BatchUUID("Objective", "modified", []int64{7, 3, 3}, at)
	b := identity.BatchUUID("Objective", "modified", []int64{3, 7}, at.Add(100*time.Millisecond))
	if a != b {
		t.Fatalf("expected equal batch ids, got %s and %s", a, b)
	}
	if c := identity.BatchUUID("Objective", "deleted", []int64{3, 7}, at); c == a {
		t.Fatalf("action must change the batch id")
	}
}

func TestRunID_Unique(t *testing.T) {
	if identity.RunID() == identity.RunID() {
		t.Fatalf("expected distinct run ids")
	}
}
