package richtext_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/goliatone/go-mdmigrate/internal/richtext"
)

type externalCommentRow struct {
	ID          int64     `bun:"id"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at"`
}

type relationshipRow struct {
	SourceType      string `bun:"source_type"`
	SourceID        int64  `bun:"source_id"`
	DestinationType string `bun:"destination_type"`
	DestinationID   int64  `bun:"destination_id"`
}

func TestComments_ThreatScenario(t *testing.T) {
	ctx := context.Background()
	db := newLegacyDB(t)

	exec(t, db, "INSERT INTO threats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)", 9, "Threat 9", seededAt, seededAt)
	exec(t, db, "INSERT INTO comments (id, description, created_at, updated_at) VALUES (?, ?, ?, ?)", 42, "<i>done</i>", seededAt, seededAt)
	exec(t, db, "INSERT INTO comments (id, description, created_at, updated_at) VALUES (?, ?, ?, ?)", 43, "reverse <b>edge</b>", seededAt, seededAt)
	exec(t, db, "INSERT INTO comments (id, description, created_at, updated_at) VALUES (?, ?, ?, ?)", 44, "<p>on a market</p>", seededAt, seededAt)
	exec(t, db, "INSERT INTO relationships (source_type, source_id, destination_type, destination_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"Comment", 42, "Threat", 9, seededAt, seededAt)
	exec(t, db, "INSERT INTO relationships (source_type, source_id, destination_type, destination_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"Threat", 9, "Comment", 43, seededAt, seededAt)
	exec(t, db, "INSERT INTO relationships (source_type, source_id, destination_type, destination_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"Comment", 44, "Market", 1, seededAt, seededAt)

	threat := mustKind(t, "Threat")

	converted, err := richtext.NewCommentConverter(threat).ConvertToMarkdown(ctx, newOp(db))
	if err != nil {
		t.Fatalf("pass A: %v", err)
	}
	if len(converted) != 2 {
		t.Fatalf("expected comments 42 and 43, got %v", converted)
	}
	var description string
	if err := db.NewRaw("SELECT description FROM comments WHERE id = ?", 42).Scan(ctx, &description); err != nil {
		t.Fatalf("load comment: %v", err)
	}
	if description != "*done*" {
		t.Fatalf("unexpected description %q", description)
	}
	if err := db.NewRaw("SELECT description FROM comments WHERE id = ?", 44).Scan(ctx, &description); err != nil {
		t.Fatalf("load comment: %v", err)
	}
	if description != "<p>on a market</p>" {
		t.Fatalf("comments of other kinds must be left alone, got %q", description)
	}

	moved, err := richtext.NewCommentMover(threat).MoveToExternal(ctx, newOp(db))
	if err != nil {
		t.Fatalf("pass B: %v", err)
	}
	if len(moved) != 2 || moved[0] != 42 || moved[1] != 43 {
		t.Fatalf("unexpected moved ids %v", moved)
	}

	var external []externalCommentRow
	if err := db.NewRaw("SELECT id, description, created_at FROM external_comments ORDER BY id").Scan(ctx, &external); err != nil {
		t.Fatalf("load external comments: %v", err)
	}
	if len(external) != 2 || external[0].ID != 42 || external[0].Description != "*done*" || !external[0].CreatedAt.Equal(seededAt) {
		t.Fatalf("unexpected external comments %+v", external)
	}

	var remaining []int64
	if err := db.NewRaw("SELECT id FROM comments ORDER BY id").Scan(ctx, &remaining); err != nil {
		t.Fatalf("load comments: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != 44 {
		t.Fatalf("expected only comment 44 to remain, got %v", remaining)
	}

	var edges []relationshipRow
	if err := db.NewRaw("SELECT source_type, source_id, destination_type, destination_id FROM relationships ORDER BY id").Scan(ctx, &edges); err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if edges[0].SourceType != "ExternalComment" || edges[0].SourceID != 42 || edges[0].DestinationType != "Threat" {
		t.Fatalf("edge of 42 not relinked: %+v", edges[0])
	}
	if edges[1].DestinationType != "ExternalComment" || edges[1].DestinationID != 43 {
		t.Fatalf("edge of 43 not relinked: %+v", edges[1])
	}
	if edges[2].SourceType != "Comment" {
		t.Fatalf("unrelated edge changed: %+v", edges[2])
	}

	for _, want := range []struct {
		objectType string
		action     revisionless.Action
		count      int
	}{
		{"Comment", revisionless.Modified, 2},
		{"Comment", revisionless.Deleted, 2},
		{"ExternalComment", revisionless.Created, 2},
	} {
		markers, err := revisionless.List(ctx, db, revisionless.Filter{ObjectType: want.objectType, Action: want.action})
		if err != nil {
			t.Fatalf("markers: %v", err)
		}
		if len(markers) != want.count {
			t.Fatalf("expected %d %s %s markers, got %+v", want.count, want.objectType, want.action, markers)
		}
	}
}

func TestCommentMover_SkipsMissingComments(t *testing.T) {
	ctx := context.Background()
	db := newLegacyDB(t)
	exec(t, db, "INSERT INTO relationships (source_type, source_id, destination_type, destination_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"Comment", 77, "Policy", 1, seededAt, seededAt)

	moved, err := richtext.NewCommentMover(mustKind(t, "Policy")).MoveToExternal(ctx, newOp(db))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(moved) != 0 {
		t.Fatalf("nothing should move, got %v", moved)
	}
	var sourceType string
	if err := db.NewRaw("SELECT source_type FROM relationships").Scan(ctx, &sourceType); err != nil {
		t.Fatalf("load edge: %v", err)
	}
	if sourceType != "Comment" {
		t.Fatalf("dangling edge must be left for cleanup, got %s", sourceType)
	}
}

func TestEdge_Other(t *testing.T) {
	edge := richtext.Edge{
		Source:      richtext.Endpoint{Type: "Comment", ID: 42},
		Destination: richtext.Endpoint{Type: "Threat", ID: 9},
	}
	if other, ok := edge.Other("Threat"); !ok || other != (richtext.Endpoint{Type: "Comment", ID: 42}) {
		t.Fatalf("unexpected other end %+v", other)
	}
	if other, ok := edge.Other("Comment"); !ok || other.ID != 9 {
		t.Fatalf("unexpected other end %+v", other)
	}
	if _, ok := edge.Other("Market"); ok {
		t.Fatalf("edge does not touch Market")
	}
}
