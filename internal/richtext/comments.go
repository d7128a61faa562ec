package richtext

import (
	"context"
	"errors"
	"fmt"
	"slices"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/logging"
	"github.com/goliatone/go-mdmigrate/internal/markdown"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/uptrace/bun"
)

const (
	CommentType         = "Comment"
	ExternalCommentType = "ExternalComment"

	CommentsTable         = "comments"
	ExternalCommentsTable = "external_comments"
	RelationshipsTable    = "relationships"

	orphanedCommentCode = "EXTERNAL_COMMENT_WITHOUT_EDGE"
)

// CommentColumns are copied verbatim from comments to external_comments.
var CommentColumns = []string{"id", "description", "assignee_type", "context_id", "created_at", "updated_at", "modified_by_id"}

// Endpoint is one end of a polymorphic relationship edge.
type Endpoint struct {
	Type string
	ID   int64
}

// Edge is a relationships row. Edges are undirected: a comment may sit on
// either side.
type Edge struct {
	ID          int64
	Source      Endpoint
	Destination Endpoint
}

// Other returns the endpoint opposite to the one of type endType.
func (e Edge) Other(endType string) (Endpoint, bool) {
	switch {
	case e.Source.Type == endType:
		return e.Destination, true
	case e.Destination.Type == endType:
		return e.Source, true
	default:
		return Endpoint{}, false
	}
}

type edgeRow struct {
	ID              int64  `bun:"id"`
	SourceType      string `bun:"source_type"`
	SourceID        int64  `bun:"source_id"`
	DestinationType string `bun:"destination_type"`
	DestinationID   int64  `bun:"destination_id"`
}

func (r edgeRow) edge() Edge {
	return Edge{
		ID:          r.ID,
		Source:      Endpoint{Type: r.SourceType, ID: r.SourceID},
		Destination: Endpoint{Type: r.DestinationType, ID: r.DestinationID},
	}
}

// edgesBetween loads every edge joining an endpoint of typeA to one of typeB,
// in either direction.
func edgesBetween(ctx context.Context, db bun.IDB, typeA, typeB string) ([]Edge, error) {
	var rows []edgeRow
	err := db.NewRaw(
		"SELECT id, source_type, source_id, destination_type, destination_id FROM ? "+
			"WHERE (source_type = ? AND destination_type = ?) OR (source_type = ? AND destination_type = ?)",
		bun.Ident(RelationshipsTable), typeA, typeB, typeB, typeA,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, row.edge())
	}
	return edges, nil
}

// attachedCommentIDs returns the distinct ids of comments linked to objects
// of objectType, sorted ascending.
func attachedCommentIDs(ctx context.Context, db bun.IDB, objectType string) ([]int64, error) {
	edges, err := edgesBetween(ctx, db, CommentType, objectType)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(edges))
	for _, edge := range edges {
		if other, ok := edge.Other(objectType); ok && other.Type == CommentType {
			ids = append(ids, other.ID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// CommentConverter rewrites the comments attached to one kind.
type CommentConverter struct {
	kind kinds.Kind
}

// NewCommentConverter returns the comment converter for kind.
func NewCommentConverter(kind kinds.Kind) *CommentConverter {
	return &CommentConverter{kind: kind}
}

type commentRow struct {
	ID          int64  `bun:"id"`
	Description string `bun:"description"`
}

// ConvertToMarkdown rewrites the description of every attached comment that
// still has markup and records the ids as modified Comments.
func (c *CommentConverter) ConvertToMarkdown(ctx context.Context, op *migrate.Op) ([]int64, error) {
	attached, err := attachedCommentIDs(ctx, op.DB, c.kind.ObjectType)
	if err != nil {
		return nil, err
	}

	var rows []commentRow
	if len(attached) > 0 {
		where, args := op.SQL.MatchAny(markdown.TagExpression, "description")
		query := "SELECT id, description FROM ? WHERE id IN (?) AND (" + where + ")"
		all := append([]any{bun.Ident(CommentsTable), bun.In(attached)}, args...)
		if err := op.DB.NewRaw(query, all...).Scan(ctx, &rows); err != nil {
			return nil, err
		}
	}

	now := op.Now()
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, err := op.DB.ExecContext(ctx,
			"UPDATE ? SET description = ?, updated_at = ? WHERE id = ?",
			bun.Ident(CommentsTable), markdown.FromHTML(row.Description), now, row.ID,
		); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}

	if err := op.MarkBulk(ctx, ids, CommentType, revisionless.Modified); err != nil {
		return nil, err
	}
	logging.WithKind(op.RichTextLogger(), c.kind.ObjectType, c.kind.Table).
		Info(fmt.Sprintf("Processing -> %s: %d comments migrated", c.kind.ObjectType, len(ids)))
	return ids, nil
}

// CommentMover moves the comments attached to one kind into
// external_comments.
type CommentMover struct {
	kind kinds.Kind
}

// NewCommentMover returns the mover for kind.
func NewCommentMover(kind kinds.Kind) *CommentMover {
	return &CommentMover{kind: kind}
}

// ErrCommentWithoutEdge is returned when a copied comment ends up with no
// relationship, which rolls the move back.
var ErrCommentWithoutEdge = errors.New("external comment has no relationship")

// MoveToExternal copies the attached comments into external_comments with
// the same ids, relinks every edge of those comments to ExternalComment,
// checks each copy kept at least one edge and only then deletes the
// originals. It returns the moved ids.
func (m *CommentMover) MoveToExternal(ctx context.Context, op *migrate.Op) ([]int64, error) {
	attached, err := attachedCommentIDs(ctx, op.DB, m.kind.ObjectType)
	if err != nil {
		return nil, err
	}
	var ids []int64
	if len(attached) > 0 {
		// Edges may outlive their comment; only rows that exist are moved.
		if err := op.DB.NewRaw("SELECT id FROM ? WHERE id IN (?) ORDER BY id",
			bun.Ident(CommentsTable), bun.In(attached)).Scan(ctx, &ids); err != nil {
			return nil, err
		}
	}
	logger := logging.WithKind(op.RichTextLogger(), m.kind.ObjectType, m.kind.Table)
	if len(ids) == 0 {
		logger.Info(fmt.Sprintf("0 rows moved to %s", ExternalCommentsTable))
		return nil, nil
	}

	columns := make([]any, 0, 2*len(CommentColumns))
	for _, column := range CommentColumns {
		columns = append(columns, bun.Ident(column))
	}
	list := placeholders(len(CommentColumns))
	copyArgs := append([]any{bun.Ident(ExternalCommentsTable)}, columns...)
	copyArgs = append(copyArgs, columns...)
	copyArgs = append(copyArgs, bun.Ident(CommentsTable), bun.In(ids))
	if _, err := op.DB.ExecContext(ctx,
		"INSERT INTO ? ("+list+") SELECT "+list+" FROM ? WHERE id IN (?)", copyArgs...,
	); err != nil {
		return nil, err
	}

	for _, side := range []string{"source", "destination"} {
		if _, err := op.DB.ExecContext(ctx,
			"UPDATE ? SET ? = ? WHERE ? = ? AND ? IN (?)",
			bun.Ident(RelationshipsTable),
			bun.Ident(side+"_type"), ExternalCommentType,
			bun.Ident(side+"_type"), CommentType,
			bun.Ident(side+"_id"), bun.In(ids),
		); err != nil {
			return nil, err
		}
	}

	if err := verifyLinked(ctx, op.DB, ids); err != nil {
		return nil, err
	}

	if _, err := op.DB.ExecContext(ctx, "DELETE FROM ? WHERE id IN (?)", bun.Ident(CommentsTable), bun.In(ids)); err != nil {
		return nil, err
	}
	if err := op.MarkBulk(ctx, ids, CommentType, revisionless.Deleted); err != nil {
		return nil, err
	}
	if err := op.MarkBulk(ctx, ids, ExternalCommentType, revisionless.Created); err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("%d rows moved to %s", len(ids), ExternalCommentsTable))
	return ids, nil
}

func verifyLinked(ctx context.Context, db bun.IDB, ids []int64) error {
	var linked []int64
	err := db.NewRaw(
		"SELECT DISTINCT id FROM (SELECT source_id AS id FROM ? WHERE source_type = ? AND source_id IN (?) "+
			"UNION SELECT destination_id AS id FROM ? WHERE destination_type = ? AND destination_id IN (?)) AS linked",
		bun.Ident(RelationshipsTable), ExternalCommentType, bun.In(ids),
		bun.Ident(RelationshipsTable), ExternalCommentType, bun.In(ids),
	).Scan(ctx, &linked)
	if err != nil {
		return err
	}
	if len(linked) == len(ids) {
		return nil
	}
	var missing []int64
	for _, id := range ids {
		if !slices.Contains(linked, id) {
			missing = append(missing, id)
		}
	}
	return goerrors.Wrap(fmt.Errorf("%w: %v", ErrCommentWithoutEdge, missing), goerrors.CategoryValidation,
		"external comments must keep their relationships").
		WithTextCode(orphanedCommentCode)
}

func placeholders(n int) string {
	marks := make([]byte, 0, 3*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			marks = append(marks, ", "...)
		}
		marks = append(marks, '?')
	}
	return string(marks)
}
