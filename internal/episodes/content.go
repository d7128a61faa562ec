package episodes

import (
	"context"
	"fmt"

	"github.com/goliatone/go-mdmigrate/internal/kinds"
	"github.com/goliatone/go-mdmigrate/internal/migrate"
	"github.com/goliatone/go-mdmigrate/internal/revisionless"
	"github.com/goliatone/go-mdmigrate/internal/richtext"
	"github.com/uptrace/bun"
)

const (
	workflowsTable = "workflows"
	workflowType   = "Workflow"
	relationType   = "Relationship"

	workflowActive   = "Active"
	workflowInactive = "Inactive"
)

func convertKinds(revision, description string, list func() []kinds.Kind) migrate.Episode {
	return migrate.Episode{
		Revision:    revision,
		Description: description,
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			touched, err := richtext.ConvertAll(ctx, op, list())
			if err != nil {
				return err
			}
			total := 0
			for _, ids := range touched {
				total += len(ids)
			}
			op.Logger.Debug("rich text converted", "rows", total, "kinds", len(touched))
			return nil
		},
	}
}

func scopeMarkdown() migrate.Episode {
	return convertKinds(RevScopeMarkdown, "rich text to markdown for scope objects", kinds.ScopeKinds)
}

func fiveObjMarkdown() migrate.Episode {
	return convertKinds(RevFiveObjMarkdown, "rich text to markdown for 5OBJ", kinds.FiveObjKinds)
}

func commentsMarkdown() migrate.Episode {
	return migrate.Episode{
		Revision:    RevCommentsMarkdown,
		Description: "comments attached to external kinds to markdown",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			for _, kind := range kinds.ExternalKinds() {
				if _, err := richtext.NewCommentConverter(kind).ConvertToMarkdown(ctx, op); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func externalComments() migrate.Episode {
	return migrate.Episode{
		Revision:    RevExternalComments,
		Description: "external_comments table",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			return richtext.CreateExternalCommentsTable(ctx, op.SQL)
		},
		Downgrade: func(ctx context.Context, op *migrate.Op) error {
			return op.SQL.DropTable(ctx, richtext.ExternalCommentsTable)
		},
	}
}

func moveExternalComments() migrate.Episode {
	return migrate.Episode{
		Revision:    RevMoveExternalComments,
		Description: "move comments of external kinds to external_comments",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			for _, kind := range kinds.ExternalKinds() {
				if _, err := richtext.NewCommentMover(kind).MoveToExternal(ctx, op); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func inactivateOrphanWorkflows() migrate.Episode {
	return migrate.Episode{
		Revision:    RevInactivateOrphanWorkflows,
		Description: "inactivate active workflows without cycles",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			var ids []int64
			if err := op.DB.NewRaw(
				"SELECT w.id FROM ? AS w WHERE w.status = ? AND NOT EXISTS (SELECT 1 FROM cycles AS c WHERE c.workflow_id = w.id) ORDER BY w.id",
				bun.Ident(workflowsTable), workflowActive,
			).Scan(ctx, &ids); err != nil {
				return err
			}
			if len(ids) > 0 {
				if _, err := op.SQL.Exec(ctx, "UPDATE ? SET status = ?, updated_at = ? WHERE id IN (?)",
					bun.Ident(workflowsTable), workflowInactive, op.Now(), bun.In(ids)); err != nil {
					return err
				}
			}
			if err := op.MarkBulk(ctx, ids, workflowType, revisionless.Modified); err != nil {
				return err
			}
			op.Logger.Info(fmt.Sprintf("%d rows moved to %s", len(ids), workflowsTable), "status", workflowInactive)
			return nil
		},
	}
}

func dropOrphanCommentEdges() migrate.Episode {
	return migrate.Episode{
		Revision:    RevDropOrphanCommentEdges,
		Description: "delete relationships pointing at missing comments",
		Upgrade: func(ctx context.Context, op *migrate.Op) error {
			var ids []int64
			if err := op.DB.NewRaw(
				"SELECT r.id FROM ? AS r WHERE "+
					"(r.source_type = ? AND NOT EXISTS (SELECT 1 FROM ? AS c WHERE c.id = r.source_id)) OR "+
					"(r.destination_type = ? AND NOT EXISTS (SELECT 1 FROM ? AS c WHERE c.id = r.destination_id)) ORDER BY r.id",
				bun.Ident(richtext.RelationshipsTable),
				richtext.CommentType, bun.Ident(richtext.CommentsTable),
				richtext.CommentType, bun.Ident(richtext.CommentsTable),
			).Scan(ctx, &ids); err != nil {
				return err
			}
			if len(ids) > 0 {
				if _, err := op.SQL.Exec(ctx, "DELETE FROM ? WHERE id IN (?)",
					bun.Ident(richtext.RelationshipsTable), bun.In(ids)); err != nil {
					return err
				}
			}
			if err := op.MarkBulk(ctx, ids, relationType, revisionless.Deleted); err != nil {
				return err
			}
			op.Logger.Info(fmt.Sprintf("%d rows moved to %s", len(ids), richtext.RelationshipsTable), "action", string(revisionless.Deleted))
			return nil
		},
	}
}
