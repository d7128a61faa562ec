package episodes

import (
	"github.com/goliatone/go-mdmigrate/internal/migrate"
)

const (
	RevBaseline                   = "0001_baseline"
	RevContractsPolicies          = "0002_contracts_policies"
	RevScopeExternalColumns       = "0003_scope_external_columns"
	RevFiveObjExternalColumns     = "0004_fiveobj_external_columns"
	RevExternalMappings           = "0005_external_mappings"
	RevIssuetrackerComponents     = "0006_issuetracker_components"
	RevCAVAttributeObjectIDNN     = "0007_cav_attribute_object_id_nn"
	RevCAPreviousID               = "0008_ca_previous_id"
	RevCAExternalMappingsBackfill = "0009_ca_external_mappings_backfill"
	RevEvidences                  = "0010_evidences"
	RevScopeMarkdown              = "0011_scope_markdown"
	RevFiveObjMarkdown            = "0012_fiveobj_markdown"
	RevCommentsMarkdown           = "0013_comments_markdown"
	RevExternalComments           = "0014_external_comments"
	RevMoveExternalComments       = "0015_move_external_comments"
	RevInactivateOrphanWorkflows  = "0016_inactivate_orphan_workflows"
	RevDropOrphanCommentEdges     = "0017_drop_orphan_comment_edges"
)

// All returns the episode chain in application order. Each episode's
// DownRevision is the one before it.
func All() []migrate.Episode {
	chain := []migrate.Episode{
		baseline(),
		contractsPolicies(),
		scopeExternalColumns(),
		fiveObjExternalColumns(),
		externalMappings(),
		issuetrackerComponents(),
		cavAttributeObjectIDNN(),
		caPreviousID(),
		caExternalMappingsBackfill(),
		evidences(),
		scopeMarkdown(),
		fiveObjMarkdown(),
		commentsMarkdown(),
		externalComments(),
		moveExternalComments(),
		inactivateOrphanWorkflows(),
		dropOrphanCommentEdges(),
	}
	for i := 1; i < len(chain); i++ {
		chain[i].DownRevision = chain[i-1].Revision
	}
	return chain
}

// NewRegistry returns a validated registry holding All.
func NewRegistry() (*migrate.Registry, error) {
	return migrate.NewRegistry(All()...)
}
