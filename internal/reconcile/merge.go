package reconcile

import (
	"maps"

	"github.com/JaimeStill/licita/internal/workspace"
)

// Merge combines a remote workspace with the local entry of the same id.
// Remote structural fields win; fields the remote record omits or cannot
// express keep their local value.
func Merge(remote workspace.Workspace, local *workspace.Workspace) workspace.Workspace {
	if local == nil {
		return remote
	}

	out := remote
	if out.Name == "" {
		out.Name = local.Name
	}
	if len(out.Sources) == 0 && len(local.Sources) > 0 {
		out.Sources = local.Clone().Sources
	}
	if out.Analysis == nil && local.Analysis != nil {
		out.Analysis = local.Analysis.Clone()
	}
	if out.TaxIdentity == nil && local.TaxIdentity != nil {
		t := *local.TaxIdentity
		out.TaxIdentity = &t
	}
	if out.CorporateAct == nil && local.CorporateAct != nil {
		c := *local.CorporateAct
		out.CorporateAct = &c
	}
	if out.LogoAsset == "" {
		out.LogoAsset = local.LogoAsset
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = local.CreatedAt
	}

	out.AuditChecklist = maps.Clone(local.AuditChecklist)
	out.ExcelProcessed = local.ExcelProcessed
	return out
}
