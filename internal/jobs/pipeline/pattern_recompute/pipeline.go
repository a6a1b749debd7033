package pattern_recompute

import (
	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/insights/patterns"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	category := jc.PayloadString("category")

	jc.Progress("patterns", 10, "Computing patterns")
	bundle, err := p.insights.RecomputePatterns(jc.Ctx, jc.Job.OwnerUserID, category)
	if err != nil {
		jc.Fail("patterns", err)
		return nil
	}
	if bundle == nil {
		jc.Succeed("skipped", map[string]any{
			"scope":   patterns.ScopeFor(category),
			"skipped": true,
			"reason":  "insufficient_entries",
		})
		return nil
	}
	jc.Succeed("done", map[string]any{
		"scope":          bundle.Scope,
		"entry_count":    bundle.EntryCount,
		"summary_items":  len(bundle.Summary.Items),
		"contradictions": len(bundle.Contradictions.Items),
	})
	return nil
}
