package burnout_assess

import (
	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("burnout", 10, "Assessing burnout risk")
	a, err := p.insights.AssessBurnout(jc.Ctx, jc.Job.OwnerUserID, jc.PayloadBool("on_demand"))
	if err != nil {
		jc.Fail("burnout", err)
		return nil
	}
	jc.Succeed("done", map[string]any{
		"risk_level":        a.RiskLevel,
		"risk_score":        a.RiskScore,
		"shelter_mode":      a.TriggerShelterMode,
		"insufficient_data": a.InsufficientData,
	})
	return nil
}
