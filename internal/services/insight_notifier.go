package services

import (
	"github.com/google/uuid"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/realtime"
	"github.com/yungbote/hearth-backend/internal/realtime/bus"
)

// InsightNotifier tells connected clients that derived insight state changed.
type InsightNotifier interface {
	PatternsUpdated(userID uuid.UUID, scope string, summary types.SummaryData)
	BurnoutUpdated(userID uuid.UUID, a types.BurnoutAssessment)
	GoalUpdated(userID uuid.UUID, state *types.SignalState)
}

type insightNotifier struct {
	publisher
}

func NewInsightNotifier(b bus.Bus, baseLog *logger.Logger) InsightNotifier {
	return &insightNotifier{publisher{bus: b, log: baseLog.With("service", "InsightNotifier")}}
}

func (n *insightNotifier) PatternsUpdated(userID uuid.UUID, scope string, summary types.SummaryData) {
	n.publish(userID, realtime.SSEEventPatternsUpdated, map[string]any{
		"scope":   scope,
		"summary": summary,
	})
}

func (n *insightNotifier) BurnoutUpdated(userID uuid.UUID, a types.BurnoutAssessment) {
	n.publish(userID, realtime.SSEEventBurnoutUpdated, map[string]any{
		"risk_level":           a.RiskLevel,
		"risk_score":           a.RiskScore,
		"trigger_shelter_mode": a.TriggerShelterMode,
	})
}

func (n *insightNotifier) GoalUpdated(userID uuid.UUID, state *types.SignalState) {
	if state == nil {
		return
	}
	n.publish(userID, realtime.SSEEventGoalUpdated, map[string]any{
		"id":           state.ID,
		"topic":        state.Topic,
		"display_name": state.DisplayName,
		"state":        state.State,
	})
}
