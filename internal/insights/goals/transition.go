package goals

import "github.com/yungbote/hearth-backend/internal/domain/journal"

// Transition applies an update to a goal state. ok is false for terminal states, which never
// move again. Mentions and progress on an already active goal only refresh freshness.
func Transition(cur journal.GoalState, u journal.UpdateType) (journal.GoalState, bool) {
	if cur.Terminal() {
		return cur, false
	}
	switch u {
	case journal.UpdateTermination:
		return journal.GoalAbandoned, true
	case journal.UpdateAchievement:
		return journal.GoalAchieved, true
	case journal.UpdateProgress:
		if cur == journal.GoalProposed {
			return journal.GoalActive, true
		}
		return cur, true
	default:
		return cur, true
	}
}

// User actions offered alongside abandonment contradictions.
const (
	ActionReactivate = "reactivate"
	ActionAchieve    = "achieve"
	ActionAbandon    = "abandon"
	ActionPause      = "pause"
)

func actionTarget(action string) (journal.GoalState, bool) {
	switch action {
	case ActionReactivate:
		return journal.GoalActive, true
	case ActionAchieve:
		return journal.GoalAchieved, true
	case ActionAbandon:
		return journal.GoalAbandoned, true
	case ActionPause:
		return journal.GoalPaused, true
	default:
		return "", false
	}
}
