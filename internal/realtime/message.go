package realtime

type SSEEvent string

const (
	SSEEventPatternsUpdated SSEEvent = "PatternsUpdated"
	SSEEventBurnoutUpdated  SSEEvent = "BurnoutUpdated"
	SSEEventGoalUpdated     SSEEvent = "GoalUpdated"

	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"
)

// SSEMessage is one event addressed to a channel. User channels are keyed by the user id.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
