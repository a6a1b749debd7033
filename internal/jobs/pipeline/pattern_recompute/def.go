package pattern_recompute

import (
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	insights services.InsightService
}

func New(baseLog *logger.Logger, insights services.InsightService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", services.JobTypePatternRecompute),
		insights: insights,
	}
}

func (p *Pipeline) Type() string { return services.JobTypePatternRecompute }
