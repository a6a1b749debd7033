package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/clients/redis"
	"github.com/yungbote/hearth-backend/internal/data/repos"
	httpx "github.com/yungbote/hearth-backend/internal/http"
	httpH "github.com/yungbote/hearth-backend/internal/http/handlers"
	httpMW "github.com/yungbote/hearth-backend/internal/http/middleware"
	"github.com/yungbote/hearth-backend/internal/insights/goals"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"github.com/yungbote/hearth-backend/internal/insights/patterns"
	"github.com/yungbote/hearth-backend/internal/jobs/pipeline/burnout_assess"
	"github.com/yungbote/hearth-backend/internal/jobs/pipeline/entry_created"
	"github.com/yungbote/hearth-backend/internal/jobs/pipeline/entry_updated"
	"github.com/yungbote/hearth-backend/internal/jobs/pipeline/pattern_recompute"
	jobrt "github.com/yungbote/hearth-backend/internal/jobs/runtime"
	"github.com/yungbote/hearth-backend/internal/jobs/scheduler"
	"github.com/yungbote/hearth-backend/internal/jobs/worker"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/realtime"
	"github.com/yungbote/hearth-backend/internal/realtime/bus"
	"github.com/yungbote/hearth-backend/internal/services"
	"github.com/yungbote/hearth-backend/internal/temporalx/temporalworker"
)

const sweepLockKey = "hearth:lock:daily_sweep"

type Services struct {
	Jobs          services.JobService
	JobNotifier   services.JobNotifier
	Insights      services.InsightService
	Entries       services.EntryService
	Goals         services.GoalService
	Exclusions    services.ExclusionService
	InsightQuery  services.InsightQueryService
	GoalProcessor *goals.Processor
}

type Jobs struct {
	Registry *jobrt.Registry
	Worker   *worker.Worker
	Temporal *temporalworker.Runner
	Sweeper  *scheduler.DailySweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, rs repos.Repos, b bus.Bus, tc temporalsdkclient.Client) Services {
	log.Info("Wiring services...")

	lex := lexicon.LoadFile(log, cfg.LexiconPath)
	jobNotify := services.NewJobNotifier(b, log)
	insightNotify := services.NewInsightNotifier(b, log)

	jobSvc := services.NewJobService(db, log, rs.JobRuns, jobNotify, tc, cfg.Temporal.TaskQueue)

	goalProc := goals.NewProcessor(rs.SignalStates, lex, log, goals.Options{})
	engine := patterns.NewEngine(rs.Entries, rs.SignalStates, rs.Exclusions, rs.Patterns, lex, log, patterns.Config{
		Location: cfg.Location,
	})
	insights := services.NewInsightService(log, rs.Entries, rs.Burnout, rs.Profiles, goalProc, engine, insightNotify, services.InsightConfig{
		BurnoutWindow: cfg.BurnoutWindow,
		Location:      cfg.Location,
		Lexicon:       lex,
		SweepDelay:    cfg.SweepDelay,
		SweepPageSize: cfg.SweepPageSize,
	})

	return Services{
		Jobs:          jobSvc,
		JobNotifier:   jobNotify,
		Insights:      insights,
		Entries:       services.NewEntryService(db, log, rs.Entries, rs.Profiles, jobSvc),
		Goals:         services.NewGoalService(log, rs.SignalStates, goalProc, jobSvc, insightNotify),
		Exclusions:    services.NewExclusionService(log, rs.Exclusions),
		InsightQuery:  services.NewInsightQueryService(rs.Patterns, rs.Profiles, rs.Burnout),
		GoalProcessor: goalProc,
	}
}

func wireJobs(db *gorm.DB, log *logger.Logger, cfg Config, rs repos.Repos, svc Services, tc temporalsdkclient.Client, rdb *goredis.Client) (Jobs, error) {
	log.Info("Wiring job handlers...")

	registry := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		entry_created.New(log, svc.Insights),
		entry_updated.New(log, svc.Insights),
		pattern_recompute.New(log, svc.Insights),
		burnout_assess.New(log, svc.Insights),
	} {
		if err := registry.Register(h); err != nil {
			return Jobs{}, fmt.Errorf("register job handler: %w", err)
		}
	}
	out := Jobs{Registry: registry}

	if tc != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, tc, db, rs.JobRuns, registry, svc.JobNotifier)
		if err != nil {
			return Jobs{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.Temporal = runner
	} else {
		out.Worker = worker.NewWorker(db, log, rs.JobRuns, registry, svc.JobNotifier, cfg.Worker)
	}

	if cfg.SweepEnabled {
		var lock scheduler.Locker
		if rdb != nil {
			lock = redis.NewLock(rdb, sweepLockKey, cfg.SweepLockTTL)
		}
		out.Sweeper = scheduler.NewDailySweeper(svc.Insights, lock, log, scheduler.Config{
			Hour:     cfg.SweepHour,
			Location: cfg.Location,
		})
	}
	return out, nil
}

func wireRouterConfig(log *logger.Logger, cfg Config, db *gorm.DB, svc Services, hub *realtime.SSEHub) httpx.RouterConfig {
	log.Info("Wiring handlers...")
	return httpx.RouterConfig{
		Log:            log,
		ServiceName:    serviceName(cfg),
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),

		EntryHandler:     httpH.NewEntryHandler(svc.Entries),
		GoalHandler:      httpH.NewGoalHandler(svc.Goals),
		InsightHandler:   httpH.NewInsightHandler(svc.Insights, svc.InsightQuery),
		ExclusionHandler: httpH.NewExclusionHandler(svc.Exclusions),
		JobHandler:       httpH.NewJobHandler(svc.Jobs),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, hub),
		HealthHandler:    httpH.NewHealthHandler(db),
	}
}

// serviceName enables otelgin only when tracing is on.
func serviceName(cfg Config) string {
	if !cfg.Otel.Enabled {
		return ""
	}
	return cfg.Otel.ServiceName
}
