package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/hearth-backend/internal/clients/redis"
	"github.com/yungbote/hearth-backend/internal/data/db"
	"github.com/yungbote/hearth-backend/internal/data/repos"
	httpx "github.com/yungbote/hearth-backend/internal/http"
	"github.com/yungbote/hearth-backend/internal/observability"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/realtime"
	"github.com/yungbote/hearth-backend/internal/realtime/bus"
	"github.com/yungbote/hearth-backend/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *httpx.Server
	Cfg      Config
	Repos    repos.Repos
	Services Services
	SSEHub   *realtime.SSEHub

	pg           *db.PostgresService
	rdb          *goredis.Client
	bus          bus.Bus
	temporal     temporalsdkclient.Client
	jobs         Jobs
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	a := &App{Log: log, Cfg: cfg}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	log, cfg := a.Log, a.Cfg
	ctx := context.Background()

	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	pg, err := db.NewPostgresService(log, cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.pg = pg
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	a.DB = pg.DB()

	a.SSEHub = realtime.NewSSEHub(log)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.rdb = rdb
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
		if err != nil {
			return fmt.Errorf("init redis bus: %w", err)
		}
		a.bus = b
	} else {
		log.Info("REDIS_ADDR not set; realtime events stay in this process")
		a.bus = bus.NewLocalBus(a.SSEHub)
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		return fmt.Errorf("init temporal: %w", err)
	}
	a.temporal = tc

	a.Repos = repos.New(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.bus, a.temporal)

	jobs, err := wireJobs(a.DB, log, cfg, a.Repos, a.Services, a.temporal, a.rdb)
	if err != nil {
		return err
	}
	a.jobs = jobs

	a.Server = httpx.NewServer(":"+cfg.Port, wireRouterConfig(log, cfg, a.DB, a.Services, a.SSEHub))
	return nil
}

// Start launches the background consumers: realtime forwarding, the job worker and the sweeper.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}

	if a.Cfg.RunWorker {
		switch {
		case a.jobs.Temporal != nil:
			if err := a.jobs.Temporal.Start(ctx); err != nil {
				return fmt.Errorf("start temporal worker: %w", err)
			}
		case a.jobs.Worker != nil:
			a.jobs.Worker.Start(ctx)
		}
	}

	if a.jobs.Sweeper != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.jobs.Sweeper.Run(ctx)
		}()
	}
	return nil
}

// Run serves HTTP until Shutdown.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Shutdown stops accepting requests, then drains background work.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.jobs.Worker != nil {
		a.jobs.Worker.Wait()
	}
	a.wg.Wait()
	a.Close()
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.temporal != nil {
		a.temporal.Close()
		a.temporal = nil
	}
	if a.bus != nil {
		_ = a.bus.Close()
		a.bus = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
	if a.pg != nil {
		_ = a.pg.Close()
		a.pg = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
