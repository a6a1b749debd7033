package app

import (
	"strings"
	"time"

	"github.com/yungbote/hearth-backend/internal/clients/redis"
	"github.com/yungbote/hearth-backend/internal/data/db"
	"github.com/yungbote/hearth-backend/internal/jobs/worker"
	"github.com/yungbote/hearth-backend/internal/observability"
	"github.com/yungbote/hearth-backend/internal/platform/envutil"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"github.com/yungbote/hearth-backend/internal/temporalx"
)

type Config struct {
	Port         string
	JWTSecretKey string
	CORSOrigins  []string

	DB       db.Config
	Redis    redis.Config
	Temporal temporalx.Config
	Otel     observability.OtelConfig
	Worker   worker.Config

	// RunWorker disables the in-process job consumer when false (API-only replicas).
	RunWorker bool

	SweepEnabled  bool
	SweepHour     int
	SweepDelay    time.Duration
	SweepPageSize int
	SweepLockTTL  time.Duration

	Location      *time.Location
	LexiconPath   string
	BurnoutWindow int

	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	loc := time.UTC
	if tz := strings.TrimSpace(envutil.String("TIMEZONE", "UTC")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Warn("Invalid TIMEZONE; using UTC", "timezone", tz, "error", err)
		} else {
			loc = l
		}
	}

	secret := envutil.String("JWT_SECRET_KEY", "")
	if secret == "" {
		log.Warn("JWT_SECRET_KEY is not set; every authenticated request will be rejected")
	}

	return Config{
		Port:         envutil.String("PORT", "8080"),
		JWTSecretKey: secret,
		CORSOrigins:  splitList(envutil.String("CORS_ORIGINS", "")),

		DB: db.ConfigFromEnv(),
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "hearth:insights"),
		},
		Temporal: temporalx.LoadConfig(),
		Otel:     observability.LoadOtelConfig(),
		Worker: worker.Config{
			Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
			PollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
			MaxAttempts:  envutil.Int("WORKER_MAX_ATTEMPTS", 5),
			RetryDelay:   envutil.Duration("WORKER_RETRY_DELAY", 30*time.Second),
			StaleRunning: envutil.Duration("WORKER_STALE_RUNNING", 10*time.Minute),
		},
		RunWorker: envutil.Bool("RUN_WORKER", true),

		SweepEnabled:  envutil.Bool("SWEEP_ENABLED", true),
		SweepHour:     envutil.Int("SWEEP_HOUR", 3),
		SweepDelay:    envutil.Duration("SWEEP_USER_DELAY", 250*time.Millisecond),
		SweepPageSize: envutil.Int("SWEEP_PAGE_SIZE", 200),
		SweepLockTTL:  envutil.Duration("SWEEP_LOCK_TTL", 2*time.Hour),

		Location:      loc,
		LexiconPath:   envutil.String("HEARTH_LEXICON_YAML", ""),
		BurnoutWindow: envutil.Int("BURNOUT_WINDOW", 0),

		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
