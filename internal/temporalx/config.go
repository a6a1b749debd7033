package temporalx

import (
	"time"

	"github.com/yungbote/hearth-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	AutoRegisterNamespace bool
	NamespaceRetention    time.Duration

	WorkerConcurrency int
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "hearth"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "hearth-insights"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:    envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		DialMaxWait:    envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", 60*time.Second),
		DialBackoff:    envutil.Duration("TEMPORAL_DIAL_BACKOFF", 250*time.Millisecond),
		DialBackoffMax: envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", 5*time.Second),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetention:    time.Duration(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7)) * 24 * time.Hour,

		WorkerConcurrency: envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 8),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) usesTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
