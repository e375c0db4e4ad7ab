package config

import (
	"time"

	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/tracing"
)

// AppConfig holds process-level settings, independent of any one mailbox.
type AppConfig struct {
	HealthPort  string `env:"HEALTH_PORT" envDefault:"8089"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	// CredentialKey is the raw 32-byte AES-256 key (base64) used to decrypt
	// mailbox IMAP passwords; see internal/credentials.
	CredentialKey string `env:"CREDENTIAL_KEY,required"`
	Logger        *logger.Config
	Tracing       *tracing.JaegerConfig
}

// DatabaseConfig configures the Postgres connection backing internal/repository.
type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"1"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

// SyncConfig is the set of knobs read at cycle start (spec §6.2).
type SyncConfig struct {
	BatchSize      int `env:"BATCH_SIZE" envDefault:"100"`
	SinceDays      int `env:"SINCE_DAYS" envDefault:"30"`
	WorkerPoolSize int `env:"WORKER_POOL_SIZE" envDefault:"1"`
	// CycleInterval is the time between cycle triggers (spec §6.2); it
	// drives CronConfig.SyncSchedule's default (see InitConfig) unless an
	// operator sets CRON_SCHEDULE_SYNC explicitly.
	CycleInterval   time.Duration `env:"CYCLE_INTERVAL" envDefault:"5m"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"20s"`
	GreetingTimeout time.Duration `env:"GREETING_TIMEOUT" envDefault:"15s"`
	SocketTimeout   time.Duration `env:"SOCKET_TIMEOUT" envDefault:"30s"`
	DebugBounces    bool          `env:"DEBUG_BOUNCES" envDefault:"false"`
	// SubjectRecipientFallback gates the bounce parser's secondary
	// recipient extraction from the subject line (spec §9 open question).
	SubjectRecipientFallback bool `env:"BOUNCE_SUBJECT_RECIPIENT_FALLBACK" envDefault:"true"`
}

// CronConfig configures the ambient scheduler wrapper (SPEC_FULL.md §5, §9).
// SyncSchedule is a full cron expression and, when left unset, is derived
// from SyncConfig.CycleInterval (spec §6.2) as "@every <interval>" by
// InitConfig; set it explicitly only to move past a fixed-interval cadence
// (e.g. skip off-hours).
type CronConfig struct {
	SyncSchedule string `env:"CRON_SCHEDULE_SYNC"`
}
