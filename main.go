// Command syncengine is the sync engine's process entrypoint: a
// migrate/sync subcommand switch, grounded on the teacher's main.go but
// narrowed to one database and one long-running mode (spec §1) instead of
// the teacher's migrate/server split across two databases.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/credentials"
	"github.com/inboxforge/syncengine/internal/database"
	"github.com/inboxforge/syncengine/internal/events"
	"github.com/inboxforge/syncengine/internal/healthserver"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/repository"
	"github.com/inboxforge/syncengine/internal/scheduler"
	"github.com/inboxforge/syncengine/internal/tracing"
	"github.com/inboxforge/syncengine/services/mailboxsync"
	"github.com/inboxforge/syncengine/services/persist"
	"github.com/inboxforge/syncengine/services/thread"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config initialization failed: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":
		if err := repository.MigrateDB(db); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		log.Println("database migration completed successfully")

	case "sync":
		if err := run(cfg, db); err != nil {
			log.Fatalf("sync engine exited with error: %v", err)
		}

	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: syncengine <command>")
	fmt.Println("Commands:")
	fmt.Println("  migrate   Run database migrations")
	fmt.Println("  sync      Start the sync engine (scheduler + health server)")
}

// run wires every component built across services/ and internal/ into one
// running process: repositories -> credential decryptor -> event publisher
// -> thread resolver -> persister -> mailbox coordinator -> scheduler ->
// health server, then blocks until SIGINT/SIGTERM.
func run(cfg *config.Config, db *gorm.DB) error {
	appLog, err := logger.NewLogger(*cfg.AppConfig.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	tracer, tracerCloser, err := tracing.NewJaegerTracer(cfg.AppConfig.Tracing, appLog)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)
	defer tracerCloser.Close()

	repos := repository.InitRepositories(db)

	keyBytes, err := base64.StdEncoding.DecodeString(cfg.AppConfig.CredentialKey)
	if err != nil {
		return fmt.Errorf("decode credential key: %w", err)
	}
	decryptor, err := credentials.NewAESGCMCodec(keyBytes)
	if err != nil {
		return fmt.Errorf("init credential codec: %w", err)
	}

	publisher, err := newPublisher(cfg.AppConfig.RabbitMQURL, appLog)
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}
	defer publisher.Close()

	resolver := thread.NewResolver(repos, repos)
	persister := persist.NewPersister(repos, repos, resolver, publisher, appLog)
	coordinator := mailboxsync.NewCoordinator(repos, decryptor, resolver, persister, cfg.Sync, appLog)

	sched := scheduler.New(repos, coordinator, cfg.Sync.WorkerPoolSize, cfg.Cron, appLog)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	health := healthserver.New(":"+cfg.AppConfig.HealthPort, repos, appLog)
	health.Start()

	appLog.Infof("sync engine started, listening on :%s", cfg.AppConfig.HealthPort)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	appLog.Infof("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return health.Shutdown(shutdownCtx)
}

// newPublisher wires a real RabbitMQ publisher when a broker URL is
// configured, falling back to a no-op so the sync engine runs standalone
// (events are an optional downstream fan-out, not required for the core
// fetch/classify/persist pipeline, per spec §9).
func newPublisher(rabbitMQURL string, log logger.Logger) (interfaces.EventPublisher, error) {
	if rabbitMQURL == "" {
		return events.NewNoopPublisher(), nil
	}
	return events.NewRabbitMQPublisher(rabbitMQURL, log, nil)
}
