// Package scheduler is the ambient cron wrapper around the Mailbox
// Coordinator (SPEC_FULL.md §5, §9): on each tick it lists active mailboxes
// and runs one sync cycle per mailbox, bounded by a worker pool and guarded
// by a per-mailbox lock so two overlapping ticks never sync the same
// mailbox concurrently.
//
// Grounded on internal/cron/cron.go's CronManager: seconds-enabled cron
// with panic recovery, one job per schedule, a tracer span per run. The
// teacher's k8s leader-election wrapper is dropped (see DESIGN.md) since
// this engine runs as a single deployment, not a pod set electing a leader
// for a shared cluster-wide job; SkipIfStillRunning is also dropped in
// favor of the explicit per-mailbox MailboxLocker, which skips at mailbox
// granularity instead of the whole job.
package scheduler

import (
	"context"

	cronv3 "github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/lock"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/tracing"
	"github.com/inboxforge/syncengine/services/mailboxsync"
)

// Syncer is the subset of mailboxsync.Coordinator the scheduler depends on.
type Syncer interface {
	Sync(ctx context.Context, mailboxID string) error
}

var _ Syncer = (*mailboxsync.Coordinator)(nil)

// Scheduler runs the sync cycle for every active mailbox on a cron
// schedule, bounding concurrency with a worker pool and skipping any
// mailbox whose previous cycle is still in flight.
type Scheduler struct {
	mailboxes interfaces.MailboxStore
	coord     Syncer
	sem       *semaphore.Weighted
	locker    *lock.MailboxLocker
	cfg       *config.CronConfig
	log       logger.Logger
	cron      *cronv3.Cron
}

func New(mailboxes interfaces.MailboxStore, coord Syncer, workerPoolSize int, cfg *config.CronConfig, log logger.Logger) *Scheduler {
	if workerPoolSize < 1 {
		workerPoolSize = 1
	}
	return &Scheduler{
		mailboxes: mailboxes,
		coord:     coord,
		sem:       semaphore.NewWeighted(int64(workerPoolSize)),
		locker:    lock.NewMailboxLocker(),
		cfg:       cfg,
		log:       log,
	}
}

// Start registers the sync job on cfg.SyncSchedule and begins running it.
// Call Stop to end further ticks before process shutdown.
func (s *Scheduler) Start() error {
	c := cronv3.New(cronv3.WithSeconds(), cronv3.WithChain(cronv3.Recover(cronv3.DefaultLogger)))

	if _, err := c.AddFunc(s.cfg.SyncSchedule, func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.runTick()
	}); err != nil {
		return err
	}

	s.cron = c
	c.Start()
	return nil
}

// Stop halts the cron schedule and waits for a tick that is still listing
// and dispatching mailboxes to return. It does not wait for the per-mailbox
// sync goroutines that tick started; they run until their Sync returns.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runTick() {
	ctx := context.Background()
	span, ctx := tracing.StartTracerSpan(ctx, "Scheduler.runTick")
	defer span.Finish()
	tracing.TagComponentCron(span)

	mailboxes, err := s.mailboxes.GetActiveMailboxes(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("scheduler: list active mailboxes: %v", err)
		return
	}

	for _, mailbox := range mailboxes {
		mailboxID := mailbox.ID
		if !s.locker.TryLock(mailboxID) {
			s.log.Warnf("scheduler: mailbox %s: previous cycle still in flight, skipping tick", mailboxID)
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.locker.Unlock(mailboxID)
			return
		}

		go func(mailboxID string) {
			defer s.sem.Release(1)
			defer s.locker.Unlock(mailboxID)
			defer tracing.RecoverAndLogToJaeger(s.log)

			runCtx := context.Background()
			span, runCtx := tracing.StartTracerSpan(runCtx, "Scheduler.syncMailbox")
			defer span.Finish()
			tracing.TagComponentCron(span)
			tracing.TagMailboxID(span, mailboxID)

			if err := s.coord.Sync(runCtx, mailboxID); err != nil {
				tracing.TraceErr(span, err)
				s.log.Errorf("scheduler: mailbox %s: sync cycle failed: %v", mailboxID, err)
			}
		}(mailboxID)
	}
}
