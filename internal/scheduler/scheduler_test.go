package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/models"
)

type fakeMailboxStore struct {
	mailboxes []*models.Mailbox
}

func (s *fakeMailboxStore) GetMailbox(ctx context.Context, id string) (*models.Mailbox, error) {
	return nil, nil
}

func (s *fakeMailboxStore) GetActiveMailboxes(ctx context.Context) ([]*models.Mailbox, error) {
	return s.mailboxes, nil
}

func (s *fakeMailboxStore) UpdateMailbox(ctx context.Context, mailbox *models.Mailbox) error {
	return nil
}

type blockingSyncer struct {
	calls   int32
	release chan struct{}
}

func (s *blockingSyncer) Sync(ctx context.Context, mailboxID string) error {
	atomic.AddInt32(&s.calls, 1)
	<-s.release
	return nil
}

func TestRunTickRespectsWorkerPoolSize(t *testing.T) {
	store := &fakeMailboxStore{mailboxes: []*models.Mailbox{
		{ID: "mbx-1"}, {ID: "mbx-2"}, {ID: "mbx-3"},
	}}
	syncer := &blockingSyncer{release: make(chan struct{})}
	s := New(store, syncer, 1, &config.CronConfig{SyncSchedule: "* * * * * *"}, logger.NewNoop())

	// runTick's dispatch loop acquires a semaphore slot per mailbox inline,
	// so with pool size 1 it blocks on the second mailbox until the first
	// releases; run it in the background and observe admission from here.
	go s.runTick()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&syncer.calls) < 1 {
		select {
		case <-deadline:
			t.Fatal("no sync call observed within timeout")
		default:
		}
	}
	if got := atomic.LoadInt32(&syncer.calls); got != 1 {
		t.Errorf("calls = %d, want 1 (pool size 1 admits only one concurrent sync)", got)
	}
	close(syncer.release)
}

type countingSyncer struct {
	mu    sync.Mutex
	calls []string
}

func (s *countingSyncer) Sync(ctx context.Context, mailboxID string) error {
	s.mu.Lock()
	s.calls = append(s.calls, mailboxID)
	s.mu.Unlock()
	return nil
}

func TestRunTickSyncsEveryActiveMailbox(t *testing.T) {
	store := &fakeMailboxStore{mailboxes: []*models.Mailbox{
		{ID: "mbx-1"}, {ID: "mbx-2"},
	}}
	syncer := &countingSyncer{}
	s := New(store, syncer, 4, &config.CronConfig{SyncSchedule: "* * * * * *"}, logger.NewNoop())

	s.runTick()

	deadline := time.Now().Add(time.Second)
	for {
		syncer.mu.Lock()
		n := len(syncer.calls)
		syncer.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("calls = %d, want 2", n)
		}
	}
}

func TestRunTickSkipsMailboxAlreadyLocked(t *testing.T) {
	store := &fakeMailboxStore{mailboxes: []*models.Mailbox{{ID: "mbx-1"}}}
	syncer := &countingSyncer{}
	s := New(store, syncer, 4, &config.CronConfig{SyncSchedule: "* * * * * *"}, logger.NewNoop())

	if !s.locker.TryLock("mbx-1") {
		t.Fatal("setup: expected TryLock to succeed")
	}

	s.runTick()
	time.Sleep(50 * time.Millisecond)

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.calls) != 0 {
		t.Errorf("calls = %v, want none (mailbox already locked)", syncer.calls)
	}
}
