// Package lock provides the at-most-one-sync-in-flight-per-mailbox guard
// the Mailbox Coordinator relies on (spec §5, §9): two overlapping cron
// ticks for the same mailbox must not run concurrently, since the
// checkpoint-advance logic in services/mailboxsync assumes serialized
// access to a single mailbox's UID stream.
package lock

import "sync"

// MailboxLocker hands out a per-mailbox *sync.Mutex, lazily created on
// first use and kept for the process lifetime.
type MailboxLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMailboxLocker() *MailboxLocker {
	return &MailboxLocker{locks: make(map[string]*sync.Mutex)}
}

// TryLock attempts to acquire the mailbox's lock without blocking. It
// reports false if another goroutine already holds it, the signal the
// Scheduler uses to skip a tick rather than queue up behind a slow sync.
func (l *MailboxLocker) TryLock(mailboxID string) bool {
	return l.lockFor(mailboxID).TryLock()
}

// Unlock releases the mailbox's lock. Callers must only call this after a
// successful TryLock.
func (l *MailboxLocker) Unlock(mailboxID string) {
	l.lockFor(mailboxID).Unlock()
}

func (l *MailboxLocker) lockFor(mailboxID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[mailboxID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[mailboxID] = m
	}
	return m
}
