package lock

import "testing"

func TestMailboxLockerExclusion(t *testing.T) {
	l := NewMailboxLocker()

	if !l.TryLock("mbox-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if l.TryLock("mbox-1") {
		t.Fatal("expected second TryLock on the same mailbox to fail while held")
	}
	if !l.TryLock("mbox-2") {
		t.Fatal("expected TryLock on a different mailbox to succeed")
	}

	l.Unlock("mbox-1")
	if !l.TryLock("mbox-1") {
		t.Fatal("expected TryLock to succeed after Unlock")
	}
}
