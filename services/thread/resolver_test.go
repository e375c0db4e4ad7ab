package thread

import (
	"context"
	"testing"
	"time"

	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/utils"
	"github.com/inboxforge/syncengine/services/imapfetch"
)

type fakeThreadStore struct {
	threads map[string]*models.Thread
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{threads: make(map[string]*models.Thread)}
}

func (s *fakeThreadStore) FindThreadByNormalizedSubject(ctx context.Context, mailboxID, normalizedSubject string, since time.Time) (*models.Thread, error) {
	var best *models.Thread
	for _, t := range s.threads {
		if t.MailboxID != mailboxID || t.NormalizedSubject != normalizedSubject {
			continue
		}
		if t.LastMessageAt.Before(since) {
			continue
		}
		if best == nil || t.LastMessageAt.After(best.LastMessageAt) {
			best = t
		}
	}
	return best, nil
}

func (s *fakeThreadStore) InsertThread(ctx context.Context, thread *models.Thread) error {
	if thread.ID == "" {
		thread.ID = utils.GenerateID("thrd", 16)
	}
	s.threads[thread.ID] = thread
	return nil
}

func (s *fakeThreadStore) ListEmailsInThread(ctx context.Context, threadID string) ([]*models.Email, error) {
	return nil, nil
}

func (s *fakeThreadStore) UpdateThread(ctx context.Context, thread *models.Thread) error {
	existing, ok := s.threads[thread.ID]
	if !ok {
		return nil
	}
	existing.MessageCount = thread.MessageCount
	existing.LastMessageAt = thread.LastMessageAt
	existing.Participants = thread.Participants
	existing.IsUnread = thread.IsUnread
	return nil
}

type fakeEmailStore struct {
	byMessageID map[string]*models.Email
}

func newFakeEmailStore() *fakeEmailStore {
	return &fakeEmailStore{byMessageID: make(map[string]*models.Email)}
}

func (s *fakeEmailStore) FindEmail(ctx context.Context, mailboxID string, uid uint32) (*models.Email, error) {
	return nil, nil
}

func (s *fakeEmailStore) FindEmailByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Email, error) {
	return s.byMessageID[messageID], nil
}

func (s *fakeEmailStore) FindEmailsByMessageIDs(ctx context.Context, mailboxID string, messageIDs []string) ([]*models.Email, error) {
	var out []*models.Email
	for _, id := range messageIDs {
		if e, ok := s.byMessageID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEmailStore) InsertEmail(ctx context.Context, email *models.Email) error {
	s.byMessageID[email.MessageID] = email
	return nil
}

func TestResolveByInReplyTo(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()
	emails.byMessageID["parent-1"] = &models.Email{MessageID: "parent-1", ThreadID: "thread-a"}

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{InReplyTo: "parent-1", Subject: "Re: hello"}

	got, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "thread-a" {
		t.Errorf("Resolve() = %q, want %q", got, "thread-a")
	}
}

func TestResolveByReferences(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()
	emails.byMessageID["ancestor-2"] = &models.Email{MessageID: "ancestor-2", ThreadID: "thread-b"}

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{References: []string{"ancestor-1", "ancestor-2"}, Subject: "Re: hello"}

	got, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "thread-b" {
		t.Errorf("Resolve() = %q, want %q", got, "thread-b")
	}
}

func TestResolveBySubjectWithinWindow(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()

	existing := &models.Thread{
		ID:                "thread-c",
		MailboxID:         "mbx-1",
		NormalizedSubject: "quarterly planning sync",
		LastMessageAt:     utils.Now().AddDate(0, 0, -1),
	}
	threads.threads[existing.ID] = existing

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{Subject: "Re: Quarterly Planning Sync", ReceivedAt: utils.Now()}

	got, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "thread-c" {
		t.Errorf("Resolve() = %q, want %q", got, "thread-c")
	}
}

func TestResolveSubjectOutsideWindowCreatesNew(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()

	stale := &models.Thread{
		ID:                "thread-old",
		MailboxID:         "mbx-1",
		NormalizedSubject: "quarterly planning sync",
		LastMessageAt:     utils.Now().AddDate(0, 0, -30),
	}
	threads.threads[stale.ID] = stale

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{Subject: "Quarterly Planning Sync", ReceivedAt: utils.Now(), FromAddress: "a@example.com"}

	got, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got == "thread-old" {
		t.Errorf("Resolve() matched stale thread outside 7-day window")
	}
	if _, ok := threads.threads[got]; !ok {
		t.Errorf("Resolve() returned id %q not present in store", got)
	}
}

func TestResolveShortSubjectAlwaysCreatesNew(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{Subject: "hi", ReceivedAt: utils.Now(), FromAddress: "a@example.com"}

	first, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first == second {
		t.Errorf("Resolve() reused thread %q for two short-subject messages", first)
	}
}

func TestResolveCreateUsesFallbackSubject(t *testing.T) {
	threads := newFakeThreadStore()
	emails := newFakeEmailStore()

	r := NewResolver(threads, emails)
	msg := &imapfetch.RawMessage{Subject: "", ReceivedAt: utils.Now(), FromAddress: "a@example.com"}

	id, err := r.Resolve(context.Background(), "mbx-1", "user-1", msg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	thread := threads.threads[id]
	if thread.Subject != "(No Subject)" {
		t.Errorf("thread.Subject = %q, want %q", thread.Subject, "(No Subject)")
	}
}
