package persist

import (
	"context"
	"testing"
	"time"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/events"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/utils"
	"github.com/inboxforge/syncengine/services/bounce"
	"github.com/inboxforge/syncengine/services/imapfetch"
	"github.com/inboxforge/syncengine/services/thread"
)

type fakeEmailStore struct {
	byUID       map[uint32]*models.Email
	byMessageID map[string]*models.Email
}

func newFakeEmailStore() *fakeEmailStore {
	return &fakeEmailStore{byUID: map[uint32]*models.Email{}, byMessageID: map[string]*models.Email{}}
}

func (s *fakeEmailStore) FindEmail(ctx context.Context, mailboxID string, uid uint32) (*models.Email, error) {
	return s.byUID[uid], nil
}

func (s *fakeEmailStore) FindEmailByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Email, error) {
	return s.byMessageID[messageID], nil
}

func (s *fakeEmailStore) FindEmailsByMessageIDs(ctx context.Context, mailboxID string, messageIDs []string) ([]*models.Email, error) {
	return nil, nil
}

func (s *fakeEmailStore) InsertEmail(ctx context.Context, email *models.Email) error {
	if email.ID == "" {
		email.ID = utils.GenerateID("email", 16)
	}
	s.byUID[email.UID] = email
	s.byMessageID[email.MessageID] = email
	return nil
}

type fakeThreadStore struct {
	threads map[string]*models.Thread
	emails  map[string][]*models.Email
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{threads: map[string]*models.Thread{}, emails: map[string][]*models.Email{}}
}

func (s *fakeThreadStore) FindThreadByNormalizedSubject(ctx context.Context, mailboxID, normalizedSubject string, since time.Time) (*models.Thread, error) {
	return nil, nil
}

func (s *fakeThreadStore) InsertThread(ctx context.Context, thread *models.Thread) error {
	thread.ID = utils.GenerateID("thrd", 16)
	s.threads[thread.ID] = thread
	return nil
}

func (s *fakeThreadStore) ListEmailsInThread(ctx context.Context, threadID string) ([]*models.Email, error) {
	return s.emails[threadID], nil
}

func (s *fakeThreadStore) UpdateThread(ctx context.Context, thread *models.Thread) error {
	existing := s.threads[thread.ID]
	existing.MessageCount = thread.MessageCount
	existing.LastMessageAt = thread.LastMessageAt
	existing.Participants = thread.Participants
	existing.IsUnread = thread.IsUnread
	return nil
}

type fakeBounceStore struct {
	byEmail map[string]*models.BounceAggregate
	events  []*models.BounceEvent
}

func newFakeBounceStore() *fakeBounceStore {
	return &fakeBounceStore{byEmail: map[string]*models.BounceAggregate{}}
}

func (s *fakeBounceStore) FindBounce(ctx context.Context, mailboxID, email string) (*models.BounceAggregate, error) {
	if b, ok := s.byEmail[email]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeBounceStore) InsertBounce(ctx context.Context, b *models.BounceAggregate) error {
	b.ID = utils.GenerateID("bnce", 16)
	s.byEmail[b.Email] = b
	return nil
}

func (s *fakeBounceStore) IncrementBounceFailure(ctx context.Context, bounceID string, failedAt time.Time) error {
	for _, b := range s.byEmail {
		if b.ID == bounceID {
			b.FailureCount++
			b.LastFailedAt = failedAt
		}
	}
	return nil
}

func (s *fakeBounceStore) InsertBounceEvent(ctx context.Context, event *models.BounceEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestPersister() (*Persister, *fakeEmailStore, *fakeThreadStore, *fakeBounceStore) {
	emails := newFakeEmailStore()
	threads := newFakeThreadStore()
	bounces := newFakeBounceStore()
	resolver := thread.NewResolver(threads, emails)
	return NewPersister(emails, bounces, resolver, events.NewNoopPublisher(), logger.NewNoop()), emails, threads, bounces
}

func seedThread(threads *fakeThreadStore, emails *fakeEmailStore, threadID string) {
	threads.threads[threadID] = &models.Thread{ID: threadID}
}

func TestPersistInsertsEmailAndUpdatesThread(t *testing.T) {
	p, emails, threads, _ := newTestPersister()
	seedThread(threads, emails, "thread-1")
	threads.emails["thread-1"] = nil // populated after insert via lookup below

	msg := &imapfetch.RawMessage{
		UID:         7,
		MessageID:   "msg-7",
		FromAddress: "Sender@Example.com",
		ToAddresses: []string{"A@Example.com", "a@example.com"},
		ReceivedAt:  utils.Now(),
		BodyText:    "<p>Hello   world</p>",
	}

	// The fake thread store's ListEmailsInThread reads from its own map,
	// which Persist doesn't populate (that's the real repository's job);
	// seed it manually to exercise the aggregate recompute.
	threads.emails["thread-1"] = []*models.Email{
		{FromAddress: "sender@example.com", ToAddresses: []string{"a@example.com"}, ReceivedAt: msg.ReceivedAt},
	}

	err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryHuman, 0.70, "thread-1", nil)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	stored := emails.byUID[7]
	if stored == nil {
		t.Fatalf("email with uid 7 not inserted")
	}
	if stored.FromAddress != "sender@example.com" {
		t.Errorf("FromAddress = %q, want lowercased", stored.FromAddress)
	}
	if len(stored.ToAddresses) != 1 {
		t.Errorf("ToAddresses = %v, want deduped to 1 entry", stored.ToAddresses)
	}
	if stored.BodyPreview != "Hello world" {
		t.Errorf("BodyPreview = %q, want %q", stored.BodyPreview, "Hello world")
	}

	th := threads.threads["thread-1"]
	if th.MessageCount != 1 {
		t.Errorf("thread.MessageCount = %d, want 1", th.MessageCount)
	}
}

func TestPersistIsIdempotentOnDuplicateUID(t *testing.T) {
	p, emails, threads, _ := newTestPersister()
	seedThread(threads, emails, "thread-1")

	msg := &imapfetch.RawMessage{UID: 7, MessageID: "msg-7", ReceivedAt: utils.Now()}

	if err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryHuman, 0.70, "thread-1", nil); err != nil {
		t.Fatalf("first Persist() error = %v", err)
	}

	before := len(emails.byUID)
	if err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryHuman, 0.70, "thread-1", nil); err != nil {
		t.Fatalf("second Persist() error = %v", err)
	}
	if len(emails.byUID) != before {
		t.Errorf("duplicate Persist() call changed stored email count: %d -> %d", before, len(emails.byUID))
	}
}

func TestPersistIsIdempotentOnDuplicateMessageID(t *testing.T) {
	p, emails, threads, bounces := newTestPersister()
	seedThread(threads, emails, "thread-1")

	msg := &imapfetch.RawMessage{UID: 11, MessageID: "msg-dup", ReceivedAt: utils.Now()}
	if err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryHuman, 0.70, "thread-1", nil); err != nil {
		t.Fatalf("first Persist() error = %v", err)
	}

	// Same message_id refetched under a different UID (e.g. after a move
	// between folders); this must not insert a second email row nor
	// re-run the bounce side effect for it.
	reDelivered := &imapfetch.RawMessage{UID: 12, MessageID: "msg-dup", ReceivedAt: utils.Now()}
	result := &bounce.Result{FailedRecipient: "bounced@example.com", ErrorCode: "550", Type: enum.BounceHard}

	if err := p.Persist(context.Background(), "mbx-1", "user-1", reDelivered, enum.CategoryBounce, 1.0, "thread-1", result); err != nil {
		t.Fatalf("second Persist() error = %v", err)
	}

	if len(emails.byUID) != 1 {
		t.Errorf("len(emails.byUID) = %d, want 1 (duplicate message_id must not insert)", len(emails.byUID))
	}
	if len(bounces.events) != 0 {
		t.Errorf("len(bounces.events) = %d, want 0 (duplicate must not trigger bounce side effect)", len(bounces.events))
	}
}

func TestPersistRecordsBounceOnFirstFailure(t *testing.T) {
	p, _, threads, bounces := newTestPersister()
	seedThread(threads, newFakeEmailStore(), "thread-1")

	msg := &imapfetch.RawMessage{UID: 9, MessageID: "msg-9", ReceivedAt: utils.Now()}
	result := &bounce.Result{FailedRecipient: "bounced@example.com", ErrorCode: "550", Diagnostic: "mailbox unavailable", Type: enum.BounceHard}

	err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryBounce, 1.0, "thread-1", result)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	aggregate := bounces.byEmail["bounced@example.com"]
	if aggregate == nil {
		t.Fatalf("bounce aggregate not created")
	}
	if aggregate.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", aggregate.FailureCount)
	}
	if len(bounces.events) != 1 {
		t.Errorf("len(events) = %d, want 1", len(bounces.events))
	}
}

func TestPersistIncrementsExistingBounce(t *testing.T) {
	p, _, threads, bounces := newTestPersister()
	seedThread(threads, newFakeEmailStore(), "thread-1")
	bounces.byEmail["bounced@example.com"] = &models.BounceAggregate{ID: "bnce-1", Email: "bounced@example.com", FailureCount: 1}

	msg := &imapfetch.RawMessage{UID: 10, MessageID: "msg-10", ReceivedAt: utils.Now()}
	result := &bounce.Result{FailedRecipient: "bounced@example.com", ErrorCode: "550", Type: enum.BounceHard}

	if err := p.Persist(context.Background(), "mbx-1", "user-1", msg, enum.CategoryBounce, 1.0, "thread-1", result); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	aggregate := bounces.byEmail["bounced@example.com"]
	if aggregate.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", aggregate.FailureCount)
	}
}
