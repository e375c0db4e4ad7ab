package interfaces

import (
	"context"
	"time"

	"github.com/inboxforge/syncengine/internal/models"
)

// MailboxStore covers the Mailbox Coordinator's get_mailbox/update_mailbox
// operations (spec §6.3, §4.6).
type MailboxStore interface {
	GetMailbox(ctx context.Context, id string) (*models.Mailbox, error)
	GetActiveMailboxes(ctx context.Context) ([]*models.Mailbox, error)
	UpdateMailbox(ctx context.Context, mailbox *models.Mailbox) error
}

// EmailStore covers the Persister's find/insert operations over emails
// (spec §6.3, §4.5).
type EmailStore interface {
	FindEmail(ctx context.Context, mailboxID string, uid uint32) (*models.Email, error)
	FindEmailByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Email, error)
	FindEmailsByMessageIDs(ctx context.Context, mailboxID string, messageIDs []string) ([]*models.Email, error)
	InsertEmail(ctx context.Context, email *models.Email) error
}

// ThreadStore covers the Thread Resolver's lookup/upsert operations
// (spec §6.3, §4.3).
type ThreadStore interface {
	FindThreadByNormalizedSubject(ctx context.Context, mailboxID, normalizedSubject string, since time.Time) (*models.Thread, error)
	InsertThread(ctx context.Context, thread *models.Thread) error
	ListEmailsInThread(ctx context.Context, threadID string) ([]*models.Email, error)
	UpdateThread(ctx context.Context, thread *models.Thread) error
}

// BounceStore covers the Bounce Tracker's operations (spec §6.3, §4.4).
type BounceStore interface {
	FindBounce(ctx context.Context, mailboxID, email string) (*models.BounceAggregate, error)
	InsertBounce(ctx context.Context, bounce *models.BounceAggregate) error
	IncrementBounceFailure(ctx context.Context, bounceID string, failedAt time.Time) error
	InsertBounceEvent(ctx context.Context, event *models.BounceEvent) error
}

// Store is the union of every persistence seam the engine uses. Components
// depend on the narrower *Store interfaces above; Store exists so a single
// *repository.Repositories value can satisfy all of them at once.
type Store interface {
	MailboxStore
	EmailStore
	ThreadStore
	BounceStore
}
