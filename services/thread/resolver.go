// Package thread implements the Thread Resolver (spec §4.3): given a fetched
// message, find or create the Thread it belongs to, then recompute the
// thread's rollup fields from its full email set.
//
// Grounded on the teacher's services/email_processor/attach_to_threads.go,
// which resolves threads in the same three-tier order (in-reply-to, then
// references, then subject) before falling back to creating a new thread,
// and recomputes aggregate fields in a separate post-insert pass.
package thread

import (
	"context"
	"fmt"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/normalize"
	"github.com/inboxforge/syncengine/internal/utils"
	"github.com/inboxforge/syncengine/services/imapfetch"
)

// subjectLookbackDays bounds how far back a subject-only thread match can
// reach (spec §4.3 step 3: "last_message_at >= now - 7 days").
const subjectLookbackDays = 7

// minNormalizedSubjectLen is the length a normalized subject must exceed
// to be matched against threads; one of this length or shorter is
// considered too generic (spec §4.3 step 3).
const minNormalizedSubjectLen = 5

// Resolver resolves messages to threads and keeps thread rollups current.
type Resolver struct {
	store interfaces.ThreadStore
	email interfaces.EmailStore
}

func NewResolver(store interfaces.ThreadStore, email interfaces.EmailStore) *Resolver {
	return &Resolver{store: store, email: email}
}

// Resolve returns the id of the thread msg belongs to, creating one if
// necessary. It does not persist the Email itself; callers insert the Email
// with the returned thread id, then call UpdateAggregate.
func (r *Resolver) Resolve(ctx context.Context, mailboxID, userID string, msg *imapfetch.RawMessage) (string, error) {
	if msg.InReplyTo != "" {
		if threadID, err := r.byMessageID(ctx, mailboxID, msg.InReplyTo); err != nil {
			return "", err
		} else if threadID != "" {
			return threadID, nil
		}
	}

	if len(msg.References) > 0 {
		threadID, err := r.byReferences(ctx, mailboxID, msg.References)
		if err != nil {
			return "", err
		}
		if threadID != "" {
			return threadID, nil
		}
	}

	normalized := normalize.Subject(msg.Subject)
	if len(normalized) > minNormalizedSubjectLen {
		since := utils.Now().AddDate(0, 0, -subjectLookbackDays)
		existing, err := r.store.FindThreadByNormalizedSubject(ctx, mailboxID, normalized, since)
		if err != nil {
			return "", fmt.Errorf("thread: subject lookup: %w", err)
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	return r.create(ctx, mailboxID, userID, msg, normalized)
}

func (r *Resolver) byMessageID(ctx context.Context, mailboxID, messageID string) (string, error) {
	email, err := r.email.FindEmailByMessageID(ctx, mailboxID, messageID)
	if err != nil {
		return "", fmt.Errorf("thread: in-reply-to lookup: %w", err)
	}
	if email == nil || email.ThreadID == "" {
		return "", nil
	}
	return email.ThreadID, nil
}

func (r *Resolver) byReferences(ctx context.Context, mailboxID string, references []string) (string, error) {
	emails, err := r.email.FindEmailsByMessageIDs(ctx, mailboxID, references)
	if err != nil {
		return "", fmt.Errorf("thread: references lookup: %w", err)
	}
	for _, ref := range references {
		for _, email := range emails {
			if email.MessageID == ref && email.ThreadID != "" {
				return email.ThreadID, nil
			}
		}
	}
	return "", nil
}

func (r *Resolver) create(ctx context.Context, mailboxID, userID string, msg *imapfetch.RawMessage, normalized string) (string, error) {
	subject := msg.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	participants := utils.UniqueLowerEmails(append([]string{msg.FromAddress}, msg.ToAddresses...))
	participants = utils.UniqueLowerEmails(append(participants, msg.CcAddresses...))

	thread := &models.Thread{
		UserID:            userID,
		MailboxID:         mailboxID,
		Subject:           subject,
		NormalizedSubject: normalized,
		Participants:      participants,
		MessageCount:      1,
		FirstMessageAt:    msg.ReceivedAt,
		LastMessageAt:     msg.ReceivedAt,
		IsUnread:          true,
	}

	if err := r.store.InsertThread(ctx, thread); err != nil {
		return "", fmt.Errorf("thread: create: %w", err)
	}
	return thread.ID, nil
}

// UpdateAggregate recomputes message_count, last_message_at, participants,
// and is_unread for threadID from its full set of emails (spec §4.3
// post-persist update). Callers invoke this after inserting the triggering
// Email row.
func (r *Resolver) UpdateAggregate(ctx context.Context, threadID string) error {
	emails, err := r.store.ListEmailsInThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("thread: list for aggregate: %w", err)
	}
	if len(emails) == 0 {
		return nil
	}

	participants := make([]string, 0, len(emails)*2)
	lastMessageAt := emails[0].ReceivedAt
	isUnread := false

	for _, email := range emails {
		participants = append(participants, email.FromAddress)
		participants = append(participants, email.AllRecipients()...)
		if email.ReceivedAt.After(lastMessageAt) {
			lastMessageAt = email.ReceivedAt
		}
		if !email.IsRead {
			isUnread = true
		}
	}

	thread := &models.Thread{
		ID:            threadID,
		MessageCount:  len(emails),
		LastMessageAt: lastMessageAt,
		Participants:  utils.UniqueLowerEmails(participants),
		IsUnread:      isUnread,
		UpdatedAt:     utils.Now(),
	}

	if err := r.store.UpdateThread(ctx, thread); err != nil {
		return fmt.Errorf("thread: update aggregate: %w", err)
	}
	return nil
}
