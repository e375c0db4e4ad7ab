// Package persist implements the Persister (spec §4.5): the component
// that turns a classified, thread-resolved message into committed
// storage rows, applying the field-normalization rules and the
// dedup-then-insert idempotency guard.
//
// Grounded on the teacher's internal/repository/email_repository.go
// (look-up-by-key then create, duplicate-as-no-op) for the dedup guard,
// services/email_processor/attach_to_threads.go's updateThreadMetadata
// for driving the post-insert thread aggregate recompute, and
// services/events' publish-after-write pattern for the optional
// ingested/bounce-detected fan-out (SPEC_FULL.md §9).
package persist

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/utils"
	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/services/bounce"
	"github.com/inboxforge/syncengine/services/imapfetch"
	"github.com/inboxforge/syncengine/services/thread"
)

const bodyPreviewMaxLen = 300

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)
var whitespaceCollapseRe = regexp.MustCompile(`\s+`)

// Persister writes classified, thread-resolved messages to storage.
type Persister struct {
	emails    interfaces.EmailStore
	bounces   interfaces.BounceStore
	resolver  *thread.Resolver
	publisher interfaces.EventPublisher
	log       logger.Logger
}

func NewPersister(emails interfaces.EmailStore, bounces interfaces.BounceStore, resolver *thread.Resolver, publisher interfaces.EventPublisher, log logger.Logger) *Persister {
	return &Persister{emails: emails, bounces: bounces, resolver: resolver, publisher: publisher, log: log}
}

// Persist implements the Persister contract (spec §4.5). It is
// idempotent on (mailbox_id, uid) and on (mailbox_id, message_id): calling
// it twice for the same message, even under a different UID, has no
// additional effect beyond the first call.
func (p *Persister) Persist(ctx context.Context, mailboxID, userID string, msg *imapfetch.RawMessage, category enum.Category, confidence float64, threadID string, bounceResult *bounce.Result) error {
	existing, err := p.emails.FindEmail(ctx, mailboxID, msg.UID)
	if err != nil {
		return fmt.Errorf("persist: dedup lookup: %w", err)
	}
	if existing != nil {
		return nil
	}

	// message_id carries its own uniqueness constraint at the repository
	// layer (a message can be re-fetched under a different UID, e.g. after
	// a move between folders); checking it here too means a message_id
	// collision is caught before any of the post-insert side effects below
	// run, not just before the row write itself (spec B3: a duplicate gets
	// no new row at all, not a new row plus a duplicated bounce/thread
	// update).
	if msg.MessageID != "" {
		existingByMessageID, err := p.emails.FindEmailByMessageID(ctx, mailboxID, msg.MessageID)
		if err != nil {
			return fmt.Errorf("persist: dedup lookup by message id: %w", err)
		}
		if existingByMessageID != nil {
			return nil
		}
	}

	email := buildEmail(mailboxID, userID, threadID, msg, category, confidence)

	if err := p.emails.InsertEmail(ctx, email); err != nil {
		return fmt.Errorf("persist: insert email: %w", err)
	}

	if err := p.resolver.UpdateAggregate(ctx, threadID); err != nil {
		return fmt.Errorf("persist: update thread aggregate: %w", err)
	}

	if err := p.publisher.PublishEmailIngested(ctx, email); err != nil {
		p.log.Warnf("persist: publish email ingested event: %v", err)
	}

	if category == enum.CategoryBounce && bounceResult != nil && bounceResult.FailedRecipient != "" {
		aggregate, err := p.persistBounce(ctx, userID, mailboxID, msg.UID, bounceResult)
		if err != nil {
			return fmt.Errorf("persist: bounce: %w", err)
		}
		if err := p.publisher.PublishBounceDetected(ctx, aggregate); err != nil {
			p.log.Warnf("persist: publish bounce detected event: %v", err)
		}
	}

	return nil
}

func buildEmail(mailboxID, userID, threadID string, msg *imapfetch.RawMessage, category enum.Category, confidence float64) *models.Email {
	fromAddress, fromName := normalizeFrom(msg.FromAddress, msg.FromName)

	headers := make(models.JSONMap, len(msg.Headers))
	for key, values := range msg.Headers {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return &models.Email{
		UserID:             userID,
		MailboxID:          mailboxID,
		UID:                msg.UID,
		MessageID:          msg.MessageID,
		ThreadID:           threadID,
		InReplyTo:          msg.InReplyTo,
		References:         msg.References,
		Subject:            msg.Subject,
		FromAddress:        fromAddress,
		FromName:           fromName,
		ToAddresses:        utils.UniqueLowerEmails(msg.ToAddresses),
		CcAddresses:        utils.UniqueLowerEmails(msg.CcAddresses),
		BccAddresses:       utils.UniqueLowerEmails(msg.BccAddresses),
		Category:           category,
		CategoryConfidence: confidence,
		BodyPreview:        bodyPreview(msg.Body()),
		ReceivedAt:         msg.ReceivedAt,
		SizeBytes:          msg.SizeBytes,
		Headers:            headers,
	}
}

// normalizeFrom lowercases the address and derives a display name from a
// `"Name" <addr>` form when msg.FromName is empty, falling back to the
// address local-part (spec §4.5 field normalization).
func normalizeFrom(address, name string) (string, string) {
	address = strings.TrimSpace(address)
	name = strings.TrimSpace(name)
	if lt := strings.LastIndex(address, "<"); lt >= 0 && strings.HasSuffix(address, ">") {
		if name == "" {
			name = strings.TrimSpace(strings.Trim(strings.TrimSpace(address[:lt]), `"`))
		}
		address = address[lt+1 : len(address)-1]
	}
	address = strings.ToLower(strings.TrimSpace(address))
	if name != "" {
		return address, name
	}

	if at := strings.Index(address, "@"); at > 0 {
		return address, address[:at]
	}
	return address, ""
}

func bodyPreview(body string) string {
	text := htmlTagRe.ReplaceAllString(body, " ")
	text = html.UnescapeString(text)
	text = whitespaceCollapseRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > bodyPreviewMaxLen {
		text = text[:bodyPreviewMaxLen]
	}
	return text
}

func (p *Persister) persistBounce(ctx context.Context, userID, mailboxID string, uid uint32, result *bounce.Result) (*models.BounceAggregate, error) {
	now := utils.Now()

	aggregate, err := p.bounces.FindBounce(ctx, mailboxID, result.FailedRecipient)
	if err != nil {
		return nil, fmt.Errorf("find aggregate: %w", err)
	}

	if aggregate != nil {
		if err := p.bounces.IncrementBounceFailure(ctx, aggregate.ID, now); err != nil {
			return nil, fmt.Errorf("increment failure: %w", err)
		}
		aggregate.FailureCount++
		aggregate.LastFailedAt = now
	} else {
		aggregate = &models.BounceAggregate{
			UserID:        userID,
			MailboxID:     mailboxID,
			Email:         result.FailedRecipient,
			BounceType:    result.Type,
			ErrorCode:     result.ErrorCode,
			Reason:        result.Diagnostic,
			FailureCount:  1,
			FirstFailedAt: now,
			LastFailedAt:  now,
		}
		if err := p.bounces.InsertBounce(ctx, aggregate); err != nil {
			return nil, fmt.Errorf("insert aggregate: %w", err)
		}
	}

	event := &models.BounceEvent{
		BounceID:   aggregate.ID,
		UserID:     userID,
		MessageUID: uid,
		ErrorCode:  result.ErrorCode,
		Diagnostic: result.Diagnostic,
		OccurredAt: now,
	}
	if err := p.bounces.InsertBounceEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return aggregate, nil
}
