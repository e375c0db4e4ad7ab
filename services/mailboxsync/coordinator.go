// Package mailboxsync implements the Mailbox Coordinator (spec §4.6): one
// sync cycle for one mailbox, wiring the Fetcher, Classifier, Thread
// Resolver, Bounce Parser, and Persister together under the
// never-advance-the-checkpoint-past-a-failure rule.
//
// Grounded on the teacher's services/imap/service.go runSingleMailbox /
// processFolder orchestration (load -> connect -> fetch -> process-each ->
// update-checkpoint) and services/mailbox/service.go's mailbox load/validate
// pattern, narrowed from "one goroutine polling forever" to "one callable
// cycle" since the scheduler is an external collaborator (spec §1).
package mailboxsync

import (
	"context"
	"fmt"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/errs"
	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/utils"
	"github.com/inboxforge/syncengine/services/bounce"
	"github.com/inboxforge/syncengine/services/classifier"
	"github.com/inboxforge/syncengine/services/imapfetch"
	"github.com/inboxforge/syncengine/services/persist"
	"github.com/inboxforge/syncengine/services/thread"
)

// Coordinator runs one sync cycle per mailbox (spec §4.6 contract
// sync(mailbox_id) -> ()).
type Coordinator struct {
	mailboxes interfaces.MailboxStore
	decryptor interfaces.CredentialDecryptor
	resolver  *thread.Resolver
	persister *persist.Persister
	cfg       *config.SyncConfig
	log       logger.Logger
}

func NewCoordinator(mailboxes interfaces.MailboxStore, decryptor interfaces.CredentialDecryptor, resolver *thread.Resolver, persister *persist.Persister, cfg *config.SyncConfig, log logger.Logger) *Coordinator {
	return &Coordinator{
		mailboxes: mailboxes,
		decryptor: decryptor,
		resolver:  resolver,
		persister: persister,
		cfg:       cfg,
		log:       log,
	}
}

// Sync runs one cycle for mailboxID: connect, fetch new messages since the
// last checkpoint, and process each in UID order. A per-message failure is
// logged and skipped without aborting the cycle or advancing the
// checkpoint past the failing UID (spec §4.6 step 7, §5).
func (c *Coordinator) Sync(ctx context.Context, mailboxID string) error {
	mailbox, err := c.mailboxes.GetMailbox(ctx, mailboxID)
	if err != nil {
		return fmt.Errorf("mailboxsync: load mailbox: %w", err)
	}
	if mailbox == nil || mailbox.Status != enum.MailboxActive {
		return nil
	}

	password, err := c.decryptor.Decrypt(mailbox.ImapEncryptedPassword)
	if err != nil {
		c.log.Errorf("mailboxsync: mailbox %s: credential decryption failed: %v", mailboxID, err)
		return c.fail(ctx, mailbox, errs.Fatal(mailboxID, err))
	}

	imapClient, err := imapfetch.Connect(mailbox, password, c.cfg)
	if err != nil {
		c.log.Errorf("mailboxsync: mailbox %s: connect failed: %v", mailboxID, err)
		return c.fail(ctx, mailbox, err)
	}
	defer imapfetch.Disconnect(imapClient)

	// A fetcher-level error never touches last_synced_uid (spec §4.6 step
	// 9; whatever was already persisted in prior cycles stays persisted),
	// but only a fatal one (auth failure, missing INBOX) moves the mailbox
	// to ERROR — a transient one (timeout, connection reset) leaves status
	// ACTIVE so the next scheduled cycle retries (spec §4.1, §7).
	messages, err := imapfetch.Fetch(imapClient, mailboxID, mailbox.LastSyncedUID, c.cfg)
	if err != nil {
		c.log.Warnf("mailboxsync: mailbox %s: fetch failed: %v", mailboxID, err)
		return c.fail(ctx, mailbox, err)
	}

	if len(messages) == 0 {
		mailbox.LastSyncedAt = utils.NowPtr()
		return c.mailboxes.UpdateMailbox(ctx, mailbox)
	}

	// The checkpoint advances only up to the first message that fails;
	// later messages still get processed (and, being UID-ascending, the
	// dedup guard in Persist makes re-examining them on a future cycle a
	// no-op), but max_uid never passes the failing UID (spec §4.6 step 7,
	// §5 ordering guarantees).
	maxUID := mailbox.LastSyncedUID
	sawFailure := false
	for _, msg := range messages {
		if err := c.processMessage(ctx, mailbox.ID, mailbox.UserID, msg); err != nil {
			c.log.Warnf("mailboxsync: mailbox %s: uid %d: %v", mailboxID, msg.UID, err)
			sawFailure = true
			continue
		}
		if !sawFailure && msg.UID > maxUID {
			maxUID = msg.UID
		}
	}

	mailbox.LastSyncedUID = maxUID
	mailbox.LastSyncedAt = utils.NowPtr()
	mailbox.LastError = ""
	return c.mailboxes.UpdateMailbox(ctx, mailbox)
}

func (c *Coordinator) processMessage(ctx context.Context, mailboxID, userID string, msg *imapfetch.RawMessage) error {
	category, confidence := classifier.Classify(msg)

	threadID, err := c.resolver.Resolve(ctx, mailboxID, userID, msg)
	if err != nil {
		return errs.PerMessage(msg.UID, fmt.Errorf("resolve thread: %w", err))
	}

	var bounceResult *bounce.Result
	if category == enum.CategoryBounce {
		bounceResult = bounce.Parse(msg, c.cfg.SubjectRecipientFallback)
		if bounceResult == nil && c.cfg.DebugBounces {
			body := msg.Body()
			if len(body) > 500 {
				body = body[:500]
			}
			c.log.Infof("mailboxsync: mailbox %s: uid %d: unparseable bounce: %s", mailboxID, msg.UID, body)
		}
	}

	if err := c.persister.Persist(ctx, mailboxID, userID, msg, category, confidence, threadID, bounceResult); err != nil {
		return errs.PerMessage(msg.UID, fmt.Errorf("persist: %w", err))
	}
	return nil
}

// fail records cause in last_error and persists the status change. Only a
// FatalMailboxError moves the mailbox to ERROR (spec §4.6 step 2); a
// TransientError (or anything else) leaves status untouched so the
// mailbox stays eligible for the next scheduled cycle (spec §4.1, §7).
func (c *Coordinator) fail(ctx context.Context, mailbox *models.Mailbox, cause error) error {
	if errs.IsFatal(cause) {
		mailbox.Status = enum.MailboxError
	}
	mailbox.LastError = cause.Error()
	if err := c.mailboxes.UpdateMailbox(ctx, mailbox); err != nil {
		return fmt.Errorf("mailboxsync: recording failure status: %w", err)
	}
	return nil
}
