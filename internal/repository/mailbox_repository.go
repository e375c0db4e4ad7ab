package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/tracing"
)

type mailboxRepository struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) interfaces.MailboxStore {
	return &mailboxRepository{db: db}
}

func (r *mailboxRepository) GetMailbox(ctx context.Context, id string) (*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetMailbox")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, id)

	var mailbox models.Mailbox
	err := r.db.WithContext(ctx).First(&mailbox, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMailboxNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &mailbox, nil
}

// GetActiveMailboxes returns every mailbox eligible for a sync cycle. A
// mailbox in ERROR or DISABLED status is excluded until an operator flips
// it back to ACTIVE (spec §3, §5).
func (r *mailboxRepository) GetActiveMailboxes(ctx context.Context) ([]*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.GetActiveMailboxes")
	defer span.Finish()
	tracing.TagComponentRepository(span)

	var mailboxes []*models.Mailbox
	err := r.db.WithContext(ctx).
		Where("status = ?", enum.MailboxActive).
		Find(&mailboxes).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return mailboxes, nil
}

// UpdateMailbox persists the Mailbox Coordinator's checkpoint and status
// fields after a sync attempt (spec §4.6, §5, §7).
func (r *mailboxRepository) UpdateMailbox(ctx context.Context, mailbox *models.Mailbox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxRepository.UpdateMailbox")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, mailbox.ID)

	updates := map[string]interface{}{
		"last_synced_uid": mailbox.LastSyncedUID,
		"last_synced_at":  mailbox.LastSyncedAt,
		"status":          mailbox.Status,
		"last_error":      mailbox.LastError,
		"updated_at":      mailbox.UpdatedAt,
	}

	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("id = ?", mailbox.ID).
		Updates(updates).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
