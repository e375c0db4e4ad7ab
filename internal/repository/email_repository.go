package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/tracing"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailStore {
	return &emailRepository{db: db}
}

// FindEmail looks up an email by its mailbox-scoped UID, the first half of
// the Persister's dedup guard (spec §4.5 step 1).
func (r *emailRepository) FindEmail(ctx context.Context, mailboxID string, uid uint32) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.FindEmail")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	span.SetTag("mailbox_id", mailboxID)

	var email models.Email
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND uid = ?", mailboxID, uid).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// FindEmailByMessageID looks up an email by its mailbox-scoped Message-ID,
// the second half of the dedup guard (spec §4.5 step 2).
func (r *emailRepository) FindEmailByMessageID(ctx context.Context, mailboxID, messageID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.FindEmailByMessageID")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	span.SetTag("mailbox_id", mailboxID)

	var email models.Email
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND message_id = ?", mailboxID, messageID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// FindEmailsByMessageIDs resolves the References header chain to
// candidate parent emails for thread resolution (spec §4.3 step 2).
func (r *emailRepository) FindEmailsByMessageIDs(ctx context.Context, mailboxID string, messageIDs []string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.FindEmailsByMessageIDs")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	span.SetTag("mailbox_id", mailboxID)

	if len(messageIDs) == 0 {
		return nil, nil
	}

	var emails []*models.Email
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND message_id IN ?", mailboxID, messageIDs).
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

// InsertEmail creates the email row. Callers are expected to have already
// run the FindEmail/FindEmailByMessageID dedup guard; a unique-constraint
// violation here is still treated as a benign duplicate rather than a
// fatal error, since two concurrent syncs of the same mailbox can race
// past the guard (spec §4.5 step 2, §7).
func (r *emailRepository) InsertEmail(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.InsertEmail")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, email.MailboxID)

	err := r.db.WithContext(ctx).Create(email).Error
	if err != nil {
		if isUniqueViolation(err) {
			span.SetTag("duplicate", true)
			return nil
		}
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
