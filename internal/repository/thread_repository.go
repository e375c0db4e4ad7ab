package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/tracing"
)

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) interfaces.ThreadStore {
	return &threadRepository{db: db}
}

// FindThreadByNormalizedSubject implements the Thread Resolver's fallback
// lookup (spec §4.3 step 3): same mailbox and normalized subject, active
// within the last 7 days, most recent first.
func (r *threadRepository) FindThreadByNormalizedSubject(ctx context.Context, mailboxID, normalizedSubject string, since time.Time) (*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.FindThreadByNormalizedSubject")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, mailboxID)

	var thread models.Thread
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND normalized_subject = ? AND last_message_at >= ?", mailboxID, normalizedSubject, since).
		Order("last_message_at DESC").
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &thread, nil
}

// InsertThread creates a new thread (spec §4.3 step 4).
func (r *threadRepository) InsertThread(ctx context.Context, thread *models.Thread) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.InsertThread")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, thread.MailboxID)

	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// ListEmailsInThread returns every email in the thread, oldest first, the
// input to the post-persist aggregate recompute (spec §4.3 post-persist
// update).
func (r *threadRepository) ListEmailsInThread(ctx context.Context, threadID string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.ListEmailsInThread")
	defer span.Finish()
	tracing.TagComponentRepository(span)

	var emails []*models.Email
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("received_at ASC").
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

// UpdateThread writes back the recomputed aggregate fields
// (message_count, last_message_at, participants, is_unread). first_message_at
// is immutable once set, so it is intentionally excluded from this update.
func (r *threadRepository) UpdateThread(ctx context.Context, thread *models.Thread) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.UpdateThread")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	span.SetTag("thread_id", thread.ID)

	updates := map[string]interface{}{
		"message_count":   thread.MessageCount,
		"last_message_at": thread.LastMessageAt,
		"participants":    thread.Participants,
		"is_unread":       thread.IsUnread,
		"updated_at":      thread.UpdatedAt,
	}

	err := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("id = ?", thread.ID).
		Updates(updates).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
