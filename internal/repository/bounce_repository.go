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

type bounceRepository struct {
	db *gorm.DB
}

func NewBounceRepository(db *gorm.DB) interfaces.BounceStore {
	return &bounceRepository{db: db}
}

// FindBounce looks up the per-(user, mailbox, recipient) aggregate row
// (spec §4.5 step 4a).
func (r *bounceRepository) FindBounce(ctx context.Context, mailboxID, email string) (*models.BounceAggregate, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bounceRepository.FindBounce")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, mailboxID)

	var bounce models.BounceAggregate
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND email = ?", mailboxID, email).
		First(&bounce).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &bounce, nil
}

// InsertBounce creates the aggregate row on the recipient's first observed
// bounce (spec §4.5 step 4c). A unique-violation race against a concurrent
// first bounce for the same recipient is treated as benign: the other
// writer's row is the record of truth.
func (r *bounceRepository) InsertBounce(ctx context.Context, bounce *models.BounceAggregate) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bounceRepository.InsertBounce")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	tracing.TagMailboxID(span, bounce.MailboxID)

	err := r.db.WithContext(ctx).Create(bounce).Error
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

// IncrementBounceFailure atomically bumps failure_count and last_failed_at
// in a single UPDATE, the store-provided increment primitive spec §4.5
// step 4b prefers over a read-modify-write.
func (r *bounceRepository) IncrementBounceFailure(ctx context.Context, bounceID string, failedAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bounceRepository.IncrementBounceFailure")
	defer span.Finish()
	tracing.TagComponentRepository(span)
	span.SetTag("bounce_id", bounceID)

	err := r.db.WithContext(ctx).
		Model(&models.BounceAggregate{}).
		Where("id = ?", bounceID).
		Updates(map[string]interface{}{
			"failure_count":  gorm.Expr("failure_count + 1"),
			"last_failed_at": failedAt,
			"updated_at":     failedAt,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// InsertBounceEvent appends the per-message bounce log entry
// (spec §4.5 step 4d).
func (r *bounceRepository) InsertBounceEvent(ctx context.Context, event *models.BounceEvent) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bounceRepository.InsertBounceEvent")
	defer span.Finish()
	tracing.TagComponentRepository(span)

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
