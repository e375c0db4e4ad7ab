package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/utils"
)

// BounceAggregate is a per-(user, mailbox, recipient) rollup, upserted on
// each bounce event for that recipient (spec §3, §4.5).
type BounceAggregate struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(50);uniqueIndex:idx_bounce_user_mailbox_email;index;not null"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);uniqueIndex:idx_bounce_user_mailbox_email;index;not null"`
	Email     string `gorm:"column:email;type:varchar(254);uniqueIndex:idx_bounce_user_mailbox_email;not null"`

	BounceType enum.BounceType `gorm:"column:bounce_type;type:varchar(10);not null"`
	ErrorCode  string          `gorm:"column:error_code;type:varchar(10)"`
	Reason     string          `gorm:"column:reason;type:varchar(300)"`

	FailureCount  int       `gorm:"column:failure_count;default:1"`
	FirstFailedAt time.Time `gorm:"column:first_failed_at;type:timestamp;not null"`
	LastFailedAt  time.Time `gorm:"column:last_failed_at;type:timestamp;not null"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (BounceAggregate) TableName() string {
	return "bounce_aggregates"
}

func (b *BounceAggregate) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = utils.GenerateID("bnce", 16)
	}
	now := utils.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// BounceEvent is an append-only log entry, one per successfully-processed
// bounce message (spec §3).
type BounceEvent struct {
	ID         string    `gorm:"column:id;type:varchar(50);primaryKey"`
	BounceID   string    `gorm:"column:bounce_id;type:varchar(50);index;not null"`
	UserID     string    `gorm:"column:user_id;type:varchar(50);index;not null"`
	MessageUID uint32    `gorm:"column:message_uid;not null"`
	ErrorCode  string    `gorm:"column:error_code;type:varchar(10)"`
	Diagnostic string    `gorm:"column:diagnostic;type:varchar(300)"`
	OccurredAt time.Time `gorm:"column:occurred_at;type:timestamp;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (BounceEvent) TableName() string {
	return "bounce_events"
}

func (e *BounceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateID("bevt", 16)
	}
	e.CreatedAt = utils.Now()
	return nil
}
