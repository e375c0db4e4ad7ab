package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/internal/utils"
)

// Thread is a conversation: a set of Emails related by reply/forward
// chains or subject (spec §3). first_message_at is immutable once set;
// the rest is recomputed after every insert into the thread (spec §4.3).
type Thread struct {
	ID               string         `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID           string         `gorm:"column:user_id;type:varchar(50);index;not null"`
	MailboxID        string         `gorm:"column:mailbox_id;type:varchar(50);index;not null"`
	Subject          string         `gorm:"column:subject;type:varchar(1000)"`
	NormalizedSubject string        `gorm:"column:normalized_subject;type:varchar(1000);index"`
	Participants     pq.StringArray `gorm:"column:participants;type:text[]"`
	MessageCount     int            `gorm:"column:message_count;default:1"`
	FirstMessageAt   time.Time      `gorm:"column:first_message_at;type:timestamp;not null"`
	LastMessageAt    time.Time      `gorm:"column:last_message_at;type:timestamp;index;not null"`
	IsUnread         bool           `gorm:"column:is_unread;default:true"`
	IsArchived       bool           `gorm:"column:is_archived;default:false"`
	CreatedAt        time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Thread) TableName() string {
	return "email_threads"
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateID("thrd", 16)
	}
	now := utils.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}
