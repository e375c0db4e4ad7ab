package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/utils"
)

// Email is one ingested message. Uniqueness on (mailbox_id, uid) and
// (mailbox_id, message_id) is enforced by the composite unique indexes
// below; the Persister additionally guards both before insert (spec §4.5).
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(50);index;not null"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);uniqueIndex:idx_email_mailbox_uid;uniqueIndex:idx_email_mailbox_message;index;not null"`
	UID       uint32 `gorm:"column:uid;uniqueIndex:idx_email_mailbox_uid;not null"`
	MessageID string `gorm:"column:message_id;uniqueIndex:idx_email_mailbox_message;type:varchar(998);not null"`

	ThreadID   string         `gorm:"column:thread_id;type:varchar(50);index;not null"`
	InReplyTo  string         `gorm:"column:in_reply_to;type:varchar(998);index"`
	References pq.StringArray `gorm:"column:references;type:text[]"`

	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`

	Category           enum.Category `gorm:"column:category;type:varchar(20);index;not null"`
	CategoryConfidence float64       `gorm:"column:category_confidence"`

	BodyPreview   string `gorm:"column:body_preview;type:varchar(300)"`
	HasAttachments bool  `gorm:"column:has_attachments;default:false"`

	IsRead     bool `gorm:"column:is_read;default:false"`
	IsStarred  bool `gorm:"column:is_starred;default:false"`
	IsArchived bool `gorm:"column:is_archived;default:false"`

	ReceivedAt time.Time `gorm:"column:received_at;type:timestamp;index;not null"`
	SizeBytes  int64     `gorm:"column:size_bytes"`

	Headers JSONMap `gorm:"column:headers;type:jsonb"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateID("email", 24)
	}
	now := utils.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// HeaderValue does a case-insensitive lookup against the opaque headers
// map, matching the "loose header casing" design note (spec §9).
func (e *Email) HeaderValue(key string) (string, bool) {
	if e.Headers == nil {
		return "", false
	}
	lowerKey := strings.ToLower(key)
	for k, v := range e.Headers {
		if strings.ToLower(k) == lowerKey {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func (e *Email) HasHeader(key string) bool {
	_, ok := e.HeaderValue(key)
	return ok
}

// AllRecipients returns the union of to/cc/bcc, used by the Thread
// Resolver to build a thread's participant set.
func (e *Email) AllRecipients() []string {
	all := make([]string, 0, len(e.ToAddresses)+len(e.CcAddresses)+len(e.BccAddresses))
	all = append(all, e.ToAddresses...)
	all = append(all, e.CcAddresses...)
	all = append(all, e.BccAddresses...)
	return all
}
