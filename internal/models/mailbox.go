package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/internal/utils"
)

// Mailbox is created externally; the engine only reads connection config
// and writes the checkpoint/status fields (spec §3).
type Mailbox struct {
	ID       string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID   string `gorm:"column:user_id;type:varchar(50);index;not null"`

	ImapHost             string `gorm:"column:imap_host;type:varchar(255);not null"`
	ImapPort             int    `gorm:"column:imap_port;not null"`
	ImapUsername         string `gorm:"column:imap_username;type:varchar(255);not null"`
	ImapEncryptedPassword string `gorm:"column:imap_encrypted_password;type:text;not null"`

	Status enum.MailboxStatus `gorm:"column:status;type:varchar(20);index;default:'ACTIVE'"`

	LastSyncedUID uint32     `gorm:"column:last_synced_uid;default:0"`
	LastSyncedAt  *time.Time `gorm:"column:last_synced_at;type:timestamp"`
	LastError     string     `gorm:"column:last_error;type:text"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Mailbox) TableName() string {
	return "mailboxes"
}

func (m *Mailbox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateID("mbox", 16)
	}
	if m.Status == "" {
		m.Status = enum.MailboxActive
	}
	now := utils.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}
