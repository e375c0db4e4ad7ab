package repository

import (
	"gorm.io/gorm"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/models"
)

// Repositories aggregates every store this engine needs and satisfies
// interfaces.Store in full, so components can depend on the narrower
// per-entity interfaces while main wires one concrete value.
type Repositories struct {
	interfaces.MailboxStore
	interfaces.EmailStore
	interfaces.ThreadStore
	interfaces.BounceStore
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		MailboxStore: NewMailboxRepository(db),
		EmailStore:   NewEmailRepository(db),
		ThreadStore:  NewThreadRepository(db),
		BounceStore:  NewBounceRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Mailbox{},
		&models.Email{},
		&models.Thread{},
		&models.BounceAggregate{},
		&models.BounceEvent{},
	)
}
