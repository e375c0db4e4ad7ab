package interfaces

import (
	"context"

	"github.com/inboxforge/syncengine/internal/models"
)

// EventPublisher fans out sync-engine domain events to downstream
// consumers (SPEC_FULL.md §9). The engine's own correctness never depends
// on delivery: a publish failure is logged by the caller and does not
// fail the sync cycle.
type EventPublisher interface {
	PublishEmailIngested(ctx context.Context, email *models.Email) error
	PublishBounceDetected(ctx context.Context, bounce *models.BounceAggregate) error
	Close() error
}
