package events

import (
	"context"

	"github.com/inboxforge/syncengine/internal/models"
)

// NoopPublisher discards every event. It is the default when RabbitMQ
// isn't configured, since publishing is a side channel the sync engine's
// own correctness never depends on.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) PublishEmailIngested(ctx context.Context, email *models.Email) error {
	return nil
}

func (NoopPublisher) PublishBounceDetected(ctx context.Context, bounce *models.BounceAggregate) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
