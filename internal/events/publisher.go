// Package events publishes sync-engine domain events (email ingested,
// bounce detected) to RabbitMQ. Grounded on the teacher's
// services/events publisher, trimmed to the two direct exchanges this
// domain actually needs and with the listener/subscriber half dropped:
// the sync engine only ever produces these events, it does not consume
// them (SPEC_FULL.md §9).
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/inboxforge/syncengine/internal/logger"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/tracing"
)

const (
	ExchangeSyncEvents = "syncengine-events"
	ExchangeDeadLetter = "syncengine-dead-letter"

	RoutingKeyEmailIngested  = "email.ingested"
	RoutingKeyBounceDetected = "bounce.detected"

	QueueEmailIngested  = "email-ingested"
	QueueBounceDetected = "bounce-detected"

	DefaultMessageTTL     = 240 * time.Hour
	DefaultMaxRetries     = 3
	DefaultPublishTimeout = 5 * time.Second
)

// envelope is the wire shape every published message shares, mirroring
// the teacher's dto.Event envelope without the multi-tenant fields this
// domain doesn't have.
type envelope struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type PublisherConfig struct {
	MessageTTL     time.Duration
	MaxRetries     int
	PublishTimeout time.Duration
}

func defaultConfig() PublisherConfig {
	return PublisherConfig{
		MessageTTL:     DefaultMessageTTL,
		MaxRetries:     DefaultMaxRetries,
		PublishTimeout: DefaultPublishTimeout,
	}
}

// RabbitMQPublisher implements interfaces.EventPublisher.
type RabbitMQPublisher struct {
	url      string
	log      logger.Logger
	config   PublisherConfig
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	confirms chan amqp091.Confirmation
}

func NewRabbitMQPublisher(url string, log logger.Logger, cfg *PublisherConfig) (*RabbitMQPublisher, error) {
	resolved := defaultConfig()
	if cfg != nil {
		resolved = *cfg
	}

	p := &RabbitMQPublisher{url: url, log: log, config: resolved}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "dialing rabbitmq")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "opening channel")
	}

	if err := channel.ExchangeDeclare(ExchangeDeadLetter, "direct", true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declaring dead letter exchange")
	}
	if err := channel.ExchangeDeclare(ExchangeSyncEvents, "direct", true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declaring sync events exchange")
	}

	for _, q := range []struct{ name, routingKey string }{
		{QueueEmailIngested, RoutingKeyEmailIngested},
		{QueueBounceDetected, RoutingKeyBounceDetected},
	} {
		args := amqp091.Table{
			"x-dead-letter-exchange": ExchangeDeadLetter,
			"x-message-ttl":          int64(p.config.MessageTTL.Milliseconds()),
		}
		if _, err := channel.QueueDeclare(q.name, true, false, false, false, args); err != nil {
			return errors.Wrapf(err, "declaring queue %s", q.name)
		}
		if err := channel.QueueBind(q.name, q.routingKey, ExchangeSyncEvents, false, nil); err != nil {
			return errors.Wrapf(err, "binding queue %s", q.name)
		}
	}

	if err := channel.Confirm(false); err != nil {
		return errors.Wrap(err, "enabling publisher confirms")
	}

	p.conn = conn
	p.channel = channel
	p.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	return nil
}

func (p *RabbitMQPublisher) PublishEmailIngested(ctx context.Context, email *models.Email) error {
	return p.publish(ctx, "EmailIngested", email, RoutingKeyEmailIngested)
}

func (p *RabbitMQPublisher) PublishBounceDetected(ctx context.Context, bounce *models.BounceAggregate) error {
	return p.publish(ctx, "BounceDetected", bounce, RoutingKeyBounceDetected)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, eventType string, data interface{}, routingKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.Publish")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("event.type", eventType)

	msg := envelope{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "marshaling event")
	}

	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if lastErr = p.publishOnce(ctx, body, routingKey); lastErr == nil {
			return nil
		}
		p.log.Warnf("publish attempt %d for %s failed: %v", attempt+1, eventType, lastErr)
		time.Sleep(time.Millisecond * 100 * time.Duration(attempt+1))
	}

	tracing.TraceErr(span, lastErr)
	return errors.Wrap(lastErr, "publishing event after retries")
}

func (p *RabbitMQPublisher) publishOnce(ctx context.Context, body []byte, routingKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err := p.channel.Publish(ExchangeSyncEvents, routingKey, true, false, amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "publishing message")
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return errors.New("message was not confirmed")
		}
		return nil
	case <-time.After(p.config.PublishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		if cerr := p.channel.Close(); cerr != nil {
			err = cerr
		}
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
