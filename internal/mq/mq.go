package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/types"
	"go.uber.org/zap"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A returned error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each supported broker.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// NewBackend connects to the configured broker. It returns nil for the "none" backend.
func NewBackend(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
}

const attrEventType = "event_type"

// EventBus publishes and consumes identity lifecycle events on one topic.
// It implements auth.EventPublisher.
type EventBus struct {
	backend Backend
	topic   string
	logger  *zap.Logger
}

func NewEventBus(backend Backend, topic string, logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{backend: backend, topic: topic, logger: logger}
}

func (b *EventBus) PublishIdentityEvent(ctx context.Context, event types.IdentityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	id, err := b.backend.Publish(ctx, b.topic, data, map[string]string{attrEventType: event.Type})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	b.logger.Debug("identity event published",
		zap.String("type", event.Type),
		zap.String("message_id", id),
		zap.String("identity_id", event.IdentityID),
	)
	return nil
}

// Consume delivers decoded events to handle until ctx is done. Messages that
// do not decode are logged and acknowledged so they are not redelivered.
func (b *EventBus) Consume(ctx context.Context, handle func(context.Context, types.IdentityEvent) error) error {
	return b.backend.Subscribe(ctx, b.topic, func(ctx context.Context, msg Message) error {
		var event types.IdentityEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Warn("dropping undecodable identity event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			return nil
		}
		return handle(ctx, event)
	})
}

func (b *EventBus) Close() error {
	return b.backend.Close()
}
