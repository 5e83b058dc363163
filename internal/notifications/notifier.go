package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

// Notifier delivers a single event. Implementations make no delivery guarantee.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type topicPublisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// PubSubNotifier publishes events as JSON messages to a topic.
type PubSubNotifier struct {
	publisher topicPublisher
	topic     string
	logg      *logger.Logger
}

// NewPubSubNotifier builds a notifier publishing to topic.
func NewPubSubNotifier(publisher topicPublisher, topic string, logg *logger.Logger) (*PubSubNotifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("notification topic required")
	}
	return &PubSubNotifier{publisher: publisher, topic: topic, logg: logg}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	id, err := n.publisher.Publish(ctx, n.topic, data, event.Attributes())
	if err != nil {
		return err
	}
	if n.logg != nil {
		ctx = n.logg.WithFields(ctx, map[string]any{
			"event_type": event.Type,
			"message_id": id,
		})
		n.logg.Debug(ctx, "notification published")
	}
	return nil
}

// LogNotifier writes events to the log. Used when no Pub/Sub project is configured.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a log-only notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	if n.logg == nil {
		return nil
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"event_type":   event.Type,
		"event_id":     event.ID.String(),
		"order_number": event.OrderNumber,
		"status":       event.Status,
	})
	ctx = n.logg.WithOrderID(ctx, event.OrderID.String())
	n.logg.Info(ctx, "order notification")
	return nil
}
