package events

import "go.uber.org/zap"

// Event types emitted by the sync pipeline and the order service.
const (
	OrdersChanged = "orders.changed"
	OrderUpdated  = "order.updated"
)

// Publisher receives domain events after state changes commit. Consumers can
// fan these out to webhooks or a message broker; the core only guarantees the
// call happens after the write.
type Publisher interface {
	Publish(eventType string, payload any)
}

// LogPublisher writes events to the structured log. It is the default wiring
// until an external consumer exists.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that logs every event
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(eventType string, payload any) {
	p.logger.Info("event published",
		zap.String("event_type", eventType),
		zap.Any("payload", payload),
	)
}

// NopPublisher discards all events
type NopPublisher struct{}

func (NopPublisher) Publish(eventType string, payload any) {}
