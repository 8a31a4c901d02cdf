package dispatch

import (
	"context"

	pkgLog "bank-webhook-gateway/pkg/log"
)

// NormalizedEvent is what downstream consumers receive. Duplicate
// deliveries are possible; idempotent handling is the consumer's job.
type NormalizedEvent struct {
	Name       string // logical event type, e.g. "transaction"
	DeliveryID string // per-delivery correlation id
	Fields     map[string]any
}

// Consumer receives normalized events after the delivery has been acked.
type Consumer interface {
	Consume(ctx context.Context, event NormalizedEvent)
}

// LogConsumer is the default sink: it just logs what would be delivered.
type LogConsumer struct {
	l pkgLog.Logger
}

func NewLogConsumer(l pkgLog.Logger) *LogConsumer {
	return &LogConsumer{l: l}
}

func (c *LogConsumer) Consume(ctx context.Context, event NormalizedEvent) {
	c.l.Infof(ctx, "event %s (%s): operation=%v transaction=%v amount=%v status=%v",
		event.Name, event.DeliveryID,
		event.Fields["operation_type"], event.Fields["transaction_id"],
		event.Fields["amount"], event.Fields["status"])
}
