package services

import (
	"context"
	"maps"
)

const (
	orderEventStatusChanged = "order.status.changed"
	orderEventCancelled     = "order.cancelled"
	orderEventJobCompleted  = "order.job.completed"
)

// publishOrderEvent is best effort: a failed publish is logged and never fails the caller.
func publishOrderEvent(ctx context.Context, events OrderEventPublisher, logger Logger, event OrderEvent) {
	if events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := events.PublishOrderEvent(ctx, event); err != nil {
		logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}
