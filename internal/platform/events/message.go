// Package events publishes order domain events to a message broker.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tailor-market/api/internal/services"
)

// Message is the JSON body carried by every published order event.
type Message struct {
	Type           string         `json:"type"`
	OrderID        string         `json:"orderId"`
	ClientID       string         `json:"clientId,omitempty"`
	DesignerID     string         `json:"designerId,omitempty"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	CurrentStatus  string         `json:"currentStatus,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func encode(event services.OrderEvent) ([]byte, map[string]string, error) {
	if strings.TrimSpace(event.Type) == "" || strings.TrimSpace(event.OrderID) == "" {
		return nil, nil, fmt.Errorf("events: event type and order id are required")
	}
	data, err := json.Marshal(Message{
		Type:           event.Type,
		OrderID:        event.OrderID,
		ClientID:       event.ClientID,
		DesignerID:     event.DesignerID,
		PreviousStatus: event.PreviousStatus,
		CurrentStatus:  event.CurrentStatus,
		ActorID:        event.ActorID,
		OccurredAt:     event.OccurredAt.UTC(),
		Metadata:       event.Metadata,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal order event: %w", err)
	}
	return data, attributes(
		"type", event.Type,
		"orderId", event.OrderID,
		"status", event.CurrentStatus,
	), nil
}

// attributes builds routing attributes from key/value pairs, dropping blank values.
func attributes(pairs ...string) map[string]string {
	attrs := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if value := strings.TrimSpace(pairs[i+1]); value != "" {
			attrs[pairs[i]] = value
		}
	}
	return attrs
}
