package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

// Message is the wire form of a status event shared by relays and sinks.
type Message struct {
	OrderID        int64     `json:"orderId"`
	ItemName       string    `json:"itemName"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	EmittedAt      time.Time `json:"emittedAt"`
}

// NewMessage converts a domain event into its wire form.
func NewMessage(event domain.StatusChanged) Message {
	return Message{
		OrderID:        event.OrderID,
		ItemName:       event.ItemName,
		Status:         event.Status.String(),
		PreviousStatus: event.PreviousStatus.String(),
		EmittedAt:      event.OccurredAt().UTC(),
	}
}

// Event converts the wire form back, rejecting unknown statuses.
func (m Message) Event() (domain.StatusChanged, error) {
	status, err := domain.ParseStatus(m.Status)
	if err != nil {
		return domain.StatusChanged{}, err
	}
	event := domain.StatusChanged{
		BaseEvent: domain.BaseEvent{Timestamp: m.EmittedAt},
		OrderID:   m.OrderID,
		ItemName:  m.ItemName,
		Status:    status,
	}
	if m.PreviousStatus != "" {
		if prev, err := domain.ParseStatus(m.PreviousStatus); err == nil {
			event.PreviousStatus = prev
		}
	}
	return event, nil
}

// Encode marshals an event for a relay or sink.
func Encode(event domain.StatusChanged) ([]byte, error) {
	return json.Marshal(NewMessage(event))
}

// Decode parses a payload produced by Encode.
func Decode(payload []byte) (domain.StatusChanged, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.StatusChanged{}, fmt.Errorf("decode status event: %w", err)
	}
	return msg.Event()
}
