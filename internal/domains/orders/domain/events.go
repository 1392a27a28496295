package domain

import "time"

// StatusChangedEventName is the logical channel status events travel on.
const StatusChangedEventName = "order-status-updates"

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// StatusChanged is emitted once per accepted transition. It is never persisted.
type StatusChanged struct {
	BaseEvent
	OrderID        int64
	ItemName       string
	Status         Status
	PreviousStatus Status
}

// EventName returns the event type identifier.
func (e StatusChanged) EventName() string {
	return StatusChangedEventName
}
