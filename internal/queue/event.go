// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue name for lifecycle notifications. Publishers and the consumer
// declare it durably on both sides.
const ServiceEventsQueue = "service.events"

// Event kinds carried in ServiceRequestEvent.Kind.
const (
	EventAssigned     = "assigned"
	EventManualReview = "manual_review"
	EventCompleted    = "completed"
)

// ServiceRequestEvent is published when a request reaches a state the
// responsible department or the admins should hear about. It carries
// enough information for downstream consumers to log or notify without
// querying the primary database. Delivery is fire-and-forget: publish
// failures are logged and swallowed, they never fail or roll back a
// lifecycle transition.
type ServiceRequestEvent struct {
	Kind        string `json:"kind"`
	RequestID   uint64 `json:"request_id,omitempty"`
	OrderID     uint64 `json:"order_id,omitempty"`
	ResidentID  uint64 `json:"resident_id"`
	ServiceType string `json:"service_type"`
	Priority    string `json:"priority,omitempty"`
	Department  string `json:"department"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
