package notifications

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an order lifecycle notification.
type EventType string

const (
	EventOrderCreated              EventType = "order.created"
	EventOrderStatusChanged        EventType = "order.status_changed"
	EventOrderPaymentStatusChanged EventType = "order.payment_status_changed"
	EventOrderCancelled            EventType = "order.cancelled"
)

// Event is the payload published for an order lifecycle change.
type Event struct {
	ID             uuid.UUID   `json:"id"`
	Type           EventType   `json:"type"`
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	CustomerID     uuid.UUID   `json:"customer_id"`
	SellerIDs      []uuid.UUID `json:"seller_ids,omitempty"`
	ActorID        uuid.UUID   `json:"actor_id"`
	PreviousStatus string      `json:"previous_status,omitempty"`
	Status         string      `json:"status,omitempty"`
	Reason         *string     `json:"reason,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// Attributes are the Pub/Sub message attributes subscribers can filter on.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_type":  string(e.Type),
		"event_id":    e.ID.String(),
		"order_id":    e.OrderID.String(),
		"customer_id": e.CustomerID.String(),
	}
}
