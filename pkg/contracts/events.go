package contracts

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape of a domain event once it leaves the order
// service (Kafka relay, notification consumers).
type Envelope struct {
	EventID    string          `json:"event_id"`
	OrderID    string          `json:"order_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderStatusBroadcast is pushed to restaurant and customer channels
// whenever an order changes status.
type OrderStatusBroadcast struct {
	OrderID               string     `json:"order_id"`
	RestaurantID          string     `json:"restaurant_id"`
	CustomerID            string     `json:"customer_id"`
	Status                string     `json:"status"`
	EventID               string     `json:"event_id"`
	EventType             string     `json:"event_type"`
	OccurredAt            time.Time  `json:"occurred_at"`
	DeliveredAt           *time.Time `json:"delivered_at,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	Reason                string     `json:"reason,omitempty"`
}

const (
	EventOrderCreated          = "order.created"
	EventOrderPaymentSucceeded = "order.payment_succeeded"
	EventOrderPaymentFailed    = "order.payment_failed"
	EventOrderPlaced           = "order.placed"
	EventOrderAccepted         = "order.accepted"
	EventOrderRejected         = "order.rejected"
	EventOrderCancelled        = "order.cancelled"
	EventOrderPreparing        = "order.preparing"
	EventOrderReadyForDelivery = "order.ready_for_delivery"
	EventOrderDelivered        = "order.delivered"
	EventOrderPaid             = "order.paid"
)

const (
	TopicOrderEvents = "order-events"
	TopicOrderStatus = "order-status"
)

const (
	AudienceCustomer   = "customer"
	AudienceRestaurant = "restaurant"
)

// StatusNotification is one broadcast addressed to one audience; it is what
// travels on the status topic, exchange or channel.
type StatusNotification struct {
	Audience    string               `json:"audience"`
	RecipientID string               `json:"recipient_id"`
	Broadcast   OrderStatusBroadcast `json:"broadcast"`
}
