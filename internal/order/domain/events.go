package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// Event is a fact recorded by the Order aggregate. Events are buffered on the
// aggregate and persisted to the outbox in the same transaction as the order.
type Event interface {
	EventType() string
	Metadata() Meta
}

// Meta is embedded in every order event.
type Meta struct {
	EventID      string    `json:"event_id"`
	OrderID      OrderID   `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	CustomerID   string    `json:"customer_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (m Meta) Metadata() Meta { return m }

type OrderCreated struct {
	Meta
	OrderNumber string      `json:"order_number"`
	Status      Status      `json:"status"`
	TotalAmount money.Money `json:"total_amount"`
}

type OrderPaymentSucceeded struct {
	Meta
	GatewayReferenceID string      `json:"gateway_reference_id"`
	Amount             money.Money `json:"amount"`
}

type OrderPaymentFailed struct {
	Meta
	GatewayReferenceID string `json:"gateway_reference_id"`
}

type OrderPlaced struct {
	Meta
	OrderNumber string      `json:"order_number"`
	TotalAmount money.Money `json:"total_amount"`
}

type OrderAccepted struct {
	Meta
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time"`
}

type OrderRejected struct {
	Meta
	Reason string `json:"reason,omitempty"`
}

type OrderCancelled struct {
	Meta
	PreviousStatus Status `json:"previous_status"`
	Reason         string `json:"reason,omitempty"`
}

type OrderPreparing struct {
	Meta
}

type OrderReadyForDelivery struct {
	Meta
}

type OrderDelivered struct {
	Meta
	DeliveredAt time.Time   `json:"delivered_at"`
	TotalAmount money.Money `json:"total_amount"`
}

// OrderPaid is raised once a cash-on-delivery order is settled at the door.
type OrderPaid struct {
	Meta
	Amount money.Money `json:"amount"`
}

func (OrderCreated) EventType() string          { return contracts.EventOrderCreated }
func (OrderPaymentSucceeded) EventType() string { return contracts.EventOrderPaymentSucceeded }
func (OrderPaymentFailed) EventType() string    { return contracts.EventOrderPaymentFailed }
func (OrderPlaced) EventType() string           { return contracts.EventOrderPlaced }
func (OrderAccepted) EventType() string         { return contracts.EventOrderAccepted }
func (OrderRejected) EventType() string         { return contracts.EventOrderRejected }
func (OrderCancelled) EventType() string        { return contracts.EventOrderCancelled }
func (OrderPreparing) EventType() string        { return contracts.EventOrderPreparing }
func (OrderReadyForDelivery) EventType() string { return contracts.EventOrderReadyForDelivery }
func (OrderDelivered) EventType() string        { return contracts.EventOrderDelivered }
func (OrderPaid) EventType() string             { return contracts.EventOrderPaid }

func (o *Order) meta(at time.Time) Meta {
	return Meta{
		EventID:      uuid.NewString(),
		OrderID:      o.id,
		RestaurantID: o.restaurantID,
		CustomerID:   o.customerID,
		OccurredAt:   at,
	}
}

var decoders = map[string]func([]byte) (Event, error){
	contracts.EventOrderCreated:          decode[OrderCreated],
	contracts.EventOrderPaymentSucceeded: decode[OrderPaymentSucceeded],
	contracts.EventOrderPaymentFailed:    decode[OrderPaymentFailed],
	contracts.EventOrderPlaced:           decode[OrderPlaced],
	contracts.EventOrderAccepted:         decode[OrderAccepted],
	contracts.EventOrderRejected:         decode[OrderRejected],
	contracts.EventOrderCancelled:        decode[OrderCancelled],
	contracts.EventOrderPreparing:        decode[OrderPreparing],
	contracts.EventOrderReadyForDelivery: decode[OrderReadyForDelivery],
	contracts.EventOrderDelivered:        decode[OrderDelivered],
	contracts.EventOrderPaid:             decode[OrderPaid],
}

func decode[T Event](content []byte) (Event, error) {
	var evt T
	if err := json.Unmarshal(content, &evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// DecodeEvent turns a serialized outbox payload back into its typed event
// value, the same type the aggregate recorded.
func DecodeEvent(eventType string, content []byte) (Event, error) {
	fn, ok := decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	evt, err := fn(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return evt, nil
}
