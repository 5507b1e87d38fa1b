package storage

import (
	"encoding/json"
	"fmt"
	"time"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

// OrderRecord is the row shape shared by the SQL backends. Queryable columns
// are denormalized; Data holds the full snapshot.
type OrderRecord struct {
	ID           string
	OrderNumber  string
	CustomerID   string
	RestaurantID string
	Status       string
	TotalAmount  string
	Currency     string
	Data         []byte
	PlacedAt     time.Time
	UpdatedAt    time.Time
}

func EncodeOrder(o *order.Order) (OrderRecord, error) {
	snap := o.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return OrderRecord{}, fmt.Errorf("encode order %s: %w", snap.ID, err)
	}
	return OrderRecord{
		ID:           string(snap.ID),
		OrderNumber:  snap.OrderNumber,
		CustomerID:   snap.CustomerID,
		RestaurantID: snap.RestaurantID,
		Status:       string(snap.Status),
		TotalAmount:  snap.TotalAmount.Amount().String(),
		Currency:     snap.TotalAmount.Currency(),
		Data:         data,
		PlacedAt:     snap.PlacementTimestamp,
		UpdatedAt:    snap.LastUpdateTimestamp,
	}, nil
}

func DecodeOrder(data []byte, version int64) (*order.Order, error) {
	var snap order.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	snap.Version = version
	return order.Rehydrate(snap), nil
}

// OrderEvents turns the order's pending events into outbox messages keyed by
// the order id.
func OrderEvents(o *order.Order) ([]outbox.Message, error) {
	evts := o.DomainEvents()
	msgs := make([]outbox.Message, 0, len(evts))
	for _, e := range evts {
		meta := e.Metadata()
		m, err := outbox.NewMessage(meta.EventID, e.EventType(), string(meta.OrderID), meta.OccurredAt, e)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func EncodeCoupon(c *coupon.Coupon) ([]byte, error) {
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode coupon %s: %w", c.ID(), err)
	}
	return data, nil
}

// DecodeCoupon rebuilds a coupon; usageCount comes from its own column since
// it is updated without rewriting the snapshot.
func DecodeCoupon(data []byte, usageCount int) (*coupon.Coupon, error) {
	var snap coupon.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode coupon: %w", err)
	}
	snap.UsageCount = usageCount
	return coupon.Rehydrate(snap), nil
}
