package domain

import (
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// Snapshot is the persisted form of a Coupon.
type Snapshot struct {
	ID              CouponID     `json:"id"`
	RestaurantID    string       `json:"restaurant_id"`
	Code            string       `json:"code"`
	Description     string       `json:"description,omitempty"`
	Value           Value        `json:"value"`
	AppliesTo       AppliesTo    `json:"applies_to"`
	MinOrderAmount  *money.Money `json:"min_order_amount,omitempty"`
	ValidFrom       time.Time    `json:"valid_from"`
	ValidUntil      time.Time    `json:"valid_until"`
	TotalUsageLimit *int         `json:"total_usage_limit,omitempty"`
	UsageCount      int          `json:"usage_count"`
	Enabled         bool         `json:"enabled"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (c *Coupon) Snapshot() Snapshot {
	return Snapshot{
		ID:              c.id,
		RestaurantID:    c.restaurantID,
		Code:            c.code,
		Description:     c.description,
		Value:           c.value,
		AppliesTo:       c.appliesTo,
		MinOrderAmount:  c.minOrderAmount,
		ValidFrom:       c.validFrom,
		ValidUntil:      c.validUntil,
		TotalUsageLimit: c.TotalUsageLimit(),
		UsageCount:      c.usageCount,
		Enabled:         c.enabled,
		CreatedAt:       c.createdAt,
	}
}

func Rehydrate(s Snapshot) *Coupon {
	return &Coupon{
		id:             s.ID,
		restaurantID:   s.RestaurantID,
		code:           s.Code,
		description:    s.Description,
		value:          s.Value,
		appliesTo:      s.AppliesTo,
		minOrderAmount: s.MinOrderAmount,
		validFrom:      s.ValidFrom,
		validUntil:     s.ValidUntil,
		usageLimit:     s.TotalUsageLimit,
		usageCount:     s.UsageCount,
		enabled:        s.Enabled,
		createdAt:      s.CreatedAt,
	}
}
