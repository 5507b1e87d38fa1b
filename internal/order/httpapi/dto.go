package httpapi

import (
	"time"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type itemResponse struct {
	MenuItemID     string                `json:"menu_item_id"`
	Name           string                `json:"name"`
	UnitPrice      money.Money           `json:"unit_price"`
	Quantity       int                   `json:"quantity"`
	Customizations []order.Customization `json:"customizations,omitempty"`
	LineTotal      money.Money           `json:"line_total"`
}

type paymentResponse struct {
	ID                 string                  `json:"id"`
	Method             order.PaymentMethodType `json:"method"`
	Type               order.TransactionType   `json:"type"`
	Status             order.PaymentStatus     `json:"status"`
	Amount             money.Money             `json:"amount"`
	DisplayLabel       string                  `json:"display_label,omitempty"`
	GatewayReferenceID string                  `json:"gateway_reference_id,omitempty"`
}

type orderResponse struct {
	ID                    string            `json:"id"`
	OrderNumber           string            `json:"order_number"`
	Status                order.Status      `json:"status"`
	CustomerID            string            `json:"customer_id"`
	RestaurantID          string            `json:"restaurant_id"`
	Items                 []itemResponse    `json:"items"`
	Payments              []paymentResponse `json:"payments"`
	Subtotal              money.Money       `json:"subtotal"`
	DiscountAmount        money.Money       `json:"discount_amount"`
	DeliveryFee           money.Money       `json:"delivery_fee"`
	TipAmount             money.Money       `json:"tip_amount"`
	TaxAmount             money.Money       `json:"tax_amount"`
	TotalAmount           money.Money       `json:"total_amount"`
	AppliedCouponID       *coupon.CouponID  `json:"applied_coupon_id,omitempty"`
	PlacedAt              time.Time         `json:"placed_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	EstimatedDeliveryTime *time.Time        `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time        `json:"actual_delivery_time,omitempty"`
	Version               int64             `json:"version"`
	ClientSecret          string            `json:"client_secret,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:                    string(o.ID()),
		OrderNumber:           o.OrderNumber(),
		Status:                o.Status(),
		CustomerID:            o.CustomerID(),
		RestaurantID:          o.RestaurantID(),
		Subtotal:              o.Subtotal(),
		DiscountAmount:        o.DiscountAmount(),
		DeliveryFee:           o.DeliveryFee(),
		TipAmount:             o.TipAmount(),
		TaxAmount:             o.TaxAmount(),
		TotalAmount:           o.TotalAmount(),
		AppliedCouponID:       o.AppliedCouponID(),
		PlacedAt:              o.PlacementTimestamp(),
		UpdatedAt:             o.LastUpdateTimestamp(),
		EstimatedDeliveryTime: o.EstimatedDeliveryTime(),
		ActualDeliveryTime:    o.ActualDeliveryTime(),
		Version:               o.Version(),
	}
	for _, it := range o.Items() {
		resp.Items = append(resp.Items, itemResponse{
			MenuItemID:     it.MenuItemID(),
			Name:           it.Name(),
			UnitPrice:      it.UnitPrice(),
			Quantity:       it.Quantity(),
			Customizations: it.Customizations(),
			LineTotal:      it.LineTotal(),
		})
	}
	for _, p := range o.PaymentTransactions() {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:                 p.ID(),
			Method:             p.PaymentMethodType(),
			Type:               p.TransactionType(),
			Status:             p.Status(),
			Amount:             p.Amount(),
			DisplayLabel:       p.DisplayLabel(),
			GatewayReferenceID: p.GatewayReferenceID(),
		})
	}
	return resp
}

type couponResponse struct {
	ID           coupon.CouponID  `json:"id"`
	RestaurantID string           `json:"restaurant_id"`
	Code         string           `json:"code"`
	Value        coupon.Value     `json:"value"`
	AppliesTo    coupon.AppliesTo `json:"applies_to"`
	UsageCount   int              `json:"usage_count"`
	UsageLimit   *int             `json:"usage_limit,omitempty"`
	Enabled      bool             `json:"enabled"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:           c.ID(),
		RestaurantID: c.RestaurantID(),
		Code:         c.Code(),
		Value:        c.Value(),
		AppliesTo:    c.AppliesTo(),
		UsageCount:   c.UsageCount(),
		UsageLimit:   c.TotalUsageLimit(),
		Enabled:      c.Enabled(),
	}
}
