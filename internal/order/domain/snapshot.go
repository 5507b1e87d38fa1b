package domain

import (
	"time"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// Snapshot is the persisted form of an Order. Pending events are not part of
// it; they travel through the outbox.
type Snapshot struct {
	ID                    OrderID           `json:"id"`
	OrderNumber           string            `json:"order_number"`
	CustomerID            string            `json:"customer_id"`
	RestaurantID          string            `json:"restaurant_id"`
	DeliveryAddress       DeliveryAddress   `json:"delivery_address"`
	Items                 []ItemSnapshot    `json:"items"`
	Payments              []PaymentSnapshot `json:"payments,omitempty"`
	SpecialInstructions   string            `json:"special_instructions,omitempty"`
	Subtotal              money.Money       `json:"subtotal"`
	DiscountAmount        money.Money       `json:"discount_amount"`
	DeliveryFee           money.Money       `json:"delivery_fee"`
	TipAmount             money.Money       `json:"tip_amount"`
	TaxAmount             money.Money       `json:"tax_amount"`
	TotalAmount           money.Money       `json:"total_amount"`
	AppliedCouponID       *coupon.CouponID  `json:"applied_coupon_id,omitempty"`
	SourceTeamCartID      *string           `json:"source_team_cart_id,omitempty"`
	Status                Status            `json:"status"`
	PlacementTimestamp    time.Time         `json:"placement_timestamp"`
	LastUpdateTimestamp   time.Time         `json:"last_update_timestamp"`
	EstimatedDeliveryTime *time.Time        `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time        `json:"actual_delivery_time,omitempty"`
	Version               int64             `json:"-"`
}

type ItemSnapshot struct {
	ID             string          `json:"id"`
	CategoryID     string          `json:"category_id"`
	MenuItemID     string          `json:"menu_item_id"`
	Name           string          `json:"name"`
	UnitPrice      money.Money     `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
	LineTotal      money.Money     `json:"line_total"`
}

type PaymentSnapshot struct {
	ID                 string            `json:"id"`
	PaymentMethodType  PaymentMethodType `json:"payment_method_type"`
	TransactionType    TransactionType   `json:"transaction_type"`
	Amount             money.Money       `json:"amount"`
	Timestamp          time.Time         `json:"timestamp"`
	Status             PaymentStatus     `json:"status"`
	DisplayLabel       string            `json:"display_label,omitempty"`
	GatewayReferenceID string            `json:"gateway_reference_id,omitempty"`
	PaidByUserID       string            `json:"paid_by_user_id,omitempty"`
}

func (o *Order) Snapshot() Snapshot {
	s := Snapshot{
		ID:                    o.id,
		OrderNumber:           o.orderNumber,
		CustomerID:            o.customerID,
		RestaurantID:          o.restaurantID,
		DeliveryAddress:       o.deliveryAddress,
		SpecialInstructions:   o.specialInstructions,
		Subtotal:              o.subtotal,
		DiscountAmount:        o.discountAmount,
		DeliveryFee:           o.deliveryFee,
		TipAmount:             o.tipAmount,
		TaxAmount:             o.taxAmount,
		TotalAmount:           o.totalAmount,
		AppliedCouponID:       o.AppliedCouponID(),
		SourceTeamCartID:      o.SourceTeamCartID(),
		Status:                o.status,
		PlacementTimestamp:    o.placementTimestamp,
		LastUpdateTimestamp:   o.lastUpdateTimestamp,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime(),
		ActualDeliveryTime:    o.ActualDeliveryTime(),
		Version:               o.version,
	}
	for _, it := range o.items {
		s.Items = append(s.Items, ItemSnapshot{
			ID:             it.id,
			CategoryID:     it.categoryID,
			MenuItemID:     it.menuItemID,
			Name:           it.name,
			UnitPrice:      it.unitPrice,
			Quantity:       it.quantity,
			Customizations: it.Customizations(),
			LineTotal:      it.lineTotal,
		})
	}
	for _, t := range o.payments {
		s.Payments = append(s.Payments, PaymentSnapshot{
			ID:                 t.id,
			PaymentMethodType:  t.methodType,
			TransactionType:    t.transactionType,
			Amount:             t.amount,
			Timestamp:          t.timestamp,
			Status:             t.status,
			DisplayLabel:       t.displayLabel,
			GatewayReferenceID: t.gatewayReferenceID,
			PaidByUserID:       t.paidByUserID,
		})
	}
	return s
}

// Rehydrate rebuilds an Order from storage without re-running validation or
// recording events.
func Rehydrate(s Snapshot) *Order {
	o := &Order{
		id:                    s.ID,
		orderNumber:           s.OrderNumber,
		customerID:            s.CustomerID,
		restaurantID:          s.RestaurantID,
		deliveryAddress:       s.DeliveryAddress,
		specialInstructions:   s.SpecialInstructions,
		subtotal:              s.Subtotal,
		discountAmount:        s.DiscountAmount,
		deliveryFee:           s.DeliveryFee,
		tipAmount:             s.TipAmount,
		taxAmount:             s.TaxAmount,
		totalAmount:           s.TotalAmount,
		appliedCouponID:       clonePtr(s.AppliedCouponID),
		sourceTeamCartID:      clonePtr(s.SourceTeamCartID),
		status:                s.Status,
		placementTimestamp:    s.PlacementTimestamp,
		lastUpdateTimestamp:   s.LastUpdateTimestamp,
		estimatedDeliveryTime: clonePtr(s.EstimatedDeliveryTime),
		actualDeliveryTime:    clonePtr(s.ActualDeliveryTime),
		version:               s.Version,
	}
	for _, it := range s.Items {
		o.items = append(o.items, OrderItem{
			id:             it.ID,
			categoryID:     it.CategoryID,
			menuItemID:     it.MenuItemID,
			name:           it.Name,
			unitPrice:      it.UnitPrice,
			quantity:       it.Quantity,
			customizations: it.Customizations,
			lineTotal:      it.LineTotal,
		})
	}
	for _, t := range s.Payments {
		o.payments = append(o.payments, PaymentTransaction{
			id:                 t.ID,
			methodType:         t.PaymentMethodType,
			transactionType:    t.TransactionType,
			amount:             t.Amount,
			timestamp:          t.Timestamp,
			status:             t.Status,
			displayLabel:       t.DisplayLabel,
			gatewayReferenceID: t.GatewayReferenceID,
			paidByUserID:       t.PaidByUserID,
		})
	}
	return o
}
