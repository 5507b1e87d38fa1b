package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type OrderID string

type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type Order struct {
	id                  OrderID
	orderNumber         string
	customerID          string
	restaurantID        string
	deliveryAddress     DeliveryAddress
	items               []OrderItem
	payments            []PaymentTransaction
	specialInstructions string

	subtotal       money.Money
	discountAmount money.Money
	deliveryFee    money.Money
	tipAmount      money.Money
	taxAmount      money.Money
	totalAmount    money.Money

	appliedCouponID  *coupon.CouponID
	sourceTeamCartID *string

	status                Status
	placementTimestamp    time.Time
	lastUpdateTimestamp   time.Time
	estimatedDeliveryTime *time.Time
	actualDeliveryTime    *time.Time

	version int64
	events  []Event
}

// CreateParams carries precomputed financials; Create recomputes and rejects
// anything that does not add up.
type CreateParams struct {
	ID                  OrderID
	OrderNumber         string
	CustomerID          string
	RestaurantID        string
	DeliveryAddress     DeliveryAddress
	Items               []OrderItem
	SpecialInstructions string
	Subtotal            money.Money
	DiscountAmount      money.Money
	DeliveryFee         money.Money
	TipAmount           money.Money
	TaxAmount           money.Money
	TotalAmount         money.Money
	PaymentTransactions []PaymentTransaction
	AppliedCouponID     *coupon.CouponID
	SourceTeamCartID    *string
	PlacedAt            time.Time
}

func Create(p CreateParams) (*Order, error) {
	if strings.TrimSpace(p.CustomerID) == "" {
		return nil, ErrInvalidCustomer
	}
	if strings.TrimSpace(p.RestaurantID) == "" {
		return nil, ErrInvalidRestaurant
	}
	currency, err := orderCurrency(p.Items)
	if err != nil {
		return nil, err
	}
	if err := normalize(currency, &p.Subtotal, &p.DiscountAmount, &p.DeliveryFee, &p.TipAmount, &p.TaxAmount, &p.TotalAmount); err != nil {
		return nil, err
	}
	for _, m := range []money.Money{p.DiscountAmount, p.DeliveryFee, p.TipAmount, p.TaxAmount} {
		if m.IsNegative() {
			return nil, ErrNegativeAmount
		}
	}

	subtotal := Subtotal(currency, p.Items)
	if !subtotal.Equal(p.Subtotal) {
		return nil, ErrFinancialMismatch.WithMessage("subtotal %s does not match line totals %s", p.Subtotal, subtotal)
	}
	total := CalculateTotal(subtotal, p.DiscountAmount, p.TaxAmount, p.DeliveryFee, p.TipAmount)
	if total.IsNegative() {
		return nil, ErrNegativeTotalAmount.WithMessage("total amount %s is negative", total)
	}
	if !total.Equal(p.TotalAmount) {
		return nil, ErrFinancialMismatch.WithMessage("total %s does not match computed %s", p.TotalAmount, total)
	}

	status := StatusPlaced
	if len(p.PaymentTransactions) > 0 {
		paid := money.Zero(currency)
		for _, t := range p.PaymentTransactions {
			if t.Amount().Currency() != currency {
				return nil, ErrCurrencyMismatch.WithMessage("payment is in %s, order in %s", t.Amount().Currency(), currency)
			}
			if t.TransactionType() == TransactionPayment {
				paid = paid.Add(t.Amount())
			}
			if t.Status() == PaymentPending {
				status = StatusAwaitingPayment
			}
		}
		if !paid.Equal(total) {
			return nil, ErrPaymentMismatch.WithMessage("payments %s do not cover total %s", paid, total)
		}
	}

	at := stamp(p.PlacedAt)
	id := p.ID
	if id == "" {
		id = OrderID(uuid.NewString())
	}
	number := p.OrderNumber
	if number == "" {
		number = orderNumber(id, at)
	}
	o := &Order{
		id:                  id,
		orderNumber:         number,
		customerID:          p.CustomerID,
		restaurantID:        p.RestaurantID,
		deliveryAddress:     p.DeliveryAddress,
		items:               slices.Clone(p.Items),
		payments:            slices.Clone(p.PaymentTransactions),
		specialInstructions: p.SpecialInstructions,
		subtotal:            subtotal,
		discountAmount:      p.DiscountAmount,
		deliveryFee:         p.DeliveryFee,
		tipAmount:           p.TipAmount,
		taxAmount:           p.TaxAmount,
		totalAmount:         total,
		appliedCouponID:     p.AppliedCouponID,
		sourceTeamCartID:    p.SourceTeamCartID,
		status:              status,
		placementTimestamp:  at,
		lastUpdateTimestamp: at,
	}
	o.record(OrderCreated{Meta: o.meta(at), OrderNumber: number, Status: status, TotalAmount: total})
	if status == StatusPlaced {
		o.record(OrderPlaced{Meta: o.meta(at), OrderNumber: number, TotalAmount: total})
	}
	return o, nil
}

type MinimalParams struct {
	ID                  OrderID
	CustomerID          string
	RestaurantID        string
	DeliveryAddress     DeliveryAddress
	Items               []OrderItem
	SpecialInstructions string
	DeliveryFee         money.Money
	TipAmount           money.Money
	TaxAmount           money.Money
	Coupon              *coupon.Coupon
	SourceTeamCartID    *string
	PlacedAt            time.Time
}

// CreateMinimal computes subtotal, discount and total itself and places the
// order directly, with no payment transactions.
func CreateMinimal(p MinimalParams) (*Order, error) {
	currency, err := orderCurrency(p.Items)
	if err != nil {
		return nil, err
	}
	if err := normalize(currency, &p.DeliveryFee, &p.TipAmount, &p.TaxAmount); err != nil {
		return nil, err
	}
	subtotal := Subtotal(currency, p.Items)
	discount := money.Zero(currency)
	var couponID *coupon.CouponID
	if p.Coupon != nil {
		discount, err = CalculateDiscount(p.Coupon, p.Items, subtotal)
		if err != nil {
			return nil, err
		}
		id := p.Coupon.ID()
		couponID = &id
	}
	return Create(CreateParams{
		ID:                  p.ID,
		CustomerID:          p.CustomerID,
		RestaurantID:        p.RestaurantID,
		DeliveryAddress:     p.DeliveryAddress,
		Items:               p.Items,
		SpecialInstructions: p.SpecialInstructions,
		Subtotal:            subtotal,
		DiscountAmount:      discount,
		DeliveryFee:         p.DeliveryFee,
		TipAmount:           p.TipAmount,
		TaxAmount:           p.TaxAmount,
		TotalAmount:         CalculateTotal(subtotal, discount, p.TaxAmount, p.DeliveryFee, p.TipAmount),
		AppliedCouponID:     couponID,
		SourceTeamCartID:    p.SourceTeamCartID,
		PlacedAt:            p.PlacedAt,
	})
}

func (o *Order) RecordPaymentSuccess(gatewayReferenceID string, at time.Time) error {
	if err := o.guard(opRecordPaymentSuccess); err != nil {
		return err
	}
	idx := o.pendingPayment(gatewayReferenceID)
	if idx < 0 {
		return ErrPaymentTransactionNotFound.WithMessage("no pending payment with reference %q", gatewayReferenceID)
	}
	at = stamp(at)
	if err := o.payments[idx].markSucceeded(at); err != nil {
		return err
	}
	o.moveTo(opRecordPaymentSuccess, at)
	o.record(OrderPaymentSucceeded{Meta: o.meta(at), GatewayReferenceID: gatewayReferenceID, Amount: o.payments[idx].Amount()})
	o.record(OrderPlaced{Meta: o.meta(at), OrderNumber: o.orderNumber, TotalAmount: o.totalAmount})
	return nil
}

func (o *Order) RecordPaymentFailure(gatewayReferenceID string, at time.Time) error {
	if err := o.guard(opRecordPaymentFailure); err != nil {
		return err
	}
	idx := o.pendingPayment(gatewayReferenceID)
	if idx < 0 {
		return ErrPaymentTransactionNotFound.WithMessage("no pending payment with reference %q", gatewayReferenceID)
	}
	at = stamp(at)
	if err := o.payments[idx].markFailed(at); err != nil {
		return err
	}
	o.moveTo(opRecordPaymentFailure, at)
	o.record(OrderPaymentFailed{Meta: o.meta(at), GatewayReferenceID: gatewayReferenceID})
	return nil
}

func (o *Order) Accept(estimatedDeliveryTime, at time.Time) error {
	if err := o.guard(opAccept); err != nil {
		return err
	}
	at = stamp(at)
	eta := estimatedDeliveryTime.UTC()
	o.estimatedDeliveryTime = &eta
	o.moveTo(opAccept, at)
	o.record(OrderAccepted{Meta: o.meta(at), EstimatedDeliveryTime: eta})
	return nil
}

func (o *Order) Reject(reason string, at time.Time) error {
	if err := o.guard(opReject); err != nil {
		return err
	}
	at = stamp(at)
	o.moveTo(opReject, at)
	o.record(OrderRejected{Meta: o.meta(at), Reason: reason})
	return nil
}

func (o *Order) Cancel(reason string, at time.Time) error {
	if err := o.guard(opCancel); err != nil {
		return err
	}
	at = stamp(at)
	previous := o.status
	o.moveTo(opCancel, at)
	o.record(OrderCancelled{Meta: o.meta(at), PreviousStatus: previous, Reason: reason})
	return nil
}

func (o *Order) MarkAsPreparing(at time.Time) error {
	if err := o.guard(opMarkAsPreparing); err != nil {
		return err
	}
	at = stamp(at)
	o.moveTo(opMarkAsPreparing, at)
	o.record(OrderPreparing{Meta: o.meta(at)})
	return nil
}

func (o *Order) MarkAsReadyForDelivery(at time.Time) error {
	if err := o.guard(opMarkAsReadyForDelivery); err != nil {
		return err
	}
	at = stamp(at)
	o.moveTo(opMarkAsReadyForDelivery, at)
	o.record(OrderReadyForDelivery{Meta: o.meta(at)})
	return nil
}

func (o *Order) MarkAsDelivered(at time.Time) error {
	if err := o.guard(opMarkAsDelivered); err != nil {
		return err
	}
	at = stamp(at)
	o.actualDeliveryTime = &at
	o.moveTo(opMarkAsDelivered, at)
	o.record(OrderDelivered{Meta: o.meta(at), DeliveredAt: at, TotalAmount: o.totalAmount})

	cash := money.Zero(o.totalAmount.Currency())
	for _, t := range o.payments {
		if t.PaymentMethodType() == PaymentCashOnDelivery && t.TransactionType() == TransactionPayment && t.Status() == PaymentSucceeded {
			cash = cash.Add(t.Amount())
		}
	}
	if !cash.IsZero() {
		o.record(OrderPaid{Meta: o.meta(at), Amount: cash})
	}
	return nil
}

// ApplyCoupon validates applicability and recomputes discount and total.
// Validity window and usage limits are the caller's concern. An order that
// already carries payment transactions keeps its total, since the payments
// must keep summing to it.
func (o *Order) ApplyCoupon(c *coupon.Coupon, at time.Time) error {
	if o.appliedCouponID != nil {
		return ErrCouponAlreadyApplied
	}
	if o.status != StatusPlaced {
		return ErrCouponCannotBeAppliedToOrderStatus.WithMessage("cannot apply coupon to %s order", o.status)
	}
	if len(o.payments) > 0 {
		return ErrCouponCannotBeAppliedToOrderStatus.WithMessage("cannot apply coupon to an order with payment transactions")
	}
	discount, err := CalculateDiscount(c, o.items, o.subtotal)
	if err != nil {
		return err
	}
	total := CalculateTotal(o.subtotal, discount, o.taxAmount, o.deliveryFee, o.tipAmount)
	if total.IsNegative() {
		return ErrNegativeTotalAmount
	}
	id := c.ID()
	o.appliedCouponID = &id
	o.discountAmount = discount
	o.totalAmount = total
	o.lastUpdateTimestamp = stamp(at)
	return nil
}

// RemoveCoupon is a no-op when no coupon is applied.
func (o *Order) RemoveCoupon(at time.Time) error {
	if o.appliedCouponID == nil {
		return nil
	}
	if o.status != StatusPlaced {
		return ErrCouponCannotBeRemovedFromOrderStatus.WithMessage("cannot remove coupon from %s order", o.status)
	}
	if len(o.payments) > 0 {
		return ErrCouponCannotBeRemovedFromOrderStatus.WithMessage("cannot remove coupon from an order with payment transactions")
	}
	o.appliedCouponID = nil
	o.discountAmount = money.Zero(o.subtotal.Currency())
	o.totalAmount = CalculateTotal(o.subtotal, o.discountAmount, o.taxAmount, o.deliveryFee, o.tipAmount)
	o.lastUpdateTimestamp = stamp(at)
	return nil
}

func (o *Order) ID() OrderID                      { return o.id }
func (o *Order) OrderNumber() string              { return o.orderNumber }
func (o *Order) CustomerID() string               { return o.customerID }
func (o *Order) RestaurantID() string             { return o.restaurantID }
func (o *Order) DeliveryAddress() DeliveryAddress { return o.deliveryAddress }
func (o *Order) SpecialInstructions() string      { return o.specialInstructions }
func (o *Order) Subtotal() money.Money            { return o.subtotal }
func (o *Order) DiscountAmount() money.Money      { return o.discountAmount }
func (o *Order) DeliveryFee() money.Money         { return o.deliveryFee }
func (o *Order) TipAmount() money.Money           { return o.tipAmount }
func (o *Order) TaxAmount() money.Money           { return o.taxAmount }
func (o *Order) TotalAmount() money.Money         { return o.totalAmount }
func (o *Order) Status() Status                   { return o.status }
func (o *Order) PlacementTimestamp() time.Time    { return o.placementTimestamp }
func (o *Order) LastUpdateTimestamp() time.Time   { return o.lastUpdateTimestamp }
func (o *Order) Version() int64                   { return o.version }

// SetVersion is called by the repository after a successful save.
func (o *Order) SetVersion(v int64) { o.version = v }

func (o *Order) Items() []OrderItem { return slices.Clone(o.items) }

func (o *Order) PaymentTransactions() []PaymentTransaction { return slices.Clone(o.payments) }

func (o *Order) AppliedCouponID() *coupon.CouponID { return clonePtr(o.appliedCouponID) }
func (o *Order) SourceTeamCartID() *string         { return clonePtr(o.sourceTeamCartID) }
func (o *Order) EstimatedDeliveryTime() *time.Time { return clonePtr(o.estimatedDeliveryTime) }
func (o *Order) ActualDeliveryTime() *time.Time    { return clonePtr(o.actualDeliveryTime) }

// DomainEvents returns the events recorded since the last clear.
func (o *Order) DomainEvents() []Event { return slices.Clone(o.events) }

func (o *Order) ClearDomainEvents() { o.events = nil }

func (o *Order) record(e Event) { o.events = append(o.events, e) }

func (o *Order) guard(op operation) error {
	t := transitions[op]
	if !slices.Contains(t.from, o.status) {
		return t.err.WithMessage("cannot %s order in status %s", op, o.status)
	}
	return nil
}

func (o *Order) moveTo(op operation, at time.Time) {
	o.status = transitions[op].to
	o.lastUpdateTimestamp = at
}

func (o *Order) pendingPayment(gatewayReferenceID string) int {
	return slices.IndexFunc(o.payments, func(t PaymentTransaction) bool {
		return t.Status() == PaymentPending && t.GatewayReferenceID() == gatewayReferenceID
	})
}

func orderCurrency(items []OrderItem) (string, error) {
	if len(items) == 0 {
		return "", ErrOrderItemRequired
	}
	currency := items[0].UnitPrice().Currency()
	for _, it := range items[1:] {
		if it.UnitPrice().Currency() != currency {
			return "", ErrCurrencyMismatch.WithMessage("item %q is priced in %s, order in %s", it.Name(), it.UnitPrice().Currency(), currency)
		}
	}
	return currency, nil
}

// normalize fills unset amounts with zero in currency and rejects foreign ones.
func normalize(currency string, amounts ...*money.Money) error {
	for _, m := range amounts {
		if m.Currency() == "" && m.IsZero() {
			*m = money.Zero(currency)
			continue
		}
		if m.Currency() != currency {
			return ErrCurrencyMismatch.WithMessage("amount %s is not in %s", m, currency)
		}
	}
	return nil
}

func orderNumber(id OrderID, at time.Time) string {
	suffix := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()[:8]
	return "ORD-" + at.Format("20060102") + "-" + strings.ToUpper(suffix)
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
