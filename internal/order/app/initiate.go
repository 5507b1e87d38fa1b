package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/logging"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// orderNamespace seeds deterministic order ids derived from idempotency keys.
var orderNamespace = uuid.MustParse("8f5c3a9e-4b1d-5e2f-9a7c-6d0e1f2a3b4c")

type ItemInput struct {
	MenuItemID     string                `json:"menu_item_id"`
	CategoryID     string                `json:"category_id"`
	Name           string                `json:"name"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	Quantity       int                   `json:"quantity"`
	Customizations []order.Customization `json:"customizations,omitempty"`
}

type InitiateOrderCommand struct {
	CustomerID          string                  `json:"customer_id"`
	RestaurantID        string                  `json:"restaurant_id"`
	DeliveryAddress     order.DeliveryAddress   `json:"delivery_address"`
	Items               []ItemInput             `json:"items"`
	SpecialInstructions string                  `json:"special_instructions,omitempty"`
	CouponCode          string                  `json:"coupon_code,omitempty"`
	TipAmount           decimal.Decimal         `json:"tip_amount"`
	PaymentMethod       order.PaymentMethodType `json:"payment_method"`
	PaymentMethodID     string                  `json:"payment_method_id,omitempty"`
	TeamCartID          *string                 `json:"team_cart_id,omitempty"`
	IdempotencyKey      string                  `json:"-"`
}

type InitiateOrderResult struct {
	Order *order.Order
	// ClientSecret is set for online payments; the client confirms the
	// payment with it and the gateway later calls the webhook.
	ClientSecret string
	// Replayed is true when the idempotency key matched an existing order.
	Replayed bool
}

// InitiateOrder prices the cart, opens a payment intent for online methods and
// persists the order, the coupon use and the outbox rows atomically.
func (s *Service) InitiateOrder(ctx context.Context, cmd InitiateOrderCommand) (InitiateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.initiate")
	defer span.End()

	res, err := s.initiate(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initiate")
		s.logger.WarnContext(ctx, "order initiation rejected",
			"customer_id", cmd.CustomerID, "restaurant_id", cmd.RestaurantID, "error", err)
		return InitiateOrderResult{}, err
	}
	span.SetAttributes(attribute.String("order.id", string(res.Order.ID())), attribute.Bool("order.replayed", res.Replayed))
	s.logger.InfoContext(ctx, "order initiated",
		logging.KeyOrderID, res.Order.ID(), logging.KeyStatus, res.Order.Status(),
		"total", res.Order.TotalAmount().String(), "replayed", res.Replayed)
	return res, nil
}

func (s *Service) initiate(ctx context.Context, cmd InitiateOrderCommand) (InitiateOrderResult, error) {
	if !validMethod(cmd.PaymentMethod) {
		return InitiateOrderResult{}, ErrInvalidPaymentMethod.WithMessage("unknown payment method %q", cmd.PaymentMethod)
	}

	var id order.OrderID
	if key := strings.TrimSpace(cmd.IdempotencyKey); key != "" {
		id = order.OrderID(uuid.NewSHA1(orderNamespace, []byte(cmd.CustomerID+"/"+key)).String())
		if existing, err := s.store.GetOrder(ctx, id); err == nil {
			return InitiateOrderResult{Order: existing, Replayed: true}, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			return InitiateOrderResult{}, err
		}
	} else {
		id = order.OrderID(uuid.NewString())
	}

	at := s.now()
	currency := s.pricing.Currency
	items := make([]order.OrderItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		it, err := order.NewOrderItem(in.CategoryID, in.MenuItemID, in.Name,
			money.New(in.UnitPrice, currency), in.Quantity, in.Customizations...)
		if err != nil {
			return InitiateOrderResult{}, err
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return InitiateOrderResult{}, order.ErrOrderItemRequired
	}

	var c *coupon.Coupon
	if strings.TrimSpace(cmd.CouponCode) != "" {
		var err error
		if c, err = findCoupon(ctx, s.store, cmd.RestaurantID, cmd.CouponCode); err != nil {
			return InitiateOrderResult{}, err
		}
		if err := c.CheckUsable(at); err != nil {
			return InitiateOrderResult{}, err
		}
	}

	q, err := s.quote(currency, items, c, cmd.TipAmount)
	if err != nil {
		return InitiateOrderResult{}, err
	}

	var (
		payments     []order.PaymentTransaction
		clientSecret string
	)
	if q.total.Amount().IsPositive() {
		params := order.PaymentParams{
			Method:       cmd.PaymentMethod,
			Amount:       q.total,
			At:           at,
			PaidByUserID: cmd.CustomerID,
			DisplayLabel: displayLabel(cmd.PaymentMethod, cmd.PaymentMethodID),
		}
		if cmd.PaymentMethod.IsOnline() {
			intent, err := s.gateway.CreatePaymentIntent(ctx, q.total, currency, map[string]string{
				payment.MetaOrderID:         string(id),
				payment.MetaUserID:          cmd.CustomerID,
				payment.MetaRestaurantID:    cmd.RestaurantID,
				payment.MetaPaymentMethodID: cmd.PaymentMethodID,
			})
			if err != nil {
				return InitiateOrderResult{}, err
			}
			params.GatewayReferenceID = intent.ID
			clientSecret = intent.ClientSecret
		}
		tx, err := order.NewPaymentTransaction(params)
		if err != nil {
			return InitiateOrderResult{}, err
		}
		payments = append(payments, tx)
	}

	var couponID *coupon.CouponID
	if c != nil {
		cid := c.ID()
		couponID = &cid
	}
	o, err := order.Create(order.CreateParams{
		ID:                  id,
		CustomerID:          cmd.CustomerID,
		RestaurantID:        cmd.RestaurantID,
		DeliveryAddress:     cmd.DeliveryAddress,
		Items:               items,
		SpecialInstructions: cmd.SpecialInstructions,
		Subtotal:            q.subtotal,
		DiscountAmount:      q.discount,
		DeliveryFee:         q.deliveryFee,
		TipAmount:           q.tip,
		TaxAmount:           q.tax,
		TotalAmount:         q.total,
		PaymentTransactions: payments,
		AppliedCouponID:     couponID,
		SourceTeamCartID:    cmd.TeamCartID,
		PlacedAt:            at,
	})
	if err != nil {
		return InitiateOrderResult{}, err
	}

	err = storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		if c != nil {
			if err := tx.IncrementCouponUsage(ctx, c.ID()); err != nil {
				return err
			}
		}
		return tx.SaveOrder(ctx, o)
	})
	if errors.Is(err, storage.ErrAlreadyExists) && cmd.IdempotencyKey != "" {
		existing, gerr := s.store.GetOrder(ctx, id)
		if gerr != nil {
			return InitiateOrderResult{}, gerr
		}
		return InitiateOrderResult{Order: existing, Replayed: true}, nil
	}
	if err != nil {
		return InitiateOrderResult{}, err
	}
	o.ClearDomainEvents()
	return InitiateOrderResult{Order: o, ClientSecret: clientSecret}, nil
}

type quote struct {
	subtotal, discount, deliveryFee, tax, tip, total money.Money
}

// quote prices items: tax is charged on the subtotal after discount and
// rounded to two places.
func (s *Service) quote(currency string, items []order.OrderItem, c *coupon.Coupon, tip decimal.Decimal) (quote, error) {
	q := quote{
		subtotal:    order.Subtotal(currency, items),
		discount:    money.Zero(currency),
		deliveryFee: money.New(s.pricing.DeliveryFee, currency),
		tip:         money.New(tip, currency),
	}
	if c != nil {
		d, err := order.CalculateDiscount(c, items, q.subtotal)
		if err != nil {
			return quote{}, err
		}
		q.discount = d
	}
	if q.tip.IsNegative() {
		return quote{}, order.ErrNegativeAmount.WithMessage("tip %s is negative", q.tip)
	}
	taxable := q.subtotal.Sub(q.discount)
	if taxable.IsNegative() {
		taxable = money.Zero(currency)
	}
	q.tax = taxable.Mul(s.pricing.TaxRate).Round(2)
	q.total = order.CalculateTotal(q.subtotal, q.discount, q.tax, q.deliveryFee, q.tip)
	return q, nil
}

func validMethod(m order.PaymentMethodType) bool {
	switch m {
	case order.PaymentCreditCard, order.PaymentPayPal, order.PaymentApplePay,
		order.PaymentGooglePay, order.PaymentCashOnDelivery:
		return true
	}
	return false
}

func displayLabel(m order.PaymentMethodType, methodID string) string {
	if len(methodID) >= 4 && m == order.PaymentCreditCard {
		return "Card ending " + methodID[len(methodID)-4:]
	}
	return strings.ReplaceAll(strings.ToLower(string(m)), "_", " ")
}
