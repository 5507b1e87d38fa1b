package domain

import "github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"

var (
	ErrNotFound                   = domainerr.New("Order.NotFound", "order not found")
	ErrInvalidCustomer            = domainerr.New("Order.InvalidCustomer", "customer id is required")
	ErrInvalidRestaurant          = domainerr.New("Order.InvalidRestaurant", "restaurant id is required")
	ErrOrderItemRequired          = domainerr.New("Order.OrderItemRequired", "order must contain at least one item")
	ErrCurrencyMismatch           = domainerr.New("Order.CurrencyMismatch", "all amounts must share one currency")
	ErrNegativeAmount             = domainerr.New("Order.NegativeAmount", "fees, tips, taxes and discounts cannot be negative")
	ErrNegativeTotalAmount        = domainerr.New("Order.NegativeTotalAmount", "total amount cannot be negative")
	ErrFinancialMismatch          = domainerr.New("Order.FinancialMismatch", "supplied totals do not match the order lines")
	ErrPaymentMismatch            = domainerr.New("Order.PaymentMismatch", "payments do not add up to the total amount")
	ErrPaymentTransactionNotFound = domainerr.New("Order.PaymentTransactionNotFound", "no pending payment transaction for gateway reference")

	ErrInvalidOrderStatusForPaymentConfirmation = domainerr.New("Order.InvalidOrderStatusForPaymentConfirmation", "order is not awaiting payment")
	ErrInvalidOrderStatusForPaymentFailure      = domainerr.New("Order.InvalidOrderStatusForPaymentFailure", "order is not awaiting payment")
	ErrInvalidOrderStatusForAccept              = domainerr.New("Order.InvalidOrderStatusForAccept", "only placed orders can be accepted")
	ErrInvalidOrderStatusForReject              = domainerr.New("Order.InvalidOrderStatusForReject", "only placed orders can be rejected")
	ErrInvalidOrderStatusForCancel              = domainerr.New("Order.InvalidOrderStatusForCancel", "order can no longer be cancelled")
	ErrInvalidOrderStatusForPreparing           = domainerr.New("Order.InvalidOrderStatusForPreparing", "only accepted orders can start preparing")
	ErrInvalidOrderStatusForReadyForDelivery    = domainerr.New("Order.InvalidOrderStatusForReadyForDelivery", "only preparing orders can be ready for delivery")
	ErrInvalidOrderStatusForDelivered           = domainerr.New("Order.InvalidOrderStatusForDelivered", "only orders ready for delivery can be delivered")

	ErrCouponAlreadyApplied                 = domainerr.New("Order.CouponAlreadyApplied", "a coupon is already applied")
	ErrCouponCannotBeAppliedToOrderStatus   = domainerr.New("Order.CouponCannotBeAppliedToOrderStatus", "coupons can only be applied to placed orders")
	ErrCouponCannotBeRemovedFromOrderStatus = domainerr.New("Order.CouponCannotBeRemovedFromOrderStatus", "coupons can only be removed from placed orders")
	ErrCouponNotApplicable                  = domainerr.New("Order.CouponNotApplicable", "coupon does not apply to this order")

	ErrInvalidQuantity      = domainerr.New("OrderItem.InvalidQuantity", "quantity must be positive")
	ErrInvalidItemName      = domainerr.New("OrderItem.InvalidName", "item name is required")
	ErrNegativeItemPrice    = domainerr.New("OrderItem.NegativePrice", "item price cannot be negative")
	ErrInvalidPaymentAmount = domainerr.New("PaymentTransaction.InvalidAmount", "payment amount must be positive")
	ErrPaymentNotPending    = domainerr.New("PaymentTransaction.NotPending", "payment transaction is not pending")
)
