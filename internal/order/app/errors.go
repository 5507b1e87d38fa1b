package app

import "github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"

var (
	ErrInvalidPaymentMethod = domainerr.New("Order.InvalidPaymentMethod", "unknown payment method")
	ErrDuplicateCouponCode  = domainerr.New("Coupon.DuplicateCode", "coupon code already exists for restaurant")
)
