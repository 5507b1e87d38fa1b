package domain

import (
	"github.com/shopspring/decimal"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Subtotal sums the line totals of items.
func Subtotal(currency string, items []OrderItem) money.Money {
	total := money.Zero(currency)
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CalculateDiscount computes what c takes off an order with the given lines.
// It returns ErrCouponNotApplicable when the order does not qualify.
func CalculateDiscount(c *coupon.Coupon, items []OrderItem, subtotal money.Money) (money.Money, error) {
	zero := money.Zero(subtotal.Currency())
	if minimum := c.MinOrderAmount(); minimum != nil {
		if minimum.Currency() != subtotal.Currency() {
			return zero, ErrCouponNotApplicable.WithMessage("minimum order amount is in %s", minimum.Currency())
		}
		if subtotal.Cmp(*minimum) < 0 {
			return zero, ErrCouponNotApplicable.WithMessage("minimum order amount %s not met", minimum)
		}
	}

	scope := c.AppliesTo()
	scoped := zero
	matched := false
	for _, it := range items {
		if scope.Covers(it.MenuItemID(), it.CategoryID()) {
			scoped = scoped.Add(it.LineTotal())
			matched = true
		}
	}
	if !matched {
		return zero, ErrCouponNotApplicable.WithMessage("no order line is covered by coupon %s", c.Code())
	}

	v := c.Value()
	switch v.Type {
	case coupon.ValuePercentage:
		return scoped.Mul(v.Percentage.Div(hundred)).Round(2), nil
	case coupon.ValueFixedAmount:
		if v.FixedAmount.Currency() != subtotal.Currency() {
			return zero, ErrCouponNotApplicable.WithMessage("coupon amount is in %s", v.FixedAmount.Currency())
		}
		return money.Min(*v.FixedAmount, subtotal), nil
	case coupon.ValueFreeItem:
		for _, it := range items {
			if it.MenuItemID() == v.FreeItemID {
				return it.LineTotal(), nil
			}
		}
		return zero, ErrCouponNotApplicable.WithMessage("free item %s is not in the order", v.FreeItemID)
	default:
		return zero, ErrCouponNotApplicable.WithMessage("unsupported coupon type %s", v.Type)
	}
}

// CalculateTotal is subtotal - discount + tax + delivery fee + tip.
func CalculateTotal(subtotal, discount, tax, deliveryFee, tip money.Money) money.Money {
	return subtotal.Sub(discount).Add(tax).Add(deliveryFee).Add(tip)
}
