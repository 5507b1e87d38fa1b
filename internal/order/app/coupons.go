package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type CreateCouponCommand struct {
	RestaurantID    string           `json:"restaurant_id"`
	Code            string           `json:"code"`
	Description     string           `json:"description"`
	ValueType       coupon.ValueType `json:"value_type"`
	Percentage      decimal.Decimal  `json:"percentage"`
	FixedAmount     decimal.Decimal  `json:"fixed_amount"`
	FreeItemID      string           `json:"free_item_id,omitempty"`
	Scope           coupon.Scope     `json:"scope,omitempty"`
	ItemIDs         []string         `json:"item_ids,omitempty"`
	CategoryIDs     []string         `json:"category_ids,omitempty"`
	MinOrderAmount  *decimal.Decimal `json:"min_order_amount,omitempty"`
	ValidFrom       time.Time        `json:"valid_from"`
	ValidUntil      time.Time        `json:"valid_until"`
	TotalUsageLimit *int             `json:"total_usage_limit,omitempty"`
}

func (s *Service) CreateCoupon(ctx context.Context, cmd CreateCouponCommand) (*coupon.Coupon, error) {
	currency := s.pricing.Currency
	var value coupon.Value
	switch cmd.ValueType {
	case coupon.ValuePercentage:
		value = coupon.Percentage(cmd.Percentage)
	case coupon.ValueFixedAmount:
		value = coupon.FixedAmount(money.New(cmd.FixedAmount, currency))
	default:
		value = coupon.Value{Type: cmd.ValueType, FreeItemID: cmd.FreeItemID}
	}
	var minimum *money.Money
	if cmd.MinOrderAmount != nil {
		m := money.New(*cmd.MinOrderAmount, currency)
		minimum = &m
	}

	c, err := coupon.New(coupon.NewParams{
		RestaurantID:    cmd.RestaurantID,
		Code:            cmd.Code,
		Description:     cmd.Description,
		Value:           value,
		AppliesTo:       coupon.AppliesTo{Scope: cmd.Scope, ItemIDs: cmd.ItemIDs, CategoryIDs: cmd.CategoryIDs},
		MinOrderAmount:  minimum,
		ValidFrom:       cmd.ValidFrom,
		ValidUntil:      cmd.ValidUntil,
		TotalUsageLimit: cmd.TotalUsageLimit,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCoupon(ctx, c); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrDuplicateCouponCode.WithMessage("coupon %s already exists", c.Code())
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "coupon created", "coupon_id", c.ID(), "restaurant_id", c.RestaurantID(), "code", c.Code())
	return c, nil
}

func (s *Service) SetCouponEnabled(ctx context.Context, id coupon.CouponID, enabled bool) (*coupon.Coupon, error) {
	var c *coupon.Coupon
	err := storage.WithTx(ctx, s.store, func(tx storage.Tx) error {
		var err error
		c, err = tx.GetCoupon(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return coupon.ErrNotFound
		}
		if err != nil {
			return err
		}
		if enabled {
			c.Enable()
		} else {
			c.Disable()
		}
		return tx.UpdateCoupon(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
