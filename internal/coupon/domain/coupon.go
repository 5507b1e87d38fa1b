package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type CouponID string

type ValueType string

const (
	ValuePercentage  ValueType = "PERCENTAGE"
	ValueFixedAmount ValueType = "FIXED_AMOUNT"
	ValueFreeItem    ValueType = "FREE_ITEM"
)

type Scope string

const (
	ScopeWholeOrder         Scope = "WHOLE_ORDER"
	ScopeSpecificItems      Scope = "SPECIFIC_ITEMS"
	ScopeSpecificCategories Scope = "SPECIFIC_CATEGORIES"
)

var (
	ErrNotFound           = domainerr.New("Coupon.NotFound", "coupon not found")
	ErrInvalidCode        = domainerr.New("Coupon.InvalidCode", "coupon code is required")
	ErrInvalidPercentage  = domainerr.New("Coupon.InvalidPercentage", "percentage must be in (0, 100]")
	ErrInvalidAmount      = domainerr.New("Coupon.InvalidAmount", "fixed amount must be positive")
	ErrInvalidFreeItem    = domainerr.New("Coupon.InvalidFreeItem", "free item coupon needs a menu item")
	ErrInvalidScope       = domainerr.New("Coupon.InvalidScope", "scope needs at least one item or category")
	ErrInvalidValidity    = domainerr.New("Coupon.InvalidValidityPeriod", "validity end must be after start")
	ErrInvalidUsageLimit  = domainerr.New("Coupon.InvalidUsageLimit", "usage limit must be positive")
	ErrDisabled           = domainerr.New("Coupon.Disabled", "coupon is disabled")
	ErrNotYetValid        = domainerr.New("Coupon.NotYetValid", "coupon is not valid yet")
	ErrExpired            = domainerr.New("Coupon.Expired", "coupon has expired")
	ErrUsageLimitExceeded = domainerr.New("Coupon.UsageLimitExceeded", "coupon usage limit reached")
)

// Value describes what a coupon takes off an order.
type Value struct {
	Type        ValueType       `json:"type"`
	Percentage  decimal.Decimal `json:"percentage,omitempty"`
	FixedAmount *money.Money    `json:"fixed_amount,omitempty"`
	FreeItemID  string          `json:"free_item_id,omitempty"`
}

func Percentage(p decimal.Decimal) Value { return Value{Type: ValuePercentage, Percentage: p} }
func FixedAmount(m money.Money) Value    { return Value{Type: ValueFixedAmount, FixedAmount: &m} }
func FreeItem(menuItemID string) Value   { return Value{Type: ValueFreeItem, FreeItemID: menuItemID} }

// AppliesTo restricts which order lines a coupon counts.
type AppliesTo struct {
	Scope       Scope    `json:"scope"`
	ItemIDs     []string `json:"item_ids,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

func WholeOrder() AppliesTo { return AppliesTo{Scope: ScopeWholeOrder} }

func SpecificItems(ids ...string) AppliesTo {
	return AppliesTo{Scope: ScopeSpecificItems, ItemIDs: ids}
}

func SpecificCategories(ids ...string) AppliesTo {
	return AppliesTo{Scope: ScopeSpecificCategories, CategoryIDs: ids}
}

// Covers reports whether a line with the given menu item and category is in scope.
func (a AppliesTo) Covers(menuItemID, categoryID string) bool {
	switch a.Scope {
	case ScopeSpecificItems:
		return slices.Contains(a.ItemIDs, menuItemID)
	case ScopeSpecificCategories:
		return slices.Contains(a.CategoryIDs, categoryID)
	default:
		return true
	}
}

type Coupon struct {
	id             CouponID
	restaurantID   string
	code           string
	description    string
	value          Value
	appliesTo      AppliesTo
	minOrderAmount *money.Money
	validFrom      time.Time
	validUntil     time.Time
	usageLimit     *int
	usageCount     int
	enabled        bool
	createdAt      time.Time
}

type NewParams struct {
	RestaurantID    string
	Code            string
	Description     string
	Value           Value
	AppliesTo       AppliesTo
	MinOrderAmount  *money.Money
	ValidFrom       time.Time
	ValidUntil      time.Time
	TotalUsageLimit *int
	CreatedAt       time.Time
}

func New(p NewParams) (*Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	if code == "" {
		return nil, ErrInvalidCode
	}
	if err := validateValue(p.Value); err != nil {
		return nil, err
	}
	if p.AppliesTo.Scope == "" {
		p.AppliesTo = WholeOrder()
	}
	if p.AppliesTo.Scope == ScopeSpecificItems && len(p.AppliesTo.ItemIDs) == 0 ||
		p.AppliesTo.Scope == ScopeSpecificCategories && len(p.AppliesTo.CategoryIDs) == 0 {
		return nil, ErrInvalidScope
	}
	if !p.ValidUntil.IsZero() && !p.ValidUntil.After(p.ValidFrom) {
		return nil, ErrInvalidValidity
	}
	if p.TotalUsageLimit != nil && *p.TotalUsageLimit <= 0 {
		return nil, ErrInvalidUsageLimit
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &Coupon{
		id:             CouponID(uuid.NewString()),
		restaurantID:   p.RestaurantID,
		code:           code,
		description:    p.Description,
		value:          p.Value,
		appliesTo:      p.AppliesTo,
		minOrderAmount: p.MinOrderAmount,
		validFrom:      p.ValidFrom,
		validUntil:     p.ValidUntil,
		usageLimit:     p.TotalUsageLimit,
		enabled:        true,
		createdAt:      createdAt,
	}, nil
}

func validateValue(v Value) error {
	switch v.Type {
	case ValuePercentage:
		if !v.Percentage.IsPositive() || v.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidPercentage
		}
	case ValueFixedAmount:
		if v.FixedAmount == nil || v.FixedAmount.IsNegative() || v.FixedAmount.IsZero() {
			return ErrInvalidAmount
		}
	case ValueFreeItem:
		if strings.TrimSpace(v.FreeItemID) == "" {
			return ErrInvalidFreeItem
		}
	default:
		return domainerr.New("Coupon.InvalidValueType", "unknown coupon value type "+string(v.Type))
	}
	return nil
}

func (c *Coupon) ID() CouponID                 { return c.id }
func (c *Coupon) RestaurantID() string         { return c.restaurantID }
func (c *Coupon) Code() string                 { return c.code }
func (c *Coupon) Description() string          { return c.description }
func (c *Coupon) Value() Value                 { return c.value }
func (c *Coupon) AppliesTo() AppliesTo         { return c.appliesTo }
func (c *Coupon) MinOrderAmount() *money.Money { return c.minOrderAmount }
func (c *Coupon) UsageCount() int              { return c.usageCount }
func (c *Coupon) Enabled() bool                { return c.enabled }

func (c *Coupon) TotalUsageLimit() *int {
	if c.usageLimit == nil {
		return nil
	}
	limit := *c.usageLimit
	return &limit
}

// CheckUsable validates everything about the coupon itself at time at; order
// applicability (minimum, scope) is checked by the order.
func (c *Coupon) CheckUsable(at time.Time) error {
	switch {
	case !c.enabled:
		return ErrDisabled
	case !c.validFrom.IsZero() && at.Before(c.validFrom):
		return ErrNotYetValid
	case !c.validUntil.IsZero() && !at.Before(c.validUntil):
		return ErrExpired
	case c.usageLimit != nil && c.usageCount >= *c.usageLimit:
		return ErrUsageLimitExceeded
	}
	return nil
}

// IncrementUsage bumps the in-memory counter. Stores that share the counter
// between processes must perform the same check atomically.
func (c *Coupon) IncrementUsage() error {
	if c.usageLimit != nil && c.usageCount >= *c.usageLimit {
		return ErrUsageLimitExceeded
	}
	c.usageCount++
	return nil
}

func (c *Coupon) Enable()  { c.enabled = true }
func (c *Coupon) Disable() { c.enabled = false }
