package domain

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// Customization is a captured choice (e.g. "Size: Large") with its surcharge.
type Customization struct {
	GroupName       string      `json:"group_name"`
	ChoiceName      string      `json:"choice_name"`
	PriceAdjustment money.Money `json:"price_adjustment"`
}

// OrderItem is a snapshot of a menu item at order time; later menu changes
// never reach it.
type OrderItem struct {
	id             string
	categoryID     string
	menuItemID     string
	name           string
	unitPrice      money.Money
	quantity       int
	customizations []Customization
	lineTotal      money.Money
}

func NewOrderItem(categoryID, menuItemID, name string, unitPrice money.Money, quantity int, customizations ...Customization) (OrderItem, error) {
	if strings.TrimSpace(name) == "" {
		return OrderItem{}, ErrInvalidItemName
	}
	if quantity <= 0 {
		return OrderItem{}, ErrInvalidQuantity.WithMessage("quantity %d for %q must be positive", quantity, name)
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, ErrNegativeItemPrice
	}
	total := unitPrice.MulInt(int64(quantity))
	for _, c := range customizations {
		if c.PriceAdjustment.Currency() != unitPrice.Currency() {
			return OrderItem{}, ErrCurrencyMismatch.WithMessage("customization %q is priced in %s", c.ChoiceName, c.PriceAdjustment.Currency())
		}
		total = total.Add(c.PriceAdjustment)
	}
	return OrderItem{
		id:             uuid.NewString(),
		categoryID:     categoryID,
		menuItemID:     menuItemID,
		name:           name,
		unitPrice:      unitPrice,
		quantity:       quantity,
		customizations: slices.Clone(customizations),
		lineTotal:      total,
	}, nil
}

func (i OrderItem) ID() string             { return i.id }
func (i OrderItem) CategoryID() string     { return i.categoryID }
func (i OrderItem) MenuItemID() string     { return i.menuItemID }
func (i OrderItem) Name() string           { return i.name }
func (i OrderItem) UnitPrice() money.Money { return i.unitPrice }
func (i OrderItem) Quantity() int          { return i.quantity }
func (i OrderItem) LineTotal() money.Money { return i.lineTotal }

func (i OrderItem) Customizations() []Customization {
	return slices.Clone(i.customizations)
}
