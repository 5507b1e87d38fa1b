// Package payment talks to the card processor when an order is paid online.
package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

// Metadata keys sent with every intent so the webhook can find the order.
const (
	MetaOrderID         = "order_id"
	MetaUserID          = "user_id"
	MetaRestaurantID    = "restaurant_id"
	MetaPaymentMethodID = "payment_method_id"
)

// ErrGateway is returned for any processor failure; Message carries the
// processor's own text.
var ErrGateway = domainerr.New("PaymentGateway.Error", "payment gateway failure")

type Intent struct {
	ID           string      `json:"id"`
	ClientSecret string      `json:"client_secret"`
	Amount       money.Money `json:"amount"`
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount money.Money, currency string, metadata map[string]string) (Intent, error)
}

// StubGateway accepts every intent except those whose payment method ends in
// DeclineSuffix, which mimics a card being declined.
type StubGateway struct {
	DeclineSuffix string

	mu      sync.Mutex
	intents []Intent
}

func NewStubGateway() *StubGateway {
	return &StubGateway{DeclineSuffix: "0000"}
}

func (g *StubGateway) CreatePaymentIntent(ctx context.Context, amount money.Money, currency string, metadata map[string]string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, ErrGateway.WithMessage("%v", err)
	}
	if !strings.EqualFold(amount.Currency(), currency) {
		return Intent{}, ErrGateway.WithMessage("amount is in %s but intent requested %s", amount.Currency(), currency)
	}
	if !amount.Amount().IsPositive() {
		return Intent{}, ErrGateway.WithMessage("amount must be positive")
	}
	if metadata[MetaOrderID] == "" {
		return Intent{}, ErrGateway.WithMessage("missing %s metadata", MetaOrderID)
	}
	if g.DeclineSuffix != "" && strings.HasSuffix(metadata[MetaPaymentMethodID], g.DeclineSuffix) {
		return Intent{}, ErrGateway.WithMessage("card declined: insufficient funds")
	}

	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := Intent{ID: id, ClientSecret: id + "_secret_" + uuid.NewString()[:8], Amount: amount}

	g.mu.Lock()
	g.intents = append(g.intents, in)
	g.mu.Unlock()
	return in, nil
}

// Intents returns the intents created so far.
func (g *StubGateway) Intents() []Intent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Intent(nil), g.intents...)
}
