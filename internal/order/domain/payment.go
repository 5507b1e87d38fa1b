package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type PaymentMethodType string

const (
	PaymentCreditCard     PaymentMethodType = "CREDIT_CARD"
	PaymentPayPal         PaymentMethodType = "PAYPAL"
	PaymentApplePay       PaymentMethodType = "APPLE_PAY"
	PaymentGooglePay      PaymentMethodType = "GOOGLE_PAY"
	PaymentCashOnDelivery PaymentMethodType = "CASH_ON_DELIVERY"
)

// IsOnline reports whether the method settles through the payment gateway.
func (t PaymentMethodType) IsOnline() bool { return t != PaymentCashOnDelivery }

type TransactionType string

const (
	TransactionPayment TransactionType = "PAYMENT"
	TransactionRefund  TransactionType = "REFUND"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentTransaction is one payment or refund attempt. It is owned by exactly
// one Order and changes status only through that Order.
type PaymentTransaction struct {
	id                 string
	methodType         PaymentMethodType
	transactionType    TransactionType
	amount             money.Money
	timestamp          time.Time
	status             PaymentStatus
	displayLabel       string
	gatewayReferenceID string
	paidByUserID       string
}

type PaymentParams struct {
	Method             PaymentMethodType
	Type               TransactionType
	Amount             money.Money
	At                 time.Time
	DisplayLabel       string
	GatewayReferenceID string
	PaidByUserID       string
}

func NewPaymentTransaction(p PaymentParams) (PaymentTransaction, error) {
	if p.Amount.IsNegative() || p.Amount.IsZero() {
		return PaymentTransaction{}, ErrInvalidPaymentAmount
	}
	if p.Type == "" {
		p.Type = TransactionPayment
	}
	status := PaymentPending
	if !p.Method.IsOnline() {
		status = PaymentSucceeded
	}
	return PaymentTransaction{
		id:                 uuid.NewString(),
		methodType:         p.Method,
		transactionType:    p.Type,
		amount:             p.Amount,
		timestamp:          stamp(p.At),
		status:             status,
		displayLabel:       p.DisplayLabel,
		gatewayReferenceID: p.GatewayReferenceID,
		paidByUserID:       p.PaidByUserID,
	}, nil
}

func (t PaymentTransaction) ID() string                           { return t.id }
func (t PaymentTransaction) PaymentMethodType() PaymentMethodType { return t.methodType }
func (t PaymentTransaction) TransactionType() TransactionType     { return t.transactionType }
func (t PaymentTransaction) Amount() money.Money                  { return t.amount }
func (t PaymentTransaction) Timestamp() time.Time                 { return t.timestamp }
func (t PaymentTransaction) Status() PaymentStatus                { return t.status }
func (t PaymentTransaction) DisplayLabel() string                 { return t.displayLabel }
func (t PaymentTransaction) GatewayReferenceID() string           { return t.gatewayReferenceID }
func (t PaymentTransaction) PaidByUserID() string                 { return t.paidByUserID }

func (t *PaymentTransaction) markSucceeded(at time.Time) error {
	if t.status != PaymentPending {
		return ErrPaymentNotPending
	}
	t.status = PaymentSucceeded
	t.timestamp = at
	return nil
}

func (t *PaymentTransaction) markFailed(at time.Time) error {
	if t.status != PaymentPending {
		return ErrPaymentNotPending
	}
	t.status = PaymentFailed
	t.timestamp = at
	return nil
}
