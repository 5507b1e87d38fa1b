package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func vnd(n int64) money.Money { return money.FromInt(n, "VND") }

func newItem(t *testing.T, menuItemID, categoryID string, price int64, qty int) OrderItem {
	t.Helper()
	it, err := NewOrderItem(categoryID, menuItemID, "item "+menuItemID, vnd(price), qty)
	require.NoError(t, err)
	return it
}

func placedOrder(t *testing.T) *Order {
	t.Helper()
	o, err := CreateMinimal(MinimalParams{
		CustomerID:   "cust-1",
		RestaurantID: "rest-1",
		Items: []OrderItem{
			newItem(t, "pho", "soups", 127920, 3),
		},
		DeliveryFee: vnd(15000),
		PlacedAt:    now,
	})
	require.NoError(t, err)
	return o
}

func awaitingOrder(t *testing.T, ref string) *Order {
	t.Helper()
	it := newItem(t, "pho", "soups", 50000, 2)
	pay, err := NewPaymentTransaction(PaymentParams{
		Method:             PaymentCreditCard,
		Amount:             vnd(110000),
		At:                 now,
		GatewayReferenceID: ref,
		PaidByUserID:       "cust-1",
	})
	require.NoError(t, err)
	o, err := Create(CreateParams{
		CustomerID:          "cust-1",
		RestaurantID:        "rest-1",
		Items:               []OrderItem{it},
		Subtotal:            vnd(100000),
		DeliveryFee:         vnd(10000),
		TotalAmount:         vnd(110000),
		PaymentTransactions: []PaymentTransaction{pay},
		PlacedAt:            now,
	})
	require.NoError(t, err)
	return o
}

func percentCoupon(t *testing.T, pct int64, opts ...func(*coupon.NewParams)) *coupon.Coupon {
	t.Helper()
	p := coupon.NewParams{
		RestaurantID: "rest-1",
		Code:         "save",
		Value:        coupon.Percentage(decimal.NewFromInt(pct)),
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&p)
	}
	c, err := coupon.New(p)
	require.NoError(t, err)
	return c
}

func eventTypes(o *Order) []string {
	var out []string
	for _, e := range o.DomainEvents() {
		out = append(out, e.EventType())
	}
	return out
}

func TestCreateMinimalPlacesOrder(t *testing.T) {
	o := placedOrder(t)

	assert.Equal(t, StatusPlaced, o.Status())
	assert.True(t, o.Subtotal().Equal(vnd(383760)))
	assert.True(t, o.TotalAmount().Equal(vnd(398760)))
	assert.True(t, o.DiscountAmount().IsZero())
	assert.Equal(t, now, o.PlacementTimestamp())
	assert.Regexp(t, `^ORD-20250301-[0-9A-F]{8}$`, o.OrderNumber())
	assert.Equal(t, []string{contracts.EventOrderCreated, contracts.EventOrderPlaced}, eventTypes(o))

	meta := o.DomainEvents()[0].Metadata()
	assert.Equal(t, o.ID(), meta.OrderID)
	assert.Equal(t, "rest-1", meta.RestaurantID)
	assert.NotEmpty(t, meta.EventID)
}

func TestCreateWithOnlinePaymentAwaitsPayment(t *testing.T) {
	o := awaitingOrder(t, "pi_1")

	assert.Equal(t, StatusAwaitingPayment, o.Status())
	assert.Equal(t, []string{contracts.EventOrderCreated}, eventTypes(o))
	require.Len(t, o.PaymentTransactions(), 1)
	assert.Equal(t, PaymentPending, o.PaymentTransactions()[0].Status())
}

func TestCreateWithCashOnDeliveryIsPlaced(t *testing.T) {
	it := newItem(t, "rice", "mains", 40000, 1)
	cod, err := NewPaymentTransaction(PaymentParams{Method: PaymentCashOnDelivery, Amount: vnd(40000), At: now})
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded, cod.Status())

	o, err := Create(CreateParams{
		CustomerID:          "cust-1",
		RestaurantID:        "rest-1",
		Items:               []OrderItem{it},
		Subtotal:            vnd(40000),
		TotalAmount:         vnd(40000),
		PaymentTransactions: []PaymentTransaction{cod},
		PlacedAt:            now,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, o.Status())
	assert.Equal(t, []string{contracts.EventOrderCreated, contracts.EventOrderPlaced}, eventTypes(o))
}

func TestCreateValidation(t *testing.T) {
	it := newItem(t, "pho", "soups", 50000, 2)
	pay := func(amount int64) PaymentTransaction {
		p, err := NewPaymentTransaction(PaymentParams{Method: PaymentCreditCard, Amount: vnd(amount), GatewayReferenceID: "pi"})
		require.NoError(t, err)
		return p
	}

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{
			name:   "no items",
			params: CreateParams{CustomerID: "c", RestaurantID: "r"},
			want:   ErrOrderItemRequired,
		},
		{
			name:   "missing customer",
			params: CreateParams{RestaurantID: "r", Items: []OrderItem{it}},
			want:   ErrInvalidCustomer,
		},
		{
			name:   "subtotal mismatch",
			params: CreateParams{CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it}, Subtotal: vnd(90000), TotalAmount: vnd(90000)},
			want:   ErrFinancialMismatch,
		},
		{
			name:   "total mismatch",
			params: CreateParams{CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it}, Subtotal: vnd(100000), TaxAmount: vnd(8000), TotalAmount: vnd(100000)},
			want:   ErrFinancialMismatch,
		},
		{
			name:   "negative total",
			params: CreateParams{CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it}, Subtotal: vnd(100000), DiscountAmount: vnd(150000), TotalAmount: vnd(-50000)},
			want:   ErrNegativeTotalAmount,
		},
		{
			name:   "negative tip",
			params: CreateParams{CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it}, Subtotal: vnd(100000), TipAmount: vnd(-1), TotalAmount: vnd(99999)},
			want:   ErrNegativeAmount,
		},
		{
			name:   "foreign currency fee",
			params: CreateParams{CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it}, Subtotal: vnd(100000), DeliveryFee: money.FromInt(1, "USD")},
			want:   ErrCurrencyMismatch,
		},
		{
			name: "payments short of total",
			params: CreateParams{
				CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it},
				Subtotal: vnd(100000), TotalAmount: vnd(100000),
				PaymentTransactions: []PaymentTransaction{pay(60000)},
			},
			want: ErrPaymentMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := Create(tt.params)
			assert.Nil(t, o)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPaymentsMustSumToTotal(t *testing.T) {
	it := newItem(t, "pho", "soups", 50000, 2)
	var payments []PaymentTransaction
	for _, amount := range []int64{60000, 40000} {
		p, err := NewPaymentTransaction(PaymentParams{Method: PaymentCreditCard, Amount: vnd(amount), GatewayReferenceID: "pi"})
		require.NoError(t, err)
		payments = append(payments, p)
	}
	o, err := Create(CreateParams{
		CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it},
		Subtotal: vnd(100000), TotalAmount: vnd(100000),
		PaymentTransactions: payments,
	})
	require.NoError(t, err)

	sum := money.Zero("VND")
	for _, p := range o.PaymentTransactions() {
		sum = sum.Add(p.Amount())
	}
	assert.True(t, sum.Equal(o.TotalAmount()))
}

func TestTotalIdentity(t *testing.T) {
	o := placedOrder(t)
	require.NoError(t, o.ApplyCoupon(percentCoupon(t, 15), now))

	want := o.Subtotal().Sub(o.DiscountAmount()).Add(o.TaxAmount()).Add(o.DeliveryFee()).Add(o.TipAmount())
	assert.True(t, o.TotalAmount().Equal(want))
	assert.False(t, o.TotalAmount().IsNegative())
}

func TestApplyPercentageCoupon(t *testing.T) {
	o := placedOrder(t)
	c := percentCoupon(t, 15)

	require.NoError(t, o.ApplyCoupon(c, now.Add(time.Minute)))

	assert.True(t, o.DiscountAmount().Equal(vnd(57564)), o.DiscountAmount().String())
	assert.True(t, o.TotalAmount().Equal(vnd(383760-57564+15000)))
	require.NotNil(t, o.AppliedCouponID())
	assert.Equal(t, c.ID(), *o.AppliedCouponID())
	assert.Equal(t, now.Add(time.Minute), o.LastUpdateTimestamp())
}

func TestApplyRemoveCouponRoundTrip(t *testing.T) {
	o := placedOrder(t)
	before := o.TotalAmount()

	require.NoError(t, o.ApplyCoupon(percentCoupon(t, 15), now))
	require.NoError(t, o.RemoveCoupon(now))

	assert.True(t, o.TotalAmount().Equal(before))
	assert.True(t, o.DiscountAmount().IsZero())
	assert.Nil(t, o.AppliedCouponID())
}

func TestApplyCouponRules(t *testing.T) {
	t.Run("already applied", func(t *testing.T) {
		o := placedOrder(t)
		require.NoError(t, o.ApplyCoupon(percentCoupon(t, 10), now))
		assert.ErrorIs(t, o.ApplyCoupon(percentCoupon(t, 20), now), ErrCouponAlreadyApplied)
	})
	t.Run("wrong status", func(t *testing.T) {
		o := placedOrder(t)
		require.NoError(t, o.Accept(now.Add(time.Hour), now))
		assert.ErrorIs(t, o.ApplyCoupon(percentCoupon(t, 10), now), ErrCouponCannotBeAppliedToOrderStatus)
	})
	t.Run("minimum not met", func(t *testing.T) {
		o := placedOrder(t)
		minimum := vnd(500000)
		c := percentCoupon(t, 10, func(p *coupon.NewParams) { p.MinOrderAmount = &minimum })
		assert.ErrorIs(t, o.ApplyCoupon(c, now), ErrCouponNotApplicable)
		assert.True(t, o.DiscountAmount().IsZero())
	})
	t.Run("scope matches nothing", func(t *testing.T) {
		o := placedOrder(t)
		c := percentCoupon(t, 10, func(p *coupon.NewParams) { p.AppliesTo = coupon.SpecificCategories("drinks") })
		assert.ErrorIs(t, o.ApplyCoupon(c, now), ErrCouponNotApplicable)
	})
	t.Run("remove after accept", func(t *testing.T) {
		o := placedOrder(t)
		require.NoError(t, o.ApplyCoupon(percentCoupon(t, 10), now))
		require.NoError(t, o.Accept(now.Add(time.Hour), now))
		assert.ErrorIs(t, o.RemoveCoupon(now), ErrCouponCannotBeRemovedFromOrderStatus)
	})
	t.Run("remove without coupon", func(t *testing.T) {
		o := placedOrder(t)
		assert.NoError(t, o.RemoveCoupon(now))
	})
}

func paymentsCoverTotal(t *testing.T, o *Order) {
	t.Helper()
	paid := vnd(0)
	for _, p := range o.PaymentTransactions() {
		paid = paid.Add(p.Amount())
	}
	assert.True(t, paid.Equal(o.TotalAmount()), "paid %s, total %s", paid, o.TotalAmount())
}

func TestCouponLockedOncePaymentsExist(t *testing.T) {
	t.Run("apply after card payment", func(t *testing.T) {
		o := awaitingOrder(t, "pi_1")
		require.NoError(t, o.RecordPaymentSuccess("pi_1", now))
		events := len(o.DomainEvents())

		err := o.ApplyCoupon(percentCoupon(t, 50), now)

		assert.ErrorIs(t, err, ErrCouponCannotBeAppliedToOrderStatus)
		assert.True(t, o.TotalAmount().Equal(vnd(110000)))
		assert.True(t, o.DiscountAmount().IsZero())
		assert.Nil(t, o.AppliedCouponID())
		assert.Len(t, o.DomainEvents(), events)
		paymentsCoverTotal(t, o)
	})
	t.Run("remove from cash order", func(t *testing.T) {
		c := percentCoupon(t, 10)
		id := c.ID()
		it := newItem(t, "rice", "mains", 100000, 1)
		cod, err := NewPaymentTransaction(PaymentParams{Method: PaymentCashOnDelivery, Amount: vnd(90000), At: now})
		require.NoError(t, err)
		o, err := Create(CreateParams{
			CustomerID:          "cust-1",
			RestaurantID:        "rest-1",
			Items:               []OrderItem{it},
			Subtotal:            vnd(100000),
			DiscountAmount:      vnd(10000),
			TotalAmount:         vnd(90000),
			PaymentTransactions: []PaymentTransaction{cod},
			AppliedCouponID:     &id,
			PlacedAt:            now,
		})
		require.NoError(t, err)

		assert.ErrorIs(t, o.RemoveCoupon(now), ErrCouponCannotBeRemovedFromOrderStatus)
		assert.True(t, o.TotalAmount().Equal(vnd(90000)))
		require.NotNil(t, o.AppliedCouponID())
		paymentsCoverTotal(t, o)
	})
}

func TestRecordPaymentSuccess(t *testing.T) {
	o := awaitingOrder(t, "pi_1")
	o.ClearDomainEvents()

	require.NoError(t, o.RecordPaymentSuccess("pi_1", now))

	assert.Equal(t, StatusPlaced, o.Status())
	assert.Equal(t, PaymentSucceeded, o.PaymentTransactions()[0].Status())
	assert.Equal(t, []string{contracts.EventOrderPaymentSucceeded, contracts.EventOrderPlaced}, eventTypes(o))
}

func TestRecordPaymentUnknownReference(t *testing.T) {
	o := awaitingOrder(t, "pi_1")
	events := len(o.DomainEvents())

	err := o.RecordPaymentSuccess("pi_other", now)

	assert.ErrorIs(t, err, ErrPaymentTransactionNotFound)
	assert.Equal(t, StatusAwaitingPayment, o.Status())
	assert.Len(t, o.DomainEvents(), events)
}

func TestPaymentFailureIsTerminal(t *testing.T) {
	o := awaitingOrder(t, "pi_1")
	require.NoError(t, o.RecordPaymentFailure("pi_1", now))

	assert.Equal(t, StatusCancelled, o.Status())
	assert.Equal(t, PaymentFailed, o.PaymentTransactions()[0].Status())
	assert.Contains(t, eventTypes(o), contracts.EventOrderPaymentFailed)

	assert.ErrorIs(t, o.RecordPaymentSuccess("pi_1", now), ErrInvalidOrderStatusForPaymentConfirmation)
	assert.ErrorIs(t, o.Accept(now, now), ErrInvalidOrderStatusForAccept)
	assert.ErrorIs(t, o.Cancel("late", now), ErrInvalidOrderStatusForCancel)
	assert.Equal(t, StatusCancelled, o.Status())
}

func TestDeliveryLifecycle(t *testing.T) {
	o := placedOrder(t)
	eta := now.Add(45 * time.Minute)

	require.NoError(t, o.Accept(eta, now))
	require.NoError(t, o.MarkAsPreparing(now.Add(time.Minute)))
	require.NoError(t, o.MarkAsReadyForDelivery(now.Add(20*time.Minute)))
	require.NoError(t, o.MarkAsDelivered(now.Add(40*time.Minute)))

	assert.Equal(t, StatusDelivered, o.Status())
	require.NotNil(t, o.EstimatedDeliveryTime())
	assert.Equal(t, eta, *o.EstimatedDeliveryTime())
	require.NotNil(t, o.ActualDeliveryTime())
	assert.Equal(t, now.Add(40*time.Minute), *o.ActualDeliveryTime())
	assert.Equal(t, now.Add(40*time.Minute), o.LastUpdateTimestamp())

	evts := o.DomainEvents()
	delivered, ok := evts[len(evts)-1].(OrderDelivered)
	require.True(t, ok)
	assert.True(t, delivered.TotalAmount.Equal(o.TotalAmount()))
	assert.NotContains(t, eventTypes(o), contracts.EventOrderPaid)
}

func TestCashOrderPaidOnDelivery(t *testing.T) {
	it := newItem(t, "rice", "mains", 40000, 1)
	cod, err := NewPaymentTransaction(PaymentParams{Method: PaymentCashOnDelivery, Amount: vnd(40000)})
	require.NoError(t, err)
	o, err := Create(CreateParams{
		CustomerID: "c", RestaurantID: "r", Items: []OrderItem{it},
		Subtotal: vnd(40000), TotalAmount: vnd(40000),
		PaymentTransactions: []PaymentTransaction{cod},
	})
	require.NoError(t, err)
	require.NoError(t, o.Accept(now, now))
	require.NoError(t, o.MarkAsPreparing(now))
	require.NoError(t, o.MarkAsReadyForDelivery(now))
	o.ClearDomainEvents()

	require.NoError(t, o.MarkAsDelivered(now))

	assert.Equal(t, []string{contracts.EventOrderDelivered, contracts.EventOrderPaid}, eventTypes(o))
}

func TestZeroTimeDefaultsToNow(t *testing.T) {
	o := placedOrder(t)
	before := time.Now().UTC()
	require.NoError(t, o.Reject("closed", time.Time{}))
	assert.False(t, o.LastUpdateTimestamp().Before(before))
	assert.Equal(t, time.UTC, o.LastUpdateTimestamp().Location())
}

func TestStateMachineClosure(t *testing.T) {
	builders := map[Status]func(t *testing.T) *Order{
		StatusAwaitingPayment: func(t *testing.T) *Order { return awaitingOrder(t, "pi_1") },
		StatusPlaced:          placedOrder,
		StatusAccepted: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Accept(now, now))
			return o
		},
		StatusPreparing: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Accept(now, now))
			require.NoError(t, o.MarkAsPreparing(now))
			return o
		},
		StatusReadyForDelivery: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Accept(now, now))
			require.NoError(t, o.MarkAsPreparing(now))
			require.NoError(t, o.MarkAsReadyForDelivery(now))
			return o
		},
		StatusDelivered: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Accept(now, now))
			require.NoError(t, o.MarkAsPreparing(now))
			require.NoError(t, o.MarkAsReadyForDelivery(now))
			require.NoError(t, o.MarkAsDelivered(now))
			return o
		},
		StatusCancelled: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Cancel("changed mind", now))
			return o
		},
		StatusRejected: func(t *testing.T) *Order {
			o := placedOrder(t)
			require.NoError(t, o.Reject("closed", now))
			return o
		},
	}

	ops := []struct {
		name    string
		run     func(o *Order) error
		allowed []Status
		next    Status
		err     error
	}{
		{"payment success", func(o *Order) error { return o.RecordPaymentSuccess("pi_1", now) }, []Status{StatusAwaitingPayment}, StatusPlaced, ErrInvalidOrderStatusForPaymentConfirmation},
		{"payment failure", func(o *Order) error { return o.RecordPaymentFailure("pi_1", now) }, []Status{StatusAwaitingPayment}, StatusCancelled, ErrInvalidOrderStatusForPaymentFailure},
		{"accept", func(o *Order) error { return o.Accept(now, now) }, []Status{StatusPlaced}, StatusAccepted, ErrInvalidOrderStatusForAccept},
		{"reject", func(o *Order) error { return o.Reject("", now) }, []Status{StatusPlaced}, StatusRejected, ErrInvalidOrderStatusForReject},
		{"cancel", func(o *Order) error { return o.Cancel("", now) }, []Status{StatusPlaced, StatusAccepted, StatusPreparing, StatusReadyForDelivery}, StatusCancelled, ErrInvalidOrderStatusForCancel},
		{"preparing", func(o *Order) error { return o.MarkAsPreparing(now) }, []Status{StatusAccepted}, StatusPreparing, ErrInvalidOrderStatusForPreparing},
		{"ready", func(o *Order) error { return o.MarkAsReadyForDelivery(now) }, []Status{StatusPreparing}, StatusReadyForDelivery, ErrInvalidOrderStatusForReadyForDelivery},
		{"delivered", func(o *Order) error { return o.MarkAsDelivered(now) }, []Status{StatusReadyForDelivery}, StatusDelivered, ErrInvalidOrderStatusForDelivered},
	}

	for _, from := range AllStatuses {
		for _, op := range ops {
			t.Run(string(from)+"/"+op.name, func(t *testing.T) {
				o := builders[from](t)
				require.Equal(t, from, o.Status())
				events := len(o.DomainEvents())

				err := op.run(o)

				allowed := false
				for _, s := range op.allowed {
					allowed = allowed || s == from
				}
				if allowed {
					require.NoError(t, err)
					assert.Equal(t, op.next, o.Status())
					assert.Greater(t, len(o.DomainEvents()), events)
					return
				}
				assert.True(t, errors.Is(err, op.err), "got %v", err)
				assert.Equal(t, from, o.Status())
				assert.Len(t, o.DomainEvents(), events)
			})
		}
	}
}
