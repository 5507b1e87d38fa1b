package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/sqlite"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/idempotency"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type server struct {
	*httptest.Server
	gateway *payment.StubGateway
	store   *sqlite.Store
}

func setup(t *testing.T, healthErr error) *server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gw := payment.NewStubGateway()
	svc := app.NewService(store, gw, app.Pricing{Currency: "VND", DeliveryFee: decimal.NewFromInt(15000)})
	reg := prometheus.NewRegistry()
	router := NewRouter(NewHandler(svc), RouterConfig{
		Metrics:        metrics.NewServerMetrics(reg, "order_service"),
		Gatherer:       reg,
		RequestTimeout: 5 * time.Second,
		Health:         func(context.Context) error { return healthErr },
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &server{Server: srv, gateway: gw, store: store}
}

func (s *server) do(t *testing.T, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func orderBody(method string) map[string]any {
	return map[string]any{
		"customer_id":   "cust-1",
		"restaurant_id": "rest-1",
		"items": []map[string]any{{
			"menu_item_id": "pho",
			"category_id":  "soups",
			"name":         "Pho bo",
			"unit_price":   "127920",
			"quantity":     3,
		}},
		"payment_method":    method,
		"payment_method_id": "pm_4242",
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := setup(t, nil)

	code, body := s.do(t, http.MethodPost, "/orders", orderBody("CASH_ON_DELIVERY"))
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)
	assert.Equal(t, "PLACED", body["status"])
	assert.Equal(t, map[string]any{"amount": "398760", "currency": "VND"}, body["total_amount"])

	code, body = s.do(t, http.MethodGet, "/orders/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["id"])

	code, body = s.do(t, http.MethodPost, "/orders/"+id+"/preparing", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Order.InvalidOrderStatusForPreparing", body["error"])

	code, _ = s.do(t, http.MethodPost, "/orders/"+id+"/accept", map[string]any{
		"estimated_delivery_time": time.Now().Add(time.Hour).UTC(),
	})
	require.Equal(t, http.StatusOK, code)
	for _, step := range []string{"preparing", "ready", "delivered"} {
		code, body = s.do(t, http.MethodPost, "/orders/"+id+"/"+step, nil)
		require.Equal(t, http.StatusOK, code, step)
	}
	assert.Equal(t, "DELIVERED", body["status"])
	assert.NotNil(t, body["actual_delivery_time"])
}

func TestCouponEndpoints(t *testing.T) {
	s := setup(t, nil)
	coupon := map[string]any{
		"restaurant_id": "rest-1",
		"code":          "save15",
		"value_type":    "PERCENTAGE",
		"percentage":    "15",
	}
	code, body := s.do(t, http.MethodPost, "/coupons", coupon)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "SAVE15", body["code"])

	code, body = s.do(t, http.MethodPost, "/coupons", coupon)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Coupon.DuplicateCode", body["error"])

	code, body = s.do(t, http.MethodPost, "/orders", orderBody("CASH_ON_DELIVERY"))
	require.Equal(t, http.StatusCreated, code)
	paid := body["id"].(string)

	code, body = s.do(t, http.MethodPost, "/orders/"+paid+"/coupon", map[string]any{"code": "save15"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Order.CouponCannotBeAppliedToOrderStatus", body["error"])

	it, err := order.NewOrderItem("soups", "pho", "Pho bo", money.FromInt(127920, "VND"), 3)
	require.NoError(t, err)
	o, err := order.CreateMinimal(order.MinimalParams{
		CustomerID:   "cust-1",
		RestaurantID: "rest-1",
		Items:        []order.OrderItem{it},
		DeliveryFee:  money.FromInt(15000, "VND"),
	})
	require.NoError(t, err)
	require.NoError(t, s.store.SaveOrder(context.Background(), o))
	id := string(o.ID())

	code, body = s.do(t, http.MethodPost, "/orders/"+id+"/coupon", map[string]any{"code": "save15"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, map[string]any{"amount": "57564", "currency": "VND"}, body["discount_amount"])

	code, body = s.do(t, http.MethodDelete, "/orders/"+id+"/coupon", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["applied_coupon_id"])

	code, _ = s.do(t, http.MethodPost, "/orders/"+id+"/coupon", map[string]any{"code": "missing"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestIdempotentCheckoutAndWebhook(t *testing.T) {
	s := setup(t, nil)

	code, first := s.do(t, http.MethodPost, "/orders", orderBody("CREDIT_CARD"), idempotency.Header, "cart-42")
	require.Equal(t, http.StatusCreated, code, first)
	assert.Equal(t, "AWAITING_PAYMENT", first["status"])
	assert.NotEmpty(t, first["client_secret"])

	code, second := s.do(t, http.MethodPost, "/orders", orderBody("CREDIT_CARD"), idempotency.Header, "cart-42")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first["id"], second["id"])
	require.Len(t, s.gateway.Intents(), 1)

	hook := map[string]any{
		"order_id":             first["id"],
		"gateway_reference_id": s.gateway.Intents()[0].ID,
		"status":               "succeeded",
	}
	code, body := s.do(t, http.MethodPost, "/payments/webhook", hook)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "PLACED", body["status"])

	code, body = s.do(t, http.MethodPost, "/payments/webhook", hook)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Order.InvalidOrderStatusForPaymentConfirmation", body["error"])

	hook["status"] = "maybe"
	code, _ = s.do(t, http.MethodPost, "/payments/webhook", hook)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestErrorStatuses(t *testing.T) {
	s := setup(t, nil)

	code, _ := s.do(t, http.MethodPost, "/orders", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := s.do(t, http.MethodGet, "/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order.NotFound", body["error"])

	bad := orderBody("CASH_ON_DELIVERY")
	bad["items"] = []map[string]any{{"menu_item_id": "pho", "name": "Pho", "unit_price": "1000", "quantity": 0}}
	code, body = s.do(t, http.MethodPost, "/orders", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "OrderItem.InvalidQuantity", body["error"])

	declined := orderBody("CREDIT_CARD")
	declined["payment_method_id"] = "pm_0000"
	code, body = s.do(t, http.MethodPost, "/orders", declined)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "PaymentGateway.Error", body["error"])

	rec := httptest.NewRecorder()
	writeError(rec, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestHealthAndMetrics(t *testing.T) {
	s := setup(t, nil)
	code, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "yummyzoom_order_service_http_requests_total")

	down := setup(t, errors.New("db down"))
	code, _ = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
