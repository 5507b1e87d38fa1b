package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: msg})
}

// writeError maps business failures to 404 (missing), 409 (state or
// contention), 502 (gateway) and 422 (everything else the caller got wrong).
// Anything that is not a domain error is a 500 and its text is not echoed.
func writeError(w http.ResponseWriter, err error) {
	var derr *domainerr.Error
	switch {
	case errors.Is(err, storage.ErrConcurrencyConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Order.ConcurrencyConflict", Message: "order was modified concurrently, retry"})
	case errors.As(err, &derr):
		writeJSON(w, statusFor(derr), errorBody{Error: derr.Code, Message: derr.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

func statusFor(e *domainerr.Error) int {
	switch {
	case errors.Is(e, order.ErrNotFound), errors.Is(e, coupon.ErrNotFound),
		errors.Is(e, order.ErrPaymentTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(e, payment.ErrGateway):
		return http.StatusBadGateway
	case strings.Contains(e.Code, "InvalidOrderStatus"),
		strings.Contains(e.Code, "CouponCannotBe"),
		errors.Is(e, order.ErrCouponAlreadyApplied),
		errors.Is(e, coupon.ErrUsageLimitExceeded),
		errors.Is(e, coupon.ErrDisabled),
		errors.Is(e, coupon.ErrExpired),
		errors.Is(e, coupon.ErrNotYetValid),
		errors.Is(e, app.ErrDuplicateCouponCode):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
