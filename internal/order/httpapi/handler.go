package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	coupon "github.com/hoangvu1420/YummyZoom-sub001/internal/coupon/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/idempotency"
)

type Handler struct {
	svc *app.Service
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

func orderID(r *http.Request) order.OrderID {
	return order.OrderID(chi.URLParam(r, "id"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid json")
		return false
	}
	return true
}

func (h *Handler) InitiateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd app.InitiateOrderCommand
	if !decode(w, r, &cmd) {
		return
	}
	if strings.TrimSpace(cmd.CustomerID) == "" || strings.TrimSpace(cmd.RestaurantID) == "" {
		writeBadRequest(w, "customer_id and restaurant_id are required")
		return
	}
	cmd.IdempotencyKey = idempotency.Key(r)

	res, err := h.svc.InitiateOrder(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := toOrderResponse(res.Order)
	resp.ClientSecret = res.ClientSecret
	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), orderID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type acceptRequest struct {
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time"`
}

func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.EstimatedDeliveryTime.IsZero() {
		writeBadRequest(w, "estimated_delivery_time is required")
		return
	}
	h.respond(w)(h.svc.AcceptOrder(r.Context(), orderID(r), req.EstimatedDeliveryTime))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w)(h.svc.RejectOrder(r.Context(), orderID(r), req.Reason))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w)(h.svc.CancelOrder(r.Context(), orderID(r), req.Reason))
}

func (h *Handler) MarkPreparing(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.MarkOrderPreparing(r.Context(), orderID(r)))
}

func (h *Handler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.MarkOrderReadyForDelivery(r.Context(), orderID(r)))
}

func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.MarkOrderDelivered(r.Context(), orderID(r)))
}

type couponCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeBadRequest(w, "code is required")
		return
	}
	h.respond(w)(h.svc.ApplyCoupon(r.Context(), orderID(r), req.Code))
}

func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.svc.RemoveCoupon(r.Context(), orderID(r)))
}

type webhookRequest struct {
	OrderID            string `json:"order_id"`
	GatewayReferenceID string `json:"gateway_reference_id"`
	Status             string `json:"status"`
}

// PaymentWebhook receives the gateway's verdict on an intent. Status is
// "succeeded" or "failed".
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OrderID == "" || req.GatewayReferenceID == "" {
		writeBadRequest(w, "order_id and gateway_reference_id are required")
		return
	}
	id := order.OrderID(req.OrderID)
	switch strings.ToLower(req.Status) {
	case "succeeded":
		h.respond(w)(h.svc.RecordPaymentSuccess(r.Context(), id, req.GatewayReferenceID))
	case "failed":
		h.respond(w)(h.svc.RecordPaymentFailure(r.Context(), id, req.GatewayReferenceID))
	default:
		writeBadRequest(w, "status must be succeeded or failed")
	}
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var cmd app.CreateCouponCommand
	if !decode(w, r, &cmd) {
		return
	}
	c, err := h.svc.CreateCoupon(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

func (h *Handler) SetCouponEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.svc.SetCouponEnabled(r.Context(), coupon.CouponID(chi.URLParam(r, "id")), enabled)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCouponResponse(c))
	}
}

func (h *Handler) respond(w http.ResponseWriter) func(*order.Order, error) {
	return func(o *order.Order, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))
	}
}
