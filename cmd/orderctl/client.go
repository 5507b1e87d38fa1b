package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/idempotency"
)

type orderView struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Payments    []struct {
		Status             string `json:"status"`
		GatewayReferenceID string `json:"gateway_reference_id"`
	} `json:"payments"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

func sampleOrder(method order.PaymentMethodType) app.InitiateOrderCommand {
	cmd := app.InitiateOrderCommand{
		CustomerID:   "cust-" + uuid.NewString()[:8],
		RestaurantID: "rest-1",
		DeliveryAddress: order.DeliveryAddress{
			Street: "12 Ly Thuong Kiet", City: "Hanoi", Country: "VN",
		},
		Items: []app.ItemInput{
			{MenuItemID: "pho-bo", CategoryID: "soups", Name: "Pho bo", UnitPrice: decimal.NewFromInt(65000), Quantity: 2},
		},
		TipAmount:     decimal.Zero,
		PaymentMethod: method,
	}
	if method.IsOnline() {
		cmd.PaymentMethodID = "pm_card_4242"
	}
	return cmd
}

func (c *client) placeOrder(ctx context.Context, cmd app.InitiateOrderCommand, key string) (orderView, error) {
	var out orderView
	err := c.do(ctx, http.MethodPost, "/orders", cmd, map[string]string{idempotency.Header: key}, &out)
	return out, err
}

func (c *client) confirmPayment(ctx context.Context, o orderView) (orderView, error) {
	ref := ""
	for _, p := range o.Payments {
		if p.GatewayReferenceID != "" {
			ref = p.GatewayReferenceID
		}
	}
	body := map[string]string{"order_id": o.ID, "gateway_reference_id": ref, "status": "succeeded"}
	var out orderView
	err := c.do(ctx, http.MethodPost, "/payments/webhook", body, nil, &out)
	return out, err
}

// advance moves a placed order through the restaurant's steps up to
// delivery and returns the final view.
func (c *client) advance(ctx context.Context, id string) (orderView, error) {
	steps := []struct {
		path string
		body any
	}{
		{"/accept", map[string]any{"estimated_delivery_time": time.Now().Add(40 * time.Minute).UTC()}},
		{"/preparing", nil},
		{"/ready", nil},
		{"/delivered", nil},
	}
	var out orderView
	for _, s := range steps {
		if err := c.do(ctx, http.MethodPost, "/orders/"+id+s.path, s.body, nil, &out); err != nil {
			return out, fmt.Errorf("%s: %w", strings.TrimPrefix(s.path, "/"), err)
		}
	}
	return out, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
