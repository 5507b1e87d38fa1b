package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/handlers"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/app"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/order/httpapi"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/payment"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/sqlite"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
)

func startServer(t *testing.T) (*client, *outboxOps) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := app.NewService(store, payment.NewStubGateway(), app.Pricing{
		Currency: "VND", DeliveryFee: decimal.NewFromInt(15000), TaxRate: decimal.Zero,
	}, app.WithLogger(logger))
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.NewHandler(svc), httpapi.RouterConfig{Logger: logger}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults("orderctl")
	cfg.DatabaseURL = ":memory:"
	d, closeDispatcher, err := handlers.NewDispatcher(cfg, store, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeDispatcher() })

	return newClient(srv.URL, 5*time.Second), &outboxOps{store: store, dispatcher: d}
}

func TestScenariosAgainstOrderService(t *testing.T) {
	c, _ := startServer(t)

	for _, name := range []string{"cash", "card", "replay"} {
		t.Run(name, func(t *testing.T) {
			res := runScenario(c, name)
			assert.NotContains(t, res.status, "failed")
			if name == "replay" {
				assert.Contains(t, res.status, "Replay returned order")
			} else {
				assert.True(t, strings.HasSuffix(res.status, "DELIVERED"), res.status)
			}
		})
	}
}

func TestPlaceOrderReportsServerErrors(t *testing.T) {
	c, _ := startServer(t)
	cmd := sampleOrder("BITCOIN")

	_, err := c.placeOrder(context.Background(), cmd, "k-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestModelDrainsOutbox(t *testing.T) {
	c, ops := startServer(t)
	res := runScenario(c, "cash")
	require.NotContains(t, res.status, "failed")

	m := initialModel(c, ops)
	msg := m.Init()()
	next, _ := m.Update(msg)
	m = next.(model)
	require.NotEmpty(t, m.pending)
	assert.Contains(t, m.View(), contracts.EventOrderCreated)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = next.(model)
	assert.True(t, m.busy)
	next, _ = m.Update(cmd())
	m = next.(model)

	assert.False(t, m.busy)
	assert.Empty(t, m.pending)
	assert.Contains(t, m.status, "Drained")
}
