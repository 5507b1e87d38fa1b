package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

type scenario struct {
	Name        string
	Description string
}

var scenarios = []scenario{
	{"cash", "Cash on delivery order, accepted and delivered"},
	{"card", "Card order, confirmed by webhook, then delivered"},
	{"replay", "Same Idempotency-Key twice returns one order"},
	{"bench", "Concurrent cash checkouts for five seconds"},
}

// outboxOps backs the outbox panel when orderctl has database access.
type outboxOps struct {
	store      storage.Storage
	dispatcher *outbox.Dispatcher
}

func (o *outboxOps) pending(ctx context.Context) ([]outbox.Message, error) {
	return o.store.FetchPendingOutbox(ctx, 20)
}

type model struct {
	client   *client
	outbox   *outboxOps
	selected int
	status   string
	metrics  string
	pending  []outbox.Message
	busy     bool
}

func initialModel(c *client, ops *outboxOps) model {
	return model{client: c, outbox: ops, status: "Ready"}
}

type scenarioResult struct {
	status  string
	metrics string
}

type outboxResult struct {
	pending []outbox.Message
	status  string
}

func (m model) Init() tea.Cmd {
	if m.outbox == nil {
		return nil
	}
	return refreshCmd(m.outbox, "")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(scenarios)-1 {
				m.selected++
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			return m, runScenarioCmd(m.client, scenarios[m.selected].Name)
		case "r":
			if m.outbox != nil {
				return m, refreshCmd(m.outbox, "")
			}
		case "d":
			if m.outbox != nil && !m.busy {
				m.busy = true
				m.status = "Draining outbox..."
				return m, drainCmd(m.outbox)
			}
		}
	case scenarioResult:
		m.busy = false
		m.status = msg.status
		m.metrics = msg.metrics
		if m.outbox != nil {
			return m, refreshCmd(m.outbox, "")
		}
	case outboxResult:
		m.pending = msg.pending
		if msg.status != "" {
			m.busy = false
			m.status = msg.status
		}
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "orderctl")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Scenarios:")
	for i, s := range scenarios {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-7s %s\n", marker, s.Name, s.Description)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	if m.metrics != "" {
		fmt.Fprintf(b, "Metrics: %s\n", m.metrics)
	}
	if m.outbox != nil {
		fmt.Fprintf(b, "\nPending outbox (%d):\n", len(m.pending))
		for _, p := range m.pending {
			line := fmt.Sprintf("  %s  %-26s key=%s attempts=%d", p.OccurredAt.Format(time.TimeOnly), p.Type, p.Key, p.Attempts)
			if p.Error != "" {
				line += "  err=" + p.Error
			}
			fmt.Fprintln(b, line)
		}
	}
	fmt.Fprint(b, "\nControls: up/down select, enter run")
	if m.outbox != nil {
		fmt.Fprint(b, ", r refresh outbox, d drain outbox")
	}
	fmt.Fprintln(b, ", q quit")
	return b.String()
}

func refreshCmd(ops *outboxOps, status string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pending, err := ops.pending(ctx)
		if err != nil {
			return outboxResult{status: fmt.Sprintf("Outbox read failed: %v", err)}
		}
		return outboxResult{pending: pending, status: status}
	}
}

func drainCmd(ops *outboxOps) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := ops.dispatcher.Drain(ctx)
		status := fmt.Sprintf("Drained: fetched=%d processed=%d failed=%d", res.Fetched, res.Processed, res.Failed)
		if err != nil {
			status = fmt.Sprintf("Drain failed: %v", err)
		}
		return refreshCmd(ops, status)()
	}
}

func runScenarioCmd(c *client, name string) tea.Cmd {
	return func() tea.Msg { return runScenario(c, name) }
}

func runScenario(c *client, name string) scenarioResult {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch name {
	case "bench":
		return scenarioResult{status: "Benchmark finished", metrics: runBenchmark(c, 5*time.Second, 5)}
	case "card":
		o, err := c.placeOrder(ctx, sampleOrder(order.PaymentCreditCard), uuid.NewString())
		if err != nil {
			return scenarioResult{status: fmt.Sprintf("Checkout failed: %v", err)}
		}
		if o, err = c.confirmPayment(ctx, o); err != nil {
			return scenarioResult{status: fmt.Sprintf("Webhook failed: %v", err)}
		}
		if o, err = c.advance(ctx, o.ID); err != nil {
			return scenarioResult{status: fmt.Sprintf("Lifecycle failed: %v", err)}
		}
		return scenarioResult{status: fmt.Sprintf("Order %s %s", o.OrderNumber, o.Status)}
	case "replay":
		key := uuid.NewString()
		cmd := sampleOrder(order.PaymentCashOnDelivery)
		first, err := c.placeOrder(ctx, cmd, key)
		if err != nil {
			return scenarioResult{status: fmt.Sprintf("Checkout failed: %v", err)}
		}
		second, err := c.placeOrder(ctx, cmd, key)
		if err != nil {
			return scenarioResult{status: fmt.Sprintf("Replay failed: %v", err)}
		}
		if first.ID != second.ID {
			return scenarioResult{status: fmt.Sprintf("Replay created a second order: %s != %s", first.ID, second.ID)}
		}
		return scenarioResult{status: fmt.Sprintf("Replay returned order %s", first.OrderNumber)}
	default:
		o, err := c.placeOrder(ctx, sampleOrder(order.PaymentCashOnDelivery), uuid.NewString())
		if err != nil {
			return scenarioResult{status: fmt.Sprintf("Checkout failed: %v", err)}
		}
		if o, err = c.advance(ctx, o.ID); err != nil {
			return scenarioResult{status: fmt.Sprintf("Lifecycle failed: %v", err)}
		}
		return scenarioResult{status: fmt.Sprintf("Order %s %s", o.OrderNumber, o.Status)}
	}
}

func runBenchmark(c *client, duration time.Duration, workers int) string {
	var mu sync.Mutex
	var total time.Duration
	var count, failures int
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				start := time.Now()
				_, err := c.placeOrder(ctx, sampleOrder(order.PaymentCashOnDelivery), uuid.NewString())
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				if err != nil {
					failures++
				} else {
					count++
					total += time.Since(start)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	avg := time.Duration(0)
	if count > 0 {
		avg = total / time.Duration(count)
	}
	throughput := float64(count) / duration.Seconds()
	return fmt.Sprintf("count=%d errors=%d avg=%s throughput=%.2f orders/s", count, failures, avg, throughput)
}
