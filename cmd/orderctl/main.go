package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/handlers"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/backend"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
)

func main() {
	runCmd := flag.String("run", "", "run scenario without the UI: cash|card|replay|bench")
	baseURL := flag.String("base-url", getenv("ORDER_BASE_URL", "http://localhost:8080"), "order-service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	c := newClient(*baseURL, *timeout)

	if *runCmd != "" {
		res := runScenario(c, *runCmd)
		fmt.Println(res.status)
		if res.metrics != "" {
			fmt.Println(res.metrics)
		}
		return
	}

	var ops *outboxOps
	if getenv("DATABASE_URL", "") != "" {
		var closeOps func()
		var err error
		ops, closeOps, err = openOutbox()
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		defer closeOps()
	}

	p := tea.NewProgram(initialModel(c, ops))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// openOutbox connects to the order database so the UI can show and drain
// pending outbox rows. Handler logs are discarded to keep the screen clean.
func openOutbox() (*outboxOps, func(), error) {
	cfg, err := config.Load("orderctl")
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := backend.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, closeDispatcher, err := handlers.NewDispatcher(cfg, store, logger, prometheus.NewRegistry())
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return &outboxOps{store: store, dispatcher: d}, func() {
		_ = closeDispatcher()
		_ = store.Close()
	}, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
