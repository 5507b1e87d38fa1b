package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
)

type intentRequest struct {
	Amount   money.Money       `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes mounts the intent endpoint of a payment processor backed by g.
func Routes(r chi.Router, g Gateway) {
	r.Post("/intents", func(w http.ResponseWriter, r *http.Request) {
		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}
		in, err := g.CreatePaymentIntent(r.Context(), req.Amount, req.Currency, req.Metadata)
		if err != nil {
			var de *domainerr.Error
			if errors.As(err, &de) {
				writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: de.Message})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
		writeJSON(w, http.StatusCreated, in)
	})
}

// HTTPGateway creates intents on a remote processor exposing Routes.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: timeout}}
}

func (g *HTTPGateway) CreatePaymentIntent(ctx context.Context, amount money.Money, currency string, metadata map[string]string) (Intent, error) {
	data, err := json.Marshal(intentRequest{Amount: amount, Currency: currency, Metadata: metadata})
	if err != nil {
		return Intent{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/intents", bytes.NewReader(data))
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return Intent{}, ErrGateway.WithMessage("%v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return Intent{}, ErrGateway.WithMessage("%s", e.Error)
		}
		return Intent{}, ErrGateway.WithMessage("unexpected status %d", resp.StatusCode)
	}
	var in Intent
	if err := json.Unmarshal(body, &in); err != nil {
		return Intent{}, fmt.Errorf("payment: decode intent: %w", err)
	}
	return in, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
