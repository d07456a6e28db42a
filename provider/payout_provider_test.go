package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

func payoutConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.ExternalServices.PayoutService = config.ServiceConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}
	return cfg
}

func claimRequest() *providers.PayoutRequest {
	return &providers.PayoutRequest{
		ClaimID: "claim-1",
		Address: "0xabc",
		Reward:  "0.5 SOL",
		Amount:  decimal.RequireFromString("0.5"),
		Chain:   "SOL",
	}
}

func TestPayoutProviderClaimAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-reward" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q, want test-key", got)
		}

		var body providers.PayoutRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Address != "0xabc" || body.Chain != "SOL" {
			t.Errorf("unexpected request body %+v", body)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"txHash":  "0xdeadbeef",
		})
	}))
	defer srv.Close()

	p := NewPayoutProvider(payoutConfig(srv.URL), zerolog.Nop())
	result, err := p.Claim(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !result.Accepted || result.TxReference != "0xdeadbeef" {
		t.Errorf("Claim() = %+v, want accepted with tx hash", result)
	}
	if result.ErrorMessage != "" {
		t.Errorf("accepted result carries error message %q", result.ErrorMessage)
	}
}

func TestPayoutProviderClaimDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "insufficient vault balance",
		})
	}))
	defer srv.Close()

	p := NewPayoutProvider(payoutConfig(srv.URL), zerolog.Nop())
	result, err := p.Claim(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if result.Accepted {
		t.Error("declined claim reported as accepted")
	}
	if result.ErrorMessage != "insufficient vault balance" {
		t.Errorf("ErrorMessage = %q", result.ErrorMessage)
	}
	if result.TxReference != "" {
		t.Errorf("declined result carries tx reference %q", result.TxReference)
	}
}

func TestPayoutProviderClaimUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := NewPayoutProvider(payoutConfig(srv.URL), zerolog.Nop())
	if _, err := p.Claim(context.Background(), claimRequest()); err == nil {
		t.Fatal("expected transport error for unreachable service")
	}
}

func TestWinnersProviderRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/winners" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"address": "0xabc", "amount": "0.5", "txHash": "0x1", "timestamp": time.Now().UTC()},
			{"address": "0xdef", "amount": "0.05", "txHash": "0x2", "timestamp": time.Now().UTC()},
		})
	}))
	defer srv.Close()

	p := NewWinnersProvider(payoutConfig(srv.URL), zerolog.Nop())
	winners, err := p.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("got %d winners, want 2", len(winners))
	}
	if winners[0].Address != "0xabc" || !winners[0].Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("first winner = %+v", winners[0])
	}
}
