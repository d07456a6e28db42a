package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
environment: development
server:
  port: 9000
  enable_cors: true
redis:
  addr: localhost:6379
jwt:
  secret: super-secret
wheel:
  table_path: /etc/spinservice/table.yaml
  max_spins_per_day: 5
  server_seed: seed
donation:
  min_amount: "0.002"
  recipient: "0x2222222222222222222222222222222222222222"
chain:
  endpoint: http://localhost:8545
  chain_id: 1337
  commitment: finalized
external_services:
  payout_service:
    base_url: http://payout:8090
    api_key: key
    timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if !cfg.Server.EnableCORS {
		t.Error("EnableCORS not set")
	}
	if cfg.Wheel.MaxSpinsPerDay != 5 {
		t.Errorf("MaxSpinsPerDay = %d", cfg.Wheel.MaxSpinsPerDay)
	}
	if !cfg.Donation.MinAmount.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("MinAmount = %s", cfg.Donation.MinAmount)
	}
	if cfg.Chain.Commitment != "finalized" {
		t.Errorf("Commitment = %s", cfg.Chain.Commitment)
	}
	if cfg.ExternalServices.PayoutService.Timeout != 5*time.Second {
		t.Errorf("PayoutService.Timeout = %v", cfg.ExternalServices.PayoutService.Timeout)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
redis:
  addr: localhost:6379
jwt:
  secret: super-secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Wheel.MaxSpinsPerDay != 3 {
		t.Errorf("default MaxSpinsPerDay = %d", cfg.Wheel.MaxSpinsPerDay)
	}
	if !cfg.Donation.MinAmount.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("default MinAmount = %s", cfg.Donation.MinAmount)
	}
	if cfg.Chain.Commitment != "confirmed" {
		t.Errorf("default Commitment = %s", cfg.Chain.Commitment)
	}
	if cfg.Chain.Decimals != 9 {
		t.Errorf("default Decimals = %d", cfg.Chain.Decimals)
	}
	if cfg.Chain.AssetSymbol != "SOL" {
		t.Errorf("default AssetSymbol = %s", cfg.Chain.AssetSymbol)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDecimalDecodeHookFormats(t *testing.T) {
	path := writeConfig(t, `
redis:
  addr: localhost:6379
donation:
  min_amount: 0.005
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Donation.MinAmount.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("numeric min_amount = %s", cfg.Donation.MinAmount)
	}
}
