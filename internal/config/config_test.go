package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NODE_WS_URL", "wss://node.example.org/ws")
	t.Setenv("WALLET_RPC_URL", "http://localhost:6332")
	t.Setenv("OPERATOR_ADDRESS", strings.Repeat("A", 32))
	t.Setenv("ARB_ADDRESSES", strings.Repeat("B", 32)+", "+strings.Repeat("C", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
	}
	if cfg.Bot.Tolerance != 2 {
		t.Errorf("Bot.Tolerance = %d, want 2", cfg.Bot.Tolerance)
	}
	if len(cfg.Bot.ArbAddresses) != 2 {
		t.Errorf("ArbAddresses = %d entries, want 2", len(cfg.Bot.ArbAddresses))
	}
	if cfg.Jobs.ReconcileInterval != time.Minute {
		t.Errorf("ReconcileInterval = %v, want 1m", cfg.Jobs.ReconcileInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T)
		wantErr string
	}{
		{
			"missing node url",
			func(t *testing.T) { t.Setenv("NODE_WS_URL", "") },
			"NODE_WS_URL",
		},
		{
			"http node url rejected",
			func(t *testing.T) { t.Setenv("NODE_WS_URL", "https://node.example.org") },
			"ws:// or wss://",
		},
		{
			"missing wallet url",
			func(t *testing.T) { t.Setenv("WALLET_RPC_URL", "") },
			"WALLET_RPC_URL",
		},
		{
			"missing operator",
			func(t *testing.T) { t.Setenv("OPERATOR_ADDRESS", "") },
			"OPERATOR_ADDRESS",
		},
		{
			"malformed operator address",
			func(t *testing.T) { t.Setenv("OPERATOR_ADDRESS", "not-an-address") },
			"OPERATOR_ADDRESS",
		},
		{
			"missing arb addresses",
			func(t *testing.T) { t.Setenv("ARB_ADDRESSES", "") },
			"ARB_ADDRESSES",
		},
		{
			"malformed arb address",
			func(t *testing.T) { t.Setenv("ARB_ADDRESSES", "oops") },
			"ARB_ADDRESSES",
		},
		{
			"bad server port",
			func(t *testing.T) { t.Setenv("SERVER_PORT", "70000") },
			"SERVER_PORT",
		},
		{
			"negative tolerance",
			func(t *testing.T) { t.Setenv("PROFIT_TOLERANCE", "-1") },
			"PROFIT_TOLERANCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			tt.mutate(t)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "user",
		Password: "secret", Name: "stablearb", SSLMode: "disable",
	}

	if strings.Contains(db.DSNWithoutPassword(), "secret") {
		t.Error("DSNWithoutPassword leaks the password")
	}
	if !strings.Contains(db.DSN(), "password=secret") {
		t.Error("DSN does not contain the password")
	}
}
