package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected default backend URL, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Fatalf("expected 30s backend timeout, got %s", cfg.Backend.Timeout)
	}
	if cfg.Session.CookieName != "bgv_session" {
		t.Fatalf("expected default cookie name, got %s", cfg.Session.CookieName)
	}
	if cfg.AuditEnabled() {
		t.Fatal("audit should be disabled without brokers")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("BACKEND_BASE_URL", "https://bgv.internal:8443")
	t.Setenv("BACKEND_TIMEOUT", "10s")
	t.Setenv("AUDIT_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("SESSION_DEFAULT_TTL", "12h")

	cfg := Load()

	if !cfg.IsProduction() {
		t.Fatal("expected production environment")
	}
	if cfg.Server.Addr != ":18080" {
		t.Fatalf("expected HTTP_ADDR override, got %s", cfg.Server.Addr)
	}
	if cfg.Backend.BaseURL != "https://bgv.internal:8443" {
		t.Fatalf("expected BACKEND_BASE_URL override, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Fatalf("expected BACKEND_TIMEOUT override, got %s", cfg.Backend.Timeout)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
	if !cfg.AuditEnabled() {
		t.Fatal("audit should be enabled with brokers configured")
	}
	if cfg.Session.DefaultTTL != 12*time.Hour {
		t.Fatalf("expected SESSION_DEFAULT_TTL override, got %s", cfg.Session.DefaultTTL)
	}
}
