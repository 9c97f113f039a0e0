package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("QUOTE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected address :8080, got %q", cfg.Address())
	}
	if cfg.QuoteTTLSeconds != 5 {
		t.Fatalf("expected default quote TTL 5s, got %d", cfg.QuoteTTLSeconds)
	}
	if cfg.DatabaseURL != "" || cfg.RedisAddr != "" {
		t.Fatalf("expected no backing services by default")
	}
}

func TestLoadRejectsBadQuoteTTL(t *testing.T) {
	t.Setenv("QUOTE_TTL_SECONDS", "-3")

	cfg := Load()
	if cfg.QuoteTTLSeconds != 5 {
		t.Fatalf("expected fallback TTL 5s for invalid value, got %d", cfg.QuoteTTLSeconds)
	}
}
