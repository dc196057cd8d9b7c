package infra

import (
	"strings"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REPLICATE_API_TOKEN", "STRIPE_SECRET_KEY", "STRIPE_PUBLISHABLE_KEY", "RESEND_API_KEY",
		"BLOB_BUCKET_URL", "BLOB_PUBLIC_BASE_URL", "DATABASE_URL", "UNIT_PRICE_USD",
		"PAYMENT_CURRENCY", "EMAIL_ALLOWED_RECIPIENTS", "RESTORE_BATCH_CONCURRENCY", "FETCH_ALLOWED_HOSTS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDemoCapabilitiesWithoutCredentials(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Capabilities != (Capabilities{}) {
		t.Fatalf("expected every capability disabled, got %+v", cfg.Capabilities)
	}
	if cfg.UnitPriceUSD != 0.50 {
		t.Fatalf("UnitPriceUSD = %v, want 0.50", cfg.UnitPriceUSD)
	}
	if cfg.Currency != "usd" {
		t.Fatalf("Currency = %q, want usd", cfg.Currency)
	}
	if cfg.RestoreBatchConcurrency != 1 {
		t.Fatalf("RestoreBatchConcurrency = %d, want 1", cfg.RestoreBatchConcurrency)
	}
	if warnings := cfg.CapabilityWarnings(); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestLoadConfigResolvesCapabilities(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("REPLICATE_API_TOKEN", "r8_abcdefghijklmnop")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("RESEND_API_KEY", "re_123456")
	t.Setenv("BLOB_BUCKET_URL", "mem://")
	t.Setenv("BLOB_PUBLIC_BASE_URL", "https://cdn.example.com")
	t.Setenv("DATABASE_URL", "postgres://example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := Capabilities{
		InferenceEnabled: true,
		PaymentsEnabled:  true,
		EmailEnabled:     true,
		BlobEnabled:      true,
		LedgerEnabled:    true,
	}
	if cfg.Capabilities != want {
		t.Fatalf("Capabilities = %+v, want %+v", cfg.Capabilities, want)
	}
	hosts := strings.Join(cfg.FetchAllowedHosts, ",")
	if hosts != "replicate.delivery,cdn.example.com" {
		t.Fatalf("FetchAllowedHosts = %q", hosts)
	}
}

func TestLoadConfigMalformedCredentialsWarn(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("REPLICATE_API_TOKEN", "not-a-replicate-token")
	t.Setenv("RESEND_API_KEY", "key_123")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Capabilities.InferenceEnabled || cfg.Capabilities.EmailEnabled || cfg.Capabilities.PaymentsEnabled {
		t.Fatalf("malformed credentials must not enable capabilities: %+v", cfg.Capabilities)
	}
	if got := len(cfg.CapabilityWarnings()); got != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", got, cfg.CapabilityWarnings())
	}
}

func TestLoadConfigRejectsNonPositivePrice(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("UNIT_PRICE_USD", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero unit price")
	}
}

func TestLoadConfigParsesRecipientAllowlist(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("EMAIL_ALLOWED_RECIPIENTS", " owner@example.com , ,qa@example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"owner@example.com", "qa@example.com"}
	if len(cfg.EmailAllowedRecipients) != len(want) {
		t.Fatalf("EmailAllowedRecipients = %#v, want %#v", cfg.EmailAllowedRecipients, want)
	}
	for i := range want {
		if cfg.EmailAllowedRecipients[i] != want[i] {
			t.Fatalf("EmailAllowedRecipients[%d] = %q, want %q", i, cfg.EmailAllowedRecipients[i], want[i])
		}
	}
}
