package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Capabilities records which external collaborators are usable. It is
// resolved once by LoadConfig; components switch to demo behaviour when their
// flag is false instead of inspecting the environment themselves.
type Capabilities struct {
	InferenceEnabled bool `json:"inferenceEnabled"`
	PaymentsEnabled  bool `json:"paymentsEnabled"`
	EmailEnabled     bool `json:"emailEnabled"`
	BlobEnabled      bool `json:"blobEnabled"`
	LedgerEnabled    bool `json:"ledgerEnabled"`
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	MaxUploadBytes     int64

	ReplicateAPIToken       string
	ReplicateBaseURL        string
	ColorizeModel           string
	RestoreModel            string
	InferenceTimeout        time.Duration
	InferenceRatePerSecond  float64
	RestoreBatchConcurrency int
	DemoDelay               time.Duration

	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
	UnitPriceUSD         float64

	ResendAPIKey           string
	EmailFrom              string
	EmailAllowedRecipients []string
	SenderDomain           string
	SupportEmail           string

	BlobBucketURL     string
	BlobPublicBaseURL string
	MaxFetchBytes     int64
	FetchAllowedHosts []string

	DatabaseURL    string
	GeoIPDBPath    string
	AdminJWTSecret string

	Capabilities Capabilities
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		ReplicateAPIToken:       strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),
		ReplicateBaseURL:        getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		ColorizeModel:           getEnv("COLORIZE_MODEL", DefaultColorizeModel),
		RestoreModel:            getEnv("RESTORE_MODEL", DefaultRestoreModel),
		InferenceTimeout:        time.Second * time.Duration(getEnvInt("INFERENCE_TIMEOUT_SECONDS", 120)),
		InferenceRatePerSecond:  getEnvFloat("INFERENCE_RATE_PER_SECOND", 2),
		RestoreBatchConcurrency: getEnvInt("RESTORE_BATCH_CONCURRENCY", 1),
		DemoDelay:               time.Millisecond * time.Duration(getEnvInt("DEMO_DELAY_MS", 3000)),

		StripeSecretKey:      strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripePublishableKey: strings.TrimSpace(os.Getenv("STRIPE_PUBLISHABLE_KEY")),
		Currency:             strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		UnitPriceUSD:         getEnvFloat("UNIT_PRICE_USD", 0.50),

		ResendAPIKey:           strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		EmailFrom:              getEnv("EMAIL_FROM", "Revive My Photo <onboarding@resend.dev>"),
		EmailAllowedRecipients: getEnvList("EMAIL_ALLOWED_RECIPIENTS", nil),
		SenderDomain:           getEnv("SENDER_DOMAIN", "revivemyphoto.ai"),
		SupportEmail:           getEnv("SUPPORT_EMAIL", "support@revivemyphoto.ai"),

		BlobBucketURL:     strings.TrimSpace(os.Getenv("BLOB_BUCKET_URL")),
		BlobPublicBaseURL: strings.TrimSpace(os.Getenv("BLOB_PUBLIC_BASE_URL")),
		MaxFetchBytes:     int64(getEnvInt("MAX_FETCH_BYTES", 25<<20)),
		FetchAllowedHosts: getEnvList("FETCH_ALLOWED_HOSTS", []string{"replicate.delivery"}),

		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeoIPDBPath:    strings.TrimSpace(os.Getenv("GEOIP_DB_PATH")),
		AdminJWTSecret: strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET")),
	}

	if cfg.UnitPriceUSD <= 0 {
		return nil, fmt.Errorf("UNIT_PRICE_USD must be positive")
	}
	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("PAYMENT_CURRENCY must be a three-letter ISO code")
	}
	if host := publicHost(cfg.BlobPublicBaseURL); host != "" {
		cfg.FetchAllowedHosts = append(cfg.FetchAllowedHosts, host)
	}
	if cfg.RestoreBatchConcurrency <= 0 {
		cfg.RestoreBatchConcurrency = 1
	}

	cfg.Capabilities = Capabilities{
		InferenceEnabled: validReplicateToken(cfg.ReplicateAPIToken),
		PaymentsEnabled:  cfg.StripeSecretKey != "" && cfg.StripePublishableKey != "",
		EmailEnabled:     strings.HasPrefix(cfg.ResendAPIKey, "re_"),
		BlobEnabled:      cfg.BlobBucketURL != "" && cfg.BlobPublicBaseURL != "",
		LedgerEnabled:    cfg.DatabaseURL != "",
	}

	return cfg, nil
}

// Default inference models, pinned to the versions the storefront was tuned against.
const (
	DefaultColorizeModel = "cjwbw/bigcolor:9451bfbf652b21a9bccc741e5c7046540faa5586cfa3aa45abc7c6c3c7c5e6c5"
	DefaultRestoreModel  = "tencentarc/gfpgan:9283608cc6b7be6b65a8e44983db012355fde4132009bf99d976b2f0896856a3"
)

// CapabilityWarnings lists credentials that are present but unusable.
func (c *Config) CapabilityWarnings() []string {
	var warnings []string
	if c.ReplicateAPIToken != "" && !c.Capabilities.InferenceEnabled {
		warnings = append(warnings, "REPLICATE_API_TOKEN is malformed (expected r8_ prefix); inference runs in demo mode")
	}
	if (c.StripeSecretKey == "") != (c.StripePublishableKey == "") {
		warnings = append(warnings, "only one of STRIPE_SECRET_KEY/STRIPE_PUBLISHABLE_KEY is set; payments disabled")
	}
	if c.ResendAPIKey != "" && !c.Capabilities.EmailEnabled {
		warnings = append(warnings, "RESEND_API_KEY is malformed (expected re_ prefix); email runs in demo mode")
	}
	if (c.BlobBucketURL == "") != (c.BlobPublicBaseURL == "") {
		warnings = append(warnings, "BLOB_BUCKET_URL and BLOB_PUBLIC_BASE_URL must be set together; blob storage disabled")
	}
	return warnings
}

// publicHost returns the hostname of the bucket's public base URL.
func publicHost(base string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func validReplicateToken(token string) bool {
	return len(token) >= 10 && strings.HasPrefix(token, "r8_")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
