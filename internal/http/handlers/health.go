package handlers

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/infra"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"env":          a.Config.AppEnv,
		"capabilities": a.Config.Capabilities,
	})
}

type clientConfig struct {
	PublishableKey string             `json:"publishableKey,omitempty"`
	UnitPrice      float64            `json:"unitPrice"`
	Currency       string             `json:"currency"`
	Capabilities   infra.Capabilities `json:"capabilities"`
	Services       map[string]string  `json:"services"`
	MaxUploadBytes int64              `json:"maxUploadBytes"`
}

// ClientConfig exposes what the storefront needs before checkout: the
// publishable processor key, pricing and capability flags.
func (a *App) ClientConfig(w http.ResponseWriter, r *http.Request) {
	cfg := clientConfig{
		UnitPrice:      a.Config.UnitPriceUSD,
		Currency:       a.Config.Currency,
		Capabilities:   a.Config.Capabilities,
		Services:       make(map[string]string, 4),
		MaxUploadBytes: a.maxUpload(),
	}
	if a.Config.Capabilities.PaymentsEnabled {
		cfg.PublishableKey = a.Config.StripePublishableKey
	}
	for _, tag := range []domain.ServiceTag{domain.ServiceRepair, domain.ServiceColorize, domain.ServiceEnhance, domain.ServiceDamage} {
		cfg.Services[string(tag)] = tag.Label()
	}
	a.json(w, http.StatusOK, cfg)
}
