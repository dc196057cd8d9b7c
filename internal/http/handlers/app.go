package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/delivery"
	"storefront/internal/diagnostics"
	"storefront/internal/domain"
	"storefront/internal/infra"
	"storefront/internal/metrics"
	"storefront/internal/payments"
	"storefront/internal/restore"
)

// App carries every collaborator the HTTP handlers need. Optional
// collaborators (Domains, Blob) may be nil; their endpoints then report the
// capability as disabled.
type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Restorer *restore.Orchestrator
	Payments *payments.Service
	Delivery *delivery.Service
	Fetcher  delivery.Fetcher
	DNS      *diagnostics.DNSChecker
	Domains  diagnostics.DomainLister
	Blob     delivery.BlobStore
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type errorResponse struct {
	Error     string      `json:"error"`
	ErrorKind domain.Kind `json:"errorKind,omitempty"`
	Details   string      `json:"details,omitempty"`
	Success   bool        `json:"success"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind domain.Kind, message string) {
	a.json(w, code, errorResponse{Error: message, ErrorKind: kind})
}

// fail classifies err and writes the standard error body. fallback names the
// failed operation for errors that do not fall into a known kind.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := domain.Classify(err)
	status := kind.HTTPStatus()
	message := domain.UserMessage(kind, fallback)
	if kind == domain.KindInvalidInput && errors.Is(err, domain.ErrInvalidInput) {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		a.log(r).Error().Err(err).Str("kind", string(kind)).Msg(fallback)
	}
	a.json(w, status, errorResponse{Error: message, ErrorKind: kind, Details: err.Error()})
}

// log returns the request-scoped logger installed by the request id
// middleware, or the application logger.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Invalid("request body exceeds %d bytes", maxErr.Limit)
		}
		return domain.Invalid("invalid payload: %v", err)
	}
	return nil
}

func (a *App) maxUpload() int64 {
	if a.Config != nil && a.Config.MaxUploadBytes > 0 {
		return a.Config.MaxUploadBytes
	}
	return 10 << 20
}

func pluralPhotos(n int) string {
	if n == 1 {
		return "1 photo"
	}
	return fmt.Sprintf("%d photos", n)
}
