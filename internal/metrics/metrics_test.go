package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"storefront/internal/domain"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/orders/{id}", "202"))
	if got != 2 {
		t.Fatalf("requests_total = %v, want 2", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.ObserveRestore("gfpgan", "success", time.Second)
	m.ObservePayment("created")
	m.ObserveDelivery(domain.DeliveredWithFallback, true)
	m.ObserveBlobUpload("error")

	if v := testutil.ToFloat64(m.restores.WithLabelValues("gfpgan", "success")); v != 1 {
		t.Fatalf("restores = %v", v)
	}
	if v := testutil.ToFloat64(m.deliveries.WithLabelValues("delivered_with_fallback", "true")); v != 1 {
		t.Fatalf("deliveries = %v", v)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "storefront_payments_intents_total") {
		t.Fatalf("expected payments counter in exposition")
	}
}
