package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront/internal/http/handlers"
	"storefront/internal/middleware"
)

// Options carries router collaborators that live outside the App.
type Options struct {
	// Country resolves client IPs for payment metadata. Nil skips GeoIP and
	// relies on edge headers only.
	Country middleware.CountryLookup
	// RateLimiter defaults to one built from Config.RateLimitPerMin.
	RateLimiter *middleware.RateLimiter
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(app.Config.RateLimitPerMin, 10*time.Minute)
	}

	r.Use(
		chimw.RealIP,
		middleware.RequestID(app.Logger),
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)
	if app.Metrics != nil {
		r.Use(app.Metrics.InstrumentHandler)
		r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler, middleware.Country(opts.Country))

		r.Get("/config", app.ClientConfig)

		r.Post("/restore", app.Restore)
		r.Post("/restore/batch", app.RestoreBatch)
		r.Post("/colorize", app.Colorize)
		r.Post("/enhance", app.Enhance)

		r.Post("/create-payment-intent", app.CreatePaymentIntent)
		r.Post("/send-email", app.SendEmail)
		r.Post("/recover-payment", app.RecoverPayment)
		r.Post("/download-zip", app.DownloadZip)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminJWT(app.Config.AdminJWTSecret))
			r.Get("/check-dns", app.CheckDNS)
			r.Get("/sender-domain", app.SenderDomain)
			r.Post("/test-email", app.TestEmail)
			r.Post("/blob-upload", app.BlobUpload)
		})
	})

	return r
}
