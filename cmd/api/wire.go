package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"storefront/internal/delivery"
	"storefront/internal/diagnostics"
	"storefront/internal/http/handlers"
	"storefront/internal/infra"
	"storefront/internal/infra/geoip"
	"storefront/internal/ledger"
	"storefront/internal/mailer"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/payments"
	"storefront/internal/providers/replicate"
	resendprovider "storefront/internal/providers/resend"
	stripeprovider "storefront/internal/providers/stripe"
	"storefront/internal/restore"
	"storefront/internal/storage"
)

type dependencies struct {
	App   *handlers.App
	pool  *pgxpool.Pool
	store *storage.Store
	geo   *geoip.Resolver
}

// wire builds every collaborator according to the resolved capabilities.
// A disabled capability leaves its collaborator nil so the owning component
// runs in demo mode.
func wire(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*dependencies, error) {
	deps := &dependencies{}
	m := metrics.New()
	caps := cfg.Capabilities

	var sqlExec infra.SQLExecutor
	if caps.LedgerEnabled {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.pool = pool
		sqlExec = infra.NewSQLRunner(pool, logger)
	}
	orders := ledger.New(sqlExec, logger)
	if err := orders.EnsureSchema(ctx); err != nil {
		deps.Close()
		return nil, err
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	deps.geo = geo

	var predictor restore.Predictor
	if caps.InferenceEnabled {
		client, err := replicate.NewClient(replicate.Options{
			APIToken:       cfg.ReplicateAPIToken,
			BaseURL:        cfg.ReplicateBaseURL,
			HTTPClient:     &http.Client{Timeout: cfg.InferenceTimeout + 10*time.Second},
			RequestTimeout: cfg.InferenceTimeout,
			Logger:         &logger,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("replicate: %w", err)
		}
		predictor = client
	}
	restorer := restore.NewOrchestrator(restore.Options{
		Predictor:        predictor,
		Models:           restore.NewModelSet(cfg.ColorizeModel, cfg.RestoreModel),
		InferenceEnabled: caps.InferenceEnabled,
		Timeout:          cfg.InferenceTimeout,
		RatePerSecond:    cfg.InferenceRatePerSecond,
		BatchConcurrency: cfg.RestoreBatchConcurrency,
		DemoDelay:        cfg.DemoDelay,
		Recorder:         m,
		Logger:           logger,
	})

	var processor payments.Processor
	if caps.PaymentsEnabled {
		client, err := stripeprovider.NewClient(stripeprovider.Options{SecretKey: cfg.StripeSecretKey, RequestTimeout: 30 * time.Second})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("stripe: %w", err)
		}
		processor = client
	}
	paymentSvc := payments.NewService(payments.Options{
		Processor: processor,
		Enabled:   caps.PaymentsEnabled,
		UnitPrice: cfg.UnitPriceUSD,
		Currency:  cfg.Currency,
		Ledger:    orders,
		Recorder:  m,
		Logger:    logger,
	})

	var (
		sender  delivery.Sender
		domains diagnostics.DomainLister
	)
	if caps.EmailEnabled {
		client, err := resendprovider.NewClient(resendprovider.Options{APIKey: cfg.ResendAPIKey, RequestTimeout: 30 * time.Second})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("resend: %w", err)
		}
		sender, domains = client, client
	}

	var blobStore delivery.BlobStore
	if caps.BlobEnabled {
		store, err := storage.Open(ctx, storage.Options{
			BucketURL:     cfg.BlobBucketURL,
			PublicBaseURL: cfg.BlobPublicBaseURL,
			Recorder:      m,
		})
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.store = store
		blobStore = store
	}

	fetcher := delivery.NewHTTPFetcher(delivery.FetcherOptions{
		Timeout:      30 * time.Second,
		MaxBytes:     cfg.MaxFetchBytes,
		AllowedHosts: cfg.FetchAllowedHosts,
	})
	deliverySvc := delivery.NewService(delivery.Options{
		Composer:          mailer.Composer{From: cfg.EmailFrom, SupportEmail: cfg.SupportEmail},
		Sender:            sender,
		Blob:              blobStore,
		Fetcher:           fetcher,
		Payments:          paymentSvc,
		Ledger:            orders,
		Recorder:          m,
		AllowedRecipients: cfg.EmailAllowedRecipients,
		UnitPrice:         cfg.UnitPriceUSD,
		Currency:          cfg.Currency,
		Logger:            logger,
	})

	deps.App = &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Restorer: restorer,
		Payments: paymentSvc,
		Delivery: deliverySvc,
		Fetcher:  fetcher,
		DNS:      diagnostics.NewDNSChecker(cfg.SenderDomain),
		Domains:  domains,
		Blob:     blobStore,
		Metrics:  m,
	}
	return deps, nil
}

// CountryLookup returns the GeoIP lookup, or nil when no database is loaded.
func (d *dependencies) CountryLookup() middleware.CountryLookup {
	if d.geo == nil {
		return nil
	}
	return d.geo.Lookup
}

func (d *dependencies) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.geo != nil {
		_ = d.geo.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
