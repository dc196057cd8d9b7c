package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "storefront/internal/http/httpapi"
	"storefront/internal/infra"
	"storefront/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	for _, warning := range cfg.CapabilityWarnings() {
		logger.Warn().Msg(warning)
	}
	logger.Info().
		Bool("inference", cfg.Capabilities.InferenceEnabled).
		Bool("payments", cfg.Capabilities.PaymentsEnabled).
		Bool("email", cfg.Capabilities.EmailEnabled).
		Bool("blob", cfg.Capabilities.BlobEnabled).
		Bool("ledger", cfg.Capabilities.LedgerEnabled).
		Msg("capabilities resolved")

	ctx := context.Background()
	deps, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	defer deps.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin, 10*time.Minute)
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(time.Minute, stopCleanup)
	defer close(stopCleanup)

	router := httpapi.NewRouter(deps.App, httpapi.Options{
		Country:     deps.CountryLookup(),
		RateLimiter: limiter,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// in-flight restores may be waiting on inference
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.InferenceTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
