package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/currency"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/services"
)

func main() {
	if err := run(); err != nil {
		log.FromContext(context.Background()).Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger, nil)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	caches := cache.NewManager()
	defer caches.Stop()

	var rates currency.Provider = currency.NewHTTPProvider(currency.HTTPConfig{
		Endpoint:  cfg.RatesAPIURL,
		BaseParam: cfg.RatesBaseParam,
		Timeout:   cfg.RatesTimeout,
		Logger:    logger.WithComponent(log.ComponentRates),
	})
	if cfg.RatesCacheTTL > 0 {
		cached := currency.NewCachedProvider(rates, cfg.RatesCacheTTL)
		caches.Register(cached.Cache())
		caches.StartCleanup(cfg.RatesCacheTTL)
		rates = cached
		logger.Info("Exchange rate cache enabled", "ttl", cfg.RatesCacheTTL.String())
	}

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	resolver, err := security.NewIPResolver()
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:          ":" + cfg.Port,
		Auth:          services.NewAuthService(result.Store, cfg.DefaultCurrency, logger.WithComponent(log.ComponentAuth)),
		Dashboard:     services.NewDashboardService(result.Store, rates, logger.WithComponent(log.ComponentDashboard)),
		Transactions:  services.NewTransactionService(result.Store, result.Publisher, logger.WithComponent(log.ComponentTransaction)),
		Settings:      services.NewSettingsService(result.Store, logger),
		Sessions:      sessions,
		Ready:         result.Store.Ping,
		Limiter:       limiter,
		ClientIP:      resolver.ClientIP,
		Logger:        logger.WithComponent(log.ComponentHTTP),
		SecureCookies: cfg.CookieSecure,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", result.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		m := srv.Metrics()
		logger.Info("Server stopped gracefully",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors)
		return nil
	})
	return g.Wait()
}
