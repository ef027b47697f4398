// Command server runs the HTTP API: compliance-gated single sends, campaign
// expansion, and the carrier webhook receiver.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cannasend/internal/api"
	"github.com/wolfman30/cannasend/internal/api/handlers"
	"github.com/wolfman30/cannasend/internal/campaign"
	"github.com/wolfman30/cannasend/internal/compliance"
	"github.com/wolfman30/cannasend/internal/compliance/quiethours"
	"github.com/wolfman30/cannasend/internal/config"
	"github.com/wolfman30/cannasend/internal/observability/metrics"
	"github.com/wolfman30/cannasend/internal/provider"
	"github.com/wolfman30/cannasend/internal/provider/telnyx"
	"github.com/wolfman30/cannasend/internal/queue"
	"github.com/wolfman30/cannasend/internal/reconcile"
	"github.com/wolfman30/cannasend/internal/store"
	"github.com/wolfman30/cannasend/internal/webhook"
	"github.com/wolfman30/cannasend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cannasend api server", "env", cfg.Env, "port", cfg.Port)

	if issues := cfg.Issues(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Error("configuration issue", "issue", issue)
		}
	}

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	dbPool := connectPostgres(appCtx, cfg.DatabaseURL, int32(cfg.DatabasePoolMin), int32(cfg.DatabasePoolMax), logger)
	defer dbPool.Close()

	redisClient := redis.NewClient(mustParseRedisURL(cfg.RedisURL, logger))
	defer redisClient.Close()

	st := store.New(dbPool)
	contacts := store.NewContacts(st)
	locations := store.NewLocations(st)
	campaigns := store.NewCampaigns(st)
	messages := store.NewMessages(st)
	optOutLog := store.NewOptOutLog(st)
	globalOptOuts := store.NewGlobalOptOuts(st)

	registry := prometheus.NewRegistry()
	sendMetrics := metrics.NewSendMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	quietWindow, err := quiethours.Parse(cfg.QuietHoursStart, cfg.QuietHoursEnd)
	if err != nil {
		logger.Error("invalid quiet hours configuration", "error", err)
		os.Exit(1)
	}
	gate := compliance.NewGate(
		store.NewComplianceAdapter(contacts, locations),
		globalOptOuts,
		store.NewRateLimitAdapter(contacts),
		compliance.Config{
			QuietHours:        quietWindow,
			MaxMessagesPerDay: cfg.MaxMessagesPerDayPerRecipient,
		},
	)

	q := queue.New(redisClient, logger)
	expander := campaign.NewExpander(st, campaigns, q)

	telnyxClient, err := telnyx.New(telnyx.Config{APIKey: cfg.ProviderAPIKey})
	if err != nil {
		logger.Error("failed to configure provider client", "error", err)
		os.Exit(1)
	}
	adapter := provider.NewTelnyxAdapter(telnyxClient)

	processed := reconcile.NewProcessedStore(dbPool)
	reconciler := reconcile.NewReconciler(st, messages, contacts, locations, optOutLog, globalOptOuts, campaigns, adapter, reconcile.Config{
		MessagingProfileID: cfg.ProviderMessagingProfileID,
	}, logger)

	verifier, err := webhook.NewSignatureVerifier(cfg.ProviderPublicKey)
	if err != nil {
		logger.Error("failed to configure webhook signature verifier", "error", err)
		os.Exit(1)
	}
	webhookHandler := webhook.NewHandler(verifier, processed, reconciler, sendMetrics, logger)

	sendHandler := handlers.NewSendHandler(gate, q, logger)
	campaignHandler := handlers.NewCampaignSendHandler(expander, logger)

	router := api.New(api.Config{
		Logger:            logger,
		SendHandler:       sendHandler,
		CampaignHandler:   campaignHandler,
		WebhookHandler:    webhookHandler,
		MetricsHandler:    metricsHandler,
		RateLimitWindowMS: cfg.RateLimitWindowMS,
		RateLimitMax:      cfg.RateLimitMax,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stop()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func connectPostgres(ctx context.Context, dbURL string, minConns, maxConns int32, logger *logging.Logger) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := store.NewPool(ctx, dbURL, minConns, maxConns)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to postgres")
	return pool
}

func mustParseRedisURL(redisURL string, logger *logging.Logger) *redis.Options {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	return opts
}
