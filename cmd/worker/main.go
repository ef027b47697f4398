// Command worker runs the SMS dispatch worker pool: it pulls jobs off the
// delivery queue, re-runs the compliance gate at dispatch time, and invokes
// the provider adapter.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cannasend/internal/compliance"
	"github.com/wolfman30/cannasend/internal/compliance/quiethours"
	"github.com/wolfman30/cannasend/internal/config"
	"github.com/wolfman30/cannasend/internal/provider"
	"github.com/wolfman30/cannasend/internal/provider/telnyx"
	"github.com/wolfman30/cannasend/internal/queue"
	"github.com/wolfman30/cannasend/internal/store"
	"github.com/wolfman30/cannasend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cannasend sms worker", "env", cfg.Env)

	if issues := cfg.Issues(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Error("configuration issue", "issue", issue)
		}
	}

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	dbCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
	dbPool, err := store.NewPool(dbCtx, cfg.DatabaseURL, int32(cfg.DatabasePoolMin), int32(cfg.DatabasePoolMax))
	cancel()
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	st := store.New(dbPool)
	contacts := store.NewContacts(st)
	locations := store.NewLocations(st)
	messages := store.NewMessages(st)
	globalOptOuts := store.NewGlobalOptOuts(st)

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

	telnyxClient, err := telnyx.New(telnyx.Config{APIKey: cfg.ProviderAPIKey})
	if err != nil {
		logger.Error("failed to configure provider client", "error", err)
		os.Exit(1)
	}
	adapter := provider.NewTelnyxAdapter(telnyxClient)

	q := queue.New(redisClient, logger)
	smsWorker := queue.NewSMSWorker(st, messages, locations, gate, adapter, queue.SMSWorkerConfig{
		MessagingProfileID:  cfg.ProviderMessagingProfileID,
		CostPerSegmentCents: cfg.ProviderCostPerSegmentCents,
	})

	pool := queue.NewWorkerPool(q, queue.WorkerPoolConfig{
		Kind:        queue.KindSMS,
		Concurrency: 10,
	}, smsWorker.Handle, logger)

	go runPromotionLoop(appCtx, q, queue.KindSMS, logger)

	logger.Info("worker pool running", "kind", queue.KindSMS, "concurrency", 10)
	go pool.Run(appCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	logger.Info("worker stopped")
}

// runPromotionLoop periodically promotes delayed jobs whose ready-at has
// elapsed into the ready list, until ctx is cancelled.
func runPromotionLoop(ctx context.Context, q *queue.Queue, kind queue.Kind, logger *logging.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.PromoteDue(ctx, kind); err != nil {
				logger.Error("worker: promote due jobs failed", "error", err)
			}
		}
	}
}
