// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smartlocker-workers/internal/common/aws"
	"smartlocker-workers/internal/common/camunda"
	"smartlocker-workers/internal/common/config"
	"smartlocker-workers/internal/common/database"
	"smartlocker-workers/internal/common/genai"
	"smartlocker-workers/internal/common/logger"
	"smartlocker-workers/internal/common/observability"
	"smartlocker-workers/internal/common/whatsapp"
	"smartlocker-workers/internal/scheduler"
	"smartlocker-workers/internal/store"

	// Messaging Workers (3)
	cr "smartlocker-workers/internal/workers/messaging/classify-response"
	scan "smartlocker-workers/internal/workers/messaging/scan-approval-responses"
	sar "smartlocker-workers/internal/workers/messaging/send-approval-request"
	sm "smartlocker-workers/internal/workers/messaging/send-message"

	// Booking & Locker Workers (2)
	aad "smartlocker-workers/internal/workers/booking/apply-approval-decision"
	al "smartlocker-workers/internal/workers/locker/assign-locker"

	// OTP Workers (2)
	so "smartlocker-workers/internal/workers/otp/send-otp"
	vo "smartlocker-workers/internal/workers/otp/verify-otp"

	// Notification Worker (1)
	nt "smartlocker-workers/internal/workers/notification/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Stores ---
	sessions := store.NewSessions(pg.DB)
	messages := store.NewMessages(pg.DB)
	otps := store.NewOTPs(pg.DB)
	bookings := store.NewBookings(pg.DB)
	lockers := store.NewLockers(pg.DB)
	notifications := store.NewNotifications(pg.DB, esClient, redis, zapLog)

	// --- AI Provider (nil means keyword/deterministic fallbacks) ---
	aiProvider, err := genai.New(cfg.AI)
	if err != nil {
		zapLog.Fatal("ai provider init failed", zap.Error(err))
	}
	if aiProvider != nil {
		zapLog.Info("AI provider configured", zap.String("provider", aiProvider.Name()))
	} else {
		zapLog.Info("No AI provider configured, using deterministic fallbacks")
	}

	// --- WhatsApp Channel ---
	webClient := whatsapp.NewWebClient(cfg.WhatsApp, zapLog)
	registry := whatsapp.NewSessionRegistry(sessions, redis, cfg.WhatsApp, zapLog)
	gateway := whatsapp.NewGateway(webClient, registry, messages, zapLog)

	// --- AWS Notification Clients ---
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}

	zapLog.Info("All external service clients initialized")

	// --- START: Register ALL 8 Workers ---

	// --- 1. Messaging Workers (3) ---
	if cfg.Workers[sar.TaskType].Enabled {
		wcfg := cfg.Workers[sar.TaskType]
		handlerCfg := sar.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)
		handlerCfg.ExpiryMinutes = cfg.Approval.ExpiryMinutes

		handler := sar.NewHandler(handlerCfg, bookings, gateway, log)
		startWorker(zeebeClient, sar.TaskType, wcfg, handler.Handle, zapLog)
	}

	if cfg.Workers[cr.TaskType].Enabled {
		wcfg := cfg.Workers[cr.TaskType]
		handlerCfg := cr.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := cr.NewHandler(handlerCfg, cr.NewService(aiProvider, log), log)
		startWorker(zeebeClient, cr.TaskType, wcfg, handler.Handle, zapLog)
	}

	if cfg.Workers[sm.TaskType].Enabled {
		wcfg := cfg.Workers[sm.TaskType]
		handlerCfg := sm.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := sm.NewHandler(handlerCfg, gateway, log)
		startWorker(zeebeClient, sm.TaskType, wcfg, handler.Handle, zapLog)
	}

	// --- 2. Booking & Locker Workers (2) ---
	if cfg.Workers[aad.TaskType].Enabled {
		wcfg := cfg.Workers[aad.TaskType]
		handlerCfg := aad.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := aad.NewHandler(handlerCfg, bookings, messages, gateway, log)
		startWorker(zeebeClient, aad.TaskType, wcfg, handler.Handle, zapLog)
	}

	if cfg.Workers[al.TaskType].Enabled {
		wcfg := cfg.Workers[al.TaskType]
		handlerCfg := al.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := al.NewHandler(handlerCfg, bookings, lockers, gateway, log)
		startWorker(zeebeClient, al.TaskType, wcfg, handler.Handle, zapLog)
	}

	// --- 3. OTP Workers (2) ---
	if cfg.Workers[so.TaskType].Enabled {
		wcfg := cfg.Workers[so.TaskType]
		handlerCfg := so.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)
		handlerCfg.Length = cfg.OTP.Length
		handlerCfg.ExpiryMinutes = cfg.OTP.ExpiryMinutes
		handlerCfg.MaxAttempts = cfg.OTP.MaxAttempts
		handlerCfg.UseAI = cfg.OTP.UseAI

		service := so.NewService(handlerCfg, aiProvider, log)
		handler := so.NewHandler(handlerCfg, otps, service, gateway, log)
		startWorker(zeebeClient, so.TaskType, wcfg, handler.Handle, zapLog)
	}

	if cfg.Workers[vo.TaskType].Enabled {
		wcfg := cfg.Workers[vo.TaskType]
		handlerCfg := vo.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := vo.NewHandler(handlerCfg, otps, log)
		startWorker(zeebeClient, vo.TaskType, wcfg, handler.Handle, zapLog)
	}

	// --- 4. Notification Worker (1) ---
	if cfg.Workers[nt.TaskType].Enabled {
		wcfg := cfg.Workers[nt.TaskType]
		handlerCfg := nt.DefaultConfig()
		handlerCfg.MaxJobsActive = wcfg.MaxJobsActive
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)
		handlerCfg.Personalize = aiProvider != nil
		if cfg.Notifications.Email.FromEmail != "" {
			handlerCfg.FromEmail = cfg.Notifications.Email.FromEmail
		}
		handlerCfg.SMSEnabled = cfg.Notifications.SMS.Enabled
		if cfg.Notifications.SMS.PriorityThreshold != "" {
			handlerCfg.PriorityThreshold = cfg.Notifications.SMS.PriorityThreshold
		}

		service := nt.NewService(aiProvider, log)
		handler := nt.NewHandler(handlerCfg, notifications, service, gateway, snsClient, sesClient, log)
		startWorker(zeebeClient, nt.TaskType, wcfg, handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Background Jobs ---
	scanService := scan.NewService(scan.DefaultConfig(), messages, gateway, camundaClient, log)

	// On-demand scan passes for housekeeping processes; the cron job below
	// remains the primary driver.
	if wcfg := config.GetWorkerConfig(cfg, scan.TaskType); wcfg.Enabled {
		handlerCfg := scan.DefaultConfig()
		handlerCfg.Timeout = config.GetDuration(wcfg.Timeout)

		handler := scan.NewHandler(handlerCfg, scanService, log)
		startWorker(zeebeClient, scan.TaskType, wcfg, handler.Handle, zapLog)
	}

	sched := scheduler.New(log)
	err = sched.Register("approval-response-scan", cfg.WhatsApp.ScanCron, func(ctx context.Context) error {
		held, err := registry.ClaimLeadership(ctx)
		if err != nil {
			return err
		}
		if !held {
			// Another instance drives the channel; it runs the scan.
			return nil
		}
		_, err = scanService.Run(ctx)
		return err
	})
	if err != nil {
		zapLog.Fatal("failed to register response scan job", zap.Error(err))
	}

	err = sched.Register("channel-cleanup", cfg.WhatsApp.CleanupCron, func(ctx context.Context) error {
		expired, err := registry.ExpireStale(ctx)
		if err != nil {
			return err
		}
		otpsExpired, err := otps.ExpirePast(ctx)
		if err != nil {
			return err
		}
		if expired > 0 || otpsExpired > 0 {
			zapLog.Info("cleanup sweep complete",
				zap.Int64("sessionsExpired", expired),
				zap.Int64("otpsExpired", otpsExpired),
			)
		}
		return nil
	})
	if err != nil {
		zapLog.Fatal("failed to register cleanup job", zap.Error(err))
	}

	go sched.Start(ctx)

	// Keep the session lease fresh between scheduled scans.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := registry.RenewLeadership(ctx); err != nil {
					zapLog.Debug("session lease not held", zap.Error(err))
				}
			}
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	cancel()

	for _, w := range openWorkers {
		w.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	registry.ReleaseLeadership(shutdownCtx)

	if err := webClient.Teardown(); err != nil {
		zapLog.Error("Error tearing down channel client", zap.Error(err))
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// openWorkers collects every started job worker so shutdown can drain them.
var openWorkers []*camunda.Worker

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc camunda.HandlerFunc, log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	w := camunda.OpenWorker(client, taskType, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handlerFunc, log)
	openWorkers = append(openWorkers, w)
}
