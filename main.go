package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genfity-order-reports/internal/config"
	"genfity-order-reports/internal/db"
	httpapi "genfity-order-reports/internal/http"
	"genfity-order-reports/internal/http/handlers"
	"genfity-order-reports/internal/logger"
	"genfity-order-reports/internal/queue"
	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/services"
	"genfity-order-reports/internal/source"
	"genfity-order-reports/internal/storage"
	"genfity-order-reports/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, "reports-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	reports := services.NewReportService(source.NewPostgres(pool), log, services.Options{
		DefaultCurrency:    report.Currency{Code: cfg.ReportDefaultCurrency, Symbol: cfg.ReportDefaultCurrencySymbol},
		DefaultTimezone:    cfg.ReportDefaultTimezone,
		CacheTTL:           cfg.ReportCacheTTL,
		TrustPreAggregates: cfg.ReportTrustPreAggregates,
		DownloadURLTTL:     cfg.ReportDownloadURLTTL,
	})

	h := &handlers.Handler{Reports: reports, Logger: log, Config: cfg}

	if cfg.ObjectStoreEnabled() {
		archive, err := storage.NewReportArchive(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("object store init failed", zap.Error(err))
			}
			log.Warn("object store init failed; report archive disabled", zap.Error(err))
		} else {
			reports.Archive = archive
			h.Exports = archive
			log.Info("report archive enabled", zap.String("bucket", cfg.ObjectStoreBucket))
		}
	} else {
		log.Info("report archive disabled (OBJECT_STORE_BUCKET is empty)")
	}

	wsServer := ws.New(pool, log, cfg)
	wsServer.Invalidator = reports
	reports.Notifier = wsServer
	go wsServer.ListenLoop(ctx)

	if cfg.RabbitMQURL != "" {
		qc := connectQueue(ctx, cfg, log)
		if qc != nil {
			defer qc.Close()
			reports.Jobs = queue.ReportJobs{Client: qc}
			startConsumers(ctx, cfg, log, qc, reports)
		}
	} else {
		log.Info("export worker disabled (RABBITMQ_URL is empty)")
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, log, cfg, wsServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("report api ready", zap.String("base", "/api/partner/reports"))
		log.Info("report ws ready", zap.String("base", "/ws/partner/reports"))
		log.Info("report service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancelWorkers()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// connectQueue returns nil when RabbitMQ is unusable outside production.
func connectQueue(ctx context.Context, cfg config.Config, log *zap.Logger) *queue.Client {
	fail := func(msg string, err error, qc *queue.Client) *queue.Client {
		if cfg.Env == "production" {
			log.Fatal(msg, zap.Error(err))
		}
		log.Warn(msg+"; continuing without export worker", zap.Error(err))
		if qc != nil {
			_ = qc.Close()
		}
		return nil
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		return fail("rabbitmq connection failed", err, nil)
	}
	if err := queue.EnsureReportExportTopology(ctx, qc); err != nil {
		return fail("rabbitmq report_exports topology failed", err, qc)
	}
	if err := queue.EnsureOrderEventsTopology(ctx, qc); err != nil {
		return fail("rabbitmq order events topology failed", err, qc)
	}
	log.Info("rabbitmq enabled", zap.String("exportQueue", queue.ReportExportQueue))
	return qc
}

func startConsumers(ctx context.Context, cfg config.Config, log *zap.Logger, qc *queue.Client, reports *services.ReportService) {
	if cfg.RabbitMQWorkerMode != "daemon" {
		log.Info("export worker disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		return
	}
	if err := qc.Prefetch(4); err != nil {
		log.Warn("rabbitmq prefetch failed", zap.Error(err))
	}

	log.Info("export worker enabled", zap.String("mode", "daemon"))
	go func() {
		err := qc.ConsumeWithRetry(ctx, queue.ReportExportQueue, reports.ProcessExportJob, int(cfg.ReportExportMaxRetries), 5*time.Second)
		if err != nil && ctx.Err() == nil {
			log.Error("export consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		err := qc.ConsumeWithRetry(ctx, queue.ReportOrderEventsQueue, reports.HandleOrderEvent, 1, time.Second)
		if err != nil && ctx.Err() == nil {
			log.Error("order events consumer stopped", zap.Error(err))
		}
	}()
}
