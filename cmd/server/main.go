package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kyra/internal/enrichment"
	"kyra/internal/enrichment/matcher"
	"kyra/internal/enrichment/summary"
	kycHandler "kyra/internal/kyc/handler"
	kycMetrics "kyra/internal/kyc/metrics"
	"kyra/internal/kyc/service"
	"kyra/internal/kyc/store"
	"kyra/internal/notify"
	"kyra/internal/platform/config"
	"kyra/internal/platform/httpserver"
	"kyra/internal/platform/logger"
	platformMetrics "kyra/internal/platform/metrics"
	"kyra/internal/platform/middleware"
	platformRedis "kyra/internal/platform/redis"
	"kyra/internal/vision"
	visionHandler "kyra/internal/vision/handler"
	"kyra/pkg/platform/audit"
	"kyra/pkg/platform/audit/publisher"
	auditMemory "kyra/pkg/platform/audit/store/memory"
	auditPostgres "kyra/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	caseStore, auditStore, closeDB, err := buildStores(cfg)
	if err != nil {
		log.Error("storage initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	redisClient, err := platformRedis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metrics := kycMetrics.New()
	httpMetrics := platformMetrics.New()

	auditPublisher := publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(cfg.AuditBufferSize))
	defer auditPublisher.Close()

	notifier := notify.NewSMTPNotifier(notify.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)

	matchClient := matcher.NewClient(cfg.MatcherURL, cfg.ProviderTimeout)
	summaryClient := summary.NewClient(cfg.SummarizerURL, cfg.ProviderTimeout)
	visionClient := vision.NewClient(cfg.VisionURL, cfg.ProviderTimeout)

	pipeline := enrichment.New(caseStore, matchClient, summaryClient,
		enrichment.WithNotifier(notifier),
		enrichment.WithLogger(log),
		enrichment.WithAuditPublisher(auditPublisher),
		enrichment.WithMetrics(metrics),
	)

	var locker enrichment.Locker = enrichment.NewMemoryLocker()
	if redisClient != nil {
		locker = enrichment.NewRedisLocker(redisClient.Client, cfg.EnrichmentLockTTL)
	}
	scheduler := enrichment.NewScheduler(pipeline, locker, cfg.PipelineTimeout, log)

	kycService := service.New(caseStore, scheduler,
		service.WithLogger(log),
		service.WithNotifier(notifier),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics),
	)

	deepReview := vision.NewDeepReviewWorker(caseStore, cfg.DeepReviewBuffer, log)
	defer deepReview.Close()

	validator := middleware.NewTokenValidator(cfg.JWTSigningKey)
	cases := kycHandler.New(kycService, log)
	checks := visionHandler.New(visionClient, visionClient, deepReview, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestMetadata)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(httpMetrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(validator, log))
			cases.Register(r)
			checks.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(validator, log))
			cases.RegisterAdmin(r)
		})
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting kyra", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let in-flight enrichment runs land their results before the stores go.
	scheduler.Wait()
}

// buildStores selects postgres when a DSN is configured and the in-memory
// stores otherwise. The returned closer tears down the shared connection.
func buildStores(cfg config.Config) (service.CaseStore, audit.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return store.NewInMemory(), auditMemory.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if _, err := db.Exec(store.Schema()); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if _, err := db.Exec(auditPostgres.Schema()); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	closer := func() { _ = db.Close() }
	return store.NewPostgres(db), auditPostgres.New(db), closer, nil
}
