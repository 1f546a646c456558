package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliancedesk-backend/config"
	"compliancedesk-backend/handlers"
	"compliancedesk-backend/lease"
	"compliancedesk-backend/llm"
	"compliancedesk-backend/logger"
	"compliancedesk-backend/middleware"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/service"
	"compliancedesk-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	envLoaded := config.LoadDotEnv()
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	if !envLoaded {
		appLog.Warn("config.dotenv.missing", "detail", "no .env file found, using environment variables")
	}
	if cfg.JWTSecret == "" {
		appLog.Fatal("config.invalid", "error", "JWT_SECRET is required")
	}

	ctx := context.Background()

	// Initialize database connections
	db, err := initPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("postgres.init_failed", "error", err)
	}
	defer db.Close()
	appLog.Info("postgres.ready")

	// Initialize storage
	blobs, err := storage.NewStorageFromEnv(ctx)
	if err != nil {
		appLog.Fatal("storage.init_failed", "error", err)
	}
	appLog.Info("storage.ready")

	locker, closeLocker := initLocker(ctx, cfg.RedisAddr, appLog)
	defer closeLocker()

	client, offline, closeClient := initModel(ctx, cfg, appLog)
	defer closeClient()

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	findingRepo := repository.NewFindingRepository(db)
	jobRepo := repository.NewAnalysisJobRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	ingestService := service.NewIngestionService(
		service.IngestWithContractStore(contractRepo),
		service.IngestWithCategoryStore(categoryRepo),
		service.IngestWithStorage(blobs),
		service.IngestWithLogger(appLog.With("component", "ingest")),
		service.IngestWithThreshold(cfg.ClassifierThreshold),
		service.IngestWithMaxBytes(cfg.MaxUploadBytes),
	)
	contractService := service.NewContractService(
		service.WithContractStore(contractRepo),
		service.WithStorage(blobs),
		service.WithLogger(appLog.With("component", "contracts")),
	)
	analysisService := service.NewAnalysisService(
		service.AnalysisWithContractStore(contractRepo),
		service.AnalysisWithFindingStore(findingRepo),
		service.AnalysisWithJobStore(jobRepo),
		service.AnalysisWithStorage(blobs),
		service.AnalysisWithClient(client, offline),
		service.AnalysisWithLocker(locker),
		service.AnalysisWithLogger(appLog.With("component", "analysis")),
		service.AnalysisWithTiming(cfg.AnalysisPollInterval, cfg.AnalysisTimeout),
	)
	// Jobs left unfinished by a previous process would keep their contracts in analyzing
	if n, err := analysisService.RecoverInterrupted(ctx); err != nil {
		appLog.Error("analysis.recover_failed", "error", err)
	} else if n > 0 {
		appLog.Warn("analysis.recover.done", "jobs", n)
	}

	exportService := service.NewExportService(contractRepo, findingRepo, appLog.With("component", "export"))
	chatService := service.NewChatService(client, appLog.With("component", "chat"))

	// Setup Gin router
	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(appLog))
	r.Use(middleware.RequestLogger(appLog))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	analysisHandler := handlers.NewAnalysisHandler(analysisService, exportService, appLog)
	handlers.RegisterRoutes(r, handlers.Set{
		Auth:       handlers.NewAuthHandler(service.NewAuthService(userRepo), cfg.JWTSecret, cfg.TokenTTL, appLog),
		Contracts:  handlers.NewContractHandler(ingestService, contractService, appLog),
		Analysis:   analysisHandler,
		Categories: handlers.NewCategoryHandler(service.NewCategoryService(categoryRepo)),
		Chat:       handlers.NewChatHandler(chatService),
	}, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Long enough for ?wait=true job polling
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.AnalysisTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLog.Info("server.starting", "port", cfg.Port, "offline_model", offline)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server.listen_failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server.forced_shutdown", "error", err)
	}

	// Running analyses get until their own deadline; unfinished ones are failed on next start
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.AnalysisTimeout)
	defer cancelDrain()
	if err := analysisHandler.Drain(drainCtx); err != nil {
		appLog.Warn("analysis.drain_incomplete", "error", err)
	}
	appLog.Info("server.exited")
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// initLocker uses Redis when REDIS_ADDR is set so several instances share analysis leases
func initLocker(ctx context.Context, addr string, log *logger.Logger) (lease.Locker, func()) {
	if addr == "" {
		log.Info("lease.memory")
		return lease.NewMemoryLocker(), func() {}
	}
	locker, err := lease.NewRedisLocker(ctx, addr)
	if err != nil {
		log.Fatal("lease.redis.init_failed", "addr", addr, "error", err)
	}
	log.Info("lease.redis", "addr", addr)
	return locker, func() { _ = locker.Close() }
}

// initModel returns the Gemini client, or the offline client when no API key is configured
func initModel(ctx context.Context, cfg *config.Config, log *logger.Logger) (llm.Client, bool, func()) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("llm.offline", "detail", "GEMINI_API_KEY not set, using canned responses")
		return llm.NewOfflineClient(), true, func() {}
	}
	client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("llm.gemini.init_failed", "error", err)
	}
	log.Info("llm.gemini", "model", cfg.GeminiModel)
	return client, false, func() { _ = client.Close() }
}
