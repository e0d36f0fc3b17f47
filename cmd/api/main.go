package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bryanwahyu/policyscope/internal/application"
	appcrawl "github.com/bryanwahyu/policyscope/internal/application/crawl"
	appdocs "github.com/bryanwahyu/policyscope/internal/application/documents"
	"github.com/bryanwahyu/policyscope/internal/config"
	"github.com/bryanwahyu/policyscope/internal/crawler"
	"github.com/bryanwahyu/policyscope/internal/domain/documents"
	aiopenai "github.com/bryanwahyu/policyscope/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/policyscope/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/policyscope/internal/infra/db/postgres"
	"github.com/bryanwahyu/policyscope/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/policyscope/internal/infra/storage"
	"github.com/bryanwahyu/policyscope/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	crawlSvc, docsSvc, healthChecks, closeDB, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer closeDB()

	// router + middleware chain
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.Metrics)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	mux.Mount("/", httpserver.NewRouter(crawlSvc, docsSvc, healthChecks, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORS.AllowedOrigins
}

func buildServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*appcrawl.Service, *appdocs.Service, map[string]middleware.HealthChecker, func(), error) {
	crawlSvc := &appcrawl.Service{
		Fetcher:     crawler.NewFetcher(cfg.Crawler.Timeout, cfg.Crawler.UserAgent),
		Summarizer:  newSummarizer(cfg),
		Clock:       application.SystemClock{},
		Logger:      logger,
		CacheWindow: cfg.CacheWindow(),
		TopWords:    cfg.Crawler.TopWords,
		ModelName:   cfg.OpenAI.Model,
	}
	docsSvc := &appdocs.Service{Clock: application.SystemClock{}}
	checks := map[string]middleware.HealthChecker{}

	var closeDB func()
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		closeDB = func() { db.Close() }
		crawlSvc.Sessions = postgresp.NewSessionRepository(db)
		crawlSvc.Documents = postgresp.NewDocumentRepository(db)
		crawlSvc.Analyses = postgresp.NewAnalysisRepository(db)
		docsSvc.Documents = crawlSvc.Documents
		docsSvc.Analyses = crawlSvc.Analyses
		docsSvc.Favorites = postgresp.NewFavoriteRepository(db)
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		closeDB = func() { db.Close() }
		crawlSvc.Sessions = mysqlp.NewSessionRepository(db)
		crawlSvc.Documents = mysqlp.NewDocumentRepository(db)
		crawlSvc.Analyses = mysqlp.NewAnalysisRepository(db)
		docsSvc.Documents = crawlSvc.Documents
		docsSvc.Analyses = crawlSvc.Analyses
		docsSvc.Favorites = mysqlp.NewFavoriteRepository(db)
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		return nil, nil, nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	// snapshot archive is optional
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("minio init: %w", err)
		}
		crawlSvc.Snapshots = store
		checks["storage"] = middleware.CheckerFunc(store.Ping)
	} else {
		logger.Warn("snapshot storage disabled, no minio endpoint configured")
	}

	return crawlSvc, docsSvc, checks, closeDB, nil
}

func newSummarizer(cfg *config.Config) *aiopenai.Client {
	client := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	client.MaxTokens = cfg.OpenAI.MaxTokens
	return client
}

var _ documents.SnapshotStore = (*minioStore.Store)(nil)
