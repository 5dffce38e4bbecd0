package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"carbon-registry/certification-service/internal/certification"
	"carbon-registry/certification-service/internal/config"
	"carbon-registry/certification-service/internal/domain"
	"carbon-registry/certification-service/internal/evidence"
	"carbon-registry/certification-service/internal/ledger"
	"carbon-registry/certification-service/internal/query"
	"carbon-registry/certification-service/internal/registry"
	"carbon-registry/certification-service/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Stores: Postgres when a database host is configured, otherwise the
	// per-entity-locked in-memory stores.
	var (
		projectStore registry.Store
		proofStore   ledger.Store
	)
	if cfg.Database.Host != "" {
		dbURL := cfg.Database.GetDatabaseURL()
		logger.Info("connecting to database",
			zap.String("host", cfg.Database.Host),
			zap.String("db_name", cfg.Database.DBName))
		db, err := sqlx.Connect("postgres", dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

		projectStore = registry.NewPostgresStore(db)
		proofStore = ledger.NewPostgresStore(db)
	} else {
		logger.Info("no database configured, using in-memory stores")
		projectStore = registry.NewMemoryStore()
		proofStore = ledger.NewMemoryStore()
	}

	evidenceStore, err := newEvidenceStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize evidence store", zap.Error(err))
	}

	registryService := registry.NewService(projectStore, logger)
	ledgerService := ledger.NewService(proofStore, registryService, evidenceStore, logger)
	engine := certification.NewEngine(registryService, ledgerService, certification.Config{
		Coefficients: coefficientTable(cfg.Certification.Coefficients),
		Tolerance:    cfg.Certification.EligibilityTolerance,
	}, logger)

	queryService := query.NewService(projectStore, proofStore, logger)
	if err := queryService.StartStatsRefresh(cfg.Stats.RefreshSchedule); err != nil {
		logger.Fatal("failed to schedule stats refresh", zap.Error(err))
	}
	defer queryService.Stop()

	handler := server.NewHandler(registryService, ledgerService, engine, queryService, evidenceStore, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	{
		handler.RegisterRoutes(api, cfg.Auth.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func newEvidenceStore(cfg *config.Config, logger *zap.Logger) (evidence.Store, error) {
	switch cfg.Evidence.Driver {
	case "s3":
		logger.Info("using s3 evidence store", zap.String("bucket", cfg.Evidence.Bucket))
		return evidence.NewS3Store(context.Background(), evidence.S3Config{
			Bucket:          cfg.Evidence.Bucket,
			Region:          cfg.Evidence.Region,
			Endpoint:        cfg.Evidence.Endpoint,
			AccessKeyID:     cfg.Evidence.AccessKeyID,
			SecretAccessKey: cfg.Evidence.SecretAccessKey,
		})
	default:
		logger.Info("using in-memory evidence store")
		return evidence.NewMemoryStore(), nil
	}
}

func coefficientTable(raw map[string]float64) map[domain.ProjectType]float64 {
	if len(raw) == 0 {
		return nil
	}
	table := make(map[domain.ProjectType]float64, len(raw))
	for t, c := range raw {
		table[domain.ProjectType(t)] = c
	}
	return table
}
