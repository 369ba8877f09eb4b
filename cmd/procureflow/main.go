package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/identity"
	"github.com/procureflow/procureflow/internal/ledger"
	"github.com/procureflow/procureflow/internal/platform/cache"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/internal/tablestore"
	"github.com/procureflow/procureflow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	directory, err := identity.ParseDirectory(cfg.AuthUsers)
	if err != nil {
		logger.Error("parse auth users", slog.Any("error", err))
		os.Exit(1)
	}

	var store tablestore.Store
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = tablestore.NewPostgres(pool)
	default:
		store = tablestore.NewMemory(procurement.Tables()...)
		logger.Warn("using in-memory table store, data is not persisted")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, falling back to local lock and uncached dashboards", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	var lock ledger.Locker
	if cfg.CounterLockMode == "redis" && redisClient != nil {
		lock = ledger.NewRedisLocker(redisClient, "", cfg.CounterLockWait)
	} else {
		lock = ledger.NewMutexLocker(cfg.CounterLockWait)
	}
	serials := ledger.New(store, procurement.TableCounters, lock)

	trail := audit.NewTrail(store, procurement.TableAudit)
	repo := procurement.NewRepository(store)
	service := procurement.NewService(repo, serials, trail)

	var dashCache *procurement.Cache
	if redisClient != nil {
		dashCache = procurement.NewCache(redisClient, cfg.DashboardCacheTTL)
	}
	dashboard := procurement.NewAggregator(store, dashCache)

	procurementHandler := procurement.NewHandler(logger, service, dashboard)
	auditHandler := audit.NewHandler(logger, trail)

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Directory:          directory,
		ProcurementHandler: procurementHandler,
		AuditHandler:       auditHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
