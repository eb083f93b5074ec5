package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dowesd/dowesd/internal/accounts"
	"github.com/dowesd/dowesd/internal/app"
	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/observability"
	"github.com/dowesd/dowesd/internal/platform/cache"
	"github.com/dowesd/dowesd/internal/platform/db"
	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/txns"
	"github.com/dowesd/dowesd/internal/users"
	"github.com/dowesd/dowesd/internal/view"
)

// profileFeed adapts the txn service to the profile page's feed source.
type profileFeed struct {
	txns *txns.Service
}

func (f profileFeed) Recent(ctx context.Context, userID int64, limit int) ([]users.FeedItem, error) {
	recent, err := f.txns.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]users.FeedItem, 0, len(recent))
	for _, txn := range recent {
		items = append(items, users.FeedItem{
			ID:          txn.ID,
			Date:        txn.Date,
			Amount:      txn.Amount,
			Description: txn.Description,
		})
	}
	return items, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "dowesd_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	authService := auth.NewService(usersService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, auditLogger)

	txnsRepo := txns.NewRepository(dbpool)
	txnsService := txns.NewService(txnsRepo, redisClient)
	txnsHandler := txns.NewHandler(logger, txnsService, templates, csrfManager, auditLogger, authMiddleware)

	usersHandler := users.NewHandler(logger, usersService, profileFeed{txns: txnsService}, templates, sessionManager, csrfManager, auditLogger)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, usersService)
	accountsHandler := accounts.NewHandler(logger, accountsService, templates, csrfManager, auditLogger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Templates:       templates,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UsersHandler:    usersHandler,
		TxnsHandler:     txnsHandler,
		AccountsHandler: accountsHandler,
		Metrics:         metrics,
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
