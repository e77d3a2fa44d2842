package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/questlines/engine/internal/api"
	"github.com/questlines/engine/internal/api/handlers"
	mw "github.com/questlines/engine/internal/api/middleware"
	"github.com/questlines/engine/internal/api/validators"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/repository"
	"github.com/questlines/engine/internal/services"
	"github.com/questlines/engine/pkg/config"
	"github.com/questlines/engine/pkg/database"
	"github.com/questlines/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting questlines service",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.QuestlineRecord{}); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	log.Info("Database connected successfully")

	repo := repository.NewQuestlineRepository(db)
	svc := services.NewQuestlineService(repo, validators.New())
	limiter := mw.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := api.NewRouter(api.Dependencies{
		QuestlinesHandler: handlers.NewQuestlinesHandler(svc),
		HealthHandler: handlers.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}),
		RateLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.GC(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		return
	}
	log.Info("server exited gracefully")
}
