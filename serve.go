package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"lesson-insights-api/config"
	"lesson-insights-api/handlers"
	"lesson-insights-api/store"
	"lesson-insights-api/subscriber"
	"lesson-insights-api/testui"
	valkeystore "lesson-insights-api/valkey"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// serve runs the HTTP API and the lesson subscriber until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := cfg.ValidateService(); err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.Server.SpoolDir, 0o750); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	vk, err := valkeystore.New(cfg.Valkey, logger)
	if err != nil {
		return err
	}
	defer vk.Close()

	db, err := store.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CreateSchema(ctx); err != nil {
		return err
	}

	p, closeFn, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	sub := subscriber.New(vk, p, db, vk, subscriber.Options{
		Channel:         cfg.Server.Channel,
		DefaultLanguage: cfg.Speech.LanguageCode,
		ResultTTL:       time.Duration(cfg.Server.ResultTTLHours) * time.Hour,
	}, logger.Named("subscriber"))

	subDone := make(chan error, 1)
	go func() { subDone <- sub.Run(ctx) }()

	r := gin.New()
	sugar.Info("Creating router")

	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	r.POST("/lessons/upload", handlers.HandleUploadLesson(logger, vk, cfg.Server.SpoolDir, cfg.Server.Channel))
	r.GET("/lessons", handlers.HandleListLessons(logger, db))
	r.GET("/lessons/:job", handlers.HandleGetLesson(logger, vk, db))

	r.GET("/healthcheck", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	r.GET("/metrics", handlers.HandleMetrics())
	r.GET("/db-status", handlers.HandleDBStatus(db))

	testui.RegisterRoutes(r, "/")

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	srvErr := make(chan error, 1)
	go func() {
		sugar.Infow("Running on port",
			"port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case err := <-subDone:
		runErr = fmt.Errorf("subscriber: %w", err)
		subDone <- nil
	}

	sugar.Info("Shutting down")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP shutdown failed",
			"error", err)
	}

	if err := <-subDone; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
