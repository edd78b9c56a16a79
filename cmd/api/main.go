package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/macrolog/backend/config"
	"github.com/pageza/macrolog/backend/internal/database"
	"github.com/pageza/macrolog/backend/internal/logging"
	"github.com/pageza/macrolog/backend/internal/server"
	"github.com/pageza/macrolog/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg)

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	deps := server.Deps{DB: db}

	var redisClient *redis.Client
	if c, err := database.NewRedisClient(cfg, log); err != nil {
		log.WithError(err).Warn("redis unavailable, AI rate limiting disabled")
	} else {
		redisClient = c
		deps.Redis = c
	}

	if cfg.OpenAIAPIKey != "" {
		client, err := service.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelTimeout)
		if err != nil {
			log.WithError(err).Warn("model client unavailable")
		} else {
			deps.Model = client
		}
	}

	clients, err := config.NewAWSClients(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Warn("aws clients unavailable, photo archive and screening disabled")
	} else {
		if clients.S3 != nil {
			deps.Archive = service.NewS3PhotoArchive(clients.S3, cfg.PhotoBucket)
		}
		if clients.Rekognition != nil {
			deps.Screener = service.NewRekognitionScreener(clients.Rekognition, float32(cfg.RekognitionMinConfidence))
		}
	}

	srv := server.New(cfg, log, deps)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("received signal")
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
