package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeMatch/internal/analysis"
	"resumeMatch/internal/api"
	"resumeMatch/internal/auth"
	"resumeMatch/internal/config"
	"resumeMatch/internal/export"
	"resumeMatch/internal/logging"
	"resumeMatch/internal/scan"
	"resumeMatch/internal/session"
	"resumeMatch/internal/storage"
)

const tokenIssuer = "resumematch"

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	log.Printf("api bootstrapped with analysis=%s session backend=%s", cfg.Analysis.BaseURL, cfg.Session.Backend)

	tokens, err := auth.NewTokenService(cfg.Web.SessionSecret, tokenIssuer)
	if err != nil {
		log.Fatalf("init token service: %v", err)
	}

	analyzer := analysis.NewClient(cfg.Analysis, nil)
	deps := api.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Tokens:   tokens,
		Analyzer: analyzer,
		Upstream: analyzer,
		Scanner:  scan.New(cfg.Clamd.Addr),
	}
	if cfg.Clamd.Addr != "" {
		log.Printf("upload scanning enabled via clamd at %s", cfg.Clamd.Addr)
	}

	exportErr := cfg.ValidateExport()
	var redisClient *redis.Client
	if cfg.Session.Backend == config.SessionBackendRedis || exportErr == nil {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		log.Printf("redis connection ready at %s", cfg.Redis.Addr())
		deps.Redis = redisClient
	}

	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		deps.Store = session.NewRedisStore(redisClient, cfg.Session.TTL)
		deps.Guard = session.NewRedisGuard(redisClient, cfg.Workflow.InflightTTL)
		deps.Counter = session.NewRedisRunCounter(redisClient, time.Hour)
	default:
		deps.Store = session.NewMemoryStore(cfg.Session.TTL)
		deps.Guard = session.NewMemoryGuard()
		deps.Counter = session.NewMemoryRunCounter(time.Hour)
	}

	if exportErr == nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()

		storageClient, err := storage.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
		records := export.NewRedisRecords(redisClient, cfg.Session.TTL)
		deps.Exports = export.NewService(records, asynqClient, storageClient, logger)
		log.Printf("pdf export enabled, bucket=%s", cfg.MinIO.Bucket)
	} else {
		log.Printf("pdf export disabled: %v", exportErr)
	}

	router, err := api.NewRouter(logger)
	if err != nil {
		log.Fatalf("build router: %v", err)
	}
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.Web.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
