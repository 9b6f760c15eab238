package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"awards-voting-backend/cache"
	"awards-voting-backend/config"
	"awards-voting-backend/database"
	"awards-voting-backend/handlers"
	"awards-voting-backend/logger"
	"awards-voting-backend/migrations"
	"awards-voting-backend/mq"
	"awards-voting-backend/repository"
	"awards-voting-backend/routes"
	"awards-voting-backend/scheduler"
	"awards-voting-backend/service"
	"awards-voting-backend/websocket"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := migrations.Run(db, log); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	clk := clock.New()
	hub := websocket.NewHub(log)
	go hub.Run()

	opts := service.Options{
		Clock:          clk,
		Logger:         log,
		ResultsTTL:     cfg.Voting.ResultsCacheTTL,
		StatusTTL:      cfg.Voting.StatusCacheTTL,
		SearchLimit:    cfg.Voting.SearchLimit,
		SearchMaxLimit: cfg.Voting.SearchMaxLimit,
	}
	publishers := mq.NewAdapter(log)
	jobs := scheduler.Jobs{}

	var (
		redisClient *redis.Client
		queue       *mq.RedisMQ
		memCache    *cache.MemoryCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process cache", zap.Error(err))
		}
	}
	if redisClient != nil {
		opts.Cache = cache.NewRedisCache(redisClient)
		opts.Locker = cache.NewLockService(redisClient, cfg.Voting.SubmitLockTTL)

		// events go through the queue; the consumer feeds the websocket hub
		queue = mq.NewRedisMQ(redisClient, cfg.Redis.Queue, log)
		if err := queue.Start(hub.Publish); err != nil {
			log.Fatal("failed to start event consumer", zap.Error(err))
		}
		publishers.Add(queue)
		jobs.DeadLetters = queue
	} else {
		memCache = cache.NewMemoryCache(clk)
		opts.Cache = memCache
		publishers.Add(hub)
		jobs.Cache = memCache
	}

	var rocket *mq.RocketMQPublisher
	if cfg.RocketMQ.Enabled {
		rocket, err = mq.NewRocketMQPublisher(cfg.RocketMQ, log)
		if err != nil {
			log.Warn("rocketmq unavailable, events stay local", zap.Error(err))
		} else {
			publishers.Add(rocket)
		}
	}
	opts.Publisher = publishers

	svc := service.NewVotingService(
		repository.NewVotingRepository(db),
		repository.NewDirectoryRepository(db),
		opts,
	)
	jobs.Sessions = svc

	var limiter *handlers.VoterRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handlers.NewVoterRateLimiter(handlers.RateLimiterConfig{
			Enabled: true,
			Rate:    cfg.RateLimit.Rate,
			Burst:   cfg.RateLimit.Burst,
		}, clk)
		jobs.Limiter = limiter
		if redisClient != nil {
			// the shared window admits one burst per refill period
			window := time.Duration(float64(cfg.RateLimit.Burst) / cfg.RateLimit.Rate * float64(time.Second))
			limiter.WithShared(cache.NewSlidingWindowLimiter(redisClient, window, cfg.RateLimit.Burst), log)
		}
	}

	deps := routes.Dependencies{
		Config:  cfg,
		Service: svc,
		DB:      db,
		Hub:     hub,
		Limiter: limiter,
		Logger:  log,
	}
	if queue != nil {
		deps.Queue = queue
	}
	router := routes.SetupRouter(deps)
	srv := routes.StartServer(router, cfg.Server, log)

	sched := scheduler.NewScheduler(log)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Register(sched, cfg.Scheduler, jobs); err != nil {
			log.Fatal("failed to schedule maintenance jobs", zap.Error(err))
		}
		sched.Start()
	}

	log.Info("voting backend started",
		zap.String("environment", cfg.Environment),
		zap.Int("publishers", publishers.Len()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		sched.Stop()
	}
	if queue != nil {
		queue.Stop()
	}
	if rocket != nil {
		if err := rocket.Close(); err != nil {
			log.Warn("rocketmq shutdown failed", zap.Error(err))
		}
	}
	hub.Stop()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("server exited gracefully")
}
