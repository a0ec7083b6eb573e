package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/cymasphere/campaign-engine/internal/api"
	"github.com/cymasphere/campaign-engine/internal/config"
	"github.com/cymasphere/campaign-engine/internal/dispatch"
	"github.com/cymasphere/campaign-engine/internal/engagement"
	"github.com/cymasphere/campaign-engine/internal/mailer"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
	"github.com/cymasphere/campaign-engine/internal/pkg/timewindow"
	"github.com/cymasphere/campaign-engine/internal/promo"
	"github.com/cymasphere/campaign-engine/internal/scheduler"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	if cfg.Promotions.Timezone != "" {
		if err := timewindow.SetZone(cfg.Promotions.Timezone); err != nil {
			log.Fatalf("Invalid promotions timezone %q: %v", cfg.Promotions.Timezone, err)
		}
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the scheduler tick lock falls back to
	// PG advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, using advisory locks", "error", err.Error())
			redisClient = nil
		}
		cancel()
	}

	var transport dispatch.Transport
	sesTransport, err := mailer.NewSESTransport(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	if err != nil {
		logger.Warn("SES unavailable, using stub transport", "error", err.Error())
		transport = mailer.NewStubTransport()
	} else {
		transport = sesTransport
	}

	promotions := promo.NewSelector(db)
	composer := dispatch.NewComposer(cfg.Tracking.BaseURL)
	resolver := dispatch.NewSubscriberResolver(db)
	dispatcher := dispatch.NewDispatcher(db, transport, resolver, composer, promotions, cfg.SES.SendTimeout())

	sched := scheduler.New(db, dispatcher, redisClient,
		cfg.Scheduler.Cadence(), cfg.Scheduler.LockTTL(),
		time.Duration(cfg.Scheduler.DispatchTimeout)*time.Second)
	if cfg.Scheduler.AutoStart {
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	ingestor := engagement.NewIngestor(db, nil)

	server := api.NewServer(cfg.Server, sched, ingestor, promotions, cfg.Scheduler.ControlSecret)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err.Error())
	}
	logger.Info("server stopped")
}
