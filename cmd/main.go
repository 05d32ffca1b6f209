package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"mediacrawl/internal/config"
	"mediacrawl/internal/core/client"
	"mediacrawl/internal/core/crawljob"
	"mediacrawl/internal/core/job"
	"mediacrawl/internal/logger"
	"mediacrawl/internal/platform/accountpool"
	rds "mediacrawl/internal/platform/redis"
	"mediacrawl/internal/platform/signsrv"
	tasks "mediacrawl/internal/platform/tasks"
	"mediacrawl/internal/server"
	"mediacrawl/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[mediacrawl] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Account pool seeded from file, cooldown state shared via redis
	pool, err := accountpool.LoadFile(cfg.AccountsFile, redisSvc)
	if err != nil {
		log.Fatalf("load account pool: %v", err)
	}

	signer := signsrv.New(cfg.SignServerURL)

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{"default": 1},
	})

	// Core services. Each worker task gets its own crawl client so a
	// session is never shared between concurrent jobs.
	jobSvc := job.NewService(redisSvc)
	newClient := func() *client.Client {
		return client.New(pool, signer, client.Options{
			BaseURL:          cfg.PlatformBaseURL,
			Timeout:          cfg.RequestTimeout,
			MaxAttempts:      cfg.MaxRetries,
			RetryWait:        time.Second,
			CrawlInterval:    cfg.CrawlInterval,
			SearchEmptyLimit: cfg.EmptyPageLimit,
			SubReplies:       cfg.EnableSubReplies,
			UserAgent:        cfg.UserAgent,
		})
	}
	crawlSvc := crawljob.NewService(jobSvc, taskClient, newClient, cfg.TaskMaxRetries)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeCrawl, crawlSvc.HandleCrawlTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Mediacrawl Engine",
	})

	deps := server.Dependencies{
		Job:   jobSvc,
		Crawl: crawlSvc,
		Redis: redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
