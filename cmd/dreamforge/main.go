package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mirrorlake/dreamforge/internal/bot"
	"github.com/mirrorlake/dreamforge/internal/config"
	"github.com/mirrorlake/dreamforge/internal/dream"
	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/media"
	"github.com/mirrorlake/dreamforge/internal/queue"
	"github.com/mirrorlake/dreamforge/internal/session"
	"github.com/mirrorlake/dreamforge/internal/shopify"
	"github.com/mirrorlake/dreamforge/internal/storage"
	"github.com/mirrorlake/dreamforge/internal/worker"
)

const sessionMaxAge = time.Hour

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	defaults, err := config.LoadProductDefaults(cfg.Products.DefaultsFile)
	if err != nil {
		logger.Fatal("failed to load product defaults", "error", err)
	}

	q := queue.New(queue.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
	})
	defer q.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if !q.Healthy(pingCtx) {
		cancelPing()
		logger.Fatal("redis unreachable", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	}

	store, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		PublicURL: cfg.Storage.PublicURL,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		cancelPing()
		logger.Fatal("failed to create storage client", "error", err)
	}
	if err := store.Init(pingCtx); err != nil {
		cancelPing()
		logger.Fatal("failed to init storage bucket", "error", err)
	}
	cancelPing()

	generator := media.NewFalGenerator(cfg.Media.GenerateURL, cfg.Media.GenerateKey)

	var tagger media.Tagger
	if cfg.Media.TaggerKey != "" {
		tagger = media.NewClaudeTagger(cfg.Media.TaggerKey, cfg.Media.TaggerModel)
		logger.Info("vision tagging enabled", "model", cfg.Media.TaggerModel)
	}

	handler, err := media.NewHandler(generator, tagger, store, media.HandlerConfig{
		Retries:  cfg.Media.UploadRetries,
		BaseWait: cfg.Media.UploadBaseWait,
		MaxWait:  cfg.Media.UploadMaxWait,
	})
	if err != nil {
		logger.Fatal("failed to create media handler", "error", err)
	}

	sessions := session.NewStore()

	dreams := dream.NewService(handler, q, sessions, nil, dream.Config{
		ImageCount:     cfg.Dream.ImageCount,
		ImageSize:      cfg.Media.DefaultSize,
		UpdateInterval: cfg.Dream.UpdateInterval,
		MaxAttempts:    cfg.Dream.MaxAttempts,
	})

	discord, err := bot.New(cfg.Bot, cfg.Shopify, dreams, q)
	if err != nil {
		logger.Fatal("failed to create bot", "error", err)
	}
	dreams.SetRenderer(discord)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uploadWorker := worker.NewUploadWorker(q, handler, sessions, worker.UploadConfig{
		QueueName:     cfg.Worker.UploadQueue,
		PopTimeout:    cfg.Worker.UploadSleep,
		SleepInterval: cfg.Worker.UploadSleep,
		MaxRetries:    cfg.Worker.MaxRetries,
		RetryDelay:    cfg.Worker.RetryDelay,
		LockTasks:     cfg.Worker.LockTasks,
		LockTTL:       cfg.Worker.LockTTL,
	})
	go uploadWorker.Start(ctx)

	var productWorker *worker.ProductWorker
	if cfg.Shopify.Enabled {
		commerce := shopify.NewClient(cfg.Shopify.ShopName, cfg.Shopify.AdminKey)
		pipeline := shopify.NewPipeline(commerce, handler, defaults)

		productWorker = worker.NewProductWorker(q, pipeline, worker.ProductConfig{
			QueueName:     cfg.Shopify.QueueName,
			PopTimeout:    cfg.Worker.ProductSleep,
			SleepInterval: cfg.Worker.ProductSleep,
		})
		go productWorker.Start(ctx)

		logger.Info("product pipeline enabled", "shop", cfg.Shopify.ShopName)
	}

	scheduler := cron.New()
	scheduler.AddFunc("@every 1m", func() {
		logger.Info("queue depth",
			"uploads", q.Count(ctx, cfg.Worker.UploadQueue),
			"products", q.Count(ctx, cfg.Shopify.QueueName),
			"sessions", sessions.Len(),
		)
	})
	scheduler.AddFunc("@every 10m", func() {
		if swept := sessions.Sweep(sessionMaxAge); swept > 0 {
			logger.Info("stale sessions swept", "count", swept)
		}
	})
	scheduler.Start()

	go func() {
		if err := discord.Start(ctx); err != nil {
			logger.Error("bot stopped", "error", err)
		}
	}()

	logger.Info("dreamforge started",
		"images_per_dream", cfg.Dream.ImageCount,
		"task_locking", cfg.Worker.LockTasks,
		"shopify", cfg.Shopify.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	scheduler.Stop()
	sessions.StopAll()
	cancel()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()

	if err := uploadWorker.Shutdown(drainCtx); err != nil {
		logger.Warn("upload worker did not drain", "error", err)
	}
	if productWorker != nil {
		productWorker.Stop()
	}
}
