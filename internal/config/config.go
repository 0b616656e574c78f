package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func Load() (*Config, error) {
	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	botConfig, err := loadBotConfig()
	if err != nil {
		return nil, err
	}

	mediaConfig, err := loadMediaConfig()
	if err != nil {
		return nil, err
	}

	storageConfig, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Timezone: timezone,
		Redis:    loadRedisConfig(),
		Bot:      botConfig,
		Media:    mediaConfig,
		Storage:  storageConfig,
		Shopify:  loadShopifyConfig(),
		Worker:   loadWorkerConfig(),
		Dream:    loadDreamConfig(),
		Products: loadProductsConfig(),
	}, nil
}

func loadRedisConfig() RedisConfig {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}

	port := 6379
	if p, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil && p > 0 {
		port = p
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

func loadBotConfig() (BotConfig, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return BotConfig{}, fmt.Errorf("DISCORD_TOKEN not set")
	}

	return BotConfig{
		Token:   token,
		GuildID: os.Getenv("DISCORD_GUILD_ID"),
	}, nil
}

func loadMediaConfig() (MediaConfig, error) {
	genKey := os.Getenv("FAL_KEY")
	if genKey == "" {
		return MediaConfig{}, fmt.Errorf("FAL_KEY not set")
	}

	genURL := os.Getenv("FAL_URL")
	if genURL == "" {
		genURL = "https://fal.run/fal-ai/fast-sdxl"
	}

	size := os.Getenv("IMAGE_SIZE")
	if size == "" {
		size = "landscape_4_3"
	}

	model := os.Getenv("TAGGER_MODEL")
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return MediaConfig{
		GenerateURL:    genURL,
		GenerateKey:    genKey,
		TaggerKey:      os.Getenv("ANTHROPIC_API_KEY"),
		TaggerModel:    model,
		DefaultSize:    size,
		UploadRetries:  3,
		UploadBaseWait: time.Second,
		UploadMaxWait:  10 * time.Second,
	}, nil
}

func loadStorageConfig() (StorageConfig, error) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return StorageConfig{}, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set")
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "dreamforge-images"
	}

	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	publicURL := os.Getenv("MINIO_PUBLIC_URL")
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return StorageConfig{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
		PublicURL: publicURL,
		UseSSL:    useSSL,
	}, nil
}

func loadShopifyConfig() ShopifyConfig {
	shopName := os.Getenv("SHOPIFY_SHOP_NAME")
	adminKey := os.Getenv("SHOPIFY_ADMIN_API_TOKEN")

	queueName := os.Getenv("SHOPIFY_QUEUE")
	if queueName == "" {
		queueName = "shopify_product_queue"
	}

	return ShopifyConfig{
		Enabled:   shopName != "" && adminKey != "",
		ShopName:  shopName,
		AdminKey:  adminKey,
		QueueName: queueName,
	}
}

func loadWorkerConfig() WorkerConfig {
	uploadQueue := os.Getenv("UPLOAD_QUEUE")
	if uploadQueue == "" {
		uploadQueue = "image_upload_queue"
	}

	uploadSleep := 30 * time.Second
	if s, err := strconv.Atoi(os.Getenv("UPLOAD_SLEEP_SECONDS")); err == nil && s > 0 {
		uploadSleep = time.Duration(s) * time.Second
	}

	maxRetries := 3
	if r, err := strconv.Atoi(os.Getenv("UPLOAD_MAX_RETRIES")); err == nil && r > 0 {
		maxRetries = r
	}

	retryDelay := 5 * time.Second
	if d, err := strconv.Atoi(os.Getenv("UPLOAD_RETRY_DELAY_SECONDS")); err == nil && d > 0 {
		retryDelay = time.Duration(d) * time.Second
	}

	lockTTL := 5 * time.Minute
	if t, err := strconv.Atoi(os.Getenv("TASK_LOCK_TTL_SECONDS")); err == nil && t > 0 {
		lockTTL = time.Duration(t) * time.Second
	}

	return WorkerConfig{
		UploadQueue:  uploadQueue,
		UploadSleep:  uploadSleep,
		MaxRetries:   maxRetries,
		RetryDelay:   retryDelay,
		ProductSleep: time.Second,
		LockTasks:    os.Getenv("TASK_LOCKING") == "true",
		LockTTL:      lockTTL,
	}
}

func loadDreamConfig() DreamConfig {
	count := 2
	if c, err := strconv.Atoi(os.Getenv("DREAM_IMAGE_COUNT")); err == nil && c > 0 {
		count = c
	}

	interval := 5 * time.Second
	if i, err := strconv.Atoi(os.Getenv("DREAM_UPDATE_INTERVAL_SECONDS")); err == nil && i > 0 {
		interval = time.Duration(i) * time.Second
	}

	attempts := 60
	if a, err := strconv.Atoi(os.Getenv("DREAM_MAX_UPDATE_ATTEMPTS")); err == nil && a > 0 {
		attempts = a
	}

	return DreamConfig{
		ImageCount:     count,
		UpdateInterval: interval,
		MaxAttempts:    attempts,
	}
}

func loadProductsConfig() ProductsConfig {
	file := os.Getenv("PRODUCT_DEFAULTS_FILE")
	if file == "" {
		file = "products.yml"
	}

	return ProductsConfig{DefaultsFile: file}
}
