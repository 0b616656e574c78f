package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "bot-token")
	t.Setenv("FAL_KEY", "fal-key")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Redis.Host != "localhost" || cfg.Redis.Port != 6379 {
		t.Errorf("unexpected redis defaults %+v", cfg.Redis)
	}
	if cfg.Media.GenerateURL != "https://fal.run/fal-ai/fast-sdxl" {
		t.Errorf("unexpected generate url %s", cfg.Media.GenerateURL)
	}
	if cfg.Media.DefaultSize != "landscape_4_3" {
		t.Errorf("unexpected image size %s", cfg.Media.DefaultSize)
	}
	if cfg.Worker.UploadQueue != "image_upload_queue" {
		t.Errorf("unexpected upload queue %s", cfg.Worker.UploadQueue)
	}
	if cfg.Worker.UploadSleep != 30*time.Second {
		t.Errorf("unexpected upload sleep %v", cfg.Worker.UploadSleep)
	}
	if cfg.Worker.MaxRetries != 3 || cfg.Worker.RetryDelay != 5*time.Second {
		t.Errorf("unexpected retry policy %+v", cfg.Worker)
	}
	if cfg.Worker.LockTasks {
		t.Error("task locking should default to off")
	}
	if cfg.Dream.ImageCount != 2 {
		t.Errorf("unexpected image count %d", cfg.Dream.ImageCount)
	}
	if cfg.Dream.UpdateInterval != 5*time.Second || cfg.Dream.MaxAttempts != 60 {
		t.Errorf("unexpected poll settings %+v", cfg.Dream)
	}
	if cfg.Shopify.Enabled {
		t.Error("shopify should be disabled without credentials")
	}
}

func TestLoadMissingDiscordToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without DISCORD_TOKEN")
	}
}

func TestLoadMissingGeneratorKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAL_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without FAL_KEY")
	}
}

func TestLoadMissingStorageCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MINIO_SECRET_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without storage credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("DREAM_IMAGE_COUNT", "4")
	t.Setenv("TASK_LOCKING", "true")
	t.Setenv("UPLOAD_MAX_RETRIES", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Dream.ImageCount != 4 {
		t.Errorf("unexpected image count %d", cfg.Dream.ImageCount)
	}
	if !cfg.Worker.LockTasks {
		t.Error("expected task locking enabled")
	}
	if cfg.Worker.MaxRetries != 7 {
		t.Errorf("unexpected max retries %d", cfg.Worker.MaxRetries)
	}
}

func TestLoadShopifyEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHOPIFY_SHOP_NAME", "my-shop")
	t.Setenv("SHOPIFY_ADMIN_API_TOKEN", "admin-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.Shopify.Enabled {
		t.Error("expected shopify enabled")
	}
	if cfg.Shopify.QueueName != "shopify_product_queue" {
		t.Errorf("unexpected queue name %s", cfg.Shopify.QueueName)
	}
}

func TestLoadProductDefaultsMissingFile(t *testing.T) {
	defaults, err := LoadProductDefaults(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}

	if defaults.Price != "0.00" || defaults.SKU != "default-sku" {
		t.Errorf("unexpected built-ins %+v", defaults)
	}
	if defaults.Vendor != "default" || defaults.InventoryQuantity != 1 {
		t.Errorf("unexpected built-ins %+v", defaults)
	}
}

func TestLoadProductDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yml")
	content := "vendor: acme\nprice: \"12.50\"\nsku: acme-1\ninventory_quantity: 9\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	defaults, err := LoadProductDefaults(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if defaults.Vendor != "acme" || defaults.Price != "12.50" {
		t.Errorf("unexpected defaults %+v", defaults)
	}
	if defaults.SKU != "acme-1" || defaults.InventoryQuantity != 9 {
		t.Errorf("unexpected defaults %+v", defaults)
	}
}

func TestLoadProductDefaultsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yml")
	if err := os.WriteFile(path, []byte("vendor: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadProductDefaults(path); err == nil {
		t.Error("expected parse error")
	}
}
