package config

import "time"

type Config struct {
	Timezone string
	Redis    RedisConfig
	Bot      BotConfig
	Media    MediaConfig
	Storage  StorageConfig
	Shopify  ShopifyConfig
	Worker   WorkerConfig
	Dream    DreamConfig
	Products ProductsConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type BotConfig struct {
	Token   string
	GuildID string // restrict slash commands to this guild, empty for global
}

type MediaConfig struct {
	GenerateURL    string
	GenerateKey    string
	TaggerKey      string // Anthropic API key for vision tagging
	TaggerModel    string
	DefaultSize    string
	UploadRetries  int
	UploadBaseWait time.Duration
	UploadMaxWait  time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string // base URL under which uploaded objects are reachable
	UseSSL    bool
}

type ShopifyConfig struct {
	Enabled   bool
	ShopName  string
	AdminKey  string
	QueueName string
}

type WorkerConfig struct {
	UploadQueue  string
	UploadSleep  time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	ProductSleep time.Duration
	LockTasks    bool
	LockTTL      time.Duration
}

type DreamConfig struct {
	ImageCount     int
	UpdateInterval time.Duration
	MaxAttempts    int
}

type ProductsConfig struct {
	DefaultsFile string
}
