package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Transfer TransferConfig
	Telegram TelegramConfig
	YouTube  YouTubeConfig
	Publish  PublishConfig
	Janitor  JanitorConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Archive  ArchiveConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type TransferConfig struct {
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"/var/lib/vidgate/uploads"`
	StateFile    string `envconfig:"STATE_FILE" default:"/var/lib/vidgate/state.json"`
	MaxChunkSize int64  `envconfig:"MAX_CHUNK_SIZE" default:"52428800"`
}

type TelegramConfig struct {
	Token          string        `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	ChatID         int64         `envconfig:"TELEGRAM_CHAT_ID" required:"true"`
	AnnounceChatID int64         `envconfig:"TELEGRAM_ANNOUNCE_CHAT_ID" default:"0"`
	WebhookSecret  string        `envconfig:"TELEGRAM_WEBHOOK_SECRET" default:""`
	PublicURL      string        `envconfig:"PUBLIC_URL" default:""`
	Timeout        time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"30s"`
}

type YouTubeConfig struct {
	CredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS" required:"true"`
	CategoryID      string `envconfig:"YOUTUBE_CATEGORY_ID" default:"22"`
	Tags            string `envconfig:"YOUTUBE_TAGS" default:""`
}

type PublishConfig struct {
	SegmentSize         int64         `envconfig:"PUBLISH_SEGMENT_SIZE" default:"10485760"`
	PollInterval        time.Duration `envconfig:"PUBLISH_POLL_INTERVAL" default:"30s"`
	PollTimeout         time.Duration `envconfig:"PUBLISH_POLL_TIMEOUT" default:"10m"`
	MaxConcurrent       int           `envconfig:"PUBLISH_MAX_CONCURRENT" default:"1"`
	AnnounceMinDuration time.Duration `envconfig:"PUBLISH_ANNOUNCE_MIN_DURATION" default:"10m"`
}

type JanitorConfig struct {
	StaleAge         time.Duration `envconfig:"JANITOR_STALE_AGE" default:"168h"`
	ReaperInterval   time.Duration `envconfig:"JANITOR_REAPER_INTERVAL" default:"24h"`
	ReminderInterval time.Duration `envconfig:"JANITOR_REMINDER_INTERVAL" default:"1h"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"vidgate"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"vidgate"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type ArchiveConfig struct {
	Enabled   bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"published-videos"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
