package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

// EnvPrefix задаёт префикс переменных окружения (SHOP_HTTP_ADDR и т.д.).
const EnvPrefix = "SHOP"

// Config — настройки запуска магазина. Ключи mapstructure совпадают
// с ключами YAML-файла и, в верхнем регистре с префиксом SHOP_, с env.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`

	StorageDriver       string `mapstructure:"storage_driver"`
	PostgresDSN         string `mapstructure:"postgres_dsn"`
	PostgresAutoMigrate bool   `mapstructure:"postgres_auto_migrate"`
	MongoURI            string `mapstructure:"mongo_uri"`
	MongoDatabase       string `mapstructure:"mongo_database"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
	KafkaClientID string   `mapstructure:"kafka_client_id"`
	KafkaTopic    string   `mapstructure:"kafka_topic"`

	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize    int           `mapstructure:"outbox_batch_size"`
	OutboxMaxAttempts  int           `mapstructure:"outbox_max_attempts"`
	OutboxRetryDelay   time.Duration `mapstructure:"outbox_retry_delay"`

	SettlementLedgerTTL         time.Duration `mapstructure:"settlement_ledger_ttl"`
	SettlementProcessingLease   time.Duration `mapstructure:"settlement_processing_lease"`
	IdempotencyCleanupInterval  time.Duration `mapstructure:"idempotency_cleanup_interval"`
	IdempotencyCleanupBatchSize int           `mapstructure:"idempotency_cleanup_batch_size"`

	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`

	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	// MockWebhookSecret подписывает события тестового провайдера, когда Stripe не настроен.
	MockWebhookSecret string `mapstructure:"mock_webhook_secret"`

	Currency    string `mapstructure:"currency"`
	FrontendURL string `mapstructure:"frontend_url"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPFrom     string `mapstructure:"smtp_from"`

	SeedFile string `mapstructure:"seed_file"`
	SeedDemo bool   `mapstructure:"seed_demo"`
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:        ":8080",
		MetricsAddr:     ":9090",
		GRPCAddr:        ":50051",
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		MongoDatabase:       "shop",

		KafkaClientID: "shop-api",
		KafkaTopic:    "shop.order.events",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		SettlementLedgerTTL:         7 * 24 * time.Hour,
		SettlementProcessingLease:   5 * time.Minute,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,

		MockWebhookSecret: "whsec_dev",

		Currency:    "mxn",
		FrontendURL: "http://localhost:5173",

		SMTPPort: 587,
		SeedDemo: true,
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл
// (если path не пуст), затем переменные окружения SHOP_*.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults регистрирует каждый ключ: без default viper не видит env при Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	defaults := map[string]any{
		"http_addr":        d.HTTPAddr,
		"metrics_addr":     d.MetricsAddr,
		"grpc_addr":        d.GRPCAddr,
		"request_timeout":  d.RequestTimeout,
		"shutdown_timeout": d.ShutdownTimeout,
		"log_level":        d.LogLevel,

		"storage_driver":        d.StorageDriver,
		"postgres_dsn":          d.PostgresDSN,
		"postgres_auto_migrate": d.PostgresAutoMigrate,
		"mongo_uri":             d.MongoURI,
		"mongo_database":        d.MongoDatabase,

		"redis_addr":     d.RedisAddr,
		"redis_password": d.RedisPassword,
		"redis_db":       d.RedisDB,

		"kafka_brokers":   append([]string{}, d.KafkaBrokers...),
		"kafka_client_id": d.KafkaClientID,
		"kafka_topic":     d.KafkaTopic,

		"outbox_poll_interval": d.OutboxPollInterval,
		"outbox_batch_size":    d.OutboxBatchSize,
		"outbox_max_attempts":  d.OutboxMaxAttempts,
		"outbox_retry_delay":   d.OutboxRetryDelay,

		"settlement_ledger_ttl":          d.SettlementLedgerTTL,
		"settlement_processing_lease":    d.SettlementProcessingLease,
		"idempotency_cleanup_interval":   d.IdempotencyCleanupInterval,
		"idempotency_cleanup_batch_size": d.IdempotencyCleanupBatchSize,

		"jwt_secret": d.JWTSecret,
		"jwt_issuer": d.JWTIssuer,

		"stripe_secret_key":     d.StripeSecretKey,
		"stripe_webhook_secret": d.StripeWebhookSecret,
		"mock_webhook_secret":   d.MockWebhookSecret,

		"currency":     d.Currency,
		"frontend_url": d.FrontendURL,

		"smtp_host":     d.SMTPHost,
		"smtp_port":     d.SMTPPort,
		"smtp_username": d.SMTPUsername,
		"smtp_password": d.SMTPPassword,
		"smtp_from":     d.SMTPFrom,

		"seed_file": d.SeedFile,
		"seed_demo": d.SeedDemo,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// splitList нормализует список брокеров: из env он приходит одной строкой через запятую.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// StripeEnabled сообщает, что настроен боевой провайдер оплаты.
func (c Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

// SMTPEnabled сообщает, что письма нужно отправлять через SMTP.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Validate отклоняет несовместимые настройки.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres_dsn is required for postgres storage"))
		}
	case StorageDriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("mongo_uri and mongo_database are required for mongo storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if c.HTTPAddr == "" || c.MetricsAddr == "" || c.GRPCAddr == "" {
		errs = append(errs, errors.New("http_addr, metrics_addr and grpc_addr must be set"))
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout and shutdown_timeout must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	if c.StripeEnabled() && c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("stripe_webhook_secret is required when stripe_secret_key is set"))
	}
	if !c.StripeEnabled() && c.MockWebhookSecret == "" {
		errs = append(errs, errors.New("mock_webhook_secret is required without stripe"))
	}
	if c.SMTPEnabled() && c.SMTPFrom == "" {
		errs = append(errs, errors.New("smtp_from is required when smtp_host is set"))
	}
	if c.OutboxBatchSize <= 0 || c.OutboxMaxAttempts <= 0 || c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("outbox batch size, max attempts and poll interval must be positive"))
	}
	if c.IdempotencyCleanupInterval <= 0 || c.IdempotencyCleanupBatchSize <= 0 {
		errs = append(errs, errors.New("idempotency cleanup interval and batch size must be positive"))
	}
	if c.SettlementLedgerTTL <= 0 || c.SettlementProcessingLease <= 0 {
		errs = append(errs, errors.New("settlement ledger ttl and processing lease must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
