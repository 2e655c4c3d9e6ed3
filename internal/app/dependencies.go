package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/cache"
	"github.com/AdanSoria/Project-Shop/internal/domain"
	healthcheck "github.com/AdanSoria/Project-Shop/internal/health"
	"github.com/AdanSoria/Project-Shop/internal/notification"
	"github.com/AdanSoria/Project-Shop/internal/service/payment"
	"github.com/AdanSoria/Project-Shop/internal/storage/memory"
	"github.com/AdanSoria/Project-Shop/internal/storage/mongo"
	"github.com/AdanSoria/Project-Shop/internal/storage/postgres"
	"github.com/AdanSoria/Project-Shop/internal/storage/seed"
)

// Dependencies содержит хранилища и внешние адаптеры приложения.
type Dependencies struct {
	Carts domain.CartRepository
	// CartStore читает корзины мимо кэша. Записи через него тоже сбрасывают кэш.
	CartStore domain.CartRepository
	Products  domain.ProductRepository
	Users     domain.UserRepository
	Orders    domain.OrderRepository
	Ledger    domain.IdempotencyRepository
	Outbox    domain.OutboxRepository

	Provider domain.PaymentProvider
	Notifier domain.Notifier

	checks  []dependencyCheck
	closers []func(context.Context) error
	logger  *log.Entry
}

type dependencyCheck struct {
	name     string
	checker  healthcheck.Checker
	critical bool
}

// NewDependencies подключает хранилище выбранного драйвера, кэш, фикстуры
// и адаптеры оплаты и почты. При ошибке уже открытые ресурсы закрываются.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (_ *Dependencies, err error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	d := &Dependencies{logger: logger}
	defer func() {
		if err != nil {
			d.Close(context.Background())
		}
	}()

	if err := d.initStorage(ctx, cfg); err != nil {
		return nil, err
	}
	d.CartStore = d.Carts
	d.initCartCache(ctx, cfg)

	if err := d.seed(ctx, cfg); err != nil {
		return nil, err
	}

	if d.Provider, err = newPaymentProvider(cfg, logger); err != nil {
		return nil, err
	}
	if d.Notifier, err = newNotifier(cfg, logger); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg Config) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		d.Carts = memory.NewCartRepository()
		d.Products = memory.NewProductRepository()
		d.Users = memory.NewUserRepository()
		d.Orders = memory.NewOrderRepository()
		d.Ledger = memory.NewIdempotencyRepository()
		d.Outbox = memory.NewOutboxRepository()
		d.logger.Warn("using in-memory storage, data is lost on restart")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres storage requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init postgres storage: %w", err)
		}
		d.closers = append(d.closers, func(context.Context) error { return store.Close() })
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}

		d.Carts = postgres.NewCartRepository(store)
		d.Products = postgres.NewProductRepository(store)
		d.Users = postgres.NewUserRepository(store)
		d.Orders = postgres.NewOrderRepository(store)
		d.Ledger = postgres.NewIdempotencyRepository(store)
		d.Outbox = postgres.NewOutboxRepository(store)
		d.checks = append(d.checks, dependencyCheck{name: "postgres", checker: healthcheck.NewPingChecker("postgres", store), critical: true})
		d.logger.Info("postgres storage initialized")
		return nil

	case StorageDriverMongo:
		if cfg.MongoURI == "" {
			return errors.New("mongo storage requires a URI")
		}
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("init mongo storage: %w", err)
		}
		d.closers = append(d.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure mongo indexes: %w", err)
		}

		d.Carts = mongo.NewCartRepository(store)
		d.Products = mongo.NewProductRepository(store)
		d.Users = mongo.NewUserRepository(store)
		d.Orders = mongo.NewOrderRepository(store)
		d.Ledger = mongo.NewIdempotencyRepository(store)
		d.Outbox = mongo.NewOutboxRepository(store)
		d.checks = append(d.checks, dependencyCheck{name: "mongo", checker: healthcheck.NewPingChecker("mongo", store), critical: true})
		d.logger.WithField("database", cfg.MongoDatabase).Info("mongo storage initialized")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// initCartCache оборачивает корзины Redis-кэшем. Недоступный Redis не мешает
// запуску: корзины читаются напрямую из хранилища.
func (d *Dependencies) initCartCache(ctx context.Context, cfg Config) {
	if cfg.RedisAddr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		d.logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, cart cache disabled")
		_ = client.Close()
		return
	}

	cached := cache.NewCartRepository(d.Carts, cache.NewRedisCache(client), d.logger)
	d.Carts = cached
	d.CartStore = cached.Direct()
	d.closers = append(d.closers, func(context.Context) error { return client.Close() })
	d.checks = append(d.checks, dependencyCheck{
		name: "redis",
		checker: healthcheck.NewFuncChecker("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}),
	})
	d.logger.WithField("addr", cfg.RedisAddr).Info("cart cache enabled")
}

func (d *Dependencies) seed(ctx context.Context, cfg Config) error {
	var (
		fixtures seed.Fixtures
		err      error
	)
	switch {
	case cfg.SeedFile != "":
		fixtures, err = seed.LoadFile(cfg.SeedFile)
	case cfg.SeedDemo:
		fixtures, err = seed.Default()
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	if err := fixtures.Apply(ctx, d.Products, d.Users); err != nil {
		return fmt.Errorf("apply fixtures: %w", err)
	}
	d.logger.WithFields(log.Fields{
		"products": len(fixtures.Products),
		"users":    len(fixtures.Users),
	}).Info("fixtures applied")
	return nil
}

func newPaymentProvider(cfg Config, logger *log.Entry) (domain.PaymentProvider, error) {
	if !cfg.StripeEnabled() {
		logger.Warn("stripe is not configured, using mock payment provider")
		return payment.NewMockProvider(cfg.MockWebhookSecret), nil
	}

	provider, err := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("init stripe provider: %w", err)
	}
	return provider, nil
}

func newNotifier(cfg Config, logger *log.Entry) (domain.Notifier, error) {
	if !cfg.SMTPEnabled() {
		return notification.NewLogNotifier(logger), nil
	}

	notifier, err := notification.NewSMTPNotifier(notification.SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.SMTPFrom,
		FrontendURL: cfg.FrontendURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init smtp notifier: %w", err)
	}
	return notifier, nil
}

// RegisterHealth добавляет проверки подключённых зависимостей.
func (d *Dependencies) RegisterHealth(h *healthcheck.Handler) {
	for _, c := range d.checks {
		if c.critical {
			h.RegisterChecker(c.name, c.checker)
		} else {
			h.RegisterOptional(c.name, c.checker)
		}
	}
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *Dependencies) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
