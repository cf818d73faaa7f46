package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/admin"
	adminPostgres "github.com/frahmantamala/voucher-store/internal/admin/postgres"
	"github.com/frahmantamala/voucher-store/internal/auth"
	authPostgres "github.com/frahmantamala/voucher-store/internal/auth/postgres"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	catalogPostgres "github.com/frahmantamala/voucher-store/internal/catalog/postgres"
	"github.com/frahmantamala/voucher-store/internal/core/events"
	"github.com/frahmantamala/voucher-store/internal/fulfillment"
	fulfillmentPostgres "github.com/frahmantamala/voucher-store/internal/fulfillment/postgres"
	"github.com/frahmantamala/voucher-store/internal/payment"
	paymentPostgres "github.com/frahmantamala/voucher-store/internal/payment/postgres"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
	"github.com/frahmantamala/voucher-store/internal/pricing"
	pricingPostgres "github.com/frahmantamala/voucher-store/internal/pricing/postgres"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	receiptPostgres "github.com/frahmantamala/voucher-store/internal/receipt/postgres"
	"github.com/frahmantamala/voucher-store/internal/scheduler"
	"github.com/frahmantamala/voucher-store/internal/supplier"
	"github.com/frahmantamala/voucher-store/internal/transaction"
	transactionPostgres "github.com/frahmantamala/voucher-store/internal/transaction/postgres"
	"github.com/frahmantamala/voucher-store/internal/user"
	userPostgres "github.com/frahmantamala/voucher-store/internal/user/postgres"
)

// App holds the wired services shared by the server, worker and operator commands.
type App struct {
	Config   *internal.Config
	DB       *Database
	Redis    *redis.Client
	EventBus *events.EventBus
	Logger   *slog.Logger

	Supplier     *supplier.Client
	Gateway      *paymentgateway.Client
	Pricing      *pricing.Service
	Catalog      *catalog.Service
	Receipts     *receipt.Service
	Transactions *transaction.Service
	Payments     *payment.Service
	Reconciler   *payment.Reconciler
	Fulfillment  *fulfillment.Service
	Dispatcher   fulfillment.Dispatcher
	Auth         *auth.Service
	Users        *user.Service
	Admin        *admin.Service

	closers []func()
}

func newApp(cfg *internal.Config, logger *slog.Logger) (*App, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:   cfg,
		DB:       db,
		EventBus: events.NewEventBus(logger),
		Logger:   logger,
	}
	app.closers = append(app.closers, func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	})

	var cache catalog.Cache
	if cfg.Redis.Addr != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, func() { _ = app.Redis.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr := app.Redis.Ping(ctx).Err()
		cancel()
		if pingErr != nil {
			logger.Warn("redis unreachable, catalog cache disabled", "addr", cfg.Redis.Addr, "error", pingErr)
		} else {
			cache = catalog.NewRedisCache(app.Redis, cfg.Redis.CacheTTL, logger)
		}
	}

	app.Supplier = supplier.NewClient(supplier.Config{
		BaseURL:  cfg.Supplier.BaseURL,
		Username: cfg.Supplier.Username,
		APIKey:   cfg.Supplier.APIKey,
		Timeout:  cfg.Supplier.Timeout,
	}, logger)
	app.Gateway = paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:       cfg.Payment.BaseURL,
		APIKey:        cfg.Payment.APIKey,
		MerchantID:    cfg.Payment.MerchantID,
		CallbackURL:   cfg.Payment.CallbackURL,
		ExpiryMinutes: cfg.Payment.ExpiryMinutes,
		Timeout:       cfg.Payment.Timeout,
	}, logger)

	catalogRepo := catalogPostgres.NewCatalogRepository(db.Gorm)
	transactionRepo := transactionPostgres.NewTransactionRepository(db.Gorm)
	paymentRepo := paymentPostgres.NewPaymentRepository(db.Gorm)

	app.Pricing = pricing.NewService(pricingPostgres.NewMarginRepository(db.Gorm), logger)
	app.Catalog = catalog.NewService(catalogRepo, app.Supplier, app.Pricing, cache, app.EventBus, logger)
	app.Receipts = receipt.NewService(receiptPostgres.NewReceiptRepository(db.Gorm), cfg.App.MerchantName, logger)
	app.Transactions = transaction.NewService(transactionRepo, catalogRepo, paymentRepo, app.Supplier, app.Receipts, transaction.Config{
		RefPrefix: cfg.Supplier.RefPrefix,
		AdminFee:  cfg.App.AdminFee,
	}, logger)
	app.Payments = payment.NewService(paymentRepo, transactionRepo, app.Gateway, cfg.Payment.ExpiryMinutes, logger)
	app.Reconciler = payment.NewReconciler(paymentRepo, transactionRepo, app.Gateway, app.EventBus, logger)
	app.Fulfillment = fulfillment.NewService(transactionRepo, fulfillmentPostgres.NewAttemptRepository(db.Gorm), app.Supplier, app.Receipts, logger)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	app.Auth = auth.NewService(authPostgres.NewRepository(db.Gorm), tokens, cfg.Security.BCryptCost, logger)
	app.Users = user.NewService(userPostgres.NewUserRepository(db.Gorm), logger)
	app.Admin = admin.NewService(adminPostgres.NewDashboardRepository(db.SQLX), app.Transactions, app.Pricing, app.Catalog, logger)

	if err := app.initDispatcher(); err != nil {
		app.Close()
		return nil, err
	}

	fulfillment.NewEventHandler(app.Dispatcher, logger).RegisterEventHandlers(app.EventBus)
	catalog.NewEventHandler(cache, logger).RegisterEventHandlers(app.EventBus)

	return app, nil
}

// initDispatcher picks how payment.paid events reach the supplier.
func (a *App) initDispatcher() error {
	cfg := a.Config.Fulfillment
	switch cfg.Mode {
	case internal.FulfillmentModePool:
		pool := fulfillment.NewPool(a.Fulfillment, fulfillment.PoolConfig{
			Workers:   cfg.Workers,
			QueueSize: cfg.QueueSize,
		}, a.Logger)
		a.Dispatcher = pool
		a.closers = append(a.closers, pool.Shutdown)
	case internal.FulfillmentModeQueue:
		if a.Config.Redis.Addr == "" {
			return fmt.Errorf("fulfillment mode %q requires redis", cfg.Mode)
		}
		client := asynq.NewClient(a.asynqRedisOpt())
		a.Dispatcher = fulfillment.NewQueueDispatcher(client, cfg.MaxRetry, a.Logger)
		a.closers = append(a.closers, func() { _ = client.Close() })
	default:
		a.Dispatcher = a.Fulfillment
	}

	a.Logger.Info("fulfillment dispatcher ready", "mode", cfg.Mode)
	return nil
}

func (a *App) asynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

// Scheduler registers the periodic jobs from config.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Logger)
	jobs := scheduler.DefaultJobs(a.Config.Scheduler, scheduler.Dependencies{
		Catalog:      a.Catalog,
		Payments:     a.Reconciler,
		Transactions: a.Transactions,
	})
	for _, job := range jobs {
		if _, err := s.Register(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	a.EventBus.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
