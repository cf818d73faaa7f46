package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/voucher-store/internal/admin"
	"github.com/frahmantamala/voucher-store/internal/auth"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	"github.com/frahmantamala/voucher-store/internal/payment"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	"github.com/frahmantamala/voucher-store/internal/transaction"
	"github.com/frahmantamala/voucher-store/internal/transport"
	"github.com/frahmantamala/voucher-store/internal/transport/rest"
	"github.com/frahmantamala/voucher-store/internal/user"
)

var withScheduler bool

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, logger, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	router, err := setupRoutes(app)
	if err != nil {
		logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	if withScheduler || cfg.Scheduler.Enabled {
		s, err := app.Scheduler()
		if err != nil {
			logger.Error("failed to set up scheduler", "error", err)
			os.Exit(1)
		}
		s.Start()
		defer stopScheduler(s.Stop, logger)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("starting http server", "address", addr, "env", cfg.App.Env, "fulfillment_mode", cfg.Fulfillment.Mode)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			return
		}
	}

	logger.Info("server stopped")
}

func setupRoutes(app *App) (*chi.Mux, error) {
	cfg := app.Config
	base := transport.NewBaseHandler(app.Logger)

	openAPI, err := rest.LoadOpenAPI(context.Background(), cfg.Server.OpenAPIPath)
	if err != nil {
		return nil, err
	}
	app.Logger.Info("openapi document loaded", "title", openAPI.Title(), "version", openAPI.Version(), "paths", openAPI.PathCount())

	var redisClient redis.UniversalClient
	if app.Redis != nil {
		redisClient = app.Redis
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins}, rest.Handlers{
		Auth:        auth.NewHandler(base, app.Auth),
		User:        user.NewHandler(base, app.Users),
		Catalog:     catalog.NewHandler(base, app.Catalog),
		Transaction: transaction.NewHandler(base, app.Transactions),
		Payment:     payment.NewHandler(base, app.Payments, app.Reconciler),
		Webhook:     payment.NewWebhookHandler(base, app.Reconciler, cfg.Payment.WebhookSecret, cfg.IsProduction()),
		Receipt:     receipt.NewHandler(base, app.Receipts),
		Admin:       admin.NewHandler(base, app.Admin),
		Health:      rest.NewHealthHandler(app.DB.SQL, redisClient),
		OpenAPI:     openAPI,
	}, app.Logger)

	return router, nil
}

func stopScheduler(stop func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}
}

func init() {
	httpServerCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "Run the cron jobs inside the server process")
}
