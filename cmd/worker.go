package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/voucher-store/internal/fulfillment"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the fulfillment queue consumer or the cron scheduler.`,
}

var fulfillmentWorkerCmd = &cobra.Command{
	Use:   "fulfillment",
	Short: "Start the fulfillment queue consumer",
	Long:  `Consume fulfillment tasks enqueued when payments are confirmed (fulfillment mode "queue")`,
	Run: func(cmd *cobra.Command, args []string) {
		startFulfillmentWorker()
	},
}

var schedulerWorkerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the cron scheduler",
	Long:  `Run catalog sync, pending payment sweep and in-flight fulfillment sweep on their cron specs`,
	Run: func(cmd *cobra.Command, args []string) {
		startSchedulerWorker()
	},
}

var workerConcurrency int

func startFulfillmentWorker() {
	cfg, logger, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		fmt.Fprintln(os.Stderr, "fulfillment worker requires redis.addr")
		os.Exit(1)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	concurrency := getIntFlag(workerConcurrency, cfg.Fulfillment.Workers)
	srv := asynq.NewServer(app.asynqRedisOpt(), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			fulfillment.QueueCritical: 6,
			"default":                 1,
		},
		Logger:   asynqLogger{logger: logger},
		LogLevel: asynq.InfoLevel,
	})

	mux := fulfillment.NewServeMux(fulfillment.NewTaskHandler(app.Fulfillment, logger))

	logger.Info("starting fulfillment worker", "concurrency", concurrency, "redis", cfg.Redis.Addr)
	// Run blocks until SIGTERM or SIGINT
	if err := srv.Run(mux); err != nil {
		logger.Error("fulfillment worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("fulfillment worker shutdown complete")
}

func startSchedulerWorker() {
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

	s, err := app.Scheduler()
	if err != nil {
		logger.Error("failed to set up scheduler", "error", err)
		os.Exit(1)
	}
	s.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("scheduler is running. Press Ctrl+C to stop.", "jobs", s.Jobs())

	sig := <-sigChan
	logger.Info("received signal, shutting down scheduler", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	fulfillmentWorkerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Number of concurrent fulfillment tasks (overrides config)")

	workerCmd.AddCommand(fulfillmentWorkerCmd)
	workerCmd.AddCommand(schedulerWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
