package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/voucher-store/internal/core/events"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish domain events by hand, e.g. to re-drive fulfillment after a lost webhook`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish an event",
	Long:  `Publish payment.paid for a transaction (or catalog.changed) through the configured handlers`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishEvent(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var eventTransactionID int64

func publishEvent(eventType string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var event events.Event
	switch eventType {
	case events.EventTypePaymentPaid:
		if eventTransactionID <= 0 {
			return fmt.Errorf("--transaction-id is required for %s", eventType)
		}
		tx, err := app.Transactions.Get(ctx, eventTransactionID)
		if err != nil {
			return err
		}
		event = events.NewPaymentPaidEvent(tx.ID, tx.TransactionID, tx.TransactionID, tx.TotalAmount)
	case events.EventTypeCatalogChanged:
		event = events.NewCatalogChangedEvent("manual", 0)
	default:
		return fmt.Errorf("unsupported event type %q", eventType)
	}

	logger.Info("publishing event", "event_type", event.EventType(), "event_id", event.EventID(), "handlers", app.EventBus.HandlerCount(eventType))
	if err := app.EventBus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Info("event published successfully", "event_type", event.EventType())
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventTransactionID, "transaction-id", 0, "Transaction primary key for payment.paid")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
