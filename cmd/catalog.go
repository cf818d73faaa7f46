package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance commands",
	Long:  `Pull the supplier price list or recompute sell prices from the current margins`,
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync vouchers from the supplier price list",
	Run: func(cmd *cobra.Command, args []string) {
		runCatalogCommand("sync")
	},
}

var catalogRecalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recalculate sell prices for every active voucher",
	Run: func(cmd *cobra.Command, args []string) {
		runCatalogCommand("recalculate")
	},
}

func runCatalogCommand(action string) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch action {
	case "sync":
		res, err := app.Catalog.Sync(ctx)
		if err != nil {
			logger.Error("catalog sync failed", "error", err)
			return
		}
		for _, itemErr := range res.Errors {
			logger.Warn("catalog item skipped", "sku", itemErr.SKU, "error", itemErr.Error)
		}
		logger.Info("catalog sync finished", "processed", res.Processed, "failed", res.Failed)
	case "recalculate":
		res, err := app.Catalog.RecalculatePrices(ctx)
		if err != nil {
			logger.Error("price recalculation failed", "error", err)
			return
		}
		logger.Info("price recalculation finished", "updated", res.Updated)
	}
}

func init() {
	catalogCmd.AddCommand(catalogSyncCmd)
	catalogCmd.AddCommand(catalogRecalculateCmd)

	rootCmd.AddCommand(catalogCmd)
}
