package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aquamarinepk/aqm"

	"github.com/dineinclub/slipd/cmd/utils/internal/commands"
)

const (
	appName      = "slipd-utils"
	appVersion   = "0.1.0"
	appNamespace = "UTILS"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	rest := os.Args[2:]

	var orderID string
	if command == "mark-paid" {
		if len(rest) < 1 {
			fmt.Println("mark-paid requires an order ID")
			printUsage()
			os.Exit(1)
		}
		orderID = rest[0]
		rest = rest[1:]
	}

	config, err := aqm.LoadConfig(appNamespace, rest)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo seeding completed successfully")

	case "mark-paid":
		if err := commands.MarkPaid(ctx, config, logger, orderID); err != nil {
			log.Fatalf("Mark paid failed: %v", err)
		}
		logger.Info("Order marked as paid", "order_id", orderID)

	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("Clear demo data failed: %v", err)
		}
		logger.Info("Demo data cleared successfully")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("Database reset completed successfully")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Slipd utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo             Create demo orders with items spread across kitchens
  mark-paid <order-id>  Set an order's payment status to paid, which makes
                        a running slipd instance print it
  clear-demo            Remove the demo orders and their items
  reset-db              Drop the slipd database - USE WITH CAUTION
  version               Print version information
  help                  Show this help message

Environment Variables:
  UTILS_MONGO_URL    MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_MONGO_NAME   Database name (default: slipd)
  UTILS_LOG_LEVEL    Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  %s mark-paid 7f3c2e90-demo
  UTILS_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
