package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDemo removes the demo orders and order items from the slipd database.
func ClearDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	itemsCollection := db.Collection("order_items")
	itemsResult, err := itemsCollection.DeleteMany(ctx, bson.M{"created_by": "demo-seed"})
	if err != nil {
		return fmt.Errorf("delete demo order items: %w", err)
	}
	logger.Info("Deleted demo order items", "count", itemsResult.DeletedCount)

	ordersCollection := db.Collection("orders")
	ordersResult, err := ordersCollection.DeleteMany(ctx, bson.M{"created_by": "demo-seed"})
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", ordersResult.DeletedCount)

	// Clear seed tracker
	seedsCollection := db.Collection("_seeds")
	trackerResult, err := seedsCollection.DeleteOne(ctx, bson.M{"_id": seedID})
	if err != nil {
		return fmt.Errorf("delete seed tracker: %w", err)
	}
	logger.Info("Cleared seed tracker", "deleted", trackerResult.DeletedCount)

	return nil
}
