package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// MarkPaid flips an order's payment status to paid and bumps updated_at.
// A running slipd instance picks the change up through its change stream
// or the next poll and prints the order.
func MarkPaid(ctx context.Context, config *aqm.Config, logger aqm.Logger, orderID string) error {
	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	ordersCollection := db.Collection("orders")
	result, err := ordersCollection.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{
			"payment_status": "paid",
			"updated_at":     time.Now().UTC(),
			"updated_by":     "slipd-utils",
		}},
	)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}

	return nil
}
