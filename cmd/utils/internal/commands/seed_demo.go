package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dineinclub/slipd/cmd/utils/internal/seeding"
)

const seedID = "demo_orders_v1"

// SeedDemo creates demo orders in the slipd database. All orders start
// unpaid so a running slipd instance stays quiet until mark-paid is used.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	// Check if already seeded
	seedsCollection := db.Collection("_seeds")
	count, err := seedsCollection.CountDocuments(ctx, bson.M{"_id": seedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("Demo seeds already applied, skipping")
		return nil
	}

	orderIDs, err := seeding.SeedOrders(ctx, db)
	if err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}
	for _, id := range orderIDs {
		logger.Info("Seeded demo order", "order_id", id)
	}

	// Mark as seeded
	_, err = seedsCollection.InsertOne(ctx, bson.M{
		"_id":         seedID,
		"description": "Create demo orders with items spread across kitchens",
		"applied_at":  bson.M{"$currentDate": bson.M{"$type": "timestamp"}},
	})
	if err != nil {
		logger.Infof("Failed to mark seed as applied: %v", err)
	}

	logger.Info("Demo seeds applied successfully")
	return nil
}

func connect(ctx context.Context, config *aqm.Config) (*mongo.Client, *mongo.Database, error) {
	mongoURL, _ := config.GetString("mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}
	dbName := config.GetStringOrDef("mongo.name", "slipd")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, client.Database(dbName), nil
}
