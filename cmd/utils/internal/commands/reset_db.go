package commands

import (
	"context"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ResetDB drops the slipd database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Infof("DANGER: This will drop the slipd database!")
	logger.Infof("This action cannot be undone!")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	logger.Info("Dropping database", "database", db.Name())
	result := db.RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	if result.Err() != nil {
		logger.Infof("Failed to drop database %s (may not exist): %v", db.Name(), result.Err())
		return nil
	}
	logger.Info("Database dropped", "database", db.Name())

	return nil
}
