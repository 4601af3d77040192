// Package seeding creates demo orders shaped the way slipd expects them:
// orders keyed by string ID with receipt numbers, and order items carrying
// an optional kitchen number.
package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SeedOrders creates demo orders covering the main slip layouts: a dine-in
// cash order spread across two kitchens, a delivery order, and a takeaway
// order with an unassigned item. It returns the created order IDs.
func SeedOrders(ctx context.Context, db *mongo.Database) ([]string, error) {
	ordersCollection := db.Collection("orders")
	itemsCollection := db.Collection("order_items")

	now := time.Now().UTC()

	// Demo Scenario 1: dine-in family order, items split across two kitchens
	order1ID := uuid.NewString()
	order1 := bson.M{
		"_id":            order1ID,
		"receipt_no":     9001,
		"order_type":     "dine-in",
		"table_no":       "7",
		"payment_method": "cash",
		"payment_status": "pending",
		"created_at":     now.Add(-25 * time.Minute),
		"updated_at":     now.Add(-25 * time.Minute),
		"created_by":     "demo-seed",
		"updated_by":     "demo-seed",
	}
	items1 := []bson.M{
		demoItem(order1ID, "Veg Biryani", 2, 120.0, kitchen(1), now),
		demoItem(order1ID, "Paneer Butter Masala", 1, 180.0, kitchen(1), now),
		demoItem(order1ID, "Butter Naan", 4, 30.0, kitchen(2), now),
		demoItem(order1ID, "Mineral Water", 2, 20.0, nil, now),
	}

	// Demo Scenario 2: delivery order paid by card
	order2ID := uuid.NewString()
	order2 := bson.M{
		"_id":              order2ID,
		"receipt_no":       9002,
		"order_type":       "delivery",
		"payment_method":   "card",
		"payment_status":   "pending",
		"customer_name":    "Asha Rao",
		"customer_phone":   "98450 12345",
		"customer_address": "14 Lakeview Road, 2nd Cross",
		"created_at":       now.Add(-12 * time.Minute),
		"updated_at":       now.Add(-12 * time.Minute),
		"created_by":       "demo-seed",
		"updated_by":       "demo-seed",
	}
	items2 := []bson.M{
		demoItem(order2ID, "Chicken Biryani Family Pack", 1, 450.0, kitchen(1), now),
		demoItem(order2ID, "Raita", 2, 40.0, kitchen(1), now),
	}

	// Demo Scenario 3: small takeaway order, nothing routed to a kitchen
	order3ID := uuid.NewString()
	order3 := bson.M{
		"_id":            order3ID,
		"receipt_no":     9003,
		"order_type":     "takeaway",
		"payment_method": "cash",
		"payment_status": "pending",
		"created_at":     now.Add(-5 * time.Minute),
		"updated_at":     now.Add(-5 * time.Minute),
		"created_by":     "demo-seed",
		"updated_by":     "demo-seed",
	}
	items3 := []bson.M{
		demoItem(order3ID, "Masala Chai", 2, 25.0, nil, now),
		demoItem(order3ID, "Samosa", 4, 15.0, nil, now),
	}

	orders := []bson.M{order1, order2, order3}
	itemSets := [][]bson.M{items1, items2, items3}

	for i, order := range orders {
		id := order["_id"]
		_, err := ordersCollection.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$setOnInsert": order}, options.Update().SetUpsert(true))
		if err != nil {
			return nil, fmt.Errorf("cannot create demo order %v: %w", id, err)
		}
		for _, item := range itemSets[i] {
			_, err := itemsCollection.InsertOne(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("cannot create item for demo order %v: %w", id, err)
			}
		}
	}

	return []string{order1ID, order2ID, order3ID}, nil
}

func demoItem(orderID, name string, qty int, price float64, kitchenNo *int, now time.Time) bson.M {
	item := bson.M{
		"_id":        uuid.NewString(),
		"order_id":   orderID,
		"name":       name,
		"quantity":   qty,
		"price":      price,
		"created_at": now,
		"updated_at": now,
		"created_by": "demo-seed",
		"updated_by": "demo-seed",
	}
	if kitchenNo != nil {
		item["kitchen_no"] = *kitchenNo
	}
	return item
}

func kitchen(n int) *int {
	return &n
}
