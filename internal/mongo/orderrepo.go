package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dineinclub/slipd/internal/printing"
)

// OrderRepo reads orders and line items from MongoDB and exposes the order
// collection's change feed. The web ordering frontend owns the write side;
// this service only watches and reads.
type OrderRepo struct {
	client *mongo.Client
	db     *mongo.Database
	orders *mongo.Collection
	items  *mongo.Collection

	triggerField string
	triggerValue string

	logger aqm.Logger
	config *aqm.Config
}

func NewOrderRepo(config *aqm.Config, triggerField, triggerValue string, logger aqm.Logger) *OrderRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &OrderRepo{
		triggerField: triggerField,
		triggerValue: triggerValue,
		logger:       logger,
		config:       config,
	}
}

func (r *OrderRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "slipd"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.orders = r.db.Collection("orders")
	r.items = r.db.Collection("order_items")

	pollIndex := mongo.IndexModel{
		Keys: bson.D{{Key: r.triggerField, Value: 1}, {Key: "updated_at", Value: 1}},
	}
	if _, err := r.orders.Indexes().CreateOne(ctx, pollIndex); err != nil {
		return fmt.Errorf("cannot create %s index: %w", r.triggerField, err)
	}

	itemIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}},
	}
	if _, err := r.items.Indexes().CreateOne(ctx, itemIndex); err != nil {
		return fmt.Errorf("cannot create order_id index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s", mongoURL, dbName)
	return nil
}

func (r *OrderRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// FindOrder returns nil, nil when the order does not exist.
func (r *OrderRepo) FindOrder(ctx context.Context, id string) (*printing.Order, error) {
	var o printing.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) ListItems(ctx context.Context, orderID string) ([]printing.LineItem, error) {
	cursor, err := r.items.Find(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return nil, fmt.Errorf("cannot find order items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []printing.LineItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("cannot decode order items: %w", err)
	}
	return items, nil
}

// Watch opens a change stream over inserts and updates on the order
// collection and converts each event into a change record. The channel
// closes when the stream ends or ctx is cancelled. Change streams need a
// replica set; on a standalone deployment Watch fails and the caller falls
// back to polling.
func (r *OrderRepo) Watch(ctx context.Context) (<-chan printing.ChangeRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update"}}}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	stream, err := r.orders.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot watch orders: %w", err)
	}

	ch := make(chan printing.ChangeRecord)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			rec, ok := r.decodeChange(stream.Current)
			if !ok {
				continue
			}
			select {
			case ch <- rec:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			r.logger.Errorf("order change stream ended: %v", err)
		}
	}()
	return ch, nil
}

func (r *OrderRepo) decodeChange(raw bson.Raw) (printing.ChangeRecord, bool) {
	var ev struct {
		OperationType string `bson:"operationType"`
		DocumentKey   struct {
			ID string `bson:"_id"`
		} `bson:"documentKey"`
		FullDocument bson.M `bson:"fullDocument"`
		BeforeChange bson.M `bson:"fullDocumentBeforeChange"`
	}
	if err := bson.Unmarshal(raw, &ev); err != nil {
		r.logger.Errorf("cannot decode change event: %v", err)
		return printing.ChangeRecord{}, false
	}
	if ev.DocumentKey.ID == "" {
		return printing.ChangeRecord{}, false
	}

	rec := printing.ChangeRecord{
		OrderID: ev.DocumentKey.ID,
		Status:  stringField(ev.FullDocument, r.triggerField),
	}
	if ev.OperationType == "insert" {
		rec.Kind = printing.ChangeInserted
	} else {
		rec.Kind = printing.ChangeUpdated
		// Empty when the collection has no pre-images enabled; the dedup
		// ledger then carries the re-trigger protection alone.
		rec.PrevStatus = stringField(ev.BeforeChange, r.triggerField)
	}
	return rec, true
}

// ChangedSince is the polling fallback: orders already carrying the trigger
// value whose updated_at is after since.
func (r *OrderRepo) ChangedSince(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error) {
	filter := bson.M{
		r.triggerField: r.triggerValue,
		"updated_at":   bson.M{"$gt": since},
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "updated_at", Value: 1}})

	cursor, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot query changed orders: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []printing.ChangeRecord
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("cannot decode changed order: %w", err)
		}
		recs = append(recs, printing.ChangeRecord{
			Kind:    printing.ChangePolled,
			OrderID: doc.ID,
			Status:  r.triggerValue,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate changed orders: %w", err)
	}
	return recs, nil
}

func stringField(doc bson.M, field string) string {
	if doc == nil {
		return ""
	}
	s, _ := doc[field].(string)
	return s
}
