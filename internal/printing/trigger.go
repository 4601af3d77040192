package printing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"

	"github.com/dineinclub/slipd/pkg/event"
)

// ErrOrderNotFound is returned when a print is requested for an order the
// store does not know.
var ErrOrderNotFound = errors.New("order not found")

// ChangeKind tells how a change record was produced.
type ChangeKind int

const (
	// ChangeInserted is a freshly created order seen on the push channel.
	ChangeInserted ChangeKind = iota
	// ChangeUpdated is an updated order seen on the push channel; it
	// carries the previous value of the trigger field when available.
	ChangeUpdated
	// ChangePolled is a record surfaced by the polling fallback, which
	// cannot observe the previous value.
	ChangePolled
)

// ChangeRecord is one raw order change delivered by the event source.
// Status and PrevStatus hold the watched trigger field, not the whole
// document.
type ChangeRecord struct {
	Kind       ChangeKind
	OrderID    string
	Status     string
	PrevStatus string
}

// OrderStore is the read side of the persistent order store.
type OrderStore interface {
	// FindOrder returns nil, nil when the order does not exist.
	FindOrder(ctx context.Context, id string) (*Order, error)
	ListItems(ctx context.Context, orderID string) ([]LineItem, error)
}

// TriggerDeps wires the collaborators of a TriggerEngine. Publisher may be
// nil when outcome events are not wanted.
type TriggerDeps struct {
	Store      OrderStore
	Dispatcher *Dispatcher
	Ledger     *Ledger
	Publisher  events.Publisher
}

// TriggerEngine decides whether an incoming change record should print and
// drives the dispatcher. An order moves to the dispatched state only on a
// fully successful dispatch; a partial failure leaves it eligible so the
// next qualifying event retries all slips.
type TriggerEngine struct {
	store        OrderStore
	dispatcher   *Dispatcher
	ledger       *Ledger
	publisher    events.Publisher
	triggerValue string
	alert        bool
	logger       aqm.Logger
}

func NewTriggerEngine(deps TriggerDeps, triggerValue string, alert bool, logger aqm.Logger) *TriggerEngine {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &TriggerEngine{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		ledger:       deps.Ledger,
		publisher:    deps.Publisher,
		triggerValue: triggerValue,
		alert:        alert,
		logger:       logger,
	}
}

// Handle filters one change record and dispatches the order when it
// qualifies. Errors are reported for logging but never fatal; the next
// qualifying event retries naturally.
func (e *TriggerEngine) Handle(ctx context.Context, rec ChangeRecord) error {
	if !e.qualifies(rec) {
		return nil
	}
	if e.ledger.Contains(rec.OrderID) {
		e.logger.Debug("order already printed, skipping", "order_id", rec.OrderID)
		return nil
	}
	_, err := e.printOrder(ctx, rec.OrderID)
	return err
}

// qualifies applies the trigger transition filter: the watched field must
// equal the trigger value, and an update must be a real transition into it.
func (e *TriggerEngine) qualifies(rec ChangeRecord) bool {
	if rec.Status != e.triggerValue {
		return false
	}
	if rec.Kind == ChangeUpdated && rec.PrevStatus == e.triggerValue {
		return false
	}
	return true
}

// Reprint dispatches an order on demand, bypassing the trigger filter and
// the ledger check. A fully successful reprint still records the order so a
// later trigger event does not print it again.
func (e *TriggerEngine) Reprint(ctx context.Context, orderID string) (DispatchOutcome, error) {
	return e.printOrder(ctx, orderID)
}

func (e *TriggerEngine) printOrder(ctx context.Context, orderID string) (DispatchOutcome, error) {
	o, err := e.store.FindOrder(ctx, orderID)
	if err != nil {
		e.logger.Errorf("cannot fetch order %s: %v", orderID, err)
		return DispatchOutcome{}, fmt.Errorf("cannot fetch order %s: %w", orderID, err)
	}
	if o == nil {
		e.logger.Errorf("order %s not found, skipping print", orderID)
		return DispatchOutcome{}, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}

	items, err := e.store.ListItems(ctx, orderID)
	if err != nil {
		e.logger.Errorf("cannot fetch items for order %s: %v", orderID, err)
		return DispatchOutcome{}, fmt.Errorf("cannot fetch items for order %s: %w", orderID, err)
	}

	out, err := e.dispatcher.Dispatch(ctx, o, items)
	if err != nil {
		return out, err
	}

	if out.FullSuccess() {
		e.ledger.Add(o.ID)
		e.publishOutcome(ctx, event.EventPrintCompleted, o, out)
	} else {
		e.logger.Error("order printed partially, will retry on next event",
			"order_id", o.ID, "failed", labels(out.Failed()))
		e.publishOutcome(ctx, event.EventPrintFailed, o, out)
	}
	return out, nil
}

func (e *TriggerEngine) publishOutcome(ctx context.Context, eventType string, o *Order, out DispatchOutcome) {
	if e.publisher == nil {
		return
	}
	payload := event.PrintOutcomeEvent{
		EventType:  eventType,
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		OrderID:    o.ID,
		ReceiptNo:  o.ReceiptNo,
		Kitchens:   labels(out.Attempted),
		Printed:    labels(out.Succeeded),
		Failed:     labels(out.Failed()),
		Alert:      e.alert && eventType == event.EventPrintCompleted,
	}
	data, _ := json.Marshal(payload)
	if err := e.publisher.Publish(ctx, event.PrintOutcomesTopic, data); err != nil {
		e.logger.Errorf("cannot publish %s for order %s: %v", eventType, o.ID, err)
	}
}

func labels(keys []PartitionKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Label())
	}
	return out
}
