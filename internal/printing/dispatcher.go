package printing

import (
	"context"
	"errors"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/dineinclub/slipd/internal/escpos"
)

// Sink delivers an encoded slip to a named printer. Implementations own
// the physical transport.
type Sink interface {
	Send(ctx context.Context, data []byte, printer string) error
}

// slipDelay spaces consecutive sends so a slow device buffer is not
// overwhelmed by a multi-kitchen order.
const slipDelay = 500 * time.Millisecond

// DispatchOutcome is the per-order result of one dispatch attempt.
type DispatchOutcome struct {
	Attempted []PartitionKey
	Succeeded []PartitionKey
}

// FullSuccess reports whether every attempted partition printed.
func (o DispatchOutcome) FullSuccess() bool {
	return len(o.Succeeded) == len(o.Attempted)
}

// Failed returns the partitions that were attempted but did not print.
func (o DispatchOutcome) Failed() []PartitionKey {
	ok := make(map[PartitionKey]bool, len(o.Succeeded))
	for _, k := range o.Succeeded {
		ok[k] = true
	}
	var failed []PartitionKey
	for _, k := range o.Attempted {
		if !ok[k] {
			failed = append(failed, k)
		}
	}
	return failed
}

// Dispatcher prints one slip per partition of an order. A failed partition
// never blocks the remaining ones; the caller decides what to do with a
// partial outcome.
type Dispatcher struct {
	builder SlipBuilder
	routes  *PrinterRoutes
	sink    Sink
	drawer  bool
	delay   time.Duration
	logger  aqm.Logger
}

func NewDispatcher(shop ShopInfo, routes *PrinterRoutes, sink Sink, drawer bool, logger aqm.Logger) *Dispatcher {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Dispatcher{
		builder: SlipBuilder{Shop: shop},
		routes:  routes,
		sink:    sink,
		drawer:  drawer,
		delay:   slipDelay,
		logger:  logger,
	}
}

// Dispatch builds, encodes and sends one slip per partition, in partition
// order. The cash drawer pulses at most once per order, on the first slip.
// An order with no items is a valid empty dispatch. The only error is a nil
// order; partition-level send failures are folded into the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, o *Order, items []LineItem) (DispatchOutcome, error) {
	if o == nil {
		return DispatchOutcome{}, errors.New("cannot dispatch a nil order")
	}

	parts := Partitions(items)
	out := DispatchOutcome{}
	for i, p := range parts {
		openDrawer := d.drawer && o.IsCash() && i == 0
		doc := d.builder.BuildSlip(o, items, p.Key, p.Items, i+1, len(parts), openDrawer)
		data := escpos.Encode(doc)
		printer := d.routes.Resolve(p.Key)

		out.Attempted = append(out.Attempted, p.Key)
		if err := d.sink.Send(ctx, data, printer); err != nil {
			d.logger.Errorf("cannot print order %s slip %s on %s: %v", o.ID, p.Key.Label(), printer, err)
		} else {
			out.Succeeded = append(out.Succeeded, p.Key)
			d.logger.Info("printed slip", "order_id", o.ID, "kitchen", p.Key.Label(), "printer", printer)
		}

		if i < len(parts)-1 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				// Abandoned mid-order on shutdown; the retry-all policy
				// tolerates the slips already sent.
				return out, ctx.Err()
			}
		}
	}
	return out, nil
}
