package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/dineinclub/slipd/internal/printing"
	"github.com/dineinclub/slipd/pkg/event"
)

// Reprinter dispatches an order on demand.
type Reprinter interface {
	Reprint(ctx context.Context, orderID string) (printing.DispatchOutcome, error)
}

// PrintRequestSubscriber lets front-of-house services ask for a reprint
// over NATS instead of the HTTP surface.
type PrintRequestSubscriber struct {
	subscriber events.Subscriber
	engine     Reprinter
	logger     aqm.Logger
}

func NewPrintRequestSubscriber(subscriber events.Subscriber, engine Reprinter, logger aqm.Logger) *PrintRequestSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &PrintRequestSubscriber{
		subscriber: subscriber,
		engine:     engine,
		logger:     logger,
	}
}

func (s *PrintRequestSubscriber) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, event.PrintRequestsTopic, s.handleEvent); err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", event.PrintRequestsTopic, err)
	}
	s.logger.Info("print request subscriber started", "topic", event.PrintRequestsTopic)
	return nil
}

func (s *PrintRequestSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.PrintRequestedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("cannot unmarshal print request: %v", err)
		return nil
	}
	if evt.OrderID == "" {
		s.logger.Error("print request without order_id, ignoring")
		return nil
	}

	out, err := s.engine.Reprint(ctx, evt.OrderID)
	if err != nil {
		s.logger.Errorf("requested print for order %s failed: %v", evt.OrderID, err)
		return nil
	}
	if !out.FullSuccess() {
		s.logger.Error("requested print completed partially", "order_id", evt.OrderID)
	}
	return nil
}
