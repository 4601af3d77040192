package event

import "time"

const (
	// PrintOutcomesTopic carries the result of every dispatch attempt.
	PrintOutcomesTopic = "print.outcomes"
	// PrintRequestsTopic lets other services ask for a reprint.
	PrintRequestsTopic = "print.requests"

	EventPrintCompleted = "print.completed"
	EventPrintFailed    = "print.failed"
	EventPrintRequested = "print.requested"
)

// PrintOutcomeEvent is published after each dispatch attempt. Front-of-house
// terminals chime on completed events carrying the alert flag.
type PrintOutcomeEvent struct {
	EventType  string    `json:"event_type"`
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderID    string    `json:"order_id"`
	ReceiptNo  int       `json:"receipt_no"`
	Kitchens   []string  `json:"kitchens"`
	Printed    []string  `json:"printed"`
	Failed     []string  `json:"failed,omitempty"`
	Alert      bool      `json:"alert,omitempty"`
}

// PrintRequestedEvent asks the dispatch service to reprint an order.
type PrintRequestedEvent struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}
