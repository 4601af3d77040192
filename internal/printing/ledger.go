package printing

import "sync"

// DefaultLedgerCapacity bounds the dedup ledger. Kitchen print volume is
// low, so a couple hundred entries covers a full service.
const DefaultLedgerCapacity = 200

// Ledger remembers order IDs that have been dispatched in full, so a
// duplicate change event does not reprint an order. It lives only for the
// process lifetime and evicts its oldest entry once capacity is exceeded.
type Ledger struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	fifo     []string
	capacity int
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &Ledger{
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Contains reports whether orderID has already been fully dispatched.
func (l *Ledger) Contains(orderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[orderID]
	return ok
}

// Add records a fully dispatched order, evicting the oldest entry when the
// ledger is full. Adding an already-present ID is a no-op.
func (l *Ledger) Add(orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[orderID]; ok {
		return
	}
	l.seen[orderID] = struct{}{}
	l.fifo = append(l.fifo, orderID)
	if len(l.fifo) > l.capacity {
		oldest := l.fifo[0]
		l.fifo = l.fifo[1:]
		delete(l.seen, oldest)
	}
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
