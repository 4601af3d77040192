package printing

import (
	"context"
	"errors"
	"sync"
)

// MockOrderStore is a test mock for OrderStore
type MockOrderStore struct {
	orders        map[string]*Order
	items         map[string][]LineItem
	FindOrderFunc func(ctx context.Context, id string) (*Order, error)
	ListItemsFunc func(ctx context.Context, orderID string) ([]LineItem, error)
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[string]*Order),
		items:  make(map[string][]LineItem),
	}
}

func (m *MockOrderStore) AddOrder(o *Order, items []LineItem) {
	m.orders[o.ID] = o
	m.items[o.ID] = items
}

func (m *MockOrderStore) FindOrder(ctx context.Context, id string) (*Order, error) {
	if m.FindOrderFunc != nil {
		return m.FindOrderFunc(ctx, id)
	}
	return m.orders[id], nil
}

func (m *MockOrderStore) ListItems(ctx context.Context, orderID string) ([]LineItem, error) {
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, orderID)
	}
	return m.items[orderID], nil
}

// MockSink records every send and lets tests fail selected printers.
type MockSink struct {
	mu       sync.Mutex
	sends    []SinkCall
	FailFor  map[string]bool
	SendFunc func(ctx context.Context, data []byte, printer string) error
}

type SinkCall struct {
	Printer string
	Data    []byte
}

func NewMockSink() *MockSink {
	return &MockSink{FailFor: make(map[string]bool)}
}

func (m *MockSink) Send(ctx context.Context, data []byte, printer string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, data, printer)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFor[printer] {
		return errors.New("printer unreachable")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sends = append(m.sends, SinkCall{Printer: printer, Data: cp})
	return nil
}

func (m *MockSink) Sends() []SinkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SinkCall(nil), m.sends...)
}

func (m *MockSink) Printers() []string {
	return []string{"counter", "hot-kitchen", "tandoor"}
}

// MockPublisher captures published events.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMsg
	PubFunc  func(ctx context.Context, topic string, msg []byte) error
}

type PublishedMsg struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PubFunc != nil {
		return m.PubFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(msg))
	copy(cp, msg)
	m.messages = append(m.messages, PublishedMsg{Topic: topic, Data: cp})
	return nil
}

func (m *MockPublisher) Messages() []PublishedMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMsg(nil), m.messages...)
}

func intPtr(n int) *int { return &n }
