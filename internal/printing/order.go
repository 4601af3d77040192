package printing

import (
	"strings"
	"time"
)

// Order is a snapshot of an order as fetched from the order store. It is
// never mutated during a dispatch attempt.
type Order struct {
	ID            string    `bson:"_id" json:"id"`
	ReceiptNo     int       `bson:"receipt_no" json:"receipt_no"`
	Type          string    `bson:"order_type" json:"order_type"`
	TableNo       string    `bson:"table_no,omitempty" json:"table_no,omitempty"`
	PaymentMethod string    `bson:"payment_method" json:"payment_method"`
	PaymentStatus string    `bson:"payment_status" json:"payment_status"`
	CustomerName  string    `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerPhone string    `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	CustomerAddr  string    `bson:"customer_address,omitempty" json:"customer_address,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

func (o *Order) IsDelivery() bool {
	return strings.EqualFold(o.Type, "delivery")
}

func (o *Order) IsCash() bool {
	return strings.EqualFold(o.PaymentMethod, "cash")
}

// LineItem is one ordered dish. KitchenNo routes the item to a kitchen;
// nil means the item belongs to the unassigned partition.
type LineItem struct {
	OrderID   string  `bson:"order_id" json:"order_id"`
	Name      string  `bson:"name" json:"name"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	KitchenNo *int    `bson:"kitchen_no,omitempty" json:"kitchen_no,omitempty"`
}

// Amount is the extended price of the line.
func (li LineItem) Amount() float64 {
	return li.Price * float64(li.Quantity)
}

func (li LineItem) Key() PartitionKey {
	if li.KitchenNo == nil {
		return Unassigned
	}
	return PartitionKey(*li.KitchenNo)
}

// Subtotal sums the extended prices of items.
func Subtotal(items []LineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.Amount()
	}
	return total
}
