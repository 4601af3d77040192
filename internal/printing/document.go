package printing

import (
	"fmt"
	"strings"

	"github.com/dineinclub/slipd/internal/escpos"
)

// Fixed column widths of the item table; together they fill the full
// printable line.
const (
	colName   = 21
	colQty    = 7
	colPrice  = 10
	colAmount = 10
)

// serviceChargeRate is applied to the full-order subtotal on every slip.
const serviceChargeRate = 0.02

// ShopInfo is the brand block rendered on top of every slip.
type ShopInfo struct {
	Name    string
	Address string
	Phone   string
}

// SlipBuilder turns an order and one of its partitions into a printable
// document. It performs no I/O and is deterministic for identical inputs,
// which keeps retried dispatches byte-identical on the wire.
type SlipBuilder struct {
	Shop ShopInfo
}

// BuildSlip renders the slip for one partition. allItems is the complete
// item set of the order: the totals block is computed over it and repeated
// on every slip, so each kitchen sees the full-order context. openDrawer
// appends a drawer pulse after the cut.
func (b SlipBuilder) BuildSlip(o *Order, allItems []LineItem, key PartitionKey, items []LineItem, slipIndex, totalSlips int, openDrawer bool) escpos.Document {
	doc := escpos.Document{}

	doc = append(doc,
		escpos.Align(escpos.AlignLeft),
		escpos.Columns(o.CreatedAt.Format("02/01/2006 15:04"), fmt.Sprintf("Receipt #%d", o.ReceiptNo)),
		escpos.Columns(strings.ToUpper(o.Type), strings.ToUpper(o.PaymentMethod)),
	)

	doc = append(doc, escpos.Align(escpos.AlignCenter), escpos.Bold(true), escpos.Size(escpos.SizeDoubleHeight))
	doc = append(doc, escpos.Text(b.Shop.Name))
	doc = append(doc, escpos.Size(escpos.SizeNormal), escpos.Bold(false))
	if b.Shop.Address != "" {
		doc = append(doc, escpos.Text(b.Shop.Address))
	}
	if b.Shop.Phone != "" {
		doc = append(doc, escpos.Text("Ph: "+b.Shop.Phone))
	}
	doc = append(doc, escpos.Align(escpos.AlignLeft), escpos.Rule('-'))

	doc = append(doc, escpos.Align(escpos.AlignCenter), escpos.Bold(true), escpos.Text(key.Label()))
	if totalSlips > 1 {
		doc = append(doc, escpos.Text(fmt.Sprintf("Slip %d of %d", slipIndex, totalSlips)))
	}
	doc = append(doc, escpos.Bold(false), escpos.Align(escpos.AlignLeft))

	if !o.IsDelivery() && o.TableNo != "" {
		doc = append(doc,
			escpos.Align(escpos.AlignCenter),
			escpos.Bold(true),
			escpos.Text("TABLE "+o.TableNo),
			escpos.Bold(false),
			escpos.Align(escpos.AlignLeft),
		)
	}

	doc = append(doc, b.customerBlock(o)...)

	doc = append(doc,
		escpos.Text(headerRow()),
		escpos.Rule('-'),
	)
	for _, li := range items {
		doc = append(doc, itemRows(li)...)
	}
	doc = append(doc, escpos.Text(""))

	if totalSlips > 1 {
		doc = append(doc, escpos.Columns("Subtotal ("+key.Label()+")", money(Subtotal(items))))
	}

	subtotal := Subtotal(allItems)
	charge := subtotal * serviceChargeRate
	doc = append(doc,
		escpos.Rule('-'),
		escpos.Columns("Subtotal", money(subtotal)),
		escpos.Columns("Service Charge 2%", money(charge)),
		escpos.Bold(true),
		escpos.Columns("TOTAL ("+strings.ToUpper(o.PaymentMethod)+")", money(subtotal+charge)),
		escpos.Bold(false),
		escpos.Rule('-'),
	)

	doc = append(doc,
		escpos.Align(escpos.AlignCenter),
		escpos.Text("Thank you, visit again!"),
	)
	if o.IsDelivery() {
		doc = append(doc, escpos.Bold(true), escpos.Text("** DELIVERY **"), escpos.Bold(false))
	}
	doc = append(doc, escpos.Align(escpos.AlignLeft), escpos.Feed(4), escpos.Cut())

	if openDrawer {
		doc = append(doc, escpos.Drawer())
	}
	return doc
}

func (b SlipBuilder) customerBlock(o *Order) escpos.Document {
	if o.CustomerName == "" && o.CustomerPhone == "" && o.CustomerAddr == "" {
		return nil
	}
	block := escpos.Document{}
	if o.CustomerName != "" {
		block = append(block, escpos.Text("Customer: "+o.CustomerName))
	}
	if o.CustomerPhone != "" {
		block = append(block, escpos.Text("Phone: "+o.CustomerPhone))
	}
	if o.CustomerAddr != "" {
		block = append(block, escpos.Text("Address: "+o.CustomerAddr))
	}
	return block
}

func headerRow() string {
	return escpos.Col("Item", colName, escpos.AlignLeft) +
		escpos.Col("Qty", colQty, escpos.AlignRight) +
		escpos.Col("Price", colPrice, escpos.AlignRight) +
		escpos.Col("Amount", colAmount, escpos.AlignRight)
}

// itemRows renders one line item. A name longer than its column spills onto
// a continuation line so nothing the kitchen needs is silently cut off.
func itemRows(li LineItem) escpos.Document {
	name := li.Name
	overflow := ""
	if len(name) > colName {
		overflow = strings.TrimSpace(name[colName:])
		name = name[:colName]
	}
	rows := escpos.Document{escpos.Text(
		escpos.Col(name, colName, escpos.AlignLeft) +
			escpos.Col(fmt.Sprintf("%d", li.Quantity), colQty, escpos.AlignRight) +
			escpos.Col(money(li.Price), colPrice, escpos.AlignRight) +
			escpos.Col(money(li.Amount()), colAmount, escpos.AlignRight),
	)}
	if overflow != "" {
		rows = append(rows, escpos.Text("  "+overflow))
	}
	return rows
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
