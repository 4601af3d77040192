package printing

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dineinclub/slipd/internal/escpos"
)

var testShop = ShopInfo{
	Name:    "Spice Garden",
	Address: "12 Main Road",
	Phone:   "555-0101",
}

func testOrder() *Order {
	return &Order{
		ID:            "ord-101",
		ReceiptNo:     101,
		Type:          "dine-in",
		TableNo:       "7",
		PaymentMethod: "cash",
		PaymentStatus: "paid",
		CreatedAt:     time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC),
	}
}

func testItems() []LineItem {
	return []LineItem{
		{OrderID: "ord-101", Name: "Veg Biryani", Quantity: 2, Price: 120.00, KitchenNo: intPtr(1)},
		{OrderID: "ord-101", Name: "Roti", Quantity: 3, Price: 15.00, KitchenNo: intPtr(2)},
		{OrderID: "ord-101", Name: "Water", Quantity: 2, Price: 20.00},
	}
}

// docText flattens the printable lines of a document for assertions.
func docText(doc escpos.Document) string {
	var sb strings.Builder
	for _, d := range doc {
		switch d.Kind {
		case escpos.KindText:
			sb.WriteString(d.Text)
			sb.WriteByte('\n')
		case escpos.KindColumns:
			sb.WriteString(escpos.LeftRight(d.Left, d.Right, escpos.LineWidth))
			sb.WriteByte('\n')
		case escpos.KindRule:
			sb.WriteString(escpos.DrawLine(d.Char, escpos.LineWidth))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func countKind(doc escpos.Document, kind escpos.DirectiveKind) int {
	n := 0
	for _, d := range doc {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func TestBuildSlipTotals(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()
	parts := Partitions(all)

	doc := b.BuildSlip(o, all, parts[0].Key, parts[0].Items, 1, len(parts), false)
	text := docText(doc)

	for _, want := range []string{"285.00", "5.70", "290.70"} {
		if !strings.Contains(text, want) {
			t.Errorf("slip text missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "TOTAL (CASH)") {
		t.Errorf("grand total not labelled by payment method:\n%s", text)
	}
}

func TestBuildSlipTotalsIdenticalOnEverySlip(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()
	parts := Partitions(all)

	for i, p := range parts {
		doc := b.BuildSlip(o, all, p.Key, p.Items, i+1, len(parts), false)
		text := docText(doc)
		if !strings.Contains(text, "290.70") {
			t.Errorf("slip %d of %d missing full-order total:\n%s", i+1, len(parts), text)
		}
	}
}

func TestBuildSlipPartitionContainsOnlyItsItems(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()
	parts := Partitions(all)

	doc := b.BuildSlip(o, all, parts[0].Key, parts[0].Items, 1, len(parts), false)
	text := docText(doc)

	if !strings.Contains(text, "Veg Biryani") {
		t.Error("kitchen 1 slip missing Veg Biryani")
	}
	for _, absent := range []string{"Roti", "Water"} {
		if strings.Contains(text, absent) {
			t.Errorf("kitchen 1 slip leaks item %q", absent)
		}
	}
	if !strings.Contains(text, "KITCHEN 1") {
		t.Error("kitchen banner missing")
	}
	if !strings.Contains(text, "Slip 1 of 3") {
		t.Error("slip numbering missing on multi-partition order")
	}
}

func TestBuildSlipNumberingOmittedForSingleSlip(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	items := []LineItem{{Name: "Water", Quantity: 1, Price: 20}}

	doc := b.BuildSlip(o, items, Unassigned, items, 1, 1, false)
	text := docText(doc)

	if strings.Contains(text, "Slip 1 of 1") {
		t.Error("single slip should not carry slip numbering")
	}
	if strings.Contains(text, "Subtotal (") {
		t.Error("single slip should not carry a partition subtotal")
	}
}

func TestBuildSlipPartitionSubtotalOnMultiSlip(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()
	parts := Partitions(all)

	doc := b.BuildSlip(o, all, parts[0].Key, parts[0].Items, 1, len(parts), false)
	text := docText(doc)

	if !strings.Contains(text, "Subtotal (KITCHEN 1)") {
		t.Errorf("multi-partition slip missing partition subtotal:\n%s", text)
	}
	if !strings.Contains(text, "240.00") {
		t.Errorf("partition subtotal amount missing:\n%s", text)
	}
}

func TestBuildSlipTableBanner(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	all := testItems()

	dineIn := testOrder()
	doc := b.BuildSlip(dineIn, all, Unassigned, all, 1, 1, false)
	if !strings.Contains(docText(doc), "TABLE 7") {
		t.Error("dine-in slip missing table banner")
	}

	delivery := testOrder()
	delivery.Type = "delivery"
	doc = b.BuildSlip(delivery, all, Unassigned, all, 1, 1, false)
	text := docText(doc)
	if strings.Contains(text, "TABLE 7") {
		t.Error("delivery slip must not carry a table banner")
	}
	if !strings.Contains(text, "** DELIVERY **") {
		t.Error("delivery slip missing delivery banner")
	}

	noTable := testOrder()
	noTable.TableNo = ""
	doc = b.BuildSlip(noTable, all, Unassigned, all, 1, 1, false)
	if strings.Contains(docText(doc), "TABLE") {
		t.Error("slip without table number must not carry a table banner")
	}
}

func TestBuildSlipCustomerBlock(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	o.CustomerName = "Asha"
	o.CustomerPhone = "555-0202"
	all := testItems()

	text := docText(b.BuildSlip(o, all, Unassigned, all, 1, 1, false))
	if !strings.Contains(text, "Customer: Asha") || !strings.Contains(text, "Phone: 555-0202") {
		t.Errorf("customer block missing:\n%s", text)
	}
}

func TestBuildSlipNameOverflowContinuation(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	items := []LineItem{{Name: "Paneer Butter Masala Family Pack", Quantity: 1, Price: 250}}

	text := docText(b.BuildSlip(o, items, Unassigned, items, 1, 1, false))
	if !strings.Contains(text, "Paneer Butter Masala ") {
		t.Errorf("truncated name column missing:\n%s", text)
	}
	if !strings.Contains(text, "  Family Pack") {
		t.Errorf("overflow continuation line missing:\n%s", text)
	}
}

func TestBuildSlipDrawerPulse(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()

	doc := b.BuildSlip(o, all, Unassigned, all, 1, 1, true)
	if countKind(doc, escpos.KindDrawer) != 1 {
		t.Fatal("openDrawer slip missing drawer pulse")
	}
	// The pulse comes after the cut so the drawer opens once paper is out.
	if doc[len(doc)-1].Kind != escpos.KindDrawer || doc[len(doc)-2].Kind != escpos.KindCut {
		t.Error("drawer pulse must be the final directive, after the cut")
	}

	doc = b.BuildSlip(o, all, Unassigned, all, 1, 1, false)
	if countKind(doc, escpos.KindDrawer) != 0 {
		t.Error("slip without openDrawer carries a drawer pulse")
	}
	if doc[len(doc)-1].Kind != escpos.KindCut {
		t.Error("slip must end with a cut")
	}
}

func TestBuildSlipDeterministic(t *testing.T) {
	b := SlipBuilder{Shop: testShop}
	o := testOrder()
	all := testItems()
	parts := Partitions(all)

	first := escpos.Encode(b.BuildSlip(o, all, parts[0].Key, parts[0].Items, 1, 3, true))
	second := escpos.Encode(b.BuildSlip(o, all, parts[0].Key, parts[0].Items, 1, 3, true))
	if !bytes.Equal(first, second) {
		t.Error("BuildSlip is not deterministic for identical inputs")
	}
}

func TestSubtotal(t *testing.T) {
	if got := Subtotal(testItems()); got != 285.00 {
		t.Errorf("Subtotal() = %v, want 285.00", got)
	}
	if got := Subtotal(nil); got != 0 {
		t.Errorf("Subtotal(nil) = %v, want 0", got)
	}
}
