package printing

import (
	"fmt"
	"sort"
)

// PartitionKey identifies the kitchen a slice of an order is printed for.
type PartitionKey int

// Unassigned groups line items that carry no kitchen number.
const Unassigned PartitionKey = -1

func (k PartitionKey) Label() string {
	if k == Unassigned {
		return "UNASSIGNED"
	}
	return fmt.Sprintf("KITCHEN %d", int(k))
}

// Partition is the non-empty subset of an order's items sharing one key.
type Partition struct {
	Key   PartitionKey
	Items []LineItem
}

// Partitions groups items by kitchen number. The result is ordered by
// numeric key ascending with Unassigned always last; this ordering decides
// the print sequence and the "Slip i of N" numbering shown to kitchen
// staff. An empty item list yields no partitions.
func Partitions(items []LineItem) []Partition {
	groups := make(map[PartitionKey][]LineItem)
	for _, li := range items {
		k := li.Key()
		groups[k] = append(groups[k], li)
	}

	keys := make([]PartitionKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == Unassigned {
			return false
		}
		if keys[j] == Unassigned {
			return true
		}
		return keys[i] < keys[j]
	})

	parts := make([]Partition, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, Partition{Key: k, Items: groups[k]})
	}
	return parts
}
