package printing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrinterRoutes maps kitchen numbers to named printers. The mapping is
// built once at startup from configuration and injected; every key without
// an override, including Unassigned, resolves to the default printer.
type PrinterRoutes struct {
	byKitchen map[PartitionKey]string
	def       string
}

func NewPrinterRoutes(overrides map[int]string, def string) *PrinterRoutes {
	byKitchen := make(map[PartitionKey]string, len(overrides))
	for no, printer := range overrides {
		byKitchen[PartitionKey(no)] = printer
	}
	return &PrinterRoutes{byKitchen: byKitchen, def: def}
}

// ParseRoutes parses a route spec of the form "1=hot-kitchen,2=tandoor".
func ParseRoutes(spec string) (map[int]string, error) {
	routes := make(map[int]string)
	if strings.TrimSpace(spec) == "" {
		return routes, nil
	}
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid route entry %q", entry)
		}
		no, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid kitchen number in route %q: %w", entry, err)
		}
		printer := strings.TrimSpace(parts[1])
		if printer == "" {
			return nil, fmt.Errorf("empty printer name in route %q", entry)
		}
		routes[no] = printer
	}
	return routes, nil
}

// Resolve returns the printer for a kitchen, falling back to the default.
func (r *PrinterRoutes) Resolve(key PartitionKey) string {
	if printer, ok := r.byKitchen[key]; ok {
		return printer
	}
	return r.def
}

// Default returns the fallback printer name.
func (r *PrinterRoutes) Default() string {
	return r.def
}

// Destinations returns every configured printer with the kitchen keys that
// resolve to it, for diagnostics. The default printer is always present,
// keyed at least by Unassigned.
func (r *PrinterRoutes) Destinations() map[string][]PartitionKey {
	dests := make(map[string][]PartitionKey)
	keys := make([]PartitionKey, 0, len(r.byKitchen))
	for k := range r.byKitchen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		printer := r.byKitchen[k]
		dests[printer] = append(dests[printer], k)
	}
	if _, ok := dests[r.def]; !ok {
		dests[r.def] = []PartitionKey{Unassigned}
	}
	return dests
}
