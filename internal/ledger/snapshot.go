// Package ledger provides an immutable, point-in-time view of the
// historical order data that every analysis run reads from. A refresh
// builds a whole new Snapshot; in-flight readers keep the old one.
package ledger

import (
	"sort"
	"time"

	"bundle-service/internal/models"
)

// Order is a historical order reduced to its distinct SKUs, sorted
// ascending. Repeated purchases of the same SKU within one order count
// once for itemset mining.
type Order struct {
	Number      string
	CreatedDate time.Time
	SKUs        []string
}

// Snapshot is a normalized view over a set of order lines.
//
// Reduction rules for the indexes (easy to get backwards, so stated
// explicitly): Prices is latest-by-timestamp per SKU, Titles is
// first-occurrence per SKU in input order.
type Snapshot struct {
	Lines  []models.OrderLine
	Orders []Order
	Prices map[string]float64
	Titles map[string]string
}

// BuildSnapshot folds order lines into a Snapshot.
func BuildSnapshot(lines []models.OrderLine) *Snapshot {
	snap := &Snapshot{
		Lines:  lines,
		Prices: make(map[string]float64),
		Titles: make(map[string]string),
	}

	type priceAt struct {
		price float64
		at    time.Time
	}
	latest := make(map[string]priceAt)
	orderSKUs := make(map[string]map[string]struct{})
	orderDate := make(map[string]time.Time)
	orderKeys := make([]string, 0)

	for _, line := range lines {
		if line.SKU == "" {
			continue
		}

		// latest-by-timestamp wins
		if cur, ok := latest[line.SKU]; !ok || !line.CreatedDate.Before(cur.at) {
			latest[line.SKU] = priceAt{price: line.FinalUnitPrice, at: line.CreatedDate}
		}

		// first-occurrence wins
		if _, ok := snap.Titles[line.SKU]; !ok {
			snap.Titles[line.SKU] = line.ItemTitle
		}

		set, ok := orderSKUs[line.OrderNumber]
		if !ok {
			set = make(map[string]struct{})
			orderSKUs[line.OrderNumber] = set
			orderDate[line.OrderNumber] = line.CreatedDate
			orderKeys = append(orderKeys, line.OrderNumber)
		}
		set[line.SKU] = struct{}{}
	}

	for sku, p := range latest {
		snap.Prices[sku] = p.price
	}

	snap.Orders = make([]Order, 0, len(orderKeys))
	for _, num := range orderKeys {
		skus := make([]string, 0, len(orderSKUs[num]))
		for sku := range orderSKUs[num] {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		snap.Orders = append(snap.Orders, Order{
			Number:      num,
			CreatedDate: orderDate[num],
			SKUs:        skus,
		})
	}

	return snap
}

// SKUCount returns the number of distinct SKUs in the snapshot
func (s *Snapshot) SKUCount() int {
	return len(s.Titles)
}

// Title returns the representative product title for a SKU
func (s *Snapshot) Title(sku string) string {
	return s.Titles[sku]
}

// Price returns the most recent charged unit price for a SKU and
// whether the SKU has one
func (s *Snapshot) Price(sku string) (float64, bool) {
	p, ok := s.Prices[sku]
	return p, ok
}
