package bundler

import (
	"math"
)

// DiscountRange is an inclusive range of whole-percent discounts to
// price bundles at. The default matches the historical 25-34% window.
type DiscountRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// DefaultDiscountRange covers 25% through 34% inclusive
var DefaultDiscountRange = DiscountRange{Low: 25, High: 34}

// Percents expands the range into its whole-percent steps
func (r DiscountRange) Percents() []int {
	if r.High < r.Low {
		return nil
	}
	out := make([]int, 0, r.High-r.Low+1)
	for d := r.Low; d <= r.High; d++ {
		out = append(out, d)
	}
	return out
}

// PricedItemset is an itemset with its original total price and a
// suggested bundle price per candidate discount level.
type PricedItemset struct {
	SKUs          []string        `json:"skus"`
	Products      []string        `json:"products"`
	Count         int             `json:"count"`
	Size          int             `json:"size"`
	OriginalTotal float64         `json:"original_total_price"`
	Suggested     map[int]float64 `json:"suggested_prices"`
}

// Table holds all priced itemsets of one bundle size. Discounts keeps
// the column order of the pricing run; selection falls back to the
// first column when a requested discount is absent.
type Table struct {
	Size      int             `json:"size"`
	Discounts []int           `json:"discounts"`
	Rows      []PricedItemset `json:"rows"`
}

// PriceItemsets prices each itemset at every discount in the range.
// Itemsets containing any SKU with an unknown or non-positive price are
// dropped entirely: a missing price is a data quality problem handled
// locally, never an error. Row order follows the input.
func PriceItemsets(itemsets []Itemset, prices map[string]float64, titles map[string]string, discounts DiscountRange) Table {
	table := Table{
		Discounts: discounts.Percents(),
		Rows:      make([]PricedItemset, 0, len(itemsets)),
	}

	for _, set := range itemsets {
		table.Size = set.Size

		total := 0.0
		priceable := true
		for _, sku := range set.SKUs {
			p, ok := prices[sku]
			if !ok || p <= 0 {
				priceable = false
				break
			}
			total += p
		}
		if !priceable || total <= 0 {
			continue
		}

		names := make([]string, len(set.SKUs))
		for i, sku := range set.SKUs {
			names[i] = titles[sku]
		}

		suggested := make(map[int]float64, len(table.Discounts))
		for _, d := range table.Discounts {
			suggested[d] = Round2(total * (1 - float64(d)/100))
		}

		table.Rows = append(table.Rows, PricedItemset{
			SKUs:          set.SKUs,
			Products:      names,
			Count:         set.Count,
			Size:          set.Size,
			OriginalTotal: Round2(total),
			Suggested:     suggested,
		})
	}

	return table
}

// Round2 rounds to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
