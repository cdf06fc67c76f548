package bundler

import (
	"errors"
	"sort"
)

// ErrNoPricedColumns means the priced table carries no suggested-price
// columns at all; the request cannot be served (configuration error,
// not retried).
var ErrNoPricedColumns = errors.New("no suggested price columns available")

// DefaultTopN is the default number of bundle candidates returned
const DefaultTopN = 50

// SelectOptions describes the caller's intent when picking bundles
type SelectOptions struct {
	// ProductToClear biases the ranking toward bundles containing
	// this SKU. Empty means no clearing intent.
	ProductToClear string
	// RelatedSKUs extends the clearing target set
	RelatedSKUs []string
	// TargetDiscount is the requested discount column in whole
	// percent; 0 means none requested
	TargetDiscount int
	// TopN limits the result; 0 falls back to DefaultTopN
	TopN int
}

// BundleCandidate is a priced itemset chosen for presentation, with
// exactly one suggested price: the one at the resolved discount column.
type BundleCandidate struct {
	SKUs           []string `json:"skus"`
	Products       []string `json:"products"`
	Count          int      `json:"count"`
	Size           int      `json:"bundle_size"`
	OriginalTotal  float64  `json:"original_total_price"`
	SuggestedPrice float64  `json:"suggested_bundle_price"`
	Discount       int      `json:"discount_percent"`
}

// Selection is the ranked result of SelectBundles. Fallback reports
// that the requested discount column was missing and the first
// available column was used instead; informational, not an error.
type Selection struct {
	Candidates []BundleCandidate `json:"candidates"`
	Discount   int               `json:"discount_percent"`
	Fallback   bool              `json:"discount_fallback"`
}

// SelectBundles filters a priced table to rows with a positive price at
// the resolved discount column, ranks them against the caller's intent
// and returns the top N.
//
// With a product to clear, rows sort by (Jaccard similarity to the
// target set, count, original price), all descending; otherwise by
// (count, original price) descending. Sorting is stable so input order
// breaks ties.
func SelectBundles(table Table, opts SelectOptions) (*Selection, error) {
	if len(table.Discounts) == 0 {
		return nil, ErrNoPricedColumns
	}

	discount := table.Discounts[0]
	fallback := opts.TargetDiscount != 0
	if opts.TargetDiscount != 0 {
		for _, d := range table.Discounts {
			if d == opts.TargetDiscount {
				discount = d
				fallback = false
				break
			}
		}
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	rows := make([]PricedItemset, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row.Suggested[discount] > 0 {
			rows = append(rows, row)
		}
	}

	if opts.ProductToClear != "" {
		target := map[string]struct{}{opts.ProductToClear: {}}
		for _, sku := range opts.RelatedSKUs {
			target[sku] = struct{}{}
		}

		sims := make([]float64, len(rows))
		for i, row := range rows {
			set := make(map[string]struct{}, len(row.SKUs))
			for _, sku := range row.SKUs {
				set[sku] = struct{}{}
			}
			sims[i] = Jaccard(set, target)
		}

		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			i, j := idx[a], idx[b]
			if sims[i] != sims[j] {
				return sims[i] > sims[j]
			}
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			return rows[i].OriginalTotal > rows[j].OriginalTotal
		})

		ordered := make([]PricedItemset, len(rows))
		for i, j := range idx {
			ordered[i] = rows[j]
		}
		rows = ordered
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			return rows[i].OriginalTotal > rows[j].OriginalTotal
		})
	}

	if len(rows) > topN {
		rows = rows[:topN]
	}

	candidates := make([]BundleCandidate, len(rows))
	for i, row := range rows {
		candidates[i] = BundleCandidate{
			SKUs:           row.SKUs,
			Products:       row.Products,
			Count:          row.Count,
			Size:           row.Size,
			OriginalTotal:  row.OriginalTotal,
			SuggestedPrice: row.Suggested[discount],
			Discount:       discount,
		}
	}

	return &Selection{Candidates: candidates, Discount: discount, Fallback: fallback}, nil
}

// Jaccard returns |A∩B| / |A∪B|, and 0 when the union is empty
func Jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
