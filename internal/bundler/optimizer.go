package bundler

import (
	"sort"
)

// Optimizer defaults
const (
	DefaultMaxIters = 30
	DefaultAlpha    = 0.3
)

// OptimizeParams tunes the local search
type OptimizeParams struct {
	// TargetMargin is the retained fraction of the original price,
	// i.e. 1 - discount/100
	TargetMargin float64
	// MaxIters bounds the number of improving moves; 0 falls back
	// to DefaultMaxIters
	MaxIters int
	// Alpha weights historical frequency against margin in the
	// objective; 0 falls back to DefaultAlpha
	Alpha float64
}

// OptimizationResult is the outcome of a local search run. It has no
// persistent identity and is recomputed per request.
type OptimizationResult struct {
	SKUs       []string `json:"skus"`
	Products   []string `json:"products"`
	Score      float64  `json:"optimized_score"`
	Iterations int      `json:"iterations"`
}

// Optimize runs a steepest-ascent local search over single-item swaps:
// each iteration scores every neighbor reachable by removing one member
// and adding one non-member from the universe, and moves only on strict
// improvement. This is hill climbing with no restarts; it terminates
// within MaxIters but does not guarantee a global optimum.
//
// The objective blends margin with historical co-purchase frequency:
//
//	score = Σ price[sku] × targetMargin × (1−α) + freq × α
//
// A bundle never observed historically gets frequency 1, not 0, so
// novel combinations are not automatically worthless. A bundle whose
// member prices are all unknown scores 0; the search still runs and
// returns best effort rather than an error.
func Optimize(initial []string, universe []string, prices map[string]float64, freq map[string]int, titles map[string]string, params OptimizeParams) OptimizationResult {
	maxIters := params.MaxIters
	if maxIters <= 0 {
		maxIters = DefaultMaxIters
	}
	alpha := params.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	objective := func(bundle map[string]struct{}) float64 {
		total := 0.0
		for sku := range bundle {
			total += prices[sku]
		}
		if total == 0 {
			return 0
		}
		f := 1
		if n, ok := freq[keyOf(bundle)]; ok {
			f = n
		}
		return total*params.TargetMargin*(1-alpha) + float64(f)*alpha
	}

	current := make(map[string]struct{}, len(initial))
	for _, sku := range initial {
		current[sku] = struct{}{}
	}
	bestScore := objective(current)

	iterations := 0
	for ; iterations < maxIters; iterations++ {
		var bestNeighbor map[string]struct{}
		bestNeighborScore := bestScore
		moved := false

		outs := make([]string, 0, len(current))
		for sku := range current {
			outs = append(outs, sku)
		}
		sort.Strings(outs)

		for _, out := range outs {
			for _, in := range universe {
				if _, member := current[in]; member {
					continue
				}
				neighbor := make(map[string]struct{}, len(current))
				for sku := range current {
					if sku != out {
						neighbor[sku] = struct{}{}
					}
				}
				neighbor[in] = struct{}{}

				if score := objective(neighbor); score > bestNeighborScore {
					bestNeighbor = neighbor
					bestNeighborScore = score
					moved = true
				}
			}
		}

		if !moved {
			break
		}
		current = bestNeighbor
		bestScore = bestNeighborScore
	}

	skus := make([]string, 0, len(current))
	for sku := range current {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	names := make([]string, len(skus))
	for i, sku := range skus {
		names[i] = titles[sku]
	}

	return OptimizationResult{
		SKUs:       skus,
		Products:   names,
		Score:      bestScore,
		Iterations: iterations,
	}
}

func keyOf(bundle map[string]struct{}) string {
	skus := make([]string, 0, len(bundle))
	for sku := range bundle {
		skus = append(skus, sku)
	}
	return Key(skus)
}

// PriceMap builds the SKU→price map the optimizer scores with, from one
// size's priced table. Each SKU takes its price at the chosen discount
// column, or the first column when the chosen one is absent; across
// rows the maximum observed price wins so a SKU's price is never
// under-stated.
func PriceMap(table Table, discount int) map[string]float64 {
	prices := make(map[string]float64)
	for _, row := range table.Rows {
		price, ok := row.Suggested[discount]
		if !ok && len(table.Discounts) > 0 {
			price = row.Suggested[table.Discounts[0]]
		}
		for _, sku := range row.SKUs {
			if cur, seen := prices[sku]; !seen || price > cur {
				prices[sku] = price
			}
		}
	}
	return prices
}

// FrequencyMap builds the historical co-purchase count per exact SKU
// set, keyed by the sorted comma-joined SKU list.
func FrequencyMap(table Table) map[string]int {
	freq := make(map[string]int, len(table.Rows))
	for _, row := range table.Rows {
		freq[Key(row.SKUs)] = row.Count
	}
	return freq
}

// TitleMap builds a SKU→product title lookup across all rows of a
// table; the first match per SKU wins.
func TitleMap(table Table) map[string]string {
	titles := make(map[string]string)
	for _, row := range table.Rows {
		for i, sku := range row.SKUs {
			if _, ok := titles[sku]; ok {
				continue
			}
			if i < len(row.Products) {
				titles[sku] = row.Products[i]
			}
		}
	}
	return titles
}

// Universe lists every candidate SKU appearing in a table, sorted for
// deterministic neighbor enumeration.
func Universe(table Table) []string {
	seen := make(map[string]struct{})
	for _, row := range table.Rows {
		for _, sku := range row.SKUs {
			seen[sku] = struct{}{}
		}
	}
	skus := make([]string, 0, len(seen))
	for sku := range seen {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}
