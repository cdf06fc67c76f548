// Package bundler implements the bundle recommendation core: frequent
// itemset mining over the order ledger, candidate pricing at a discount
// range, intent-driven selection, and local-search optimization.
package bundler

import (
	"sort"
	"strings"

	"bundle-service/internal/ledger"
)

// Bundle sizes considered for mining
const (
	MinBundleSize = 2
	MaxBundleSize = 5
)

// DefaultMinSupport is the minimum number of orders an itemset must
// appear in to be retained
const DefaultMinSupport = 5

// Itemset is an unordered set of 2-5 distinct SKUs, canonicalised as a
// sorted slice, with its co-occurrence count across orders. Immutable
// once mined for a given ledger snapshot.
type Itemset struct {
	SKUs  []string `json:"skus"`
	Count int      `json:"count"`
	Size  int      `json:"size"`
}

// Key returns the canonical composite key for a SKU set: sorted
// ascending, comma-joined. The input is not modified.
func Key(skus []string) string {
	sorted := make([]string, len(skus))
	copy(sorted, skus)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// MineItemsets enumerates every size-n sub-combination (n in sizes) of
// each order's distinct SKU set and counts occurrences across all
// orders. Work is combinatorial in order size, O(k^5) per order at the
// largest bundle size; real retail orders keep k small. Itemsets below
// minSupport are discarded. Results per size are sorted by descending
// count, ties by key, so output is deterministic.
func MineItemsets(snap *ledger.Snapshot, sizes []int, minSupport int) map[int][]Itemset {
	if minSupport <= 0 {
		minSupport = DefaultMinSupport
	}
	if len(sizes) == 0 {
		sizes = []int{2, 3, 4, 5}
	}

	counters := make(map[int]map[string]int, len(sizes))
	for _, n := range sizes {
		counters[n] = make(map[string]int)
	}

	for _, order := range snap.Orders {
		if len(order.SKUs) < MinBundleSize {
			continue
		}
		for _, n := range sizes {
			forEachCombination(order.SKUs, n, func(combo []string) {
				counters[n][strings.Join(combo, ",")]++
			})
		}
	}

	mined := make(map[int][]Itemset, len(sizes))
	for _, n := range sizes {
		itemsets := make([]Itemset, 0)
		for key, count := range counters[n] {
			if count < minSupport {
				continue
			}
			itemsets = append(itemsets, Itemset{
				SKUs:  strings.Split(key, ","),
				Count: count,
				Size:  n,
			})
		}
		sort.Slice(itemsets, func(i, j int) bool {
			if itemsets[i].Count != itemsets[j].Count {
				return itemsets[i].Count > itemsets[j].Count
			}
			return Key(itemsets[i].SKUs) < Key(itemsets[j].SKUs)
		})
		mined[n] = itemsets
	}

	return mined
}

// forEachCombination visits every size-n combination of skus in
// lexicographic index order. skus must already be sorted so the visited
// combinations are canonical.
func forEachCombination(skus []string, n int, visit func([]string)) {
	if n <= 0 || n > len(skus) {
		return
	}

	combo := make([]string, n)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == n {
			visit(combo)
			return
		}
		for i := start; i <= len(skus)-(n-depth); i++ {
			combo[depth] = skus[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}
