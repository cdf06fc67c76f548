package opportunity

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Complementary detector thresholds
const (
	complementaryMinConfidence = 0.1
	complementaryMinLift       = 1.2
	complementaryMaxConfidence = 0.95
	complementaryLimit         = 20
)

// findComplementaryBundles runs market basket analysis over unordered
// SKU pairs co-occurring within the same order. Only orders with at
// least 2 distinct items qualify; pairs need support of at least
// max(2, 1% of qualifying orders), confidence above 0.1 and lift above
// 1.2.
func findComplementaryBundles(ds *Dataset) []Bundle {
	orderSKUs := make(map[string]map[string]struct{})
	for _, l := range ds.Lines {
		set, ok := orderSKUs[l.OrderNumber]
		if !ok {
			set = make(map[string]struct{})
			orderSKUs[l.OrderNumber] = set
		}
		set[l.SKU] = struct{}{}
	}

	ordersWith := make(map[string]int)
	for _, set := range orderSKUs {
		for sku := range set {
			ordersWith[sku]++
		}
	}

	pairCounts := make(map[string]int)
	qualifying := 0
	for _, set := range orderSKUs {
		if len(set) < 2 {
			continue
		}
		qualifying++

		skus := make([]string, 0, len(set))
		for sku := range set {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		for i := 0; i < len(skus); i++ {
			for j := i + 1; j < len(skus); j++ {
				pairCounts[skus[i]+"\x00"+skus[j]]++
			}
		}
	}

	minSupport := int(math.Max(2, float64(qualifying)*0.01))
	totalOrders := ds.TotalOrders

	pairs := make([]string, 0, len(pairCounts))
	for pair := range pairCounts {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairCounts[pairs[i]] != pairCounts[pairs[j]] {
			return pairCounts[pairs[i]] > pairCounts[pairs[j]]
		}
		return pairs[i] < pairs[j]
	})

	bundles := make([]Bundle, 0, complementaryLimit)
	for _, pair := range pairs {
		count := pairCounts[pair]
		if count < minSupport {
			continue
		}

		parts := strings.SplitN(pair, "\x00", 2)
		skuA, skuB := parts[0], parts[1]
		ordersA, ordersB := ordersWith[skuA], ordersWith[skuB]
		if ordersA == 0 || ordersB == 0 {
			continue
		}

		confidence := float64(count) / math.Min(float64(ordersA), float64(ordersB))
		lift := float64(count) * float64(totalOrders) / (float64(ordersA) * float64(ordersB))
		if confidence <= complementaryMinConfidence || lift <= complementaryMinLift {
			continue
		}

		a, b := ds.Products[skuA], ds.Products[skuB]
		bundles = append(bundles, Bundle{
			Type:        "Complementary",
			Items:       []Item{productItem(a), productItem(b)},
			Frequency:   count,
			Confidence:  math.Min(complementaryMaxConfidence, confidence),
			Lift:        lift,
			Description: fmt.Sprintf("%s + %s bundle", a.Category, b.Category),
		})
		if len(bundles) == complementaryLimit {
			break
		}
	}
	return bundles
}

func productItem(p ProductStats) Item {
	return Item{SKU: p.SKU, Title: p.Title, Category: p.Category, Price: p.AvgPrice}
}
