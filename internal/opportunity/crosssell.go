package opportunity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Cross-sell detector thresholds
const (
	crossSellQuantile      = 0.7
	crossSellHeadSize      = 10
	crossSellMinConfidence = 0.3
	crossSellLimit         = 10
)

// findCrossSellBundles pairs high-margin products with popular products
// from a different category. Confidence blends margin, normalized
// popularity and price balance, clamped to [0.1, 0.85].
func findCrossSellBundles(ds *Dataset) []Bundle {
	if len(ds.Products) < 2 {
		return nil
	}

	skus := make([]string, 0, len(ds.Products))
	margins := make([]float64, 0, len(ds.Products))
	quantities := make([]float64, 0, len(ds.Products))
	maxQty := 0.0
	for sku, p := range ds.Products {
		skus = append(skus, sku)
		margins = append(margins, p.AvgMargin)
		quantities = append(quantities, p.TotalSold)
		if p.TotalSold > maxQty {
			maxQty = p.TotalSold
		}
	}
	sort.Strings(skus)

	sort.Float64s(margins)
	sort.Float64s(quantities)
	marginCutoff := stat.Quantile(crossSellQuantile, stat.Empirical, margins, nil)
	qtyCutoff := stat.Quantile(crossSellQuantile, stat.Empirical, quantities, nil)

	highMargin := make([]ProductStats, 0)
	popular := make([]ProductStats, 0)
	for _, sku := range skus {
		p := ds.Products[sku]
		if p.AvgMargin > marginCutoff && len(highMargin) < crossSellHeadSize {
			highMargin = append(highMargin, p)
		}
		if p.TotalSold > qtyCutoff && len(popular) < crossSellHeadSize {
			popular = append(popular, p)
		}
	}

	bundles := make([]Bundle, 0)
	for _, m := range highMargin {
		for _, p := range popular {
			// same product or same category never pairs
			if m.SKU == p.SKU || m.Category == p.Category {
				continue
			}

			marginScore := m.AvgMargin
			popularityScore := 0.0
			if maxQty > 0 {
				popularityScore = p.TotalSold / maxQty
			}
			priceBalance := 0.0
			if higher := math.Max(m.AvgPrice, p.AvgPrice); higher > 0 {
				priceBalance = 1 - math.Abs(m.AvgPrice-p.AvgPrice)/higher
			}

			confidence := marginScore*0.4 + popularityScore*0.4 + priceBalance*0.2
			confidence = math.Min(0.85, math.Max(0.1, confidence))
			if confidence <= crossSellMinConfidence {
				continue
			}

			marginItem := productItem(m)
			marginItem.Role = "high-margin"
			popularItem := productItem(p)
			popularItem.Role = "popular"

			bundles = append(bundles, Bundle{
				Type:            "Cross-sell",
				Items:           []Item{marginItem, popularItem},
				Confidence:      confidence,
				MarginScore:     marginScore,
				PopularityScore: popularityScore,
				Description:     fmt.Sprintf("High-margin %s + Popular %s", m.Category, p.Category),
			})
		}
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Confidence > bundles[j].Confidence
	})
	if len(bundles) > crossSellLimit {
		bundles = bundles[:crossSellLimit]
	}
	return bundles
}
