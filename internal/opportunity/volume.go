package opportunity

import (
	"fmt"
	"math"
	"sort"
)

// Volume detector thresholds
const (
	volumeMinTotalQty   = 10.0
	volumeMinAvgQty     = 1.5
	volumeMinOrderCount = 3
	volumeLimit         = 15
)

// findVolumeBundles surfaces SKUs with high repeat-purchase behavior as
// multi-pack offers. The recommended pack size is clamp(round(avg
// quantity × 1.5), 2, 5) and the discount grows 5 points per pack step
// above 2, starting at 10%.
func findVolumeBundles(ds *Dataset) []Bundle {
	skus := make([]string, 0, len(ds.Products))
	for sku := range ds.Products {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	bundles := make([]Bundle, 0)
	for _, sku := range skus {
		p := ds.Products[sku]
		if p.TotalSold < volumeMinTotalQty || p.AvgQuantity < volumeMinAvgQty || p.OrderCount < volumeMinOrderCount {
			continue
		}

		packSize := int(math.Round(p.AvgQuantity * 1.5))
		if packSize < 2 {
			packSize = 2
		}
		if packSize > 5 {
			packSize = 5
		}

		discount := 0.10 + 0.05*float64(packSize-2)
		confidence := math.Min(0.9, (p.TotalSold/100)*(float64(p.UniqueUsers)/10))

		gross := p.AvgPrice * float64(packSize)
		bundles = append(bundles, Bundle{
			Type: "Volume",
			Items: []Item{{
				SKU:      sku,
				Title:    p.Title,
				Category: p.Category,
				Price:    p.AvgPrice,
				Quantity: packSize,
			}},
			BasePrice:   p.AvgPrice,
			BundlePrice: gross * (1 - discount),
			Savings:     gross * discount,
			Confidence:  confidence,
			Description: fmt.Sprintf("%dx %s - Save %.0f%%", packSize, p.Title, discount*100),
		})
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Confidence > bundles[j].Confidence
	})
	if len(bundles) > volumeLimit {
		bundles = bundles[:volumeLimit]
	}
	return bundles
}
