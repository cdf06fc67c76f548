package opportunity

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Thematic detector thresholds
const (
	thematicMinMatches    = 3
	thematicMinCategories = 2
	thematicMaxItems      = 4
	thematicMinItems      = 2
)

// themes maps a theme name to the keywords matched against product
// titles and categories
var themes = map[string][]string{
	"Summer":   {"summer", "beach", "sun", "swimwear", "shorts", "sandals"},
	"Winter":   {"winter", "warm", "coat", "boots", "scarf", "gloves"},
	"Fitness":  {"fitness", "gym", "workout", "sports", "athletic", "running"},
	"Business": {"business", "formal", "office", "professional", "suit"},
	"Casual":   {"casual", "everyday", "comfort", "relaxed"},
	"Party":    {"party", "celebration", "festive", "elegant", "dress"},
	"Travel":   {"travel", "luggage", "portable", "compact"},
}

// findThematicBundles groups keyword-matched products into themed
// collections: at least 3 matching lines spanning at least 2 distinct
// categories, with the top-selling item per category, up to 4 items.
func findThematicBundles(ds *Dataset) []Bundle {
	themeNames := make([]string, 0, len(themes))
	for name := range themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	bundles := make([]Bundle, 0)
	for _, theme := range themeNames {
		keywords := themes[theme]

		matches := make([]Line, 0)
		for _, l := range ds.Lines {
			title := strings.ToLower(l.Title)
			category := strings.ToLower(l.Category)
			for _, kw := range keywords {
				if strings.Contains(title, kw) || strings.Contains(category, kw) {
					matches = append(matches, l)
					break
				}
			}
		}
		if len(matches) < thematicMinMatches {
			continue
		}

		// top-selling line per category
		topByCategory := make(map[string]Line)
		for _, l := range matches {
			if top, ok := topByCategory[l.Category]; !ok || l.Quantity > top.Quantity {
				topByCategory[l.Category] = l
			}
		}
		if len(topByCategory) < thematicMinCategories {
			continue
		}

		categories := make([]string, 0, len(topByCategory))
		for c := range topByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		items := make([]Item, 0, thematicMaxItems)
		total := 0.0
		for _, c := range categories {
			l := topByCategory[c]
			items = append(items, Item{
				SKU:      l.SKU,
				Title:    l.Title,
				Category: l.Category,
				Price:    l.FinalUnitPrice,
			})
			total += l.FinalUnitPrice
			if len(items) == thematicMaxItems {
				break
			}
		}
		if len(items) < thematicMinItems {
			continue
		}

		bundles = append(bundles, Bundle{
			Type:        "Thematic",
			Theme:       theme,
			Items:       items,
			TotalPrice:  total,
			Confidence:  math.Min(0.8, float64(len(matches))/50),
			Description: fmt.Sprintf("%s collection bundle", theme),
		})
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].Confidence > bundles[j].Confidence
	})
	return bundles
}
