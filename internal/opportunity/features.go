// Package opportunity segments order-line data and applies four
// rule-based detectors (complementary, volume, thematic, cross-sell)
// to surface scored bundle candidates.
package opportunity

import (
	"math"

	"bundle-service/internal/models"
)

// UnknownCategory is the sentinel for missing categorical values
const UnknownCategory = "Unknown"

// Line is one order line with engineered features and the user/product
// aggregates joined back on.
type Line struct {
	OrderNumber string
	SKU         string
	Title       string
	Category    string
	Brand       string
	UserID      string

	Quantity          float64
	OriginalUnitPrice float64
	FinalUnitPrice    float64

	PriceDiscount float64
	ProfitMargin  float64
	OrderValue    float64

	User    UserStats
	Product ProductStats
}

// UserStats are per-user purchase aggregates
type UserStats struct {
	TotalQuantity float64
	AvgQuantity   float64
	AvgPrice      float64
	TotalSpent    float64
	AvgOrderValue float64
	OrderCount    int
}

// ProductStats are per-SKU aggregates
type ProductStats struct {
	SKU         string
	Title       string
	Category    string
	Brand       string
	TotalSold   float64
	AvgQuantity float64
	AvgPrice    float64
	AvgMargin   float64
	OrderCount  int
	UniqueUsers int
}

// Dataset is the engineered order-line data every detector and the
// clustering step read from.
type Dataset struct {
	Lines       []Line
	Users       map[string]UserStats
	Products    map[string]ProductStats
	TotalOrders int

	categoryIDs map[string]int
	brandIDs    map[string]int
}

// EngineerFeatures coerces raw order lines into the engineered dataset:
// numeric values with missing treated as 0, categorical values
// defaulting to the Unknown sentinel, derived ratios, and per-user /
// per-product aggregates joined onto every line.
func EngineerFeatures(raw []models.OrderLine) *Dataset {
	ds := &Dataset{
		Lines:       make([]Line, 0, len(raw)),
		Users:       make(map[string]UserStats),
		Products:    make(map[string]ProductStats),
		categoryIDs: make(map[string]int),
		brandIDs:    make(map[string]int),
	}

	for _, r := range raw {
		qty := coerce(float64(r.Quantity))
		orig := coerce(r.OriginalUnitPrice)
		final := coerce(r.FinalUnitPrice)

		line := Line{
			OrderNumber:       r.OrderNumber,
			SKU:               r.SKU,
			Title:             categorical(r.ItemTitle),
			Category:          categorical(r.Category),
			Brand:             categorical(r.Brand),
			UserID:            r.UserID,
			Quantity:          qty,
			OriginalUnitPrice: orig,
			FinalUnitPrice:    final,
			PriceDiscount:     (orig - final) / (orig + 1e-6),
			ProfitMargin:      (final - orig) / (final + 1e-6),
			OrderValue:        qty * final,
		}
		ds.Lines = append(ds.Lines, line)

		if _, ok := ds.categoryIDs[line.Category]; !ok {
			ds.categoryIDs[line.Category] = len(ds.categoryIDs)
		}
		if _, ok := ds.brandIDs[line.Brand]; !ok {
			ds.brandIDs[line.Brand] = len(ds.brandIDs)
		}
	}

	ds.aggregate()
	return ds
}

func (ds *Dataset) aggregate() {
	type userAcc struct {
		qty, priceSum, spent float64
		lines                int
		orders               map[string]struct{}
	}
	type productAcc struct {
		qty, priceSum, marginSum float64
		lines                    int
		title, category, brand   string
		orders, users            map[string]struct{}
	}

	users := make(map[string]*userAcc)
	products := make(map[string]*productAcc)
	orders := make(map[string]struct{})

	for _, l := range ds.Lines {
		orders[l.OrderNumber] = struct{}{}

		u, ok := users[l.UserID]
		if !ok {
			u = &userAcc{orders: make(map[string]struct{})}
			users[l.UserID] = u
		}
		u.qty += l.Quantity
		u.priceSum += l.FinalUnitPrice
		u.spent += l.OrderValue
		u.lines++
		u.orders[l.OrderNumber] = struct{}{}

		p, ok := products[l.SKU]
		if !ok {
			p = &productAcc{
				title:    l.Title,
				category: l.Category,
				brand:    l.Brand,
				orders:   make(map[string]struct{}),
				users:    make(map[string]struct{}),
			}
			products[l.SKU] = p
		}
		p.qty += l.Quantity
		p.priceSum += l.FinalUnitPrice
		p.marginSum += l.ProfitMargin
		p.lines++
		p.orders[l.OrderNumber] = struct{}{}
		p.users[l.UserID] = struct{}{}
	}

	ds.TotalOrders = len(orders)

	for id, u := range users {
		n := float64(u.lines)
		stats := UserStats{
			TotalQuantity: u.qty,
			AvgQuantity:   u.qty / n,
			AvgPrice:      u.priceSum / n,
			TotalSpent:    u.spent,
			OrderCount:    len(u.orders),
		}
		if stats.OrderCount > 0 {
			stats.AvgOrderValue = u.spent / float64(stats.OrderCount)
		}
		ds.Users[id] = stats
	}

	for sku, p := range products {
		n := float64(p.lines)
		ds.Products[sku] = ProductStats{
			SKU:         sku,
			Title:       p.title,
			Category:    p.category,
			Brand:       p.brand,
			TotalSold:   p.qty,
			AvgQuantity: p.qty / n,
			AvgPrice:    p.priceSum / n,
			AvgMargin:   p.marginSum / n,
			OrderCount:  len(p.orders),
			UniqueUsers: len(p.users),
		}
	}

	for i := range ds.Lines {
		ds.Lines[i].User = ds.Users[ds.Lines[i].UserID]
		ds.Lines[i].Product = ds.Products[ds.Lines[i].SKU]
	}
}

// FeatureMatrix returns the numeric matrix the clustering step
// consumes, one row per line.
func (ds *Dataset) FeatureMatrix() [][]float64 {
	matrix := make([][]float64, len(ds.Lines))
	for i, l := range ds.Lines {
		matrix[i] = []float64{
			l.Quantity,
			l.FinalUnitPrice,
			l.OrderValue,
			l.PriceDiscount,
			l.ProfitMargin,
			float64(ds.categoryIDs[l.Category]),
			float64(ds.brandIDs[l.Brand]),
			l.User.TotalQuantity,
			l.User.AvgPrice,
			l.Product.TotalSold,
			float64(l.Product.OrderCount),
		}
	}
	return matrix
}

func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func categorical(v string) string {
	if v == "" {
		return UnknownCategory
	}
	return v
}
