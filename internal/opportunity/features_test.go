package opportunity

import (
	"testing"
	"time"

	"bundle-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawLine(order, user, sku, title, category string, qty int, orig, final float64) models.OrderLine {
	return models.OrderLine{
		OrderNumber:       order,
		CreatedDate:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		SKU:               sku,
		ItemTitle:         title,
		Category:          category,
		Brand:             "Acme",
		Quantity:          qty,
		OriginalUnitPrice: orig,
		FinalUnitPrice:    final,
		UserID:            user,
	}
}

func TestEngineerFeaturesDerivedColumns(t *testing.T) {
	ds := EngineerFeatures([]models.OrderLine{
		rawLine("O1", "U1", "A", "Alpha", "Shoes", 2, 100, 80),
	})

	require.Len(t, ds.Lines, 1)
	l := ds.Lines[0]
	assert.InDelta(t, 0.2, l.PriceDiscount, 1e-4)
	assert.InDelta(t, -0.25, l.ProfitMargin, 1e-4)
	assert.Equal(t, 160.0, l.OrderValue)
}

func TestEngineerFeaturesUnknownSentinelAndCoercion(t *testing.T) {
	ds := EngineerFeatures([]models.OrderLine{
		{OrderNumber: "O1", UserID: "U1", SKU: "A", Quantity: -3, FinalUnitPrice: -1},
	})

	l := ds.Lines[0]
	assert.Equal(t, UnknownCategory, l.Category)
	assert.Equal(t, UnknownCategory, l.Brand)
	assert.Equal(t, UnknownCategory, l.Title)
	assert.Zero(t, l.Quantity, "negative quantity coerced to 0")
	assert.Zero(t, l.FinalUnitPrice)
}

func TestEngineerFeaturesAggregates(t *testing.T) {
	ds := EngineerFeatures([]models.OrderLine{
		rawLine("O1", "U1", "A", "Alpha", "Shoes", 2, 10, 10),
		rawLine("O1", "U1", "B", "Beta", "Hats", 1, 20, 20),
		rawLine("O2", "U1", "A", "Alpha", "Shoes", 3, 10, 10),
		rawLine("O3", "U2", "A", "Alpha", "Shoes", 1, 10, 10),
	})

	assert.Equal(t, 3, ds.TotalOrders)

	u1 := ds.Users["U1"]
	assert.Equal(t, 6.0, u1.TotalQuantity)
	assert.Equal(t, 2, u1.OrderCount)
	assert.InDelta(t, 2.0, u1.AvgQuantity, 1e-9)

	a := ds.Products["A"]
	assert.Equal(t, 6.0, a.TotalSold)
	assert.Equal(t, 3, a.OrderCount)
	assert.Equal(t, 2, a.UniqueUsers)
	assert.InDelta(t, 2.0, a.AvgQuantity, 1e-9)

	// aggregates joined back onto every line
	assert.Equal(t, u1, ds.Lines[0].User)
	assert.Equal(t, a, ds.Lines[0].Product)
}

func TestFeatureMatrixShape(t *testing.T) {
	ds := EngineerFeatures([]models.OrderLine{
		rawLine("O1", "U1", "A", "Alpha", "Shoes", 2, 10, 10),
		rawLine("O2", "U2", "B", "Beta", "Hats", 1, 20, 20),
	})

	matrix := ds.FeatureMatrix()
	require.Len(t, matrix, 2)
	assert.Len(t, matrix[0], 11)
}
