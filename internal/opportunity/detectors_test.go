package opportunity

import (
	"fmt"
	"testing"

	"bundle-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplementaryDetectorThresholds(t *testing.T) {
	var lines []models.OrderLine
	// A and B co-occur in 5 of 20 orders; C shows up everywhere so the
	// {A,C} pair has no lift
	for i := 0; i < 5; i++ {
		o := fmt.Sprintf("AB%d", i)
		lines = append(lines,
			rawLine(o, "U1", "A", "Alpha", "Shoes", 1, 10, 10),
			rawLine(o, "U1", "B", "Beta", "Hats", 1, 20, 20),
		)
	}
	for i := 0; i < 15; i++ {
		o := fmt.Sprintf("C%d", i)
		lines = append(lines,
			rawLine(o, "U2", "C", "Gamma", "Socks", 1, 5, 5),
			rawLine(o, "U2", "D", "Delta", "Belts", 1, 5, 5),
		)
	}

	ds := EngineerFeatures(lines)
	bundles := findComplementaryBundles(ds)

	require.NotEmpty(t, bundles)
	for _, b := range bundles {
		assert.Equal(t, "Complementary", b.Type)
		assert.Greater(t, b.Confidence, complementaryMinConfidence)
		assert.LessOrEqual(t, b.Confidence, complementaryMaxConfidence)
		assert.Greater(t, b.Lift, complementaryMinLift, "never returns a pair with lift <= 1.2")
		assert.Len(t, b.Items, 2)
	}

	// {A,B}: confidence 5/min(5,5)=1 capped at 0.95, lift 5*20/(5*5)=4
	found := false
	for _, b := range bundles {
		if b.Items[0].SKU == "A" && b.Items[1].SKU == "B" {
			found = true
			assert.Equal(t, 5, b.Frequency)
			assert.InDelta(t, 0.95, b.Confidence, 1e-9)
			assert.InDelta(t, 4.0, b.Lift, 1e-9)
		}
	}
	assert.True(t, found)
}

func TestComplementaryDetectorIgnoresSingleItemOrders(t *testing.T) {
	ds := EngineerFeatures([]models.OrderLine{
		rawLine("O1", "U1", "A", "Alpha", "Shoes", 1, 10, 10),
		rawLine("O2", "U1", "A", "Alpha", "Shoes", 1, 10, 10),
	})
	assert.Empty(t, findComplementaryBundles(ds))
}

func TestVolumeDetector(t *testing.T) {
	var lines []models.OrderLine
	// SKU A: 4 orders x qty 3 = 12 total, avg 3, bought by 4 users
	for i := 0; i < 4; i++ {
		lines = append(lines, rawLine(fmt.Sprintf("O%d", i), fmt.Sprintf("U%d", i), "A", "Alpha", "Shoes", 3, 10, 10))
	}
	// SKU B: plenty of orders but avg quantity 1, not a volume candidate
	for i := 0; i < 20; i++ {
		lines = append(lines, rawLine(fmt.Sprintf("B%d", i), "U9", "B", "Beta", "Hats", 1, 10, 10))
	}

	ds := EngineerFeatures(lines)
	bundles := findVolumeBundles(ds)

	require.Len(t, bundles, 1)
	b := bundles[0]
	assert.Equal(t, "Volume", b.Type)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "A", b.Items[0].SKU)

	// pack size = clamp(round(3*1.5), 2, 5) = 5, discount = 0.10+0.05*3
	assert.Equal(t, 5, b.Items[0].Quantity)
	assert.InDelta(t, 10*5*0.25, b.Savings, 1e-9)
	assert.InDelta(t, 10*5*0.75, b.BundlePrice, 1e-9)

	// confidence = min(0.9, 12/100 * 4/10)
	assert.InDelta(t, 0.048, b.Confidence, 1e-9)
}

func TestThematicDetector(t *testing.T) {
	lines := []models.OrderLine{
		rawLine("O1", "U1", "S1", "Summer beach towel", "Home", 5, 10, 10),
		rawLine("O2", "U2", "S2", "Swimwear classic", "Apparel", 3, 25, 25),
		rawLine("O3", "U3", "S3", "Beach sandals", "Footwear", 2, 15, 15),
		rawLine("O4", "U4", "S4", "Sun hat", "Apparel", 9, 12, 12),
		rawLine("O5", "U5", "X1", "Plain mug", "Kitchen", 1, 5, 5),
	}

	ds := EngineerFeatures(lines)
	bundles := findThematicBundles(ds)

	require.Len(t, bundles, 1)
	b := bundles[0]
	assert.Equal(t, "Thematic", b.Type)
	assert.Equal(t, "Summer", b.Theme)
	assert.GreaterOrEqual(t, len(b.Items), thematicMinItems)
	assert.LessOrEqual(t, len(b.Items), thematicMaxItems)

	// top seller per category: Apparel is the sun hat (qty 9), not the
	// swimwear (qty 3)
	for _, item := range b.Items {
		if item.Category == "Apparel" {
			assert.Equal(t, "S4", item.SKU)
		}
	}
	assert.InDelta(t, 4.0/50, b.Confidence, 1e-9)
}

func TestCrossSellDetectorNeverPairsSameCategory(t *testing.T) {
	var lines []models.OrderLine
	// margin leaders in one category, popular items spread over others;
	// margins and volumes vary so the 70th-percentile cutoffs fall
	// strictly below the leaders
	for i := 0; i < 10; i++ {
		lines = append(lines, rawLine(fmt.Sprintf("M%d", i), "U1", fmt.Sprintf("HM%d", i%3), "Premium", "Jewelry", 1, 10, 40+float64(i%3)))
	}
	for i := 0; i < 60; i++ {
		lines = append(lines, rawLine(fmt.Sprintf("P%d", i), "U2", fmt.Sprintf("POP%d", i%3), "Bestseller", "Basics", 2+i%3, 10, 11))
	}

	ds := EngineerFeatures(lines)
	bundles := findCrossSellBundles(ds)

	require.NotEmpty(t, bundles)
	for _, b := range bundles {
		require.Len(t, b.Items, 2)
		assert.NotEqual(t, b.Items[0].Category, b.Items[1].Category)
		assert.Equal(t, "high-margin", b.Items[0].Role)
		assert.Equal(t, "popular", b.Items[1].Role)
		assert.GreaterOrEqual(t, b.Confidence, 0.1)
		assert.LessOrEqual(t, b.Confidence, 0.85)
		assert.Greater(t, b.Confidence, crossSellMinConfidence)
	}
}

func TestScoreSortsByConfidenceAndNeverFails(t *testing.T) {
	var lines []models.OrderLine
	for i := 0; i < 10; i++ {
		o := fmt.Sprintf("O%d", i)
		lines = append(lines,
			rawLine(o, fmt.Sprintf("U%d", i), "A", "Summer shirt", "Apparel", 2, 10, 12),
			rawLine(o, fmt.Sprintf("U%d", i), "B", "Beach shorts", "Shorts", 2, 15, 18),
		)
	}

	report := Score(lines, Config{})

	require.NotNil(t, report)
	for i := 1; i < len(report.Bundles); i++ {
		assert.GreaterOrEqual(t, report.Bundles[i-1].Confidence, report.Bundles[i].Confidence)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	report := Score(nil, Config{})
	require.NotNil(t, report)
	assert.Empty(t, report.Bundles)
}
