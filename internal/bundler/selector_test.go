package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(skus ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		s[sku] = struct{}{}
	}
	return s
}

func TestJaccardProperties(t *testing.T) {
	a := set("A", "B", "C")
	b := set("B", "C", "D")

	assert.Equal(t, Jaccard(a, b), Jaccard(b, a), "symmetric")
	assert.Equal(t, 1.0, Jaccard(a, a), "identical sets")
	assert.Equal(t, 0.0, Jaccard(set("A"), set("B")), "disjoint non-empty sets")
	assert.Equal(t, 0.0, Jaccard(set(), set()), "empty union")
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9) // 2 shared of 4 total
}

func pricedTable() Table {
	row := func(count int, total float64, skus ...string) PricedItemset {
		suggested := map[int]float64{25: Round2(total * 0.75), 30: Round2(total * 0.70)}
		return PricedItemset{SKUs: skus, Count: count, Size: len(skus), OriginalTotal: total, Suggested: suggested}
	}
	return Table{
		Size:      2,
		Discounts: []int{25, 30},
		Rows: []PricedItemset{
			row(10, 50, "A", "B"),
			row(20, 40, "C", "D"),
			row(20, 80, "A", "C"),
			row(5, 200, "E", "F"),
		},
	}
}

func TestSelectBundlesPopularityRanking(t *testing.T) {
	sel, err := SelectBundles(pricedTable(), SelectOptions{TargetDiscount: 30, TopN: 10})
	require.NoError(t, err)

	assert.Equal(t, 30, sel.Discount)
	assert.False(t, sel.Fallback)

	require.Len(t, sel.Candidates, 4)
	// count desc, then original price desc
	assert.Equal(t, []string{"A", "C"}, sel.Candidates[0].SKUs)
	assert.Equal(t, []string{"C", "D"}, sel.Candidates[1].SKUs)
	assert.Equal(t, []string{"A", "B"}, sel.Candidates[2].SKUs)
	assert.Equal(t, []string{"E", "F"}, sel.Candidates[3].SKUs)
	assert.Equal(t, Round2(80*0.70), sel.Candidates[0].SuggestedPrice)
}

func TestSelectBundlesClearingIntent(t *testing.T) {
	sel, err := SelectBundles(pricedTable(), SelectOptions{
		ProductToClear: "E",
		RelatedSKUs:    []string{"F"},
		TargetDiscount: 25,
		TopN:           2,
	})
	require.NoError(t, err)

	require.Len(t, sel.Candidates, 2)
	// {E,F} has Jaccard 1.0 with the target set despite the lowest count
	assert.Equal(t, []string{"E", "F"}, sel.Candidates[0].SKUs)
}

func TestSelectBundlesDiscountFallback(t *testing.T) {
	sel, err := SelectBundles(pricedTable(), SelectOptions{TargetDiscount: 99})
	require.NoError(t, err)

	assert.Equal(t, 25, sel.Discount, "falls back to first available column")
	assert.True(t, sel.Fallback)
}

func TestSelectBundlesNoColumnsIsConfigurationError(t *testing.T) {
	_, err := SelectBundles(Table{}, SelectOptions{})
	assert.ErrorIs(t, err, ErrNoPricedColumns)
}

func TestSelectBundlesFiltersNonPositivePrices(t *testing.T) {
	table := pricedTable()
	table.Rows[0].Suggested[25] = 0

	sel, err := SelectBundles(table, SelectOptions{TargetDiscount: 25, TopN: 10})
	require.NoError(t, err)

	for _, c := range sel.Candidates {
		assert.Greater(t, c.SuggestedPrice, 0.0)
		assert.NotEqual(t, []string{"A", "B"}, c.SKUs)
	}
}

func TestSelectBundlesEmptyResultIsNotAnError(t *testing.T) {
	table := Table{Size: 2, Discounts: []int{25}}
	sel, err := SelectBundles(table, SelectOptions{})
	require.NoError(t, err)
	assert.Empty(t, sel.Candidates)
}
