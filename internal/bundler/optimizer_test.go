package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeMovesToHigherPricedMember(t *testing.T) {
	prices := map[string]float64{"A": 10, "B": 10, "C": 100}
	freq := map[string]int{}
	titles := map[string]string{"A": "Alpha", "B": "Beta", "C": "Gamma"}

	result := Optimize(
		[]string{"A", "B"},
		[]string{"A", "B", "C"},
		prices, freq, titles,
		OptimizeParams{TargetMargin: 0.7, Alpha: 0.3, MaxIters: 30},
	)

	// Swapping either member for C strictly improves the margin term
	assert.Contains(t, result.SKUs, "C")
	assert.Len(t, result.SKUs, 2, "single-item swaps preserve bundle size")

	initialScore := (10+10)*0.7*0.7 + 1*0.3
	assert.Greater(t, result.Score, initialScore)
}

func TestOptimizeScoreNeverDecreases(t *testing.T) {
	prices := map[string]float64{"A": 50, "B": 30, "C": 20, "D": 5}
	freq := map[string]int{"A,B": 12}
	titles := map[string]string{}

	initial := []string{"C", "D"}
	start := (20.0+5.0)*0.73*0.7 + 1*0.3

	result := Optimize(initial, []string{"A", "B", "C", "D"}, prices, freq, titles,
		OptimizeParams{TargetMargin: 0.73})

	assert.GreaterOrEqual(t, result.Score, start)
	assert.LessOrEqual(t, result.Iterations, DefaultMaxIters)
}

func TestOptimizeFrequencyRewardsObservedBundle(t *testing.T) {
	// equal prices everywhere; only the frequency term differentiates
	prices := map[string]float64{"A": 10, "B": 10, "C": 10}
	freq := map[string]int{"A,B": 50}

	result := Optimize([]string{"A", "C"}, []string{"A", "B", "C"}, prices, freq, nil,
		OptimizeParams{TargetMargin: 0.7, Alpha: 0.3})

	assert.Equal(t, []string{"A", "B"}, result.SKUs)
	expected := 20*0.7*0.7 + 50*0.3
	assert.InDelta(t, expected, result.Score, 1e-9)
}

func TestOptimizeNoNeighborsTerminates(t *testing.T) {
	prices := map[string]float64{"A": 10, "B": 10}

	result := Optimize([]string{"A", "B"}, []string{"A", "B"}, prices, nil, nil,
		OptimizeParams{TargetMargin: 0.7})

	assert.Equal(t, []string{"A", "B"}, result.SKUs)
	assert.Zero(t, result.Iterations)
}

func TestOptimizeZeroPriceBundleScoresZero(t *testing.T) {
	result := Optimize([]string{"X", "Y"}, []string{"X", "Y", "Z"},
		map[string]float64{}, nil, nil, OptimizeParams{TargetMargin: 0.7})

	assert.Zero(t, result.Score)
	assert.Len(t, result.SKUs, 2)
}

func TestPriceMapTakesMaxObserved(t *testing.T) {
	table := Table{
		Discounts: []int{25, 30},
		Rows: []PricedItemset{
			{SKUs: []string{"A", "B"}, Suggested: map[int]float64{25: 30, 30: 28}},
			{SKUs: []string{"A", "C"}, Suggested: map[int]float64{25: 45, 30: 42}},
		},
	}

	prices := PriceMap(table, 25)
	assert.Equal(t, 45.0, prices["A"], "max across rows wins")
	assert.Equal(t, 30.0, prices["B"])
}

func TestPriceMapFallsBackToFirstColumn(t *testing.T) {
	table := Table{
		Discounts: []int{25},
		Rows: []PricedItemset{
			{SKUs: []string{"A"}, Suggested: map[int]float64{25: 30}},
		},
	}

	prices := PriceMap(table, 99)
	assert.Equal(t, 30.0, prices["A"])
}

func TestFrequencyAndTitleAndUniverseMaps(t *testing.T) {
	table := Table{
		Discounts: []int{25},
		Rows: []PricedItemset{
			{SKUs: []string{"B", "A"}, Products: []string{"Beta", "Alpha"}, Count: 9, Suggested: map[int]float64{25: 10}},
			{SKUs: []string{"A", "C"}, Products: []string{"Renamed", "Gamma"}, Count: 4, Suggested: map[int]float64{25: 10}},
		},
	}

	freq := FrequencyMap(table)
	assert.Equal(t, 9, freq["A,B"], "key is sorted comma-joined")

	titles := TitleMap(table)
	assert.Equal(t, "Beta", titles["B"])
	assert.Equal(t, "Gamma", titles["C"])

	require.Equal(t, []string{"A", "B", "C"}, Universe(table))
}
