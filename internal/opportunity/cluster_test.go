package opportunity

import (
	"fmt"
	"testing"

	"bundle-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two well-separated groups of order lines: cheap small orders and
// expensive bulk orders
func separableLines(perGroup int) []models.OrderLine {
	var lines []models.OrderLine
	for i := 0; i < perGroup; i++ {
		lines = append(lines,
			rawLine(fmt.Sprintf("L%d", i), fmt.Sprintf("LU%d", i), fmt.Sprintf("CHEAP%d", i%5), "Socks", "Basics", 1, 5, 5),
			rawLine(fmt.Sprintf("H%d", i), fmt.Sprintf("HU%d", i), fmt.Sprintf("LUX%d", i%5), "Watch", "Luxury", 10, 500, 450),
		)
	}
	return lines
}

func TestClusterSeparatesObviousGroups(t *testing.T) {
	ds := EngineerFeatures(separableLines(30))

	result := Cluster(ds, ClusterConfig{})

	require.Len(t, result.Labels, len(ds.Lines))
	assert.GreaterOrEqual(t, result.K, 2)
	assert.Greater(t, result.Silhouette, 0.0)

	// all cheap lines share a label distinct from the expensive ones
	cheap := result.Labels[0]
	expensive := result.Labels[1]
	assert.NotEqual(t, cheap, expensive)
	for i, l := range ds.Lines {
		if l.Category == "Basics" {
			assert.Equal(t, cheap, result.Labels[i])
		} else {
			assert.Equal(t, expensive, result.Labels[i])
		}
	}
}

func TestClusterFallsBackOnTinyDataset(t *testing.T) {
	// 6 lines cannot support a k scan (kMax = n/10 = 0); must degrade
	// to the fixed default, not fail
	ds := EngineerFeatures(separableLines(3))

	result := Cluster(ds, ClusterConfig{DefaultK: 8})

	require.Len(t, result.Labels, 6)
	assert.NotEmpty(t, result.Stats)
}

func TestClusterEmptyDataset(t *testing.T) {
	ds := EngineerFeatures(nil)
	result := Cluster(ds, ClusterConfig{})
	assert.Empty(t, result.Labels)
}

func TestClusterStatsReporting(t *testing.T) {
	ds := EngineerFeatures(separableLines(30))
	result := Cluster(ds, ClusterConfig{})

	require.NotEmpty(t, result.Stats)
	total := 0
	for _, s := range result.Stats {
		total += s.Size
		assert.NotEmpty(t, s.TopCategories)
		assert.Positive(t, s.UniqueUsers)
	}
	assert.Equal(t, len(ds.Lines), total)
}

func TestDBSCANMarksSparsePointsAsNoise(t *testing.T) {
	matrix := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1}, {0.05, 0.05},
		{10, 10}, // far away, below min samples
	}

	labels := dbscan(matrix, 0.5, 3)

	require.Len(t, labels, 6)
	assert.Equal(t, NoiseLabel, labels[5])
	for i := 0; i < 5; i++ {
		assert.Equal(t, labels[0], labels[i])
	}
}

func TestStandardizeZeroMeanUnitVariance(t *testing.T) {
	matrix := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	standardize(matrix)

	sum := matrix[0][0] + matrix[1][0] + matrix[2][0]
	assert.InDelta(t, 0, sum, 1e-9)
	// constant column becomes all zeros
	for i := range matrix {
		assert.Zero(t, matrix[i][1])
	}
}

func TestSilhouetteScoreRange(t *testing.T) {
	matrix := [][]float64{{0, 0}, {0.2, 0}, {10, 10}, {10.2, 10}}
	labels := []int{0, 0, 1, 1}

	score := silhouetteScore(matrix, labels)
	assert.Greater(t, score, 0.9, "tight well-separated clusters score near 1")
	assert.LessOrEqual(t, score, 1.0)

	assert.Zero(t, silhouetteScore(matrix, []int{0, 0, 0, 0}), "one cluster has no silhouette")
}
