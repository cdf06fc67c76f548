package opportunity

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoiseLabel marks points not assigned to any cluster
const NoiseLabel = -1

// Clustering methods
const (
	MethodKMeans = "kmeans"
	MethodDBSCAN = "dbscan"
)

// ClusterConfig tunes the segmentation step
type ClusterConfig struct {
	// Method is "kmeans" (default) or "dbscan"
	Method string
	// KMin/KMax bound the silhouette scan for k-means; defaults 2..14
	KMin, KMax int
	// DefaultK is the fallback cluster count when the scan is
	// infeasible; default 8
	DefaultK int
	// MaxIter bounds Lloyd iterations per k; default 100
	MaxIter int
	// Eps and MinSamples configure DBSCAN
	Eps        float64
	MinSamples int
	// Seed fixes centroid initialization for reproducible runs
	Seed int64
}

func (c ClusterConfig) withDefaults() ClusterConfig {
	if c.Method == "" {
		c.Method = MethodKMeans
	}
	if c.KMin < 2 {
		c.KMin = 2
	}
	if c.KMax == 0 {
		c.KMax = 14
	}
	if c.DefaultK == 0 {
		c.DefaultK = 8
	}
	if c.MaxIter == 0 {
		c.MaxIter = 100
	}
	if c.Eps == 0 {
		c.Eps = 0.5
	}
	if c.MinSamples == 0 {
		c.MinSamples = 5
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// ClusterStats are descriptive statistics for one cluster, retained for
// reporting; they never gate bundle generation.
type ClusterStats struct {
	ClusterID      int      `json:"cluster_id"`
	Size           int      `json:"size"`
	AvgQuantity    float64  `json:"avg_quantity"`
	AvgPrice       float64  `json:"avg_price"`
	AvgOrderValue  float64  `json:"avg_order_value"`
	AvgDiscount    float64  `json:"avg_discount"`
	TopCategories  []string `json:"top_categories"`
	TopBrands      []string `json:"top_brands"`
	UniqueUsers    int      `json:"unique_users"`
	UniqueProducts int      `json:"unique_products"`
}

// ClusterResult is the outcome of the segmentation step
type ClusterResult struct {
	Labels     []int          `json:"labels"`
	K          int            `json:"k"`
	Silhouette float64        `json:"silhouette"`
	Stats      []ClusterStats `json:"stats"`
}

// Cluster standardizes the dataset's feature matrix and segments it.
// For k-means the cluster count is chosen by maximizing silhouette over
// the scanned k range; when the range is infeasible for the data size
// it degrades to the fixed default count rather than failing.
func Cluster(ds *Dataset, cfg ClusterConfig) *ClusterResult {
	cfg = cfg.withDefaults()

	matrix := ds.FeatureMatrix()
	n := len(matrix)
	if n == 0 {
		return &ClusterResult{Labels: []int{}}
	}

	standardize(matrix)

	var labels []int
	var silhouette float64
	k := 0

	switch cfg.Method {
	case MethodDBSCAN:
		labels = dbscan(matrix, cfg.Eps, cfg.MinSamples)
		k = distinctClusters(labels)
	default:
		labels, k, silhouette = kmeansScan(matrix, cfg)
	}

	return &ClusterResult{
		Labels:     labels,
		K:          k,
		Silhouette: silhouette,
		Stats:      clusterStats(ds, labels),
	}
}

// kmeansScan picks k by silhouette over [KMin, min(KMax, n/10)]; an
// empty scan range falls back to the default k capped at n.
func kmeansScan(matrix [][]float64, cfg ClusterConfig) (labels []int, k int, silhouette float64) {
	n := len(matrix)
	rng := rand.New(rand.NewSource(cfg.Seed))

	kMax := cfg.KMax
	if limit := n / 10; limit < kMax {
		kMax = limit
	}

	if kMax < cfg.KMin {
		// too few points to scan; degrade to the fixed default
		k = cfg.DefaultK
		if k > n {
			k = n
		}
		if k < 1 {
			k = 1
		}
		labels = kmeans(matrix, k, cfg.MaxIter, rng)
		return labels, k, silhouetteScore(matrix, labels)
	}

	bestScore := math.Inf(-1)
	for candidate := cfg.KMin; candidate <= kMax; candidate++ {
		candidateLabels := kmeans(matrix, candidate, cfg.MaxIter, rng)
		score := silhouetteScore(matrix, candidateLabels)
		if score > bestScore {
			bestScore = score
			labels = candidateLabels
			k = candidate
		}
	}
	return labels, k, bestScore
}

// kmeans is Lloyd's algorithm with random distinct-point initialization
func kmeans(matrix [][]float64, k int, maxIter int, rng *rand.Rand) []int {
	n := len(matrix)
	dims := len(matrix[0])
	if k > n {
		k = n
	}

	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = append([]float64(nil), matrix[idx]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, point := range matrix {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := floats.Distance(point, centroid, 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, point := range matrix {
			counts[labels[i]]++
			floats.Add(sums[labels[i]], point)
		}
		for c := range centroids {
			if counts[c] == 0 {
				// re-seed an emptied centroid
				centroids[c] = append([]float64(nil), matrix[rng.Intn(n)]...)
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return labels
}

// silhouetteScore is the mean silhouette coefficient over all points;
// 0 when there are fewer than 2 clusters.
func silhouetteScore(matrix [][]float64, labels []int) float64 {
	n := len(matrix)
	clusters := make(map[int][]int)
	for i, label := range labels {
		if label == NoiseLabel {
			continue
		}
		clusters[label] = append(clusters[label], i)
	}
	if len(clusters) < 2 {
		return 0
	}

	scores := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		own := labels[i]
		if own == NoiseLabel {
			continue
		}
		if len(clusters[own]) < 2 {
			scores = append(scores, 0)
			continue
		}

		a := meanDistance(matrix, i, clusters[own])
		b := math.Inf(1)
		for label, members := range clusters {
			if label == own {
				continue
			}
			if d := meanDistance(matrix, i, members); d < b {
				b = d
			}
		}

		if max := math.Max(a, b); max > 0 {
			scores = append(scores, (b-a)/max)
		} else {
			scores = append(scores, 0)
		}
	}
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}

func meanDistance(matrix [][]float64, i int, members []int) float64 {
	sum, count := 0.0, 0
	for _, j := range members {
		if j == i {
			continue
		}
		sum += floats.Distance(matrix[i], matrix[j], 2)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// dbscan is a straightforward density-based clustering; label -1 marks
// noise.
func dbscan(matrix [][]float64, eps float64, minSamples int) []int {
	n := len(matrix)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	visited := make([]bool, n)
	cluster := 0

	neighborsOf := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && floats.Distance(matrix[i], matrix[j], 2) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := neighborsOf(i)
		if len(neighbors)+1 < minSamples {
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == NoiseLabel {
				labels[j] = cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			labels[j] = cluster

			if more := neighborsOf(j); len(more)+1 >= minSamples {
				queue = append(queue, more...)
			}
		}
		cluster++
	}
	return labels
}

// standardize rescales each column to zero mean and unit variance in
// place; constant columns become all zeros.
func standardize(matrix [][]float64) {
	if len(matrix) == 0 {
		return
	}
	dims := len(matrix[0])
	column := make([]float64, len(matrix))

	for d := 0; d < dims; d++ {
		for i := range matrix {
			column[i] = matrix[i][d]
		}
		mean := stat.Mean(column, nil)
		std := stat.StdDev(column, nil)
		for i := range matrix {
			if std > 0 {
				matrix[i][d] = (matrix[i][d] - mean) / std
			} else {
				matrix[i][d] = 0
			}
		}
	}
}

func distinctClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, label := range labels {
		if label != NoiseLabel {
			seen[label] = struct{}{}
		}
	}
	return len(seen)
}

func clusterStats(ds *Dataset, labels []int) []ClusterStats {
	type acc struct {
		size                             int
		qty, price, orderValue, discount float64
		categories, brands, users, skus  map[string]int
	}

	byCluster := make(map[int]*acc)
	for i, label := range labels {
		if label == NoiseLabel {
			continue
		}
		a, ok := byCluster[label]
		if !ok {
			a = &acc{
				categories: make(map[string]int),
				brands:     make(map[string]int),
				users:      make(map[string]int),
				skus:       make(map[string]int),
			}
			byCluster[label] = a
		}
		l := ds.Lines[i]
		a.size++
		a.qty += l.Quantity
		a.price += l.FinalUnitPrice
		a.orderValue += l.OrderValue
		a.discount += l.PriceDiscount
		a.categories[l.Category]++
		a.brands[l.Brand]++
		a.users[l.UserID]++
		a.skus[l.SKU]++
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	stats := make([]ClusterStats, 0, len(ids))
	for _, id := range ids {
		a := byCluster[id]
		n := float64(a.size)
		stats = append(stats, ClusterStats{
			ClusterID:      id,
			Size:           a.size,
			AvgQuantity:    a.qty / n,
			AvgPrice:       a.price / n,
			AvgOrderValue:  a.orderValue / n,
			AvgDiscount:    a.discount / n,
			TopCategories:  topKeys(a.categories, 3),
			TopBrands:      topKeys(a.brands, 3),
			UniqueUsers:    len(a.users),
			UniqueProducts: len(a.skus),
		})
	}
	return stats
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
