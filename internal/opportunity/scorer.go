package opportunity

import (
	"fmt"
	"sort"

	"bundle-service/internal/models"
)

// Detector names as surfaced in Report.Degraded
const (
	DetectorComplementary = "complementary"
	DetectorVolume        = "volume"
	DetectorThematic      = "thematic"
	DetectorCrossSell     = "cross-sell"
)

// Config tunes an opportunity scoring run
type Config struct {
	Clustering ClusterConfig
}

// Report is the outcome of one scoring run. Cluster stats are
// descriptive metadata; Degraded lists detectors that failed closed and
// never makes the run itself fail.
type Report struct {
	Bundles    []Bundle       `json:"bundles"`
	Clusters   []ClusterStats `json:"clusters"`
	K          int            `json:"k"`
	Silhouette float64        `json:"silhouette"`
	Degraded   []string       `json:"degraded,omitempty"`
}

// Score engineers features over the order lines, segments them, runs
// the four detectors independently and returns every opportunity bundle
// found, globally sorted by descending confidence. A failing detector
// contributes an empty list and its name in Degraded; it never aborts
// the others.
func Score(lines []models.OrderLine, cfg Config) *Report {
	ds := EngineerFeatures(lines)
	report := &Report{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				report.Degraded = append(report.Degraded, "clustering")
			}
		}()
		result := Cluster(ds, cfg.Clustering)
		report.Clusters = result.Stats
		report.K = result.K
		report.Silhouette = result.Silhouette
	}()

	detectors := []struct {
		name string
		run  func(*Dataset) []Bundle
	}{
		{DetectorComplementary, findComplementaryBundles},
		{DetectorVolume, findVolumeBundles},
		{DetectorThematic, findThematicBundles},
		{DetectorCrossSell, findCrossSellBundles},
	}

	for _, d := range detectors {
		bundles, err := runDetector(d.run, ds)
		if err != nil {
			report.Degraded = append(report.Degraded, d.name)
			continue
		}
		report.Bundles = append(report.Bundles, bundles...)
	}

	sort.SliceStable(report.Bundles, func(i, j int) bool {
		return report.Bundles[i].Confidence > report.Bundles[j].Confidence
	})
	return report
}

// runDetector fails closed: a panicking detector yields an error
// instead of taking the whole scoring run down.
func runDetector(run func(*Dataset) []Bundle, ds *Dataset) (bundles []Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			bundles = nil
			err = fmt.Errorf("detector panicked: %v", r)
		}
	}()
	return run(ds), nil
}
