package util

import (
	gometrics "github.com/rcrowley/go-metrics"
	"math"
)

// ----------------------------------------------------------------------------
// Stats
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes mean, population standard deviation, min and max of values
func NewStats(values []int64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	min := float64(gometrics.SampleMin(values))
	max := float64(gometrics.SampleMax(values))
	ratio := 1.0
	if max > 0 {
		ratio = min / max
	}

	return Stats{
		StdDeviation: gometrics.SampleStdDev(values),
		Min:          min,
		Max:          max,
		Mean:         gometrics.SampleMean(values),
		MinMaxRatio:  ratio,
	}
}

type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats rates how evenly entries are spread over shards.
// The quality is 1 for a perfect spread and drops with the coefficient of
// variation and the min/max ratio.
func NewDistributionStats(shardSizes []int64) DistributionStats {
	stats := NewStats(shardSizes)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

const sizeReservoir = 1028

// sizeBoundaries are the upper bounds of the buckets, 16 B to 4 GB
var sizeBoundaries = []int{
	16, 64, 256, 1024, 4096,
	16384, 65536, 262144, 1048576,
	4194304, 16777216, 67108864,
	268435456, 1073741824, 4294967296,
}

// SizeHistogram tracks value sizes. Count and mean are exact, percentiles come
// from a uniform reservoir sample, the bucket counts give the coarse distribution.
//
// All methods are safe for concurrent use.
type SizeHistogram struct {
	sizes   gometrics.Histogram
	buckets []gometrics.Counter // one per boundary plus one for larger values
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	buckets := make([]gometrics.Counter, len(sizeBoundaries)+1)
	for i := range buckets {
		buckets[i] = gometrics.NewCounter()
	}
	return &SizeHistogram{
		sizes:   gometrics.NewHistogram(gometrics.NewUniformSample(sizeReservoir)),
		buckets: buckets,
	}
}

// AddSample records one size
func (h *SizeHistogram) AddSample(size int) {
	h.sizes.Update(int64(size))
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			h.buckets[i].Inc(1)
			return
		}
	}
	h.buckets[len(sizeBoundaries)].Inc(1)
}

// GetCount returns the total number of samples
func (h *SizeHistogram) GetCount() int64 {
	return h.sizes.Count()
}

// AverageSize returns the mean size of all samples
func (h *SizeHistogram) AverageSize() int {
	return int(h.sizes.Mean())
}

// MedianEstimate estimates the median size
func (h *SizeHistogram) MedianEstimate() int {
	return h.PercentileEstimate(50)
}

// PercentileEstimate estimates the given percentile (0-100), 0 for an empty
// histogram or an invalid percentile
func (h *SizeHistogram) PercentileEstimate(percentile int) int {
	if h.sizes.Count() == 0 || percentile < 0 || percentile > 100 {
		return 0
	}
	return int(h.sizes.Percentile(float64(percentile) / 100))
}

// SizeDistribution returns the bucket boundaries and the percentage of samples per bucket.
// The last percentage covers all sizes above the last boundary.
func (h *SizeHistogram) SizeDistribution() ([]int, []float64) {
	percentages := make([]float64, len(h.buckets))
	total := h.sizes.Count()
	if total == 0 {
		return sizeBoundaries, percentages
	}
	for i, bucket := range h.buckets {
		percentages[i] = float64(bucket.Count()) * 100.0 / float64(total)
	}
	return sizeBoundaries, percentages
}
