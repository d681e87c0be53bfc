package aggregate

import (
	"math"
	"slices"

	"github.com/obsidianstack/regionstat/pkg/types"
)

// P95 is the percentile reported as p95_latency.
const P95 = 95.0

// Summarize computes the RegionSummary for records against thresholdMs.
// records is not modified.
func Summarize(records []types.TelemetryRecord, thresholdMs int) types.RegionSummary {
	if len(records) == 0 {
		return types.RegionSummary{}
	}

	threshold := float64(thresholdMs)
	latencies := make([]float64, 0, len(records))
	var latencySum, uptimeSum float64
	var breaches int
	for _, r := range records {
		latencies = append(latencies, r.LatencyMs)
		latencySum += r.LatencyMs
		uptimeSum += r.UptimePct
		if r.LatencyMs > threshold {
			breaches++
		}
	}

	n := float64(len(records))
	return types.RegionSummary{
		AvgLatency: latencySum / n,
		P95Latency: Percentile(latencies, P95),
		AvgUptime:  uptimeSum / n,
		Breaches:   breaches,
	}
}

// Percentile returns the nearest-rank p-th percentile of values, p in [0, 100].
// It returns 0 for an empty slice. values is not reordered.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	k := int(math.Floor(float64(n) * p / 100))
	return sorted[clamp(k, 0, n-1)]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
