// Package aggregate derives per-region latency and uptime summaries from
// telemetry records.
//
// Summarize(records, thresholdMs) is a pure function:
//   - avg_latency, avg_uptime: arithmetic means
//   - p95_latency: nearest-rank 95th percentile (see Percentile)
//   - breaches: records with latency_ms > thresholdMs (strict)
//
// An empty record set yields the zero RegionSummary rather than an error, so
// unknown regions are answered with all-zero fields.
//
// Percentile uses the nearest-rank method: the values are sorted ascending,
// k = floor(n*p/100) is clamped to n-1 and the value at index k is returned.
// The result is always an observed value and is never interpolated, so it
// differs from linear-interpolation percentiles (numpy's default) for small n.
package aggregate
