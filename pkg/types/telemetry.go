package types

// TelemetryRecord is one latency/uptime observation for a region.
// Records are immutable once loaded into the store.
type TelemetryRecord struct {
	Region    string  `json:"region"`
	LatencyMs float64 `json:"latency_ms"`
	// UptimePct is in the range 0–100. Source files may name the field
	// "uptime"; the store normalises it at load time.
	UptimePct float64 `json:"uptime_pct"`
}

// QueryRequest is the body of POST /api.
type QueryRequest struct {
	// Regions may contain duplicates and names with no records.
	Regions     []string `json:"regions"`
	ThresholdMs int      `json:"threshold_ms"`
}

// RegionSummary is the aggregate for one region.
// A region with no records has the zero value.
type RegionSummary struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	// Breaches counts records whose latency strictly exceeds the threshold.
	Breaches int `json:"breaches"`
}

// QueryResponse maps each requested region name to its summary.
type QueryResponse map[string]RegionSummary
