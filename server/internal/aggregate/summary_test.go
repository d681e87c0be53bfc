package aggregate

import (
	"math"
	"slices"
	"testing"

	"github.com/obsidianstack/regionstat/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func rec(latency, uptime float64) types.TelemetryRecord {
	return types.TelemetryRecord{Region: "emea", LatencyMs: latency, UptimePct: uptime}
}

// --- Summarize() ---

func TestSummarize_ThreeRecordExample(t *testing.T) {
	records := []types.TelemetryRecord{rec(100, 99.0), rec(200, 98.0), rec(300, 97.0)}

	got := Summarize(records, 150)

	if !almostEqual(got.AvgLatency, 200, 1e-9) {
		t.Errorf("AvgLatency = %v, want 200", got.AvgLatency)
	}
	if !almostEqual(got.AvgUptime, 98.0, 1e-9) {
		t.Errorf("AvgUptime = %v, want 98", got.AvgUptime)
	}
	if got.Breaches != 2 {
		t.Errorf("Breaches = %d, want 2", got.Breaches)
	}
	// k = floor(3*95/100) = 2 → sorted[2]
	if got.P95Latency != 300 {
		t.Errorf("P95Latency = %v, want 300", got.P95Latency)
	}
}

func TestSummarize_EmptyIsZero(t *testing.T) {
	for _, threshold := range []int{-1, 0, 150, math.MaxInt32} {
		got := Summarize(nil, threshold)
		if got != (types.RegionSummary{}) {
			t.Errorf("Summarize(nil, %d) = %+v, want zero", threshold, got)
		}
		got = Summarize([]types.TelemetryRecord{}, threshold)
		if got != (types.RegionSummary{}) {
			t.Errorf("Summarize([], %d) = %+v, want zero", threshold, got)
		}
	}
}

func TestSummarize_Breaches(t *testing.T) {
	records := []types.TelemetryRecord{
		rec(120, 99), rec(80, 100), rec(250, 95), rec(150, 98), rec(149.5, 97),
	}

	tests := []struct {
		name      string
		threshold int
		want      int
	}{
		{name: "threshold at max latency, nothing breaches", threshold: 250, want: 0},
		{name: "negative threshold, everything breaches", threshold: -1, want: len(records)},
		{name: "threshold equal to a latency is not a breach", threshold: 150, want: 1},
		{name: "fractional latency just under threshold", threshold: 149, want: 3},
		{name: "zero threshold", threshold: 0, want: len(records)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(records, tt.threshold)
			if got.Breaches != tt.want {
				t.Errorf("Breaches = %d, want %d", got.Breaches, tt.want)
			}
			// Cross-check against a direct count.
			var count int
			for _, r := range records {
				if r.LatencyMs > float64(tt.threshold) {
					count++
				}
			}
			if got.Breaches != count {
				t.Errorf("Breaches = %d, direct count = %d", got.Breaches, count)
			}
		})
	}
}

func TestSummarize_SingleRecord(t *testing.T) {
	r := rec(42.5, 99.9)

	below := Summarize([]types.TelemetryRecord{r}, 100)
	want := types.RegionSummary{AvgLatency: 42.5, P95Latency: 42.5, AvgUptime: 99.9, Breaches: 0}
	if below != want {
		t.Errorf("below threshold: got %+v, want %+v", below, want)
	}

	above := Summarize([]types.TelemetryRecord{r}, 10)
	want.Breaches = 1
	if above != want {
		t.Errorf("above threshold: got %+v, want %+v", above, want)
	}
}

func TestSummarize_P95IsObservedValue(t *testing.T) {
	// Deterministic pseudo-random latencies for a range of sizes.
	seed := uint32(7)
	next := func() float64 {
		seed = seed*1664525 + 1013904223
		return float64(seed%50000) / 100
	}

	for n := 1; n <= 60; n++ {
		records := make([]types.TelemetryRecord, n)
		for i := range records {
			records[i] = rec(next(), 99)
		}
		got := Summarize(records, 100)

		found := false
		for _, r := range records {
			if r.LatencyMs == got.P95Latency {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("n=%d: P95Latency %v is not one of the input latencies", n, got.P95Latency)
		}
	}
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	records := []types.TelemetryRecord{rec(300, 97), rec(100, 99), rec(200, 98)}
	before := slices.Clone(records)

	Summarize(records, 0)

	if !slices.Equal(records, before) {
		t.Errorf("records reordered: got %+v, want %+v", records, before)
	}
}

// --- Percentile() ---

func TestPercentile_NearestRank(t *testing.T) {
	seq := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[n-1-i] = float64(i + 1) // descending so sorting matters
		}
		return out
	}

	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "empty", values: nil, p: 95, want: 0},
		{name: "single value", values: []float64{7}, p: 95, want: 7},
		{name: "n=10 → k=9", values: seq(10), p: 95, want: 10},
		{name: "n=20 → k=19", values: seq(20), p: 95, want: 20},
		// Linear interpolation would give 95.05 here.
		{name: "n=100 → k=95", values: seq(100), p: 95, want: 96},
		{name: "p=0 → minimum", values: seq(10), p: 0, want: 1},
		{name: "p=100 clamps to maximum", values: seq(10), p: 100, want: 10},
		{name: "median of 4 → k=2", values: []float64{40, 10, 30, 20}, p: 50, want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(tt.values, tt.p); got != tt.want {
				t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}
