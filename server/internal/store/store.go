package store

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/obsidianstack/regionstat/pkg/types"
	"github.com/obsidianstack/regionstat/server/internal/schema"
)

// DefaultUptimeFields are tried in order when Options.UptimeField is empty.
var DefaultUptimeFields = []string{"uptime_pct", "uptime"}

// maxReportedViolations caps the schema violations included in a load error.
const maxReportedViolations = 5

// Options controls how a dataset file is interpreted.
type Options struct {
	// UptimeField names the uptime field in the source records. When empty,
	// each record may use any of DefaultUptimeFields.
	UptimeField string
}

// RegionCount is the number of records held for one region.
type RegionCount struct {
	Region  string `json:"region"`
	Records int    `json:"records"`
}

// Store is an immutable, region-indexed telemetry dataset.
type Store struct {
	byRegion map[string][]types.TelemetryRecord
	regions  []RegionCount
	total    int
}

// FromRecords builds a Store from records. The records are copied.
func FromRecords(records []types.TelemetryRecord) *Store {
	s := &Store{
		byRegion: make(map[string][]types.TelemetryRecord),
		total:    len(records),
	}
	for _, r := range records {
		s.byRegion[r.Region] = append(s.byRegion[r.Region], r)
	}

	s.regions = make([]RegionCount, 0, len(s.byRegion))
	for region, recs := range s.byRegion {
		s.regions = append(s.regions, RegionCount{Region: region, Records: len(recs)})
	}
	slices.SortFunc(s.regions, func(a, b RegionCount) int {
		return strings.Compare(a.Region, b.Region)
	})
	return s
}

// Load reads and validates the dataset file at path.
func Load(path string, opts Options) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: read %q: %w", path, err)
	}
	records, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %q: %w", path, err)
	}
	return FromRecords(records), nil
}

// Parse decodes a JSON dataset document into normalised records.
func Parse(data []byte, opts Options) ([]types.TelemetryRecord, error) {
	violations, err := schema.Telemetry().Validate(data)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		if len(violations) > maxReportedViolations {
			violations = append(violations[:maxReportedViolations],
				fmt.Sprintf("... and %d more", len(violations)-maxReportedViolations))
		}
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(violations, "; "))
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	fields := DefaultUptimeFields
	if opts.UptimeField != "" {
		fields = []string{opts.UptimeField}
	}

	records := make([]types.TelemetryRecord, 0, len(raw))
	for i, m := range raw {
		// region and latency_ms are guaranteed by the schema.
		region, _ := m["region"].(string)
		latency, _ := m["latency_ms"].(float64)

		uptime, err := uptimeOf(m, fields)
		if err != nil {
			return nil, fmt.Errorf("record %d (region %q): %w", i, region, err)
		}
		records = append(records, types.TelemetryRecord{
			Region:    region,
			LatencyMs: latency,
			UptimePct: uptime,
		})
	}
	return records, nil
}

// uptimeOf returns the first present field of fields as an uptime percentage.
func uptimeOf(m map[string]any, fields []string) (float64, error) {
	for _, f := range fields {
		v, ok := m[f]
		if !ok {
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("field %q: want number, got %T", f, v)
		}
		if n < 0 || n > 100 {
			return 0, fmt.Errorf("field %q: %v is out of range [0, 100]", f, n)
		}
		return n, nil
	}
	return 0, fmt.Errorf("missing uptime field (want one of %s)", strings.Join(fields, ", "))
}

// RecordsFor returns a copy of the records for region in load order.
// An unknown region yields an empty slice.
func (s *Store) RecordsFor(region string) []types.TelemetryRecord {
	return slices.Clone(s.byRegion[region])
}

// Regions returns the known regions sorted by name with their record counts.
func (s *Store) Regions() []RegionCount {
	return slices.Clone(s.regions)
}

// Len returns the total number of records.
func (s *Store) Len() int {
	return s.total
}
