// Package query answers a QueryRequest by summarising each requested region
// from a RecordSource (normally the telemetry store).
package query

import (
	"github.com/obsidianstack/regionstat/pkg/types"
	"github.com/obsidianstack/regionstat/server/internal/aggregate"
)

// RecordSource returns the records held for a region.
// Implementations must be safe for concurrent use.
type RecordSource interface {
	RecordsFor(region string) []types.TelemetryRecord
}

// Observer is notified once per summarised region. known is false when the
// source held no records for the region.
type Observer interface {
	ObserveRegion(region string, known bool)
}

// Service summarises regions on demand. It holds no mutable state.
type Service struct {
	src RecordSource
	obs Observer
}

// New returns a Service reading from src. obs may be nil.
func New(src RecordSource, obs Observer) *Service {
	return &Service{src: src, obs: obs}
}

// Handle summarises every region named in req. Duplicate names produce a
// single entry; regions without records map to the zero summary.
func (s *Service) Handle(req types.QueryRequest) types.QueryResponse {
	out := make(types.QueryResponse, len(req.Regions))
	for _, region := range req.Regions {
		records := s.src.RecordsFor(region)
		out[region] = aggregate.Summarize(records, req.ThresholdMs)
		if s.obs != nil {
			s.obs.ObserveRegion(region, len(records) > 0)
		}
	}
	return out
}
