// Package metrics exposes process counters and dataset gauges in the
// Prometheus text exposition format.
//
// Registry counters are lock-free atomics. Dataset gauges are read from the
// immutable telemetry store at scrape time.
//
//	regionstat_queries_total: POST /api requests answered
//	regionstat_regions_summarized_total{known}: region summaries computed
//	regionstat_requests_rejected_total{reason}: requests refused at the boundary
//	regionstat_telemetry_records{region}: records loaded per region
package metrics
