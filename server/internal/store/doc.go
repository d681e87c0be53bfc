// Package store holds the telemetry dataset in memory. The dataset is loaded
// once at startup, indexed by region and never mutated afterwards, so a
// *Store is safe for concurrent reads without locking.
//
// Load(path, opts) reads a JSON array of records, validates it against the
// embedded telemetry schema and normalises the uptime field ("uptime_pct" or
// "uptime", or a configured name) into TelemetryRecord.UptimePct. Any problem
// with the file is returned as an error; callers treat it as fatal.
package store
