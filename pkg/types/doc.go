// Package types defines the shared Go types used by the server packages and
// the CLI. These are the canonical in-memory representations of telemetry
// records, query requests and per-region summaries, and carry the JSON tags
// of the HTTP wire format.
package types
